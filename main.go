package main

import "github.com/stegai/steg-cli/cmd"

func main() {
	cmd.Execute()
}
