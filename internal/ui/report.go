package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/mattn/go-runewidth"

	"github.com/stegai/steg-cli/internal/stegapi"
)

// RenderUsage prints the usage report: the total on the first line, then
// each item numbered from 1 in the order the API returned them. Lines wider
// than width are truncated; width <= 0 disables truncation.
func RenderUsage(w io.Writer, report *stegapi.UsageReport, width int) {
	fmt.Fprintf(w, "Total number of items: %d\n", report.Total)
	for i, item := range report.Items {
		line := fmt.Sprintf("%d: %s", i+1, compactJSON(item))
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		fmt.Fprintln(w, line)
	}
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Hyperlink wraps text in an OSC 8 escape so terminals render it as a link
// to target.
func Hyperlink(target, text string) string {
	return fmt.Sprintf("\x1b]8;;%s\x07%s\x1b]8;;\x07", target, text)
}

// FileLink renders path as a clickable file:// link when enabled, and as
// plain text otherwise.
func FileLink(path string, enabled bool) string {
	if !enabled {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return Hyperlink(u.String(), path)
}
