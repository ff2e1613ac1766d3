// cmd/upload.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/media"
	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/ui"
)

var (
	uploadRequestType string
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Upload an image and print its media ID",
	Long: `Requests a presigned upload ticket and posts the image to it.
The media ID is printed on stdout so it can be passed to "steg encode" or
"steg decode".`,
	Example: `  # Upload an image for encoding
  steg upload cat.png

  # Upload an encoded image for decoding
  steg upload cat_encoded.png --request-type decode`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		contentType := uploadContentType
		if contentType == "" {
			if contentType, err = media.ContentType(path); err != nil {
				return err
			}
		}
		name, _ := media.Split(path)

		spinner := ui.NewSpinner(cmd.ErrOrStderr(), ui.IsTTY() && !noColor)
		spinner.Start(fmt.Sprintf("Uploading %s", path))
		res, err := client.Upload(cmd.Context(), stegapi.UploadOptions{
			Path:        path,
			Name:        name,
			ContentType: contentType,
			RequestType: uploadRequestType,
			Owner:       cfg.Owner,
			License:     cfg.LicenseValue(),
		})
		if err != nil {
			spinner.Fail("Upload failed")
			return err
		}
		spinner.Success(fmt.Sprintf("Uploaded %d bytes", res.Bytes))

		fmt.Fprintln(cmd.OutOrStdout(), res.MediaID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadRequestType, "request-type", stegapi.RequestTypeEncode, "what the upload is for: encode or decode")
	_ = uploadCmd.RegisterFlagCompletionFunc("request-type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{stegapi.RequestTypeEncode, stegapi.RequestTypeDecode}, cobra.ShellCompDirectiveNoFileComp
	})
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override the content type derived from the file extension")
	uploadCmd.Flags().String("owner", "", "owner recorded with the upload")
}
