// cmd/jobs.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/ui"
	"github.com/stegai/steg-cli/internal/workflow"
)

var (
	encodeWait     bool
	encodeDownload string
	decodeWait     bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <media_id>",
	Short: "Start an encode job for an uploaded image",
	Long: `Starts an asynchronous encode job and prints its request ID.

With --wait the job is polled until it completes, fails or the poll bound
is reached. --download saves the encoded image into a directory and
implies --wait.`,
	Example: `  # Start a job and return immediately
  steg encode 5f1c...

  # Wait for the job and save <media_id>_encoded.<ext> into ./out
  steg encode 5f1c... --download out`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaID := args[0]
		if encodeDownload != "" {
			encodeWait = true
		}

		s, err := newSession(cmd.Context(), cmd, "")
		if err != nil {
			return err
		}
		defer s.close()

		opts := workflow.Options{
			Owner:   s.cfg.Owner,
			License: s.cfg.LicenseValue(),
			Method:  s.cfg.Method,
		}

		if !encodeWait {
			method := opts.Method
			ticket, err := s.client.Encode(cmd.Context(), stegapi.JobRequest{
				MediaID: mediaID,
				License: opts.License,
				Owner:   opts.Owner,
				Method:  &method,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ticket.RequestID)
			return nil
		}

		job, err := s.pipeline.Encode(cmd.Context(), mediaID, opts)
		if err != nil {
			return err
		}
		if encodeDownload == "" {
			printJob(cmd.OutOrStdout(), job)
			return nil
		}

		mediaURL := ""
		if job.Status != nil {
			mediaURL = job.Status.MediaURL()
		}
		opts.InputPath = downloadName(mediaID, mediaURL)
		opts.OutputDir = encodeDownload
		res, err := s.pipeline.Download(cmd.Context(), job, opts)
		if err != nil {
			return err
		}
		printJob(cmd.OutOrStdout(), job)
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatKeyValue("Encoded file", res.Path))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <media_id>",
	Short: "Start a decode job for an uploaded image",
	Long: `Starts an asynchronous decode job and prints its request ID. The image
must have been uploaded with --request-type decode.

With --wait the job is polled until it finishes and the decoded media
data is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaID := args[0]

		s, err := newSession(cmd.Context(), cmd, "")
		if err != nil {
			return err
		}
		defer s.close()

		if !decodeWait {
			ticket, err := s.client.Decode(cmd.Context(), mediaID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ticket.RequestID)
			return nil
		}

		job, err := s.pipeline.Decode(cmd.Context(), mediaID)
		if err != nil {
			return err
		}
		printJob(cmd.OutOrStdout(), job)
		return nil
	},
}

// downloadName returns the local name for a standalone download: the media
// ID with the extension of the media URL.
func downloadName(mediaID, mediaURL string) string {
	ext := ""
	if u, err := url.Parse(mediaURL); err == nil {
		ext = path.Ext(u.Path)
	}
	return mediaID + ext
}

// printJob prints a finished job's identifiers and media data.
func printJob(w io.Writer, job *workflow.JobOutcome) {
	fmt.Fprintln(w, ui.FormatKeyValue("Request", job.RequestID))
	fmt.Fprintln(w, ui.FormatKeyValue("Status", job.LastStatus))
	fmt.Fprintln(w, ui.FormatKeyValue("Polls", fmt.Sprintf("%d in %s", job.Attempts, ui.FormatDuration(job.Duration()))))
	if md := job.MediaData(); len(md) > 0 {
		fmt.Fprintln(w, ui.FormatKeyValue("Media data", indentJSON(md)))
	}
}

func indentJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(b)
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)

	encodeCmd.Flags().BoolVar(&encodeWait, "wait", false, "wait for the job to finish")
	encodeCmd.Flags().StringVar(&encodeDownload, "download", "", "save the encoded image into this directory (implies --wait)")
	encodeCmd.Flags().String("owner", "", "owner recorded with the watermark")
	encodeCmd.Flags().Int("method", 0, "encoding method")

	decodeCmd.Flags().BoolVar(&decodeWait, "wait", false, "wait for the job to finish")
}
