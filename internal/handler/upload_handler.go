package handler

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (h *Handler) uploadCommand() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF or TXT file (up to 10MB by default)",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			if err := requireSession(ctx, d); err != nil {
				return err
			}
			control := d.Uploads()
			if err := control.Select(args[0]); err != nil {
				return fmt.Errorf("%s: %w", control.Error(), err)
			}
			file, _ := control.Selected()
			if file.Pages > 0 {
				fmt.Fprintf(d.Prompt.ErrOut(), "%s: %d pages\n", file.Name, file.Pages)
			}
			last := -1
			progress := func(p float64) {
				if quiet || int(p) == last {
					return
				}
				last = int(p)
				fmt.Fprintf(d.Prompt.ErrOut(), "\rUploading %s... %3d%%", file.Name, last)
			}
			doc, err := d.Coordinator.Upload(ctx, control, progress)
			if !quiet && last >= 0 {
				fmt.Fprintln(d.Prompt.ErrOut())
			}
			if err != nil {
				if msg := control.Error(); msg != "" {
					return fmt.Errorf("%s: %w", msg, err)
				}
				return err
			}
			renderDocument(d.Prompt.Out(), *doc)
			suggestions, err := primeSuggestions(ctx, d)
			if err != nil {
				return err
			}
			renderSuggestions(d.Prompt.Out(), suggestions)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show upload progress")
	return cmd
}
