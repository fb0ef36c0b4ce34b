package handler

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (h *Handler) docsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents, newest first",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			docs := d.Coordinator.Documents()
			if asJSON {
				enc := json.NewEncoder(d.Prompt.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}
			renderDocuments(d.Prompt.Out(), docs)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print documents as JSON")
	return cmd
}

func (h *Handler) docsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			renderStats(d.Prompt.Out(), d.Coordinator.Library().Stats())
			return nil
		}),
	}
}

func (h *Handler) docsDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <doc_id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			d.Prompt.AssumeYes(yes)
			deleted, err := d.Coordinator.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(d.Prompt.Out(), "Cancelled")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (h *Handler) docsExportCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the document list and statistics as an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			if err := requireSession(cmd.Context(), d); err != nil {
				return err
			}
			loc, err := d.Exports.ExportDocuments(cmd.Context(), name, d.Coordinator.Documents())
			if err != nil {
				return err
			}
			fmt.Fprintf(d.Prompt.Out(), "Exported to %s\n", loc)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "xlsx", "documents.xlsx", "workbook name")
	return cmd
}
