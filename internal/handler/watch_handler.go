package handler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/app"
	"github.com/xxxsen/docqa/internal/job"
)

func (h *Handler) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the document list fresh and report changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, d)
		}),
	}
}

func watch(ctx context.Context, d *Deps) error {
	if err := requireSession(ctx, d); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.Prompt.OnLogin(cancel)
	defer d.Prompt.OnLogin(nil)

	out := d.Prompt.Out()
	refresh := job.NewLibraryRefreshJob(d.Coordinator, func(change job.LibraryChange) {
		for _, doc := range change.Added {
			fmt.Fprintf(out, "+ %s (%s)\n", doc.Filename, doc.DocID)
		}
		for _, doc := range change.Removed {
			fmt.Fprintf(out, "- %s (%s)\n", doc.Filename, doc.DocID)
		}
	})
	if err := d.Scheduler.AddJob(refresh, d.Refresh.LibraryCron); err != nil {
		return err
	}
	if err := d.Scheduler.AddJob(job.NewSessionCheckJob(d.Coordinator), d.Refresh.SessionCron); err != nil {
		return err
	}
	if err := d.Scheduler.RunNow(refresh.Name()); err != nil {
		return err
	}
	renderDocuments(out, d.Coordinator.Documents())

	d.Scheduler.Start(ctx)
	defer d.Scheduler.Stop()
	for _, entry := range d.Scheduler.Entries() {
		logutil.GetLogger(ctx).Info("watching", zap.String("job", entry.Name), zap.String("spec", entry.Spec), zap.Time("next", entry.Next))
	}
	fmt.Fprintln(d.Prompt.ErrOut(), "Watching for changes, press Ctrl-C to stop.")

	<-ctx.Done()
	if d.Coordinator.View() == app.ViewLogin {
		return errNotSignedIn
	}
	return nil
}
