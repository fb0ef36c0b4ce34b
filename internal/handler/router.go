package handler

import (
	"github.com/spf13/cobra"
)

type Handler struct {
	load DepsFunc
	deps *Deps
}

func (h *Handler) get() (*Deps, error) {
	if h.deps != nil {
		return h.deps, nil
	}
	d, err := h.load()
	if err != nil {
		return nil, err
	}
	h.deps = d
	return d, nil
}

// RegisterCommands attaches every docqa subcommand to root. Deps are
// built on first use, so flags on root are parsed by then.
func RegisterCommands(root *cobra.Command, load DepsFunc) {
	h := &Handler{load: load}

	root.AddCommand(h.loginCommand())
	root.AddCommand(h.signupCommand())
	root.AddCommand(h.logoutCommand())
	root.AddCommand(h.whoamiCommand())

	root.AddCommand(h.uploadCommand())

	docs := &cobra.Command{Use: "docs", Short: "Manage uploaded documents"}
	docs.AddCommand(h.docsListCommand())
	docs.AddCommand(h.docsStatsCommand())
	docs.AddCommand(h.docsDeleteCommand())
	docs.AddCommand(h.docsExportCommand())
	root.AddCommand(docs)

	root.AddCommand(h.askCommand())
	root.AddCommand(h.chatCommand())
	root.AddCommand(h.compareCommand())
	root.AddCommand(h.suggestCommand())
	root.AddCommand(h.watchCommand())
}

// run adapts a handler body to cobra's RunE.
func (h *Handler) run(fn func(cmd *cobra.Command, d *Deps, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := h.get()
		if err != nil {
			return err
		}
		return fn(cmd, d, args)
	}
}
