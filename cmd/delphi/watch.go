package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/page"
	"github.com/arcadiusmc/delphi/pkg/patch"
)

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Render pages to in-memory surfaces on every change",
		Long: `Watch a page directory and render each page to its own in-memory
surface whenever the file changes, reporting the edit script applied.
Parse errors are printed and the surface keeps its last good tree.

The directory defaults to pages.dir of the config.

Examples:
  delphi watch
  delphi watch ui/pages`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Resolve(a.cfg.Pages.Dir)
			if len(args) == 1 {
				dir = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ps := newPageSync(a, func(context.Context, string) (patch.HostAdapter, error) {
				return memhost.New(), nil
			})
			a.info("watching %s", dir)
			return a.runPages(ctx, dir, ps)
		},
	}
	return cmd
}

// runPages feeds page events to ps until ctx is done, then closes every
// surface.
func (a *app) runPages(ctx context.Context, dir string, ps *pageSync) error {
	w, err := page.NewWatcher(page.WatcherConfig{
		Dir:      dir,
		Debounce: a.cfg.Debounce(),
		Logger:   a.logger.With("component", "page"),
	})
	if err != nil {
		return err
	}

	err = w.Run(ctx, func(e page.Event) { ps.handle(ctx, e) })

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := ps.closeAll(closeCtx); cerr != nil {
		a.logger.Warn("closing surfaces failed", "error", cerr)
	}

	if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
