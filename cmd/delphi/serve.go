package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/internal/debugserver"
	"github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/debugdump"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/host/remote"
	"github.com/arcadiusmc/delphi/pkg/journal"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
	"github.com/arcadiusmc/delphi/pkg/surface"
	"github.com/arcadiusmc/delphi/pkg/telemetry"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		connect string
		pages   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep host surfaces in sync with the page directory",
		Long: `Render every page to a surface and re-render it when the file changes.

With --connect each surface is a websocket connection to a host bridge
(see "delphi host"); otherwise surfaces live in memory. Metrics, surface
inspection and dumps are served on debug.addr, and every applied script
is journaled when journal.path is set.

Examples:
  delphi serve
  delphi serve --connect ws://127.0.0.1:7070/bridge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Resolve(a.cfg.Pages.Dir)
			if pages != "" {
				dir = pages
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, dir, connect)
		},
	}

	cmd.Flags().StringVar(&connect, "connect", "", "Websocket URL of a host bridge")
	cmd.Flags().StringVar(&pages, "pages", "", "Page directory (default pages.dir)")

	return cmd
}

func (a *app) serve(ctx context.Context, dir, connect string) error {
	metrics := telemetry.NewMetrics(
		telemetry.WithNamespace(a.cfg.Metrics.Namespace),
		telemetry.WithSubsystem(a.cfg.Metrics.Subsystem),
	)
	opts := []surface.Option{surface.WithMetrics(metrics)}

	if path := a.cfg.Resolve(a.cfg.Journal.Path); path != "" {
		w, err := journal.Create(path,
			journal.WithCompression(a.cfg.Journal.Compress),
			journal.WithLogger(a.logger.With("component", "journal")),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				a.logger.Warn("journal close failed", "error", err)
			}
		}()
		opts = append(opts, surface.WithReconcileOptions(reconcile.WithObserver(w)))
		a.info("journaling to %s", path)
	}

	open := func(context.Context, string) (patch.HostAdapter, error) {
		return memhost.New(), nil
	}
	if connect != "" {
		open = func(ctx context.Context, id string) (patch.HostAdapter, error) {
			c, err := remote.Dial(ctx, connect, id,
				remote.WithCallTimeout(a.cfg.CallTimeout()),
				remote.WithLogger(a.logger.With("component", "remote", "surface", id)),
			)
			if err != nil {
				return nil, errors.FromError(err, "D030")
			}
			return c, nil
		}
	}
	ps := newPageSync(a, open, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debugErr := make(chan error, 1)
	if a.cfg.DebugEnabled() {
		sink, err := a.dumpSink()
		if err != nil {
			return err
		}
		srv := debugserver.New(ps.manager, debugserver.Config{
			Addr:           a.cfg.Debug.Addr,
			AllowedOrigins: a.cfg.Debug.AllowedOrigins,
			Sink:           sink,
			Logger:         a.logger.With("component", "debugserver"),
		})
		go func() {
			err := srv.Run(ctx)
			if err != nil {
				cancel()
			}
			debugErr <- err
		}()
		a.info("debug server on http://%s", a.cfg.Debug.Addr)
	} else {
		debugErr <- nil
	}

	a.info("serving pages from %s", dir)
	err := a.runPages(ctx, dir, ps)
	cancel()
	if derr := <-debugErr; err == nil {
		err = derr
	}
	return err
}

// dumpSink picks S3 when a bucket is configured, the dump directory
// otherwise.
func (a *app) dumpSink() (debugdump.Sink, error) {
	s3cfg := a.cfg.Debug.S3
	if s3cfg.Bucket != "" {
		client, err := debugdump.NewS3Client(s3cfg.Region)
		if err != nil {
			return nil, errors.New("D041").Wrap(err)
		}
		return debugdump.NewS3Sink(client, s3cfg.Bucket, s3cfg.Prefix), nil
	}
	sink, err := debugdump.NewFileSink(a.cfg.Resolve(a.cfg.Debug.DumpDir))
	if err != nil {
		return nil, errors.New("D041").Wrap(err)
	}
	return sink, nil
}

func (a *app) hostCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run a bridge backed by in-memory hosts",
		Long: `Accept bridge connections and apply their calls to in-memory hosts,
one per surface, printing every surface as it closes. Useful as a stand-in
game server for "delphi serve --connect".

Examples:
  delphi host --addr 127.0.0.1:7070`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.New("D040").WithMessage("cannot listen on %s", addr).Wrap(err)
			}
			return a.host(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "Listen address")

	return cmd
}

func (a *app) host(ctx context.Context, ln net.Listener) error {
	bridge := remote.NewBridge(
		func(r *http.Request, id string) (patch.HostAdapter, error) {
			a.success("surface %s connected from %s", id, r.RemoteAddr)
			return memhost.New(), nil
		},
		remote.WithBridgeLogger(a.logger.With("component", "bridge")),
		remote.WithOnClose(func(id string, adapter patch.HostAdapter) {
			a.warn("surface %s closed with %d elements left", id, adapter.(*memhost.Host).Count())
		}),
	)
	defer bridge.Close()

	r := chi.NewRouter()
	r.Handle(a.cfg.Bridge.Path, bridge)

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.info("bridge on ws://%s%s", ln.Addr(), a.cfg.Bridge.Path)

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bridge.Close()
		return srv.Shutdown(shutdownCtx)
	}
}
