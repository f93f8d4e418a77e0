package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/pkg/journal"
	"github.com/arcadiusmc/delphi/pkg/render"
)

func (a *app) replayCmd() *cobra.Command {
	var (
		surface string
		tree    bool
	)

	cmd := &cobra.Command{
		Use:   "replay [JOURNAL]",
		Short: "Replay a journal onto in-memory hosts",
		Long: `Replay every record of a journal onto one in-memory host per surface
and report what each surface shows at the end.

The journal defaults to journal.path of the config.

Examples:
  delphi replay delphi.journal
  delphi replay --surface shop --tree`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Resolve(a.cfg.Journal.Path)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return usageError("no journal given and journal.path is not configured")
			}

			r, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer r.Close()

			rp, err := journal.Replay(cmd.Context(), r)
			if err != nil {
				return err
			}

			surfaces := rp.Surfaces()
			if surface != "" {
				if _, ok := rp.Host(surface); !ok {
					return usageError("surface %q is not in the journal", surface)
				}
				surfaces = []string{surface}
			}

			renderer := render.NewRenderer(render.RendererConfig{Pretty: true})
			for _, id := range surfaces {
				host, _ := rp.Host(id)
				state := a.green("ok")
				if rp.Degraded(id) {
					state = a.red("degraded")
				}
				fmt.Fprintf(a.out, "%s  %d elements  %s\n", a.cyan(id), host.Count(), state)

				if tree {
					t, _ := rp.Tree(id)
					if err := renderer.RenderToWriter(a.out, t); err != nil {
						return err
					}
				}
			}

			total, failed := rp.Records()
			a.info("%d records (%d failed) across %d surfaces", total, failed, len(rp.Surfaces()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&surface, "surface", "s", "", "Report only this surface")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the replayed tree of each surface")

	return cmd
}
