package main

import (
	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/page"
	"github.com/arcadiusmc/delphi/pkg/render"
)

func (a *app) printCmd() *cobra.Command {
	var (
		compact  bool
		treeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "print PAGE",
		Short: "Parse a page and print it in canonical form",
		Long: `Parse a page and print it back: attributes quoted and escaped, one
element per line, head options sorted. Unknown sections are dropped.

Examples:
  delphi print pages/shop.xml
  delphi print --tree pages/shop.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := page.ParseFile(args[0])
			if err != nil {
				return err
			}
			for _, name := range p.Ignored {
				a.logger.Debug("section dropped", "page", p.Name, "section", name)
			}

			r := render.NewRenderer(render.RendererConfig{Pretty: !compact})
			if treeOnly || p.Tree.Kind() != dom.KindBody {
				return r.RenderToWriter(a.out, p.Tree)
			}
			return r.RenderPage(a.out, render.PageData{Options: p.Options, Body: p.Tree})
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print without indentation")
	cmd.Flags().BoolVar(&treeOnly, "tree", false, "Print only the tree, without the page head")

	return cmd
}
