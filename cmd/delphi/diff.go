package main

import (
	"context"
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/page"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/render"
)

func (a *app) diffCmd() *cobra.Command {
	var (
		text   bool
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the edit script between two pages",
		Long: `Print the edit script that turns the tree of page OLD into the tree
of page NEW, one op per line.

With --text the printed trees are compared line by line instead.
With --verify the script is applied to an in-memory host holding OLD and
the result is checked against NEW.

Examples:
  delphi diff pages/shop.xml pages/shop-v2.xml
  delphi diff --text old.xml new.xml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := page.ParseFile(args[0])
			if err != nil {
				return err
			}
			next, err := page.ParseFile(args[1])
			if err != nil {
				return err
			}

			if text {
				return a.textDiff(prev.Tree, next.Tree)
			}

			script := dom.Diff(prev.Tree, next.Tree)
			a.printScript(script)
			if verify {
				return a.verify(cmd.Context(), prev.Tree, next.Tree, script)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&text, "text", "t", false, "Compare the printed trees line by line")
	cmd.Flags().BoolVar(&verify, "verify", false, "Apply the script to an in-memory host and check the result")

	return cmd
}

func (a *app) printScript(script dom.Script) {
	if len(script) == 0 {
		a.success("no changes")
		return
	}
	for _, op := range script {
		var mark string
		switch op.Type {
		case dom.OpInsert:
			mark = a.green("+")
		case dom.OpRemove:
			mark = a.red("-")
		case dom.OpUpdate:
			mark = a.yellow("~")
		case dom.OpMove:
			mark = a.cyan(">")
		default:
			mark = a.yellow("!")
		}
		fmt.Fprintf(a.out, "%s %s\n", mark, op)
	}
	fmt.Fprintln(a.out, a.gray(summarize(script)))
}

// summarize returns e.g. "3 ops: 1 insert, 2 update".
func summarize(script dom.Script) string {
	parts := make([]string, 0, 5)
	for _, t := range []dom.OpType{dom.OpInsert, dom.OpRemove, dom.OpUpdate, dom.OpMove, dom.OpReplace} {
		if n := script.Count(t); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(t.String())))
		}
	}
	noun := "ops"
	if len(script) == 1 {
		noun = "op"
	}
	return fmt.Sprintf("%d %s: %s", len(script), noun, strings.Join(parts, ", "))
}

func (a *app) verify(ctx context.Context, prev, next *dom.Node, script dom.Script) error {
	host := memhost.New()
	p := patch.New(host, patch.WithLogger(a.logger))
	if err := p.Apply(ctx, dom.Diff(nil, prev)); err != nil {
		return err
	}
	if err := p.Apply(ctx, script); err != nil {
		return err
	}
	if !host.Matches(next) {
		return fmt.Errorf("script does not reproduce the new tree")
	}
	a.success("verified on %d live elements", host.Count())
	return nil
}

func (a *app) textDiff(prev, next *dom.Node) error {
	r := render.NewRenderer(render.RendererConfig{Pretty: true})
	before, err := r.RenderToString(prev)
	if err != nil {
		return err
	}
	after, err := r.RenderToString(next)
	if err != nil {
		return err
	}

	dmp := diffpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	changed := false
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffpatch.DiffInsert:
				changed = true
				fmt.Fprintln(a.out, a.green("+ "+line))
			case diffpatch.DiffDelete:
				changed = true
				fmt.Fprintln(a.out, a.red("- "+line))
			default:
				fmt.Fprintln(a.out, "  "+line)
			}
		}
	}
	if !changed {
		a.success("no changes")
	}
	return nil
}
