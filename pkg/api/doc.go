// Package api is the tree builder surface for Delphi screens.
//
// It wraps dom.El with one constructor per element kind plus typed attribute
// helpers, so a screen reads like the tree it produces:
//
//	tree := api.Menu(api.Title("Shop"),
//	    api.Button(api.Key("buy"), api.Label("Buy"), api.ActionCommand("shop buy %player%")),
//	    api.Button(api.Key("close"), api.Label("Close"), api.ActionClose()),
//	)
//
// Constructors accept the same argument types as dom.El: Key, Attr, []Attr,
// Attrs, *Node, []*Node, string (text child) and nil (ignored). Nothing is
// validated against host capabilities; construction never fails.
package api
