// Package dom provides the virtual tree used to describe in-game user
// interfaces, and the differ that turns two trees into an edit script.
//
// # Core Types
//
// Node is an immutable description of one UI element: a Kind, ordered
// Attrs, ordered children and an optional reconciliation key. Value is the
// scalar stored in an attribute.
//
// # Element API
//
// Nodes are built with El, which accepts attributes, keys and children in
// any order:
//
//	El(KindMenu, Attr{Name: "title", Value: String("Shop")},
//	    El(KindButton, Key("buy"), Attr{Name: "label", Value: String("Buy")}),
//	    El(KindButton, Key("sell"), Attr{Name: "label", Value: String("Sell")}),
//	)
//
// Package api wraps El with named builders for day-to-day use.
//
// # Diffing
//
// Diff compares two trees and returns a Script, an ordered list of Op
// values. Every op addresses a child slot of a parent Path as the tree looks
// after all earlier ops in the script have been applied, so scripts must be
// applied strictly in order. Keyed children are matched by key and moved
// with the fewest possible Move ops; unkeyed children are matched by
// position and updated in place.
package dom
