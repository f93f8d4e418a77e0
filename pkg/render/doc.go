// Package render prints node trees as page markup.
//
// The output is the format read by package page, so a tree printed here and
// parsed back is structurally equal to the original (attribute values come
// back as strings):
//
//	r := render.NewRenderer(render.RendererConfig{Pretty: true})
//	out, err := r.RenderToString(tree)
//
// RenderPage writes a complete document with a head holding the page options:
//
//	err := r.RenderPage(w, render.PageData{
//	    Options: map[string]string{"title": "Shop"},
//	    Body:    tree,
//	})
//
// Text nodes carrying only their content are written as character data.
// Other text nodes, and text whose surrounding whitespace would be lost on
// parsing, keep the content in a content attribute.
package render
