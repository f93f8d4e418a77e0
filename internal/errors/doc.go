// Package errors provides coded, user-facing errors for Delphi.
//
// Library packages return plain Go errors. Where a failure reaches a person
// (a page that does not parse, a config value out of range, a journal that
// cannot be read) it is wrapped in a DelphiError carrying a registered code,
// a category, an optional source location and a hint:
//
//	err := errors.New("D011").
//	    WithLocation("pages/shop.xml", 12, 0).
//	    WithSuggestion("Known elements: body, div, menu, button, text, item, img, input, option, br")
//
//	errors.PrintError(err)
//	// ERROR D011: Unknown element
//	//
//	//   pages/shop.xml:12
//	//   ...
//
// # Codes
//
//	D001-D009  config
//	D010-D019  page
//	D020-D029  journal
//	D030-D039  protocol
//	D040-D049  cli
package errors
