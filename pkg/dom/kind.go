package dom

import "strings"

// Kind is the element type discriminator.
type Kind uint8

const (
	KindBody   Kind = iota // Root container of a page
	KindDiv                // Generic container
	KindMenu               // Inventory-style menu
	KindButton             // Clickable element
	KindText               // Plain text, content in the "content" attribute
	KindItem               // Item stack display
	KindImage              // Image or map render
	KindInput              // Text input
	KindOption             // Option inside a select-like element
	KindBreak              // Line break
)

var kindNames = [...]string{
	KindBody:   "body",
	KindDiv:    "div",
	KindMenu:   "menu",
	KindButton: "button",
	KindText:   "text",
	KindItem:   "item",
	KindImage:  "img",
	KindInput:  "input",
	KindOption: "option",
	KindBreak:  "br",
}

// String returns the tag name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind returns the Kind for a tag name. Matching is case-insensitive.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), true
		}
	}
	return 0, false
}

// IsVoid reports whether elements of this kind cannot have children.
func (k Kind) IsVoid() bool {
	switch k {
	case KindText, KindBreak, KindImage, KindInput:
		return true
	}
	return false
}
