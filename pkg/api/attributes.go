package api

import (
	"strings"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// Attribute names understood by the bundled hosts.
const (
	AttrID          = "id"
	AttrClass       = "class"
	AttrStyle       = "style"
	AttrLabel       = "label"
	AttrTitle       = "title"
	AttrAction      = "action"
	AttrEnabled     = "enabled"
	AttrSource      = "src"
	AttrWidth       = "width"
	AttrHeight      = "height"
	AttrValue       = "value"
	AttrPlaceholder = "placeholder"
	AttrMaterial    = "material"
	AttrAmount      = "amount"
	AttrSlot        = "slot"
)

// Button action prefixes.
const (
	ActionCloseValue   = "close"
	ActionCmdPrefix    = "cmd:"
	ActionPlayerPrefix = "player-cmd:"
)

// Attr creates an attribute from a Go scalar. Unsupported types become null.
func Attr(name string, value any) dom.Attr {
	return dom.Attr{Name: name, Value: dom.ValueOf(value)}
}

// ID sets the id attribute.
func ID(id string) dom.Attr { return Attr(AttrID, id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) dom.Attr { return Attr(AttrClass, strings.Join(classes, " ")) }

// Style sets the inline style attribute.
func Style(style string) dom.Attr { return Attr(AttrStyle, style) }

// Label sets the visible label of a button or item.
func Label(label string) dom.Attr { return Attr(AttrLabel, label) }

// Title sets the title of a menu or page.
func Title(title string) dom.Attr { return Attr(AttrTitle, title) }

// Enabled sets whether an element reacts to clicks.
func Enabled(enabled bool) dom.Attr { return Attr(AttrEnabled, enabled) }

// Disabled is shorthand for Enabled(false).
func Disabled() dom.Attr { return Enabled(false) }

// Src sets the image source.
func Src(src string) dom.Attr { return Attr(AttrSource, src) }

// Width sets the width attribute.
func Width(w float64) dom.Attr { return Attr(AttrWidth, w) }

// Height sets the height attribute.
func Height(h float64) dom.Attr { return Attr(AttrHeight, h) }

func Value(v string) dom.Attr       { return Attr(AttrValue, v) }
func Placeholder(p string) dom.Attr { return Attr(AttrPlaceholder, p) }
func Material(m string) dom.Attr    { return Attr(AttrMaterial, m) }
func Amount(n int) dom.Attr         { return Attr(AttrAmount, n) }
func Slot(n int) dom.Attr           { return Attr(AttrSlot, n) }

// Action sets the raw button action.
func Action(action string) dom.Attr { return Attr(AttrAction, action) }

// ActionClose makes a button close the surface it is shown on.
func ActionClose() dom.Attr { return Action(ActionCloseValue) }

// ActionCommand makes a button run a console command. %player% is replaced
// by the clicking player's name.
func ActionCommand(cmd string) dom.Attr { return Action(ActionCmdPrefix + cmd) }

// ActionPlayerCommand makes a button run a command as the clicking player.
func ActionPlayerCommand(cmd string) dom.Attr { return Action(ActionPlayerPrefix + cmd) }

// ButtonAction is a parsed button action.
type ButtonAction struct {
	Close    bool
	Command  string
	AsPlayer bool
}

// ParseAction parses an action attribute value. ok is false when the value
// is empty or has no known form.
func ParseAction(action string) (a ButtonAction, ok bool) {
	switch {
	case strings.EqualFold(action, ActionCloseValue):
		return ButtonAction{Close: true}, true
	case strings.HasPrefix(action, ActionCmdPrefix):
		return ButtonAction{Command: strings.TrimSpace(action[len(ActionCmdPrefix):])}, true
	case strings.HasPrefix(action, ActionPlayerPrefix):
		return ButtonAction{Command: strings.TrimSpace(action[len(ActionPlayerPrefix):]), AsPlayer: true}, true
	}
	return ButtonAction{}, false
}

// Expand returns the command with %player% replaced.
func (a ButtonAction) Expand(player string) string {
	return strings.ReplaceAll(a.Command, "%player%", player)
}
