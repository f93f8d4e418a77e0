package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	white  = color.New(color.FgWhite, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// SetColor forces colored output on or off. By default color follows
// whether stdout is a terminal.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// Format renders the error for a terminal.
func (e *DelphiError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(red("ERROR "))
		b.WriteString(white(e.Code + ": "))
	} else {
		b.WriteString(red("ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(cyan(e.Location.String()))
		b.WriteString("\n\n")

		if len(e.Context) > 0 {
			start := max(e.Location.Line-2, 1)
			for i, line := range e.Context {
				n := start + i
				if n == e.Location.Line {
					fmt.Fprintf(&b, "  %s%4d %s%s\n", red("→ "), n, gray("│ "), line)
					if e.Location.Column > 0 {
						fmt.Fprintf(&b, "         %s%s%s\n", gray("│ "), strings.Repeat(" ", e.Location.Column-1), red("^"))
					}
				} else {
					fmt.Fprintf(&b, "    %4d %s%s\n", n, gray("│ "), line)
				}
			}
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(yellow("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a single line.
func (e *DelphiError) FormatCompact() string {
	return e.Error()
}

type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *DelphiError) FormatJSON() string {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(je)
	return string(data)
}

func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes err to w, formatted when it is a DelphiError.
func Fprint(w io.Writer, err error) {
	var de *DelphiError
	if stderrors.As(err, &de) {
		fmt.Fprint(w, de.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red("ERROR:"), err)
}

// PrintError prints err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
