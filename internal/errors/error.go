package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category groups error codes.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryPage     Category = "page"
	CategoryJournal  Category = "journal"
	CategoryProtocol Category = "protocol"
	CategoryCLI      Category = "cli"
)

// Location is a position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// DelphiError is a coded error with location and hint.
type DelphiError struct {
	// Code is the registry code, e.g. "D011".
	Code string

	Category Category

	// Message is the one-line description.
	Message string

	// Detail explains the error at more length.
	Detail string

	Location *Location

	// Context holds the source lines around Location.
	Context []string

	// Suggestion tells the user how to fix it.
	Suggestion string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error implements the error interface.
func (e *DelphiError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Location != nil {
		msg = e.Location.String() + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *DelphiError) Unwrap() error {
	return e.Wrapped
}

// Is matches another DelphiError with the same code.
func (e *DelphiError) Is(target error) bool {
	t, ok := target.(*DelphiError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithLocation sets the source location and reads the surrounding lines
// when the file exists.
func (e *DelphiError) WithLocation(file string, line, column int) *DelphiError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion sets the hint.
func (e *DelphiError) WithSuggestion(s string) *DelphiError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered detail.
func (e *DelphiError) WithDetail(d string) *DelphiError {
	e.Detail = d
	return e
}

// WithMessage replaces the registered message.
func (e *DelphiError) WithMessage(format string, args ...any) *DelphiError {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Wrap sets the underlying error.
func (e *DelphiError) Wrap(err error) *DelphiError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to size lines centered on target.
func readContextLines(filename string, target, size int) []string {
	if filename == "" || target <= 0 {
		return nil
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	start, end := target-size/2, target+size/2
	for n := 1; scanner.Scan(); n++ {
		if n >= start && n <= end {
			lines = append(lines, scanner.Text())
		}
		if n > end {
			break
		}
	}
	return lines
}

// New creates a DelphiError from a registered code.
func New(code string) *DelphiError {
	template, ok := registry[code]
	if !ok {
		return &DelphiError{Code: code, Message: "Unknown error"}
	}
	return &DelphiError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates an uncoded DelphiError.
func Newf(category Category, format string, args ...any) *DelphiError {
	return &DelphiError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err as a DelphiError, wrapping it under code when it is
// not one already.
func FromError(err error, code string) *DelphiError {
	if err == nil {
		return nil
	}
	var de *DelphiError
	if stderrors.As(err, &de) {
		return de
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first DelphiError in err's chain.
func Code(err error) string {
	var de *DelphiError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}
