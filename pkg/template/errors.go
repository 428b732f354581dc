package template

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers can
// match with errors.Is.
var (
	ErrUnclosedElement      = errors.New("unclosed element")
	ErrUnclosedDirective    = errors.New("unclosed directive")
	ErrExcessCloseTag       = errors.New("excess closing tag")
	ErrExcessCloseDirective = errors.New("excess closing directive")
	ErrMismatchedDirective  = errors.New("mismatched directive")
	ErrMismatchedTag        = errors.New("mismatched tag")
	ErrInvalidTextPlacement = errors.New("invalid text placement")
	ErrInvalidSvgUsage      = errors.New("invalid svg usage")
	ErrUnknownDirective     = errors.New("unknown directive")
	ErrMissingArgument      = errors.New("missing directive argument")
	ErrEmptyExpression      = errors.New("empty expression")
	ErrDirectiveInAttribute = errors.New("directive in attribute")
	ErrInvalidBind          = errors.New("invalid bind slot")
	ErrInvalidTemplateName  = errors.New("invalid template name")
	ErrDuplicateTemplate    = errors.New("duplicate template")
	ErrMalformedMarkup      = errors.New("malformed markup")
)

// Position is a location in template source. Line and Col start at 1; the
// zero Position means the location is unknown.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// IsValid reports whether p refers to a real location.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// advance returns the position reached after reading s from p.
func (p Position) advance(s string) Position {
	for _, r := range s {
		if r == '\n' {
			p.Line++
			p.Col = 1
		} else {
			p.Col++
		}
	}
	return p
}

// Error is a structural problem found while compiling one template.
type Error struct {
	Kind     error
	Template string
	Pos      Position
	Message  string
	Hint     string // optional suggestion for fixing the template
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Template != "" {
		sb.WriteString(e.Template)
		if e.Pos.IsValid() {
			sb.WriteByte(':')
		}
	}
	if e.Pos.IsValid() {
		sb.WriteString(e.Pos.String())
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	sb.WriteString("error: ")
	sb.WriteString(e.Message)
	if e.Hint != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Hint)
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) withHint(hint string) *Error {
	e.Hint = hint
	return e
}

// ErrorList collects the errors of a batch of compilations.
type ErrorList struct {
	errors []*Error
}

// Add appends an error to the list. Errors that are not *Error are wrapped
// as malformed markup for the named template.
func (el *ErrorList) Add(name string, err error) {
	if err == nil {
		return
	}
	var te *Error
	if !errors.As(err, &te) {
		te = &Error{Kind: ErrMalformedMarkup, Message: err.Error()}
	}
	if te.Template == "" {
		te.Template = name
	}
	el.errors = append(el.errors, te)
}

// Len returns the number of errors.
func (el *ErrorList) Len() int {
	return len(el.errors)
}

// Errors returns a copy of the collected errors.
func (el *ErrorList) Errors() []*Error {
	out := make([]*Error, len(el.errors))
	copy(out, el.errors)
	return out
}

// Error joins all errors with newlines.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	for i, err := range el.errors {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Err returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) Err() error {
	if len(el.errors) == 0 {
		return nil
	}
	return el
}
