package template

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Generated-code names the compiler reserves. They all start with an
// underscore so no generated symbol can shadow them.
const (
	contextVar = "_c"
	rootVar    = "_b"
	parentVar  = "_r"
	docVar     = "_d"
	indexVar   = "_i"
)

// RefKind says how an interpolation payload is turned into code.
type RefKind int

const (
	// RefRelative reads a field path off the innermost block context.
	RefRelative RefKind = iota
	// RefRoot reads a field path off the template's root context (@root.).
	RefRoot
	// RefRawCode emits the payload as is, leading $ included.
	RefRawCode
	// RefRawOutput emits the payload without its leading ^.
	RefRawOutput
)

func (k RefKind) String() string {
	switch k {
	case RefRoot:
		return "root"
	case RefRawCode:
		return "raw-code"
	case RefRawOutput:
		return "raw-output"
	default:
		return "relative"
	}
}

const rootPrefix = "@root."

// Ref is one classified interpolation payload.
type Ref struct {
	Kind RefKind
	Path string
}

// Classify parses an interpolation payload into a Ref. Surrounding
// whitespace is ignored. Classify accepts any input.
func Classify(payload string) Ref {
	payload = strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(payload, rootPrefix):
		return Ref{Kind: RefRoot, Path: payload[len(rootPrefix):]}
	case strings.HasPrefix(payload, "$"):
		return Ref{Kind: RefRawCode, Path: payload}
	case strings.HasPrefix(payload, "^"):
		return Ref{Kind: RefRawOutput, Path: payload[1:]}
	default:
		return Ref{Kind: RefRelative, Path: payload}
	}
}

// JS renders the reference as a JavaScript expression. Relative paths
// always resolve against _c, which every block closure rebinds to its own
// context.
func (r Ref) JS() string {
	switch r.Kind {
	case RefRoot:
		return rootVar + "." + r.Path
	case RefRawCode, RefRawOutput:
		return r.Path
	default:
		return contextVar + "." + r.Path
	}
}

// interpolation matches one {{ ... }} region, shortest first. Regions do
// not span lines.
var interpolation = regexp.MustCompile(`\{\{.*?\}\}`)

// Part is one piece of a split string: a literal run or a reference.
type Part struct {
	Literal string
	Ref     Ref
	IsRef   bool
}

// JS renders the part as a JavaScript expression.
func (p Part) JS() string {
	if p.IsRef {
		return p.Ref.JS()
	}
	return jsString(p.Literal)
}

// Expr is a string concatenation of literal and referenced parts, in source
// order.
type Expr struct {
	Parts []Part
}

// Empty reports whether the expression has no parts at all.
func (e Expr) Empty() bool {
	return len(e.Parts) == 0
}

// Literal returns the concatenated text of e when it contains no references.
func (e Expr) Literal() (string, bool) {
	var sb strings.Builder
	for _, p := range e.Parts {
		if p.IsRef {
			return "", false
		}
		sb.WriteString(p.Literal)
	}
	return sb.String(), true
}

// JS joins the parts with +. A single part is emitted alone and an empty
// expression renders as nothing.
func (e Expr) JS() string {
	js := make([]string, len(e.Parts))
	for i, p := range e.Parts {
		js[i] = p.JS()
	}
	return strings.Join(js, "+")
}

// valueJS is like JS but never empty, for places that need an operand.
func (e Expr) valueJS() string {
	if e.Empty() {
		return `""`
	}
	return e.JS()
}

// Split scans text for {{ ... }} regions and classifies each payload. Block
// markers ({{#...}}, {{/...}}, {{>...}}) are not expressions and are
// rejected, as is an empty payload.
func Split(text string) (Expr, error) {
	var e Expr
	last := 0
	for _, loc := range interpolation.FindAllStringIndex(text, -1) {
		if lit := text[last:loc[0]]; lit != "" {
			e.Parts = append(e.Parts, Part{Literal: lit})
		}
		payload := strings.TrimSpace(text[loc[0]+2 : loc[1]-2])
		switch {
		case payload == "":
			return Expr{}, newError(ErrEmptyExpression, Position{}, "empty expression %q", text[loc[0]:loc[1]])
		case isMarker(payload):
			return Expr{}, newError(ErrDirectiveInAttribute, Position{}, "block marker %q is not an expression", text[loc[0]:loc[1]]).
				withHint("directives may only appear in text content")
		}
		e.Parts = append(e.Parts, Part{Ref: Classify(payload), IsRef: true})
		last = loc[1]
	}
	if lit := text[last:]; lit != "" {
		e.Parts = append(e.Parts, Part{Literal: lit})
	}
	return e, nil
}

// isMarker reports whether a trimmed payload opens, closes or includes a
// block rather than naming a value.
func isMarker(payload string) bool {
	return payload != "" && strings.ContainsRune("#/>", rune(payload[0]))
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ValidName reports whether s can name a template or the registry object.
func ValidName(s string) bool {
	return isIdentifier(s)
}

// isIdentifier reports whether s is a plain ASCII JavaScript identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
