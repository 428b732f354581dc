package template

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// element is one open markup element.
type element struct {
	sym   string
	tag   string
	attrs []html.Attribute
	pos   Position
	// depth is the number of directives open when the element started.
	// The element's variable is only in scope inside that many closures.
	depth int
}

func (e *element) String() string {
	return "<" + e.tag + "> at " + e.pos.String()
}

// describe renders the start tag as written, for diagnostics.
func (e *element) describe() string {
	var sb strings.Builder
	sb.WriteString("<" + e.tag)
	for _, a := range e.attrs {
		sb.WriteString(" " + a.Key + "=" + jsString(a.Val))
	}
	sb.WriteString("> at " + e.pos.String())
	return sb.String()
}

func (c *compilation) topElement() *element {
	if len(c.elements) == 0 {
		return nil
	}
	return c.elements[len(c.elements)-1]
}

// parent names the container new nodes are appended to: the innermost open
// element, or the unit's root container.
func (c *compilation) parent() string {
	if top := c.topElement(); top != nil {
		return top.sym
	}
	return parentVar
}

// openElement creates the element for a start tag, appends it to the
// current parent and makes it the new parent.
func (c *compilation) openElement(tok html.Token, pos Position) error {
	sym := c.syms.Next()
	svg := tok.Data == c.opts.SVGTag
	if svg {
		if err := c.emitIcon(sym, tok.Attr, pos); err != nil {
			return err
		}
	} else {
		c.emit("var ", sym, "=", docVar, ".c(", jsString(tok.Data), ");")
	}
	c.emit(c.parent(), ".a(", sym, ");")
	c.elements = append(c.elements, &element{sym: sym, tag: tok.Data, attrs: tok.Attr, pos: pos, depth: len(c.directives)})

	for _, attr := range tok.Attr {
		if attr.Key == "bind" {
			if err := c.emitBind(sym, attr.Val, pos); err != nil {
				return err
			}
			continue
		}
		if svg {
			continue
		}
		value, err := Split(attr.Val)
		if err != nil {
			return at(err, pos)
		}
		c.emit(sym, ".s(", jsString(attr.Key), ",", value.valueJS(), ");")
	}
	return nil
}

// emitIcon builds the one supported svg shape, <svg use="icon" class="cls">,
// through the preamble's icon helper.
func (c *compilation) emitIcon(sym string, attrs []html.Attribute, pos Position) error {
	var use, class Expr
	for _, attr := range attrs {
		var err error
		switch attr.Key {
		case "use":
			use, err = Split(attr.Val)
		case "class":
			class, err = Split(attr.Val)
		}
		if err != nil {
			return at(err, pos)
		}
	}
	if use.Empty() {
		return newError(ErrInvalidSvgUsage, pos, "<%s> requires a use attribute", c.opts.SVGTag).
			withHint(`svg is only supported as <` + c.opts.SVGTag + ` use="icon_id" class="cls">`)
	}
	cls := "null"
	if !class.Empty() {
		cls = class.JS()
	}
	c.emit("var ", sym, "=$svg_icon(", use.JS(), ",", cls, ");")
	return nil
}

// emitBind stores the element in the render state under the slot name
// instead of setting an attribute.
func (c *compilation) emitBind(sym, value string, pos Position) error {
	slot, err := Split(value)
	if err != nil {
		return at(err, pos)
	}
	state := contextVar + ".$t"
	if lit, ok := slot.Literal(); ok {
		name := strings.Trim(strings.TrimSpace(lit), `"`)
		if !isIdentifier(name) {
			return newError(ErrInvalidBind, pos, "bind slot %q is not an identifier", lit)
		}
		c.binds = append(c.binds, name)
		c.emit(state, ".", name, "=", sym, ";")
		return nil
	}
	c.emit(state, "[", slot.JS(), "]=", sym, ";")
	return nil
}

// closeElement pops the element an end tag closes.
func (c *compilation) closeElement(tag string, pos Position) error {
	top := c.topElement()
	if top == nil {
		return newError(ErrExcessCloseTag, pos, "</%s> closes no open element", tag)
	}
	if top.tag != tag {
		return newError(ErrMismatchedTag, pos, "</%s> does not match %s", tag, top)
	}
	if top.depth < len(c.directives) {
		d := c.topDirective()
		return newError(ErrMismatchedTag, pos, "</%s> closes %s while %s opened at %s inside it is still open", tag, top, d, d.pos).
			withHint("close {{/" + d.kind.String() + "}} before </" + tag + ">")
	}
	c.elements = c.elements[:len(c.elements)-1]
	return nil
}

// appendText adds a run of text and interpolations to the innermost open
// element. Whitespace-only runs are dropped.
func (c *compilation) appendText(run string, pos Position) error {
	trimmed := strings.TrimLeftFunc(run, unicode.IsSpace)
	pos = pos.advance(run[:len(run)-len(trimmed)])
	run = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	if run == "" {
		return nil
	}
	top := c.topElement()
	if top == nil {
		return newError(ErrInvalidTextPlacement, pos, "text %q outside of any element", abbreviate(run)).
			withHint("put text inside an element")
	}
	value, err := Split(run)
	if err != nil {
		return at(err, pos)
	}
	c.emit(top.sym, ".a(", docVar, ".t(", value.JS(), "));")
	return nil
}

// includeTemplate appends another registered template, built against the
// current context, to the current parent.
func (c *compilation) includeTemplate(body string, pos Position) error {
	name := strings.TrimSpace(body)
	if !isIdentifier(name) {
		return newError(ErrInvalidTemplateName, pos, "{{> %s}} does not name a template", name)
	}
	c.partials = append(c.partials, name)
	c.emit(c.opts.Registry, ".", name, "(", contextVar, ",", c.parent(), ");")
	return nil
}

func abbreviate(s string) string {
	const limit = 40
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
