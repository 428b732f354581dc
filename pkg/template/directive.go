package template

import (
	"strings"
	"unicode"
)

// DirectiveKind is one of the block directives a template may open.
type DirectiveKind int

const (
	DirectiveEach DirectiveKind = iota + 1
	DirectiveIf
	DirectiveElse
	DirectiveWith
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveEach:
		return "each"
	case DirectiveIf:
		return "if"
	case DirectiveElse:
		return "else"
	case DirectiveWith:
		return "with"
	default:
		return "unknown"
	}
}

func parseDirectiveKind(name string) (DirectiveKind, bool) {
	switch name {
	case "each":
		return DirectiveEach, true
	case "if":
		return DirectiveIf, true
	case "else":
		return DirectiveElse, true
	case "with":
		return DirectiveWith, true
	}
	return 0, false
}

// directive is one open block. Its body is being written into a closure
// named sym that takes the block context as _c.
type directive struct {
	kind DirectiveKind
	arg  string
	sym  string
	pos  Position
}

func (d *directive) String() string {
	if d.arg == "" {
		return "{{#" + d.kind.String() + "}}"
	}
	return "{{#" + d.kind.String() + " " + d.arg + "}}"
}

// splitDirective separates "name argument text" at the first run of
// whitespace.
func splitDirective(body string) (name, arg string) {
	body = strings.TrimSpace(body)
	i := strings.IndexFunc(body, unicode.IsSpace)
	if i < 0 {
		return body, ""
	}
	return body[:i], strings.TrimSpace(body[i:])
}

func (c *compilation) topDirective() *directive {
	if len(c.directives) == 0 {
		return nil
	}
	return c.directives[len(c.directives)-1]
}

// openDirective handles {{#name arg}}. {{#else}} on top of an open if
// closes the if block and reopens the same closure symbol and argument as
// an else block, so exactly one of the two bodies runs.
func (c *compilation) openDirective(body string, pos Position) error {
	name, arg := splitDirective(body)
	kind, ok := parseDirectiveKind(name)
	if !ok {
		return newError(ErrUnknownDirective, pos, "unknown directive {{#%s}}", name).
			withHint("supported directives are each, if, else and with")
	}

	if kind == DirectiveElse {
		top := c.topDirective()
		if top == nil || top.kind != DirectiveIf {
			return newError(ErrMismatchedDirective, pos, "{{#else}} without an open {{#if}}")
		}
		if arg != "" {
			return newError(ErrUnknownDirective, pos, "{{#else}} does not take an argument, got %q", arg)
		}
		if err := c.checkNoOpenElement("{{#else}}", top, pos); err != nil {
			return err
		}
		c.directives = c.directives[:len(c.directives)-1]
		c.finishDirective(top)
		c.pushDirective(&directive{kind: DirectiveElse, arg: top.arg, sym: top.sym, pos: pos})
		return nil
	}

	if arg == "" {
		return newError(ErrMissingArgument, pos, "{{#%s}} needs an argument", name).
			withHint("for example {{#" + name + " items}}")
	}
	c.pushDirective(&directive{kind: kind, arg: arg, sym: c.syms.Next(), pos: pos})
	return nil
}

func (c *compilation) pushDirective(d *directive) {
	c.emit("var ", d.sym, "=function(", contextVar, "){")
	c.directives = append(c.directives, d)
}

// closeDirective handles {{/name}}. An else block may be closed by either
// {{/if}} or {{/else}}.
func (c *compilation) closeDirective(body string, pos Position) error {
	name := strings.TrimSpace(body)
	top := c.topDirective()
	if top == nil {
		return newError(ErrExcessCloseDirective, pos, "{{/%s}} closes no open directive", name)
	}
	if name != top.kind.String() && !(name == "if" && top.kind == DirectiveElse) {
		return newError(ErrMismatchedDirective, pos, "{{/%s}} does not match %s opened at %s", name, top, top.pos)
	}
	if err := c.checkNoOpenElement("{{/"+name+"}}", top, pos); err != nil {
		return err
	}
	c.directives = c.directives[:len(c.directives)-1]
	c.finishDirective(top)
	return nil
}

// checkNoOpenElement requires every element started inside d to be closed
// before d's closure ends.
func (c *compilation) checkNoOpenElement(marker string, d *directive, pos Position) error {
	top := c.topElement()
	if top == nil || top.depth < len(c.directives) {
		return nil
	}
	return newError(ErrMismatchedDirective, pos, "%s ends %s opened at %s while %s is still open", marker, d, d.pos, top).
		withHint("add </" + top.tag + "> before " + marker)
}

// finishDirective ends the block closure and emits the control flow that
// invokes it.
func (c *compilation) finishDirective(d *directive) {
	c.emit("};")
	ref := Classify(d.arg).JS()
	switch d.kind {
	case DirectiveEach:
		item := ref + "[" + indexVar + "]"
		c.emit("for(var ", indexVar, "=0;", indexVar, "<", ref, ".length;", indexVar, "++){")
		c.emit("if(!", item, ".$t)", item, ".$t={};")
		c.emit(d.sym, "(", item, ");")
		c.emit("}")
	case DirectiveIf:
		c.emit("if(", ref, ")", d.sym, "(", contextVar, ");")
	case DirectiveElse:
		c.emit("if(!(", ref, "))", d.sym, "(", contextVar, ");")
	case DirectiveWith:
		c.emit("if(!", ref, ".$t)", ref, ".$t={};")
		c.emit(d.sym, "(", ref, ");")
	}
}
