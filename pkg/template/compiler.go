package template

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Options control the shape of generated code. The zero value selects the
// defaults.
type Options struct {
	// Registry is the global object compiled templates are stored on.
	Registry string
	// IconPath prefixes the icon id passed to the svg helper.
	IconPath string
	// SVGTag is the tag reserved for icon elements. It matches tags
	// case-insensitively.
	SVGTag string
}

// Default option values.
const (
	DefaultRegistry = "RWTemplates"
	DefaultIconPath = "/static/images4/symbols.svg#"
	DefaultSVGTag   = "svg"
)

func (o Options) withDefaults() Options {
	if o.Registry == "" {
		o.Registry = DefaultRegistry
	}
	if o.IconPath == "" {
		o.IconPath = DefaultIconPath
	}
	if o.SVGTag == "" {
		o.SVGTag = DefaultSVGTag
	}
	// Tag names reach the compiler lower-cased.
	o.SVGTag = strings.ToLower(o.SVGTag)
	return o
}

// Fingerprint identifies the options for cache keys. Units compiled with
// equal fingerprints are interchangeable.
func (o Options) Fingerprint() string {
	o = o.withDefaults()
	return o.Registry + "\x00" + o.IconPath + "\x00" + o.SVGTag
}

// Unit is one compiled template: a property of the registry object whose
// value is the render function.
type Unit struct {
	Name     string
	Code     string
	Partials []string // templates included with {{> name}}, in source order
	Binds    []string // literal bind slots, in source order
}

// compilation is the private state of compiling one unit. Nothing in it
// outlives the Compile call.
type compilation struct {
	name       string
	opts       Options
	buf        strings.Builder
	syms       Symbols
	elements   []*element
	directives []*directive
	partials   []string
	binds      []string
}

func (c *compilation) emit(parts ...string) {
	for _, p := range parts {
		c.buf.WriteString(p)
	}
}

// Compile compiles the markup of one named template. On failure no unit is
// returned and the error is an *Error naming the template.
//
// Compile keeps no state between calls and is safe for concurrent use.
func Compile(name, source string, opts Options) (*Unit, error) {
	c := &compilation{name: name, opts: opts.withDefaults()}
	if err := c.run(source); err != nil {
		var te *Error
		if errors.As(err, &te) && te.Template == "" {
			te.Template = name
		}
		return nil, err
	}
	return &Unit{
		Name:     name,
		Code:     c.buf.String(),
		Partials: c.partials,
		Binds:    c.binds,
	}, nil
}

func (c *compilation) run(source string) error {
	if !isIdentifier(c.name) {
		return newError(ErrInvalidTemplateName, Position{}, "template name %q is not an identifier", c.name).
			withHint("use letters, digits and underscores")
	}
	c.syms.Reset()
	c.writeHeader()

	z := html.NewTokenizer(strings.NewReader(source))
	pos := Position{Line: 1, Col: 1}
	for {
		tt := z.Next()
		start := pos
		pos = pos.advance(string(z.Raw()))
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return newError(ErrMalformedMarkup, start, "%v", err)
			}
			break
		}

		tok := z.Token()
		var err error
		switch tt {
		case html.StartTagToken:
			err = c.openElement(tok, start)
		case html.SelfClosingTagToken:
			if err = c.openElement(tok, start); err == nil {
				err = c.closeElement(tok.Data, start)
			}
		case html.EndTagToken:
			err = c.closeElement(tok.Data, start)
		case html.TextToken:
			err = c.text(tok.Data, start)
		}
		if err != nil {
			return err
		}
	}

	if err := c.checkBalanced(); err != nil {
		return err
	}
	c.emit("return ", contextVar, ";}")
	return nil
}

// writeHeader opens the render function. It takes an optional context and an
// optional parent node; without a parent, output goes to a document
// fragment kept in the context's render state and shared by nested calls.
func (c *compilation) writeHeader() {
	root := contextVar + ".$t.root"
	c.emit(c.name, ":function(", contextVar, ",_p){")
	c.emit(`"use strict";`)
	c.emit(contextVar, "=", contextVar, "||{};")
	c.emit("if(!", contextVar, ".$t)", contextVar, ".$t={};")
	c.emit("var ", rootVar, "=", contextVar, ";")
	c.emit("if(!", root, "){", root, "=", docVar, ".createDocumentFragment();", root, ".a=", root, ".appendChild;}")
	c.emit("var ", parentVar, "=_p||", root, ";")
}

// text splits a text token around block markers. The text between markers
// is appended to the current element.
func (c *compilation) text(data string, pos Position) error {
	last := 0
	for _, loc := range interpolation.FindAllStringIndex(data, -1) {
		payload := strings.TrimSpace(data[loc[0]+2 : loc[1]-2])
		if !isMarker(payload) {
			continue
		}
		if err := c.appendText(data[last:loc[0]], pos.advance(data[:last])); err != nil {
			return err
		}
		markerPos := pos.advance(data[:loc[0]])
		var err error
		switch payload[0] {
		case '#':
			err = c.openDirective(payload[1:], markerPos)
		case '/':
			err = c.closeDirective(payload[1:], markerPos)
		case '>':
			err = c.includeTemplate(payload[1:], markerPos)
		}
		if err != nil {
			return err
		}
		last = loc[1]
	}
	return c.appendText(data[last:], pos.advance(data[:last]))
}

// checkBalanced requires every directive and element to be closed at the
// end of input.
func (c *compilation) checkBalanced() error {
	if len(c.directives) > 0 {
		open := make([]string, len(c.directives))
		for i, d := range c.directives {
			open[i] = fmt.Sprintf("%s at %s", d, d.pos)
		}
		return newError(ErrUnclosedDirective, c.directives[0].pos, "unclosed directives: %s", strings.Join(open, ", ")).
			withHint(fmt.Sprintf("add {{/%s}} before the end of the template", c.topDirective().kind))
	}
	if len(c.elements) > 0 {
		open := make([]string, len(c.elements))
		for i, e := range c.elements {
			open[i] = e.describe()
		}
		return newError(ErrUnclosedElement, c.elements[0].pos, "unclosed tags: %s", strings.Join(open, ", ")).
			withHint(fmt.Sprintf("add </%s> before the end of the template", c.topElement().tag))
	}
	return nil
}

// at fills in the position of an error raised without one.
func at(err error, pos Position) error {
	var te *Error
	if errors.As(err, &te) && !te.Pos.IsValid() {
		te.Pos = pos
	}
	return err
}
