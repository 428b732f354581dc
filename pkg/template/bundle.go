package template

import (
	"io"
	"sort"
	"strings"
)

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"
)

// Preamble returns the code that opens a bundle: short aliases for the DOM
// calls compiled templates use, the svg icon helper, and the start of the
// registry object literal.
func Preamble(opts Options) string {
	opts = opts.withDefaults()
	var sb strings.Builder
	sb.WriteString("(function(){")
	sb.WriteString("var " + docVar + "=document;")
	sb.WriteString(docVar + ".c=" + docVar + ".createElement;")
	sb.WriteString(docVar + ".t=" + docVar + ".createTextNode;")
	sb.WriteString("Element.prototype.s=Element.prototype.setAttribute;")
	sb.WriteString("Element.prototype.a=Element.prototype.appendChild;")
	sb.WriteString("function $svg_icon(icon,cls){")
	sb.WriteString(`"use strict";`)
	sb.WriteString("var s=" + docVar + ".createElementNS(" + jsString(svgNS) + "," + jsString("svg") + ");")
	sb.WriteString("var u=" + docVar + ".createElementNS(" + jsString(svgNS) + "," + jsString("use") + ");")
	sb.WriteString("u.setAttributeNS(" + jsString(xlinkNS) + "," + jsString("xlink:href") + "," + jsString(opts.IconPath) + "+icon);")
	sb.WriteString("if(cls){s.setAttributeNS(null," + jsString("class") + ",cls);}")
	sb.WriteString("s.appendChild(u);")
	sb.WriteString("return s;")
	sb.WriteString("}")
	sb.WriteString("window." + opts.Registry + "={")
	return sb.String()
}

// Epilogue returns the code that closes a bundle.
func Epilogue() string {
	return "};})();"
}

// Bundle batches compiled units into one script that registers all of them.
// A Bundle is not safe for concurrent use; compile units concurrently with
// Compile and Add them from one goroutine.
type Bundle struct {
	opts   Options
	units  []*Unit
	byName map[string]*Unit
}

// NewBundle returns an empty bundle.
func NewBundle(opts Options) *Bundle {
	return &Bundle{
		opts:   opts.withDefaults(),
		byName: make(map[string]*Unit),
	}
}

// Options returns the options the bundle's units are compiled with.
func (b *Bundle) Options() Options {
	return b.opts
}

// Compile compiles a template with the bundle's options and adds it. A
// failed compilation leaves the bundle unchanged.
func (b *Bundle) Compile(name, source string) (*Unit, error) {
	u, err := Compile(name, source, b.opts)
	if err != nil {
		return nil, err
	}
	if err := b.Add(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Add appends an already compiled unit. Names must be unique.
func (b *Bundle) Add(u *Unit) error {
	if _, ok := b.byName[u.Name]; ok {
		return &Error{
			Kind:     ErrDuplicateTemplate,
			Template: u.Name,
			Message:  "template " + u.Name + " is already registered",
		}
	}
	b.units = append(b.units, u)
	b.byName[u.Name] = u
	return nil
}

// Unit returns the unit registered under name.
func (b *Bundle) Unit(name string) (*Unit, bool) {
	u, ok := b.byName[name]
	return u, ok
}

// Units returns the units in the order they were added.
func (b *Bundle) Units() []*Unit {
	out := make([]*Unit, len(b.units))
	copy(out, b.units)
	return out
}

// Len returns the number of units.
func (b *Bundle) Len() int {
	return len(b.units)
}

// Unresolved maps every included template name with no unit in the bundle
// to the sorted names of the units that include it.
func (b *Bundle) Unresolved() map[string][]string {
	missing := make(map[string][]string)
	for _, u := range b.units {
		seen := make(map[string]bool)
		for _, p := range u.Partials {
			if _, ok := b.byName[p]; ok || seen[p] {
				continue
			}
			seen[p] = true
			missing[p] = append(missing[p], u.Name)
		}
	}
	for _, users := range missing {
		sort.Strings(users)
	}
	return missing
}

// String renders the whole bundle.
func (b *Bundle) String() string {
	var sb strings.Builder
	b.WriteTo(&sb)
	return sb.String()
}

// WriteTo writes the preamble, every unit separated by commas, and the
// epilogue.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(s string) error {
		n, err := io.WriteString(w, s)
		total += int64(n)
		return err
	}
	if err := write(Preamble(b.opts)); err != nil {
		return total, err
	}
	for i, u := range b.units {
		if i > 0 {
			if err := write(","); err != nil {
				return total, err
			}
		}
		if err := write(u.Code); err != nil {
			return total, err
		}
	}
	err := write(Epilogue())
	return total, err
}
