package template

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// header is the prologue of every unit named name.
func header(name string) string {
	return name + `:function(_c,_p){"use strict";_c=_c||{};if(!_c.$t)_c.$t={};var _b=_c;` +
		`if(!_c.$t.root){_c.$t.root=_d.createDocumentFragment();_c.$t.root.a=_c.$t.root.appendChild;}` +
		`var _r=_p||_c.$t.root;`
}

const footer = "return _c;}"

// body compiles source as template t and returns the code between the
// prologue and the final return.
func body(t *testing.T, source string) string {
	t.Helper()
	u, err := Compile("t", source, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !strings.HasPrefix(u.Code, header("t")) || !strings.HasSuffix(u.Code, footer) {
		t.Fatalf("unit is not wrapped in the render function:\n%s", u.Code)
	}
	return strings.TrimSuffix(strings.TrimPrefix(u.Code, header("t")), footer)
}

func TestCompile_Output(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "empty template",
			source: "",
			want:   "",
		},
		{
			name:   "whitespace only",
			source: "\n\t  \n",
			want:   "",
		},
		{
			name:   "element with attribute and text",
			source: `<div class="a">Hi {{name}}</div>`,
			want:   `var B=_d.c("div");_r.a(B);B.s("class","a");B.a(_d.t("Hi "+_c.name));`,
		},
		{
			name:   "nested elements",
			source: "<ul>\n  <li>one</li>\n  <li>two</li>\n</ul>",
			want: `var B=_d.c("ul");_r.a(B);` +
				`var C=_d.c("li");B.a(C);C.a(_d.t("one"));` +
				`var D=_d.c("li");B.a(D);D.a(_d.t("two"));`,
		},
		{
			name:   "sibling top level elements",
			source: `<h1></h1><p></p>`,
			want:   `var B=_d.c("h1");_r.a(B);var C=_d.c("p");_r.a(C);`,
		},
		{
			name:   "interpolated attribute",
			source: `<a href="/album/{{id}}" title="{{@root.name}}"></a>`,
			want:   `var B=_d.c("a");_r.a(B);B.s("href","/album/"+_c.id);B.s("title",_b.name);`,
		},
		{
			name:   "attribute without value",
			source: `<input disabled/>`,
			want:   `var B=_d.c("input");_r.a(B);B.s("disabled","");`,
		},
		{
			name:   "self closing element",
			source: `<div><br/>x</div>`,
			want:   `var B=_d.c("div");_r.a(B);var C=_d.c("br");B.a(C);B.a(_d.t("x"));`,
		},
		{
			name:   "text after child element",
			source: `<p><b>a</b> b</p>`,
			want:   `var B=_d.c("p");_r.a(B);var C=_d.c("b");B.a(C);C.a(_d.t("a"));B.a(_d.t("b"));`,
		},
		{
			name:   "raw code and raw output",
			source: `<span>{{$l("vote")}} {{^count}}</span>`,
			want:   `var B=_d.c("span");_r.a(B);B.a(_d.t($l("vote")+" "+count));`,
		},
		{
			name:   "comments are ignored",
			source: `<div><!-- note --></div>`,
			want:   `var B=_d.c("div");_r.a(B);`,
		},
		{
			name:   "if",
			source: `<p>{{#if ok}}<b>y</b>{{/if}}</p>`,
			want: `var B=_d.c("p");_r.a(B);var C=function(_c){` +
				`var D=_d.c("b");B.a(D);D.a(_d.t("y"));` +
				`};if(_c.ok)C(_c);`,
		},
		{
			name:   "if else",
			source: `<p>{{#if ok}}<b>y</b>{{#else}}<i>n</i>{{/if}}</p>`,
			want: `var B=_d.c("p");_r.a(B);var C=function(_c){` +
				`var D=_d.c("b");B.a(D);D.a(_d.t("y"));` +
				`};if(_c.ok)C(_c);var C=function(_c){` +
				`var E=_d.c("i");B.a(E);E.a(_d.t("n"));` +
				`};if(!(_c.ok))C(_c);`,
		},
		{
			name:   "else closed by its own name",
			source: `<p>{{#if ok}}{{#else}}<i></i>{{/else}}</p>`,
			want: `var B=_d.c("p");_r.a(B);var C=function(_c){};if(_c.ok)C(_c);` +
				`var C=function(_c){var D=_d.c("i");B.a(D);};if(!(_c.ok))C(_c);`,
		},
		{
			name:   "each",
			source: `<ul>{{#each items}}<li>{{title}}</li>{{/each}}</ul>`,
			want: `var B=_d.c("ul");_r.a(B);var C=function(_c){` +
				`var D=_d.c("li");B.a(D);D.a(_d.t(_c.title));` +
				`};for(var _i=0;_i<_c.items.length;_i++){if(!_c.items[_i].$t)_c.items[_i].$t={};C(_c.items[_i]);}`,
		},
		{
			name:   "each over root path",
			source: `<ul>{{#each @root.songs}}<li></li>{{/each}}</ul>`,
			want: `var B=_d.c("ul");_r.a(B);var C=function(_c){var D=_d.c("li");B.a(D);};` +
				`for(var _i=0;_i<_b.songs.length;_i++){if(!_b.songs[_i].$t)_b.songs[_i].$t={};C(_b.songs[_i]);}`,
		},
		{
			name:   "with and root reference",
			source: `<div>{{#with song}}{{title}} / {{@root.station}}{{/with}}</div>`,
			want: `var B=_d.c("div");_r.a(B);var C=function(_c){` +
				`B.a(_d.t(_c.title+" / "+_b.station));` +
				`};if(!_c.song.$t)_c.song.$t={};C(_c.song);`,
		},
		{
			name:   "bind inside with",
			source: `<div>{{#with song}}<b bind="title"></b>{{/with}}</div>`,
			want: `var B=_d.c("div");_r.a(B);var C=function(_c){` +
				`var D=_d.c("b");B.a(D);_c.$t.title=D;` +
				`};if(!_c.song.$t)_c.song.$t={};C(_c.song);`,
		},
		{
			name:   "directive at top level",
			source: `{{#if x}}<b></b>{{/if}}`,
			want:   `var B=function(_c){var C=_d.c("b");_r.a(C);};if(_c.x)B(_c);`,
		},
		{
			name:   "nested directives",
			source: `<div>{{#each rows}}{{#if on}}<i></i>{{/if}}{{/each}}</div>`,
			want: `var B=_d.c("div");_r.a(B);var C=function(_c){var D=function(_c){` +
				`var E=_d.c("i");B.a(E);};if(_c.on)D(_c);` +
				`};for(var _i=0;_i<_c.rows.length;_i++){if(!_c.rows[_i].$t)_c.rows[_i].$t={};C(_c.rows[_i]);}`,
		},
		{
			name:   "text around directives",
			source: `<p>a {{#if x}} b {{/if}} c</p>`,
			want: `var B=_d.c("p");_r.a(B);B.a(_d.t("a"));var C=function(_c){` +
				`B.a(_d.t("b"));};if(_c.x)C(_c);B.a(_d.t("c"));`,
		},
		{
			name:   "literal bind",
			source: `<div bind="rating"></div>`,
			want:   `var B=_d.c("div");_r.a(B);_c.$t.rating=B;`,
		},
		{
			name:   "quoted literal bind",
			source: `<div bind='"rating"'></div>`,
			want:   `var B=_d.c("div");_r.a(B);_c.$t.rating=B;`,
		},
		{
			name:   "dynamic bind",
			source: `<div bind="{{slot}}"></div>`,
			want:   `var B=_d.c("div");_r.a(B);_c.$t[_c.slot]=B;`,
		},
		{
			name:   "svg icon",
			source: `<div><svg use="star" class="icon {{size}}" width="10"/></div>`,
			want:   `var B=_d.c("div");_r.a(B);var C=$svg_icon("star","icon "+_c.size);B.a(C);`,
		},
		{
			name:   "svg icon without class",
			source: `<svg use="{{icon}}"></svg>`,
			want:   `var B=$svg_icon(_c.icon,null);_r.a(B);`,
		},
		{
			name:   "svg bind",
			source: `<svg use="x" bind="icon"></svg>`,
			want:   `var B=$svg_icon("x",null);_r.a(B);_c.$t.icon=B;`,
		},
		{
			name:   "sub template in element",
			source: `<div>{{> song_row}}</div>`,
			want:   `var B=_d.c("div");_r.a(B);RWTemplates.song_row(_c,B);`,
		},
		{
			name:   "sub template at top level",
			source: `{{>song_row}}`,
			want:   `RWTemplates.song_row(_c,_r);`,
		},
		{
			name:   "escaped literal",
			source: `<p title='say "hi"'>a\b</p>`,
			want:   `var B=_d.c("p");_r.a(B);B.s("title","say \"hi\"");B.a(_d.t("a\\b"));`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := body(t, tt.source)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("generated code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_Options(t *testing.T) {
	opts := Options{Registry: "Views", SVGTag: "icon"}
	u, err := Compile("row", `<div><icon use="x"></icon><svg></svg>{{> cell}}</div>`, opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := header("row") +
		`var B=_d.c("div");_r.a(B);var C=$svg_icon("x",null);B.a(C);` +
		`var D=_d.c("svg");B.a(D);Views.cell(_c,B);` + footer
	if diff := cmp.Diff(want, u.Code); diff != "" {
		t.Errorf("generated code mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_SVGTagCase(t *testing.T) {
	u, err := Compile("row", `<Icon use="x"></Icon>`, Options{SVGTag: "Icon"})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := header("row") + `var B=$svg_icon("x",null);_r.a(B);` + footer
	if diff := cmp.Diff(want, u.Code); diff != "" {
		t.Errorf("generated code mismatch (-want +got):\n%s", diff)
	}
	if (Options{SVGTag: "Icon"}).Fingerprint() != (Options{SVGTag: "icon"}).Fingerprint() {
		t.Error("SVGTag case changed the fingerprint")
	}
}

func TestCompile_Metadata(t *testing.T) {
	u, err := Compile("page", `<div bind="head">{{> nav}}<p bind="{{k}}">{{> foot}}</p>{{> nav}}</div>`, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if u.Name != "page" {
		t.Errorf("Name = %q, want %q", u.Name, "page")
	}
	if diff := cmp.Diff([]string{"nav", "foot", "nav"}, u.Partials); diff != "" {
		t.Errorf("Partials mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"head"}, u.Binds); diff != "" {
		t.Errorf("Binds mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		source   string
		want     error
	}{
		{"unclosed element", "t", `<div><p></p>`, ErrUnclosedElement},
		{"unclosed directive", "t", `<div></div>{{#if x}}`, ErrUnclosedDirective},
		{"directive checked before element", "t", `<div>{{#each x}}`, ErrUnclosedDirective},
		{"excess close tag", "t", `<div></div></div>`, ErrExcessCloseTag},
		{"excess close directive", "t", `<div>{{/if}}</div>`, ErrExcessCloseDirective},
		{"mismatched directive", "t", `<div>{{#if x}}{{/each}}</div>`, ErrMismatchedDirective},
		{"else without if", "t", `<div>{{#else}}</div>`, ErrMismatchedDirective},
		{"else inside each", "t", `<div>{{#each x}}{{#else}}{{/each}}</div>`, ErrMismatchedDirective},
		{"mismatched tag", "t", `<div></span>`, ErrMismatchedTag},
		{"element left open in if", "t", `<div>{{#if x}}<p>{{/if}}text</p></div>`, ErrMismatchedDirective},
		{"element left open in each", "t", `<ul>{{#each x}}<li>{{/each}}</li></ul>`, ErrMismatchedDirective},
		{"element left open before else", "t", `<div>{{#if x}}<p>{{#else}}</p>{{/if}}</div>`, ErrMismatchedDirective},
		{"end tag inside directive", "t", `<div>{{#if x}}</div>{{/if}}`, ErrMismatchedTag},
		{"end tag inside with", "t", `<div><p>{{#with x}}</p>{{/with}}</div>`, ErrMismatchedTag},
		{"text before any element", "t", `hello <div></div>`, ErrInvalidTextPlacement},
		{"interpolation at top level", "t", `{{title}}`, ErrInvalidTextPlacement},
		{"svg without use", "t", `<div><svg class="x"></svg></div>`, ErrInvalidSvgUsage},
		{"unknown directive", "t", `<div>{{#loop x}}{{/loop}}</div>`, ErrUnknownDirective},
		{"else with argument", "t", `<div>{{#if a}}{{#else b}}{{/if}}</div>`, ErrUnknownDirective},
		{"if without argument", "t", `<div>{{#if}}{{/if}}</div>`, ErrMissingArgument},
		{"each without argument", "t", `<div>{{#each }}{{/each}}</div>`, ErrMissingArgument},
		{"empty expression", "t", `<div>{{ }}</div>`, ErrEmptyExpression},
		{"empty attribute expression", "t", `<div title="{{}}"></div>`, ErrEmptyExpression},
		{"directive in attribute", "t", `<div title="{{#if x}}"></div>`, ErrDirectiveInAttribute},
		{"partial in attribute", "t", `<div title="{{> x}}"></div>`, ErrDirectiveInAttribute},
		{"bad literal bind", "t", `<div bind="1abc"></div>`, ErrInvalidBind},
		{"bad template name", "bad-name", `<div></div>`, ErrInvalidTemplateName},
		{"bad partial name", "t", `<div>{{> song-row}}</div>`, ErrInvalidTemplateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Compile(tt.template, tt.source, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.want)
			}
			if u != nil {
				t.Errorf("Compile() returned a unit alongside error %v", err)
			}
			var te *Error
			if !errors.As(err, &te) {
				t.Fatalf("error %T is not an *Error", err)
			}
			if te.Template != tt.template {
				t.Errorf("Template = %q, want %q", te.Template, tt.template)
			}
		})
	}
}

func TestCompile_ErrorPosition(t *testing.T) {
	_, err := Compile("t", "<div>\n  <span>\n</div>", Options{})
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("Compile() error = %v, want *Error", err)
	}
	if te.Pos != (Position{Line: 3, Col: 1}) {
		t.Errorf("Pos = %v, want 3:1", te.Pos)
	}
	want := "t:3:1: error: </div> does not match <span> at 2:3"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCompile_CrossedNesting(t *testing.T) {
	tests := []struct {
		name   string
		source string
		parts  []string
	}{
		{
			name:   "directive closed over an element",
			source: `<div>{{#if x}}<p>{{/if}}</p></div>`,
			parts:  []string{"t:1:18:", "{{/if}}", "{{#if x}} opened at 1:6", "<p> at 1:15", "add </p>"},
		},
		{
			name:   "element closed over a directive",
			source: `<div>{{#each rows}}</div>{{/each}}`,
			parts:  []string{"t:1:20:", "</div>", "<div> at 1:1", "{{#each rows}} opened at 1:6", "close {{/each}}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("t", tt.source, Options{})
			if err == nil {
				t.Fatal("Compile() succeeded, want an error")
			}
			msg := err.Error()
			for _, part := range tt.parts {
				if !strings.Contains(msg, part) {
					t.Errorf("error %q does not mention %q", msg, part)
				}
			}
		})
	}
}

func TestCompile_UnclosedReportsAll(t *testing.T) {
	_, err := Compile("t", `<div id="x"><p>`, Options{})
	if !errors.Is(err, ErrUnclosedElement) {
		t.Fatalf("Compile() error = %v, want %v", err, ErrUnclosedElement)
	}
	msg := err.Error()
	for _, part := range []string{`<div id="x"> at 1:1`, `<p> at 1:13`, "add </p>"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q does not mention %q", msg, part)
		}
	}
}

func TestCompile_TextPositionInsideRun(t *testing.T) {
	_, err := Compile("t", "<div></div>\n\n  stray", Options{})
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("Compile() error = %v, want *Error", err)
	}
	if te.Pos != (Position{Line: 3, Col: 3}) {
		t.Errorf("Pos = %v, want 3:3", te.Pos)
	}
}

func TestCompile_FreshState(t *testing.T) {
	src := `<ul>{{#each rows}}<li></li>{{/each}}</ul>`
	first, err := Compile("a", src, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	// A failing compilation in between must not leak state.
	if _, err := Compile("b", `<div><p>`, Options{}); err == nil {
		t.Fatal("expected error for unclosed template")
	}
	second, err := Compile("a", src, Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if first.Code != second.Code {
		t.Errorf("recompiling produced different code:\n%s\n%s", first.Code, second.Code)
	}
}

func TestCompile_Concurrent(t *testing.T) {
	sources := map[string]string{
		"list":  `<ul>{{#each items}}<li>{{name}}</li>{{/each}}</ul>`,
		"cond":  `<p>{{#if a}}<b></b>{{#else}}<i></i>{{/if}}</p>`,
		"icon":  `<div><svg use="x"></svg>{{> list}}</div>`,
		"bound": `<div bind="el">{{#with x}}{{y}}{{/with}}</div>`,
	}
	want := make(map[string]string)
	for name, src := range sources {
		u, err := Compile(name, src, Options{})
		if err != nil {
			t.Fatalf("Compile(%s) error = %v", name, err)
		}
		want[name] = u.Code
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	got := make(map[string][]string)
	for i := 0; i < 8; i++ {
		for name, src := range sources {
			wg.Add(1)
			go func(name, src string) {
				defer wg.Done()
				u, err := Compile(name, src, Options{})
				if err != nil {
					t.Errorf("Compile(%s) error = %v", name, err)
					return
				}
				mu.Lock()
				got[name] = append(got[name], u.Code)
				mu.Unlock()
			}(name, src)
		}
	}
	wg.Wait()

	for name, codes := range got {
		for _, code := range codes {
			if code != want[name] {
				t.Errorf("concurrent Compile(%s) differs from sequential output", name)
			}
		}
	}
}
