// Package template compiles HTML templates with Handlebars-style markers
// into JavaScript functions that build DOM nodes directly.
//
// A template is ordinary markup plus:
//
//	{{expr}}            text or attribute value
//	{{@root.expr}}      value from the outermost context
//	{{^expr}}           raw expression, emitted as written
//	{{$code()}}         raw call, emitted as written
//	{{#each list}}      repeat for each element of list
//	{{#if cond}}        conditional block, optionally split by {{#else}}
//	{{#with value}}     block with value as its context
//	{{/name}}           end of the innermost block
//	{{> other}}         render another template into the current parent
//
// An element with a bind attribute is stored under that name in the render
// state instead of receiving the attribute. The reserved SVG tag becomes a
// call to the sprite icon helper.
//
// Compile turns one template into a Unit. A Bundle collects units and writes
// them, with a shared preamble, as a single script that registers every
// function on a global registry object.
package template
