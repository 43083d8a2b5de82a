// Package mustache compiles and renders logic-less mustache templates.
//
// Templates use {{ and }} delimiters by default:
//
//	Hello {{name}}! You have {{count}} new messages.
//
// # Basic Usage
//
// Create an engine, parse once and render many times:
//
//	engine := mustache.MustNew()
//	tmpl, err := engine.Parse("Hello {{name}}!")
//	out, err := tmpl.Render(map[string]any{"name": "Alice"})
//	// out: "Hello Alice!"
//
// # Tags
//
//	{{name}}            HTML-escaped variable (& < > are replaced)
//	{{{name}}} {{&name}} unescaped variable
//	{{#name}}...{{/name}} section: repeated for lists, entered for objects,
//	                    shown for other truthy values
//	{{^name}}...{{/name}} inverted section: shown for falsy values and empty lists
//	{{>name}}           partial
//	{{! comment !}}     comment
//	{{=<% %>=}}         switch delimiters for the rest of the template
//	{{%IMPLICIT-ITERATOR iterator=item}} rename the "." key used for bare list elements
//
// Variables are looked up in the innermost scope first and then in the
// view passed to Render. Scopes in between are not searched.
//
// # Lambdas
//
// A section bound to a LambdaFunc receives the raw section text and a
// function that renders text against the current scope:
//
//	view := map[string]any{
//	    "name": "Alice",
//	    "bold": mustache.LambdaFunc(func(text string, render mustache.RenderFunc) string {
//	        return "<b>" + render(text) + "</b>"
//	    }),
//	}
//	out, _ := mustache.Render("{{#bold}}Hi {{name}}{{/bold}}", view, nil)
//	// out: "<b>Hi Alice</b>"
//
// # Partials and Storage
//
// Partials are registered on the engine, passed per template with
// ParseWithPartials, or loaded on demand from a PartialStorage
// (memory, filesystem, postgres or sqlite).
package mustache

import (
	"github.com/itsatony/go-mustache/internal"
)

// LambdaFunc is a higher-order section. It receives the literal section
// body and a RenderFunc; its return value is written to the output
// without escaping.
type LambdaFunc = internal.LambdaFunc

// RenderFunc renders a template fragment against the current scope
type RenderFunc = internal.RenderFunc

var defaultEngine = MustNew()

// Compile compiles source with the given partials using default settings.
func Compile(source string, partials map[string]string) (*Template, error) {
	return defaultEngine.ParseWithPartials(source, partials)
}

// Render compiles source with the given partials and renders it against
// view using default settings.
func Render(source string, view any, partials map[string]string) (string, error) {
	tmpl, err := Compile(source, partials)
	if err != nil {
		return "", err
	}
	return tmpl.Render(view)
}

// EscapeHTML replaces &, < and > with their HTML entities, the escaping
// applied to {{name}} tags.
func EscapeHTML(s string) string {
	return internal.EscapeHTML(s)
}
