// Package preview decides whether a code segment can be rendered live and
// manages the isolated documents that back a live render.
package preview

import (
	"fmt"
	"strings"
)

// Class groups declared languages by how a browser would treat them.
type Class int

const (
	Other Class = iota
	Markup
	Script
	Style
)

// Policy is the static verdict for one declared language.
type Policy struct {
	Language   string
	Class      Class
	Renderable bool
	// Reason explains why a preview is unavailable. Empty when Renderable.
	Reason string
}

// classes is the full eligibility table. Only markup is ever rendered; it runs
// with scripting enabled and same-origin disabled.
var classes = map[string]Class{
	"html":  Markup,
	"htm":   Markup,
	"xhtml": Markup,
	"svg":   Markup,

	"javascript": Script,
	"js":         Script,
	"mjs":        Script,
	"jsx":        Script,
	"typescript": Script,
	"ts":         Script,
	"tsx":        Script,

	"css":  Style,
	"scss": Style,
	"sass": Style,
	"less": Style,
}

// Lookup returns the policy for lang. Matching ignores case and surrounding
// whitespace.
func Lookup(lang string) Policy {
	key := strings.ToLower(strings.TrimSpace(lang))
	class := classes[key]
	p := Policy{Language: lang, Class: class}
	switch class {
	case Markup:
		p.Renderable = true
	case Script:
		p.Reason = fmt.Sprintf("Preview is not available for %s: scripts only run inside an HTML document. Put it in a <script> tag of an html block to preview it.", lang)
	case Style:
		p.Reason = fmt.Sprintf("Preview is not available for %s: a stylesheet needs an HTML document to style. Put it in a <style> tag of an html block to preview it.", lang)
	default:
		p.Reason = fmt.Sprintf("Preview is not available for %s.", lang)
	}
	return p
}

// Eligible reports whether lang gets a live sandboxed render.
func Eligible(lang string) bool {
	return Lookup(lang).Renderable
}
