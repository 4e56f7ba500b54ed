// CLAUDE:SUMMARY DOM Provider capability: node/query interfaces plus the shared visibility predicate.
// Package dom defines the query capability the resolution engine consumes
// from a host document. The engine never touches a document directly; it goes
// through these interfaces so the same strategies run against a live browser
// page (roddom) or a parsed static document (memdom).
//
// Documents are externally mutable: callers must re-query between retries and
// never hold a Node across resolution calls.
package dom

import (
	"context"

	"github.com/hazyhaar/domreplay/descriptor"
)

// Node is one resolved element. Implementations read from the underlying
// document lazily; a Node is only valid for the resolution pass that
// produced it.
type Node interface {
	// Tag returns the lowercase tag name.
	Tag() string
	// Attr returns the value of an attribute, "" when absent.
	Attr(name string) string
	// Text returns the element's visible text content.
	Text() string
	// Rect returns the bounding rectangle. ok is false when the document
	// cannot provide geometry for this node.
	Rect() (r descriptor.Rect, ok bool)
	// Style returns a computed (or best-effort) style property value.
	Style(prop string) string
}

// Queryable answers element lookups against one document scope: a top-level
// document, an embedded frame, or a shadow root.
type Queryable interface {
	// Query returns the first element matching a CSS selector, nil when none.
	Query(selector string) (Node, error)
	// QueryAll returns all elements matching a CSS selector.
	QueryAll(selector string) ([]Node, error)
	// QueryXPath evaluates an absolute path expression, nil when no match.
	QueryXPath(expr string) (Node, error)
	// Elements returns all elements with the given tag; an empty tag returns
	// every element in the scope.
	Elements(tag string) ([]Node, error)
}

// Provider opens document scopes, including descent across the embedded-frame
// and shadow-host chains a descriptor recorded.
type Provider interface {
	// Document returns the top-level document scope.
	Document(ctx context.Context) (Queryable, error)
	// Scope descends the given frame-index chain, then the shadow-host
	// selector chain, and returns the resulting scope. Both chains may be
	// empty, in which case Scope is equivalent to Document.
	Scope(ctx context.Context, frames []int, shadowHosts []string) (Queryable, error)
}

// Visible reports whether a node passes the visibility predicate: not
// display:none, not visibility:hidden, opacity not exactly "0", and a
// bounding box with both dimensions > 0.
func Visible(n Node) bool {
	if n == nil {
		return false
	}
	if n.Style("display") == "none" {
		return false
	}
	if n.Style("visibility") == "hidden" {
		return false
	}
	if n.Style("opacity") == "0" {
		return false
	}
	r, ok := n.Rect()
	if !ok {
		// No geometry available (static documents): style checks decide.
		return true
	}
	return r.Width > 0 && r.Height > 0
}
