package ast

import "github.com/conduit-lang/contentq/internal/orm/schema"

// ArgSlot describes one argument placeholder. Index is assigned by the
// parser in source order and never changes afterwards. Type is filled in
// by the resolver from the field or attribute the placeholder is compared to.
type ArgSlot struct {
	Index   int
	IsArray bool
	Type    *schema.TypeSpec
	Loc     SourceLocation
}

// Query is the result of parsing one filter text
type Query struct {
	Text     string
	Root     Node
	Slots    []*ArgSlot
	TypeName string // set once the query is resolved against a content type
}

// Resolved reports whether the query has been bound to a content type
func (q *Query) Resolved() bool {
	return q.TypeName != ""
}
