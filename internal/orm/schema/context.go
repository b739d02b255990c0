package schema

import (
	"sort"
	"strings"
)

// Record is one candidate object. Keys are field names as declared on the
// resource; lookups through Get are case-insensitive.
type Record map[string]interface{}

// Get returns the value of a field, matching the name case-insensitively
func (r Record) Get(name string) (interface{}, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// RequestContext carries the request-scoped values filters can refer to
// with @Name.
type RequestContext struct {
	UserID interface{}
	RoleID interface{}
	Values map[string]interface{}
}

// Value returns a named request value, case-insensitively
func (c *RequestContext) Value(name string) (interface{}, bool) {
	if c == nil || c.Values == nil {
		return nil, false
	}
	if v, ok := c.Values[name]; ok {
		return v, true
	}
	for k, v := range c.Values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// ContextField describes a request context attribute
type ContextField struct {
	Name string
	Type *TypeSpec
	Get  func(ctx *RequestContext) interface{}
}

// Read returns the attribute value for ctx, nil when ctx is nil
func (f *ContextField) Read(ctx *RequestContext) interface{} {
	if ctx == nil || f.Get == nil {
		return nil
	}
	return f.Get(ctx)
}

// UserIDField is the @UserId attribute
func UserIDField(t *TypeSpec) *ContextField {
	return &ContextField{
		Name: "UserId",
		Type: t,
		Get:  func(ctx *RequestContext) interface{} { return ctx.UserID },
	}
}

// RoleIDField is the @RoleId attribute
func RoleIDField(t *TypeSpec) *ContextField {
	return &ContextField{
		Name: "RoleId",
		Type: t,
		Get:  func(ctx *RequestContext) interface{} { return ctx.RoleID },
	}
}

// ValueField is an attribute read from RequestContext.Values
func ValueField(name string, t *TypeSpec) *ContextField {
	return &ContextField{
		Name: name,
		Type: t,
		Get: func(ctx *RequestContext) interface{} {
			v, _ := ctx.Value(name)
			return v
		},
	}
}

func sortRelationships(rels []*Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		return strings.ToLower(rels[i].MapName()) < strings.ToLower(rels[j].MapName())
	})
}
