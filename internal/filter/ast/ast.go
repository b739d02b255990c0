// Package ast defines the syntax tree produced by the filter parser.
// Nodes form a small tagged union: members, operators, constants and mappings.
package ast

import (
	"strings"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// SourceLocation is a position inside the query text.
type SourceLocation struct {
	Offset int // zero-based index of the first character of the node
}

// Node is the base interface for all AST nodes
type Node interface {
	Location() SourceLocation
	String() string
	node()
}

// MemberKind tells what a member name refers to
type MemberKind int

const (
	// MemberField is a field of the filtered type (or an unresolved name)
	MemberField MemberKind = iota
	// MemberContext is a request context attribute (written @Name)
	MemberContext
	// MemberCall is a built-in function call
	MemberCall
	// MemberIncluded is the resolved IsIncluded() flag
	MemberIncluded
)

// MemberNode references an object field, a context attribute or a function call.
// Args are only used for calls. Field, Context and Join are set by the resolver.
type MemberNode struct {
	Name string
	Kind MemberKind
	Args []Node
	Loc  SourceLocation

	Field   *schema.Field        // resolved object field (may be virtual)
	Context *schema.ContextField // resolved context attribute
	Join    bool                 // virtual field that needs a collector
	Origin  *schema.Field        // virtual field answered through Field's foreign key
}

func (m *MemberNode) node() {}

// Location returns the source location of the member
func (m *MemberNode) Location() SourceLocation {
	return m.Loc
}

func (m *MemberNode) String() string {
	switch m.Kind {
	case MemberContext:
		return "@" + m.Name
	case MemberIncluded:
		return "IsIncluded()"
	case MemberCall:
		parts := make([]string, len(m.Args))
		for i, a := range m.Args {
			parts[i] = a.String()
		}
		return m.Name + "(" + strings.Join(parts, ", ") + ")"
	default:
		return m.Name
	}
}

// OpNode is a binary operator or the unary not. For not, Left is nil.
type OpNode struct {
	Op    Operator
	Left  Node
	Right Node
	Loc   SourceLocation
}

func (o *OpNode) node() {}

// Location returns the source location of the operator
func (o *OpNode) Location() SourceLocation {
	return o.Loc
}

func (o *OpNode) String() string {
	if o.Op == OpNot {
		return "!(" + o.Right.String() + ")"
	}
	if o.Op.IsLogic() {
		return "(" + o.Left.String() + " " + o.Op.String() + " " + o.Right.String() + ")"
	}
	if o.Op.IsWord() {
		return o.Left.String() + " " + o.Op.String() + " " + o.Right.String()
	}
	return o.Left.String() + o.Op.String() + o.Right.String()
}

// IsUnary reports whether the node is a negation
func (o *OpNode) IsUnary() bool {
	return o.Op == OpNot
}

// ConstKind is the kind of a constant node
type ConstKind int

const (
	ConstString ConstKind = iota
	ConstNumber
	ConstDecimal
	ConstBool
	ConstNull
	ConstArg
	ConstArrayArg
)

// String returns the display name of the constant kind
func (k ConstKind) String() string {
	switch k {
	case ConstString:
		return "string"
	case ConstNumber:
		return "number"
	case ConstDecimal:
		return "decimal"
	case ConstBool:
		return "bool"
	case ConstNull:
		return "null"
	case ConstArg:
		return "arg"
	case ConstArrayArg:
		return "array arg"
	default:
		return "unknown"
	}
}

// ConstNode is a literal or an argument placeholder.
// Literal holds the raw text for numbers and decimals so the generator can
// coerce it to the field type; strings and bools hold their parsed value.
type ConstNode struct {
	Kind    ConstKind
	Literal interface{}
	Slot    int // slot index for ConstArg / ConstArrayArg, -1 otherwise
	Loc     SourceLocation
}

func (c *ConstNode) node() {}

// Location returns the source location of the constant
func (c *ConstNode) Location() SourceLocation {
	return c.Loc
}

func (c *ConstNode) String() string {
	switch c.Kind {
	case ConstArg:
		return "?"
	case ConstArrayArg:
		return "[?]"
	case ConstNull:
		return "null"
	case ConstBool:
		if b, _ := c.Literal.(bool); b {
			return "true"
		}
		return "false"
	case ConstString:
		s, _ := c.Literal.(string)
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	default:
		s, _ := c.Literal.(string)
		return s
	}
}

// IsArg reports whether the constant is a placeholder
func (c *ConstNode) IsArg() bool {
	return c.Kind == ConstArg || c.Kind == ConstArrayArg
}

// MappingNode checks that an association row links the candidate to a target id.
// It is produced by On(...) and by the permit functions.
type MappingNode struct {
	SourceType string
	TargetType string
	MapName    string // empty means the primary association
	Target     Node   // argument placeholder or context member holding the target id
	Loc        SourceLocation

	// Relationship is the association chosen by the resolver.
	Relationship *schema.Relationship
}

func (m *MappingNode) node() {}

// Location returns the source location of the mapping
func (m *MappingNode) Location() SourceLocation {
	return m.Loc
}

func (m *MappingNode) String() string {
	s := "On(" + m.TargetType + ", " + m.Target.String()
	if m.MapName != "" {
		s += `, "` + m.MapName + `"`
	}
	return s + ")"
}

// Walk visits n and its children depth first, stopping a branch when fn returns false
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *OpNode:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *MemberNode:
		for _, a := range v.Args {
			Walk(a, fn)
		}
	case *MappingNode:
		Walk(v.Target, fn)
	}
}
