// Package codegen compiles a resolved filter AST into a tree of closures.
// Field and attribute accessors, literal coercions and collector indices
// are fixed at compile time; evaluation never re-reads the query text.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Membership answers whether a candidate id (as produced by Key) was collected
type Membership interface {
	Contains(key interface{}) bool
}

// Frame carries the inputs of one evaluation
type Frame struct {
	Context    *schema.RequestContext
	Record     schema.Record
	ID         interface{} // key of the candidate's primary key
	Included   bool
	Args       []interface{}
	Collectors []Membership

	err error
}

func (f *Frame) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

// Predicate is a compiled node
type Predicate func(f *Frame) bool

// CollectMode tells how the ids collected for several targets combine
type CollectMode int

const (
	// CollectAny keeps candidates linked to at least one target
	CollectAny CollectMode = iota
	// CollectAll keeps candidates linked to every target
	CollectAll
)

// String returns the mode name
func (m CollectMode) String() string {
	if m == CollectAll {
		return "all"
	}
	return "any"
}

// TargetFunc extracts the target ids of a join from bound arguments and the
// request context
type TargetFunc func(args []interface{}, rc *schema.RequestContext) []interface{}

// CollectorSpec describes one join that must be populated before matching
type CollectorSpec struct {
	Index        int
	SourceType   string
	TargetType   string
	MapName      string
	Relationship *schema.Relationship // nil when the association is unknown to the schema
	Field        *schema.Field        // virtual field, nil for On(...)
	Mode         CollectMode
	Targets      TargetFunc
	Text         string
}

// Program is a compiled filter. It is immutable and safe for concurrent use.
type Program struct {
	Query      *ast.Query
	Resource   *schema.ResourceSchema
	KeyField   *schema.Field
	Collectors []*CollectorSpec

	root   Predicate
	readID accessor
}

// Eval runs the compiled predicate. An error is only returned for
// internal invariant violations.
func (p *Program) Eval(f *Frame) (bool, error) {
	f.err = nil
	ok := p.root(f)
	if f.err != nil {
		return false, f.err
	}
	return ok, nil
}

// CandidateID returns the key of the record's primary key
func (p *Program) CandidateID(rec schema.Record) (interface{}, bool) {
	v, ok := p.readID(&Frame{Record: rec})
	if !ok {
		return nil, false
	}
	return Key(v), true
}

// NormalizeID converts an id returned by an association store to a candidate key
func (p *Program) NormalizeID(id interface{}) (interface{}, error) {
	v, err := Coerce(typeSpecOf(p.KeyField), id, false)
	if err != nil {
		return nil, err
	}
	return Key(v), nil
}

// accessor reads a normalized value; false means the value is absent
type accessor func(f *Frame) (interface{}, bool)

type generator struct {
	query      *ast.Query
	provider   schema.Provider
	resource   *schema.ResourceSchema
	collectors []*CollectorSpec
}

// Compile compiles a resolved query
func Compile(q *ast.Query, provider schema.Provider) (*Program, error) {
	if !q.Resolved() {
		return nil, ferrors.NewUnexpectedNode("unresolved query " + q.Text)
	}
	resource, ok := provider.Resource(q.TypeName)
	if !ok {
		return nil, ferrors.NewUnknownType(ast.SourceLocation{Offset: -1}, q.TypeName)
	}
	pk, err := resource.GetPrimaryKey()
	if err != nil {
		return nil, ferrors.NewUnexpectedNode(err.Error())
	}

	g := &generator{query: q, provider: provider, resource: resource}
	root, err := g.compile(q.Root)
	if err != nil {
		if ce, ok := err.(*ferrors.CompilerError); ok {
			return nil, ce.WithQuery(q.Text)
		}
		return nil, err
	}

	return &Program{
		Query:      q,
		Resource:   resource,
		KeyField:   pk,
		Collectors: g.collectors,
		root:       root,
		readID:     fieldAccessor(pk, typeSpecOf(pk)),
	}, nil
}

func (g *generator) compile(n ast.Node) (Predicate, error) {
	switch node := n.(type) {
	case *ast.OpNode:
		switch node.Op {
		case ast.OpNot:
			inner, err := g.compile(node.Right)
			if err != nil {
				return nil, err
			}
			return func(f *Frame) bool { return !inner(f) }, nil
		case ast.OpAnd, ast.OpOr:
			left, err := g.compile(node.Left)
			if err != nil {
				return nil, err
			}
			right, err := g.compile(node.Right)
			if err != nil {
				return nil, err
			}
			if node.Op == ast.OpAnd {
				return func(f *Frame) bool { return left(f) && right(f) }, nil
			}
			return func(f *Frame) bool { return left(f) || right(f) }, nil
		default:
			return g.comparison(node)
		}

	case *ast.MemberNode:
		switch node.Kind {
		case ast.MemberIncluded:
			return func(f *Frame) bool { return f.Included }, nil
		case ast.MemberField:
			if node.Field == nil {
				break
			}
			read := fieldAccessor(node.Field, typeSpecOf(node.Field))
			return func(f *Frame) bool {
				v, ok := read(f)
				return ok && v == true
			}, nil
		case ast.MemberContext:
			if node.Context == nil {
				break
			}
			read := contextAccessor(node.Context, node.Context.Type)
			return func(f *Frame) bool {
				v, ok := read(f)
				return ok && v == true
			}, nil
		}

	case *ast.ConstNode:
		if node.Kind == ast.ConstBool {
			b, _ := node.Literal.(bool)
			return func(*Frame) bool { return b }, nil
		}

	case *ast.MappingNode:
		return g.mapping(node)
	}

	return nil, ferrors.NewUnexpectedNode(n.String())
}

// comparison compiles "member op value" for scalar operands
func (g *generator) comparison(op *ast.OpNode) (Predicate, error) {
	left, ok := op.Left.(*ast.MemberNode)
	if !ok {
		return nil, ferrors.NewUnexpectedNode(op.String())
	}
	if left.Join {
		return g.join(op, left)
	}

	// a virtual field answered by its foreign key holds a single id
	kind := op.Op
	if left.Origin != nil && kind == ast.OpContains {
		kind = ast.OpEqual
	}

	var (
		read accessor
		t    *schema.TypeSpec
	)
	switch {
	case left.Kind == ast.MemberContext && left.Context != nil:
		t = left.Context.Type
		read = contextAccessor(left.Context, t)
	case left.Field != nil:
		t = typeSpecOf(left.Field)
		read = fieldAccessor(left.Field, t)
	default:
		return nil, ferrors.NewUnexpectedNode(left.String())
	}
	zero := Zero(t)
	operand := func(f *Frame) interface{} {
		if v, ok := read(f); ok {
			return v
		}
		return zero
	}

	switch right := op.Right.(type) {
	case *ast.ConstNode:
		switch right.Kind {
		case ast.ConstNull:
			wantAbsent := kind == ast.OpEqual
			return func(f *Frame) bool {
				_, present := read(f)
				return present != wantAbsent
			}, nil

		case ast.ConstArg:
			cmp := scalarOp(kind)
			slot := right.Slot
			nullMatch := nullComparison(kind)
			return func(f *Frame) bool {
				b := f.Args[slot]
				if b == nil {
					_, present := read(f)
					return nullMatch(present)
				}
				return cmp(operand(f), b)
			}, nil

		case ast.ConstArrayArg:
			in := setOp(kind)
			slot := right.Slot
			return func(f *Frame) bool {
				set, _ := f.Args[slot].(*ValueSet)
				if set == nil {
					set = emptySet
				}
				return in(operand(f), set)
			}, nil

		default:
			c, err := literalValue(right, t)
			if err != nil {
				return nil, err
			}
			cmp := scalarOp(kind)
			return func(f *Frame) bool { return cmp(operand(f), c) }, nil
		}

	case *ast.MemberNode:
		if right.Context == nil {
			return nil, ferrors.NewUnexpectedNode(right.String())
		}
		readRight := contextAccessor(right.Context, t)
		cmp := scalarOp(kind)
		negative := kind == ast.OpNotEqual
		return func(f *Frame) bool {
			b, ok := readRight(f)
			if !ok {
				return negative
			}
			return cmp(operand(f), b)
		}, nil
	}

	return nil, ferrors.NewUnexpectedNode(op.String())
}

// join compiles a comparison on a virtual field that needs a collector
func (g *generator) join(op *ast.OpNode, left *ast.MemberNode) (Predicate, error) {
	field := left.Field
	spec := &CollectorSpec{
		SourceType: g.resource.Name,
		TargetType: field.TargetType,
		MapName:    field.MapName,
		Field:      field,
		Text:       op.String(),
	}
	if rel, ok := g.resource.LookupRelationship(field.MapName); ok && rel.IsAssociation() {
		spec.Relationship = rel
		spec.TargetType = rel.TargetResource
	}

	negate := false
	switch op.Op {
	case ast.OpContainsAll:
		spec.Mode = CollectAll
	case ast.OpNotEqual, ast.OpContainsNone:
		negate = true
	}

	targets, err := g.targets(op.Right, typeSpecOf(field).NonNull())
	if err != nil {
		return nil, err
	}
	spec.Targets = targets
	return g.lookup(spec, negate), nil
}

// mapping compiles On(...) backed by an association
func (g *generator) mapping(m *ast.MappingNode) (Predicate, error) {
	keyType := &schema.TypeSpec{BaseType: schema.TypeInt}
	if target, ok := g.provider.Resource(m.TargetType); ok {
		if pk, err := target.GetPrimaryKey(); err == nil {
			keyType = typeSpecOf(pk).NonNull()
		}
	}

	targets, err := g.targets(m.Target, keyType)
	if err != nil {
		return nil, err
	}

	spec := &CollectorSpec{
		SourceType:   m.SourceType,
		TargetType:   m.TargetType,
		MapName:      m.MapName,
		Relationship: m.Relationship,
		Mode:         CollectAny,
		Targets:      targets,
		Text:         m.String(),
	}
	return g.lookup(spec, false), nil
}

// targets compiles the extraction of join target ids from the right operand
func (g *generator) targets(n ast.Node, t *schema.TypeSpec) (TargetFunc, error) {
	switch right := n.(type) {
	case *ast.ConstNode:
		switch right.Kind {
		case ast.ConstArg:
			slot := right.Slot
			return func(args []interface{}, _ *schema.RequestContext) []interface{} {
				if args[slot] == nil {
					return nil
				}
				return []interface{}{args[slot]}
			}, nil
		case ast.ConstArrayArg:
			slot := right.Slot
			return func(args []interface{}, _ *schema.RequestContext) []interface{} {
				if set, ok := args[slot].(*ValueSet); ok {
					return set.Values()
				}
				return nil
			}, nil
		case ast.ConstNumber, ast.ConstDecimal, ast.ConstString, ast.ConstBool:
			c, err := literalValue(right, t)
			if err != nil {
				return nil, err
			}
			return func([]interface{}, *schema.RequestContext) []interface{} {
				return []interface{}{c}
			}, nil
		}
	case *ast.MemberNode:
		if right.Kind == ast.MemberContext && right.Context != nil {
			read := contextAccessor(right.Context, t)
			return func(_ []interface{}, rc *schema.RequestContext) []interface{} {
				if v, ok := read(&Frame{Context: rc}); ok {
					return []interface{}{v}
				}
				return nil
			}, nil
		}
	}
	return nil, ferrors.NewUnexpectedNode(n.String())
}

// lookup registers spec and returns the collector dispatch for it
func (g *generator) lookup(spec *CollectorSpec, negate bool) Predicate {
	k := len(g.collectors)
	spec.Index = k
	g.collectors = append(g.collectors, spec)

	return func(f *Frame) bool {
		if k >= len(f.Collectors) || f.Collectors[k] == nil {
			f.fail(ferrors.NewCollectorIndex(k, len(f.Collectors)))
			return false
		}
		return f.Collectors[k].Contains(f.ID) != negate
	}
}

var emptySet = NewValueSet()

// nullComparison returns the result of comparing against a null argument
// given whether the left value is present
func nullComparison(op ast.Operator) func(present bool) bool {
	switch op {
	case ast.OpEqual:
		return func(present bool) bool { return !present }
	case ast.OpNotEqual:
		return func(present bool) bool { return present }
	default:
		return func(bool) bool { return false }
	}
}

func scalarOp(op ast.Operator) func(a, b interface{}) bool {
	switch op {
	case ast.OpEqual:
		return Equal
	case ast.OpNotEqual:
		return func(a, b interface{}) bool { return !Equal(a, b) }
	case ast.OpLess:
		return func(a, b interface{}) bool { return Compare(a, b) < 0 }
	case ast.OpLessEqual:
		return func(a, b interface{}) bool { return Compare(a, b) <= 0 }
	case ast.OpGreater:
		return func(a, b interface{}) bool { return Compare(a, b) > 0 }
	case ast.OpGreaterEqual:
		return func(a, b interface{}) bool { return Compare(a, b) >= 0 }
	case ast.OpContains:
		return stringOp(strings.Contains)
	case ast.OpStartsWith:
		return stringOp(strings.HasPrefix)
	case ast.OpEndsWith:
		return stringOp(strings.HasSuffix)
	case ast.OpContainsAny:
		return Equal
	case ast.OpContainsNone:
		return func(a, b interface{}) bool { return !Equal(a, b) }
	case ast.OpContainsAll:
		return Equal
	}
	return func(interface{}, interface{}) bool { return false }
}

func stringOp(fn func(s, part string) bool) func(a, b interface{}) bool {
	return func(a, b interface{}) bool {
		s, ok1 := a.(string)
		part, ok2 := b.(string)
		return ok1 && ok2 && fn(s, part)
	}
}

func setOp(op ast.Operator) func(a interface{}, set *ValueSet) bool {
	switch op {
	case ast.OpNotEqual, ast.OpContainsNone:
		return func(a interface{}, set *ValueSet) bool { return !set.Has(a) }
	case ast.OpContainsAll:
		return func(a interface{}, set *ValueSet) bool {
			return set.Len() == 0 || (set.Len() == 1 && set.Has(a))
		}
	default:
		return func(a interface{}, set *ValueSet) bool { return set.Has(a) }
	}
}

// literalValue coerces a literal to the type it is compared against
func literalValue(c *ast.ConstNode, t *schema.TypeSpec) (interface{}, error) {
	invalid := func(cause error) error {
		return ferrors.NewInvalidLiteral(c.Loc, c.String(), t.String()).WithCause(cause)
	}

	switch c.Kind {
	case ast.ConstNumber, ast.ConstDecimal:
		raw, _ := c.Literal.(string)
		switch t.BaseType {
		case schema.TypeInt, schema.TypeBigInt:
			if c.Kind == ast.ConstDecimal {
				return nil, invalid(nil)
			}
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, invalid(err)
			}
			return i, nil
		case schema.TypeFloat:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, invalid(err)
			}
			return v, nil
		case schema.TypeDecimal:
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, invalid(err)
			}
			return d, nil
		}

	case ast.ConstString:
		s, _ := c.Literal.(string)
		switch t.BaseType {
		case schema.TypeString, schema.TypeText, schema.TypeEnum:
			return s, nil
		case schema.TypeUUID:
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, invalid(err)
			}
			return id, nil
		case schema.TypeTimestamp, schema.TypeDate:
			ts, err := parseTime(s)
			if err != nil {
				return nil, invalid(err)
			}
			return ts, nil
		}

	case ast.ConstBool:
		if t.BaseType == schema.TypeBool {
			return c.Literal, nil
		}
	}

	return nil, invalid(nil)
}

func fieldAccessor(field *schema.Field, t *schema.TypeSpec) accessor {
	name := field.Name
	return func(f *Frame) (interface{}, bool) {
		raw, ok := f.Record[name]
		if !ok {
			raw, ok = f.Record.Get(name)
		}
		if !ok || raw == nil {
			return nil, false
		}
		v, err := Coerce(t, raw, false)
		if err != nil || v == nil {
			return nil, false
		}
		return v, true
	}
}

func contextAccessor(field *schema.ContextField, t *schema.TypeSpec) accessor {
	return func(f *Frame) (interface{}, bool) {
		raw := field.Read(f.Context)
		if raw == nil {
			return nil, false
		}
		v, err := Coerce(t, raw, false)
		if err != nil || v == nil {
			return nil, false
		}
		return v, true
	}
}

// Describe returns a one-line summary of the collector
func (s *CollectorSpec) Describe() string {
	return fmt.Sprintf("#%d %s -> %s via %s (%s): %s", s.Index, s.SourceType, s.TargetType, s.MapName, s.Mode, s.Text)
}
