// Package resolver binds parsed filter members to the fields, context
// attributes and built-in functions of a content type.
package resolver

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Resolver resolves queries against one content type. It is not safe for
// concurrent use.
type Resolver struct {
	provider schema.Provider
	resource *schema.ResourceSchema
	fields   map[string]*schema.Field
	context  map[string]*schema.ContextField
	virtual  map[string]*schema.Field
	query    *ast.Query
}

// New creates a resolver for typeName
func New(provider schema.Provider, typeName string) (*Resolver, error) {
	resource, ok := provider.Resource(typeName)
	if !ok {
		return nil, ferrors.NewUnknownType(ast.SourceLocation{Offset: -1}, typeName)
	}
	fields, err := provider.GetFields(resource.Name)
	if err != nil {
		return nil, ferrors.NewUnknownType(ast.SourceLocation{Offset: -1}, typeName).WithCause(err)
	}

	return &Resolver{
		provider: provider,
		resource: resource,
		fields:   fields,
		context:  provider.GetContextFields(),
		virtual:  provider.GetGlobalVirtualFields(),
	}, nil
}

// Resolve resolves q against typeName
func Resolve(q *ast.Query, typeName string, provider schema.Provider) (*ast.Query, error) {
	r, err := New(provider, typeName)
	if err != nil {
		return nil, err
	}
	return r.Resolve(q)
}

// Resolve binds every member of q, expands function calls and assigns a
// static type to every argument slot. The query is modified in place.
func (r *Resolver) Resolve(q *ast.Query) (*ast.Query, error) {
	r.query = q

	root, err := r.predicate(q.Root)
	if err != nil {
		if ce, ok := err.(*ferrors.CompilerError); ok {
			return nil, ce.WithQuery(q.Text)
		}
		return nil, err
	}

	for _, slot := range q.Slots {
		if slot.Type == nil {
			return nil, ferrors.NewUnexpectedNode(fmt.Sprintf("untyped argument slot %d", slot.Index))
		}
	}

	q.Root = root
	q.TypeName = r.resource.Name
	return q, nil
}

// Resource returns the content type being resolved against
func (r *Resolver) Resource() *schema.ResourceSchema {
	return r.resource
}

// predicate resolves a node that must evaluate to true or false
func (r *Resolver) predicate(n ast.Node) (ast.Node, error) {
	switch node := n.(type) {
	case *ast.OpNode:
		switch {
		case node.Op == ast.OpNot:
			inner, err := r.predicate(node.Right)
			if err != nil {
				return nil, err
			}
			node.Right = inner
			return node, nil
		case node.Op.IsLogic():
			left, err := r.predicate(node.Left)
			if err != nil {
				return nil, err
			}
			right, err := r.predicate(node.Right)
			if err != nil {
				return nil, err
			}
			node.Left, node.Right = left, right
			return node, nil
		default:
			return r.comparison(node)
		}

	case *ast.MemberNode:
		return r.memberPredicate(node)

	case *ast.MappingNode:
		return r.mapping(node)

	case *ast.ConstNode:
		if node.Kind == ast.ConstBool {
			return node, nil
		}
		return nil, ferrors.NewInvalidOperand(node.Loc, node.String(), "is not a condition")
	}

	return nil, ferrors.NewUnexpectedNode(n.String())
}

// memberPredicate resolves a member standing alone as a condition
func (r *Resolver) memberPredicate(m *ast.MemberNode) (ast.Node, error) {
	switch m.Kind {
	case ast.MemberCall:
		fn, ok := lookupFunction(m.Name)
		if !ok {
			return nil, ferrors.NewUnknownFunction(m.Loc, m.Name, FunctionNames())
		}
		if len(m.Args) < fn.MinArgs || len(m.Args) > fn.MaxArgs {
			return nil, ferrors.NewWrongArity(m.Loc, fn.Name, arity(fn), len(m.Args))
		}
		expanded, err := fn.Expand(r, m)
		if err != nil {
			return nil, err
		}
		return r.predicate(expanded)

	case ast.MemberIncluded:
		return m, nil

	case ast.MemberContext:
		if err := r.bindContext(m); err != nil {
			return nil, err
		}
		if m.Context.Type.BaseType != schema.TypeBool {
			return nil, ferrors.NewInvalidOperand(m.Loc, m.String(), "is not a boolean condition")
		}
		return m, nil

	default:
		if err := r.bindField(m); err != nil {
			return nil, err
		}
		if m.Field.Virtual || m.Field.Type == nil || m.Field.Type.BaseType != schema.TypeBool {
			return nil, ferrors.NewInvalidOperand(m.Loc, m.Name, "is not a boolean condition")
		}
		return m, nil
	}
}

// comparison resolves "member op value"
func (r *Resolver) comparison(op *ast.OpNode) (ast.Node, error) {
	left, ok := op.Left.(*ast.MemberNode)
	if !ok || left.Kind == ast.MemberCall || left.Kind == ast.MemberIncluded {
		return nil, ferrors.NewInvalidOperand(op.Left.Location(), op.Left.String(), "cannot be compared")
	}

	var leftType *schema.TypeSpec
	virtual := false
	operand := left.Name

	if left.Kind == ast.MemberContext {
		if err := r.bindContext(left); err != nil {
			return nil, err
		}
		leftType = left.Context.Type
		operand = left.String()
	} else {
		if err := r.bindField(left); err != nil {
			return nil, err
		}
		virtual = left.Field.Virtual
		leftType = fieldType(left.Field)
		if virtual {
			operand = "virtual field " + left.Name
		}
	}

	if err := r.checkOperator(op, operand, leftType, virtual); err != nil {
		return nil, err
	}

	slotType := leftType
	if virtual {
		slotType = leftType.NonNull()
		if direct, ok := r.directField(left.Field); ok {
			left.Origin = left.Field
			left.Field = direct
			slotType = fieldType(direct).NonNull()
		} else {
			left.Join = true
		}
	}

	switch right := op.Right.(type) {
	case *ast.ConstNode:
		if right.IsArg() {
			r.typeSlot(right, slotType)
		}
	case *ast.MemberNode:
		if right.Kind != ast.MemberContext {
			return nil, ferrors.NewInvalidOperand(right.Loc, right.String(), "cannot be used as a value")
		}
		if err := r.bindContext(right); err != nil {
			return nil, err
		}
		if !compatible(leftType, right.Context.Type) {
			return nil, ferrors.NewOperatorNotSupported(op.Loc, op.Op.String(), operand, right.Context.Type.String())
		}
	default:
		return nil, ferrors.NewUnexpectedNode(op.Right.String())
	}

	return op, nil
}

// checkOperator validates the operator against the operand type and the shape of the right side
func (r *Resolver) checkOperator(op *ast.OpNode, operand string, t *schema.TypeSpec, virtual bool) error {
	right, _ := op.Right.(*ast.ConstNode)
	isNull := right != nil && right.Kind == ast.ConstNull
	isArray := right != nil && right.Kind == ast.ConstArrayArg

	reject := func() error {
		return ferrors.NewOperatorNotSupported(op.Loc, op.Op.String(), operand, t.String())
	}

	if isNull {
		if virtual || (op.Op != ast.OpEqual && op.Op != ast.OpNotEqual) {
			return ferrors.NewOperatorNotSupported(op.Loc, op.Op.String(), operand, "null")
		}
		return nil
	}

	if virtual {
		if op.Op.IsOrdering() || op.Op.IsStringMatch() {
			return reject()
		}
		return nil
	}

	switch op.Op {
	case ast.OpEqual, ast.OpNotEqual:
		return nil
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		if isArray || !t.IsOrdered() {
			return reject()
		}
	case ast.OpStartsWith, ast.OpEndsWith:
		if isArray || !t.IsText() {
			return reject()
		}
	case ast.OpContains:
		if !isArray && !t.IsText() {
			return reject()
		}
	case ast.OpContainsAny, ast.OpContainsAll, ast.OpContainsNone:
		if !isArray {
			return reject()
		}
	}
	return nil
}

// mapping resolves an association check
func (r *Resolver) mapping(m *ast.MappingNode) (ast.Node, error) {
	target, ok := r.provider.Resource(m.TargetType)
	if !ok {
		return nil, ferrors.NewUnknownType(m.Loc, m.TargetType)
	}
	m.SourceType = r.resource.Name
	m.TargetType = target.Name

	targetType := &schema.TypeSpec{BaseType: schema.TypeInt}
	if pk, err := target.GetPrimaryKey(); err == nil && pk.Type != nil {
		targetType = pk.Type.NonNull()
	}

	if fk, ok := r.resource.DirectForeignKey(target.Name, m.MapName); ok {
		eq := &ast.OpNode{
			Op:    ast.OpEqual,
			Left:  &ast.MemberNode{Name: fk.Name, Kind: ast.MemberField, Loc: m.Loc, Field: fk},
			Right: m.Target,
			Loc:   m.Loc,
		}
		if err := r.mappingTarget(m.Target, fieldType(fk).NonNull()); err != nil {
			return nil, err
		}
		return eq, nil
	}

	if err := r.mappingTarget(m.Target, targetType); err != nil {
		return nil, err
	}

	if m.MapName == "" {
		rel, ok := r.resource.PrimaryAssociation(target.Name)
		if !ok {
			return nil, ferrors.NewNoPrimaryAssociation(m.Loc, r.resource.Name, target.Name)
		}
		m.MapName = rel.MapName()
		m.Relationship = rel
		return m, nil
	}

	// A named association that does not exist is reported by setup
	if rel, ok := r.resource.LookupRelationship(m.MapName); ok &&
		rel.IsAssociation() && strings.EqualFold(rel.TargetResource, target.Name) {
		m.MapName = rel.MapName()
		m.Relationship = rel
	}
	return m, nil
}

func (r *Resolver) mappingTarget(n ast.Node, t *schema.TypeSpec) error {
	switch target := n.(type) {
	case *ast.ConstNode:
		if target.Kind != ast.ConstArg {
			return ferrors.NewInvalidOnArgument(target.Loc, 2, "a ? placeholder", target.String())
		}
		r.typeSlot(target, t)
	case *ast.MemberNode:
		if target.Kind != ast.MemberContext {
			return ferrors.NewInvalidOnArgument(target.Loc, 2, "a ? placeholder", target.String())
		}
		return r.bindContext(target)
	default:
		return ferrors.NewUnexpectedNode(n.String())
	}
	return nil
}

// bindField looks the member up among the type's fields, then the global
// virtual fields
func (r *Resolver) bindField(m *ast.MemberNode) error {
	key := strings.ToLower(m.Name)
	if f, ok := r.fields[key]; ok {
		m.Field = f
		return nil
	}
	if f, ok := r.virtual[key]; ok {
		m.Field = f
		return nil
	}
	return ferrors.NewUnknownField(m.Loc, r.resource.Name, m.Name)
}

func (r *Resolver) bindContext(m *ast.MemberNode) error {
	f, ok := r.context[strings.ToLower(m.Name)]
	if !ok {
		return ferrors.NewUnknownContextField(m.Loc, m.Name)
	}
	m.Context = f
	return nil
}

// directField finds a local scalar that answers a virtual field without a join
func (r *Resolver) directField(v *schema.Field) (*schema.Field, bool) {
	if v.BackingField != "" {
		if f, ok := r.resource.LookupField(v.BackingField); ok && !f.Virtual {
			return f, true
		}
	}
	if f, ok := r.resource.DirectForeignKey(v.TargetType, v.MapName); ok {
		return f, true
	}
	if rel, ok := r.resource.LookupRelationship(v.MapName); ok && rel.IsAssociation() {
		return nil, false
	}
	// Unnamed fallback only when the target is reachable through a single key
	if fks := r.resource.ForeignKeysTo(v.TargetType); len(fks) == 1 {
		return fks[0], true
	}
	return nil, false
}

func (r *Resolver) typeSlot(c *ast.ConstNode, t *schema.TypeSpec) {
	slot := r.query.Slots[c.Slot]
	if slot.IsArray {
		t = t.NonNull()
	}
	slot.Type = t
}

func fieldType(f *schema.Field) *schema.TypeSpec {
	if f.Type == nil {
		return &schema.TypeSpec{BaseType: schema.TypeInt}
	}
	return f.Type
}

// compatible reports whether values of a and b can be compared
func compatible(a, b *schema.TypeSpec) bool {
	switch {
	case a.BaseType == b.BaseType:
		return true
	case a.IsNumeric() && b.IsNumeric():
		return true
	case a.IsText() && b.IsText():
		return true
	case isTime(a) && isTime(b):
		return true
	}
	return false
}

func isTime(t *schema.TypeSpec) bool {
	return t.BaseType == schema.TypeTimestamp || t.BaseType == schema.TypeDate
}

func arity(fn *Function) string {
	if fn.MinArgs == fn.MaxArgs {
		return fmt.Sprint(fn.MinArgs)
	}
	return fmt.Sprintf("%d to %d", fn.MinArgs, fn.MaxArgs)
}
