package resolver

import (
	"sort"
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
)

// Expansion turns a call into an unresolved sub-tree; the resolver resolves
// the result like any other node.
type Expansion func(r *Resolver, call *ast.MemberNode) (ast.Node, error)

// Function is a built-in filter function
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	Expand  Expansion
}

// builtins maps lowercase names to built-in functions
var builtins = map[string]*Function{
	"isself":        {Name: "IsSelf", Expand: expandIsSelf},
	"isselfrole":    {Name: "IsSelfRole", Expand: expandIsSelfRole},
	"hasuserpermit": {Name: "HasUserPermit", Expand: expandHasUserPermit},
	"hasrolepermit": {Name: "HasRolePermit", Expand: expandHasRolePermit},
	"isincluded":    {Name: "IsIncluded", Expand: expandIsIncluded},
	"on":            {Name: "On", MinArgs: 2, MaxArgs: 3, Expand: expandOn},
}

// Names of the association maps consulted by the permit functions
const (
	UserPermitsMap = "UserPermits"
	RolePermitsMap = "RolePermits"
)

// FunctionNames returns the display names of all built-in functions
func FunctionNames() []string {
	names := make([]string, 0, len(builtins))
	for _, f := range builtins {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func lookupFunction(name string) (*Function, bool) {
	f, ok := builtins[strings.ToLower(name)]
	return f, ok
}

func falseNode(loc ast.SourceLocation) ast.Node {
	return &ast.ConstNode{Kind: ast.ConstBool, Literal: false, Slot: -1, Loc: loc}
}

// ownerCheck expands to <field> = @<attr>, or false when the type has no such field
func ownerCheck(r *Resolver, call *ast.MemberNode, field, attr string) (ast.Node, error) {
	if field == "" {
		return falseNode(call.Loc), nil
	}
	if _, ok := r.context[strings.ToLower(attr)]; !ok {
		return falseNode(call.Loc), nil
	}
	return &ast.OpNode{
		Op:    ast.OpEqual,
		Left:  &ast.MemberNode{Name: field, Kind: ast.MemberField, Loc: call.Loc},
		Right: &ast.MemberNode{Name: attr, Kind: ast.MemberContext, Loc: call.Loc},
		Loc:   call.Loc,
	}, nil
}

func expandIsSelf(r *Resolver, call *ast.MemberNode) (ast.Node, error) {
	return ownerCheck(r, call, r.resource.OwnerField, "UserId")
}

func expandIsSelfRole(r *Resolver, call *ast.MemberNode) (ast.Node, error) {
	return ownerCheck(r, call, r.resource.RoleField, "RoleId")
}

// permitCheck expands to On(<target>, @<attr>, <mapName>) when the type
// declares that association, or false otherwise
func permitCheck(r *Resolver, call *ast.MemberNode, target, attr, mapName string) (ast.Node, error) {
	rel, ok := r.resource.LookupRelationship(mapName)
	if !ok || !rel.IsAssociation() || !strings.EqualFold(rel.TargetResource, target) {
		return falseNode(call.Loc), nil
	}
	if _, ok := r.context[strings.ToLower(attr)]; !ok {
		return falseNode(call.Loc), nil
	}
	return &ast.MappingNode{
		SourceType: r.resource.Name,
		TargetType: rel.TargetResource,
		MapName:    rel.MapName(),
		Target:     &ast.MemberNode{Name: attr, Kind: ast.MemberContext, Loc: call.Loc},
		Loc:        call.Loc,
	}, nil
}

func expandHasUserPermit(r *Resolver, call *ast.MemberNode) (ast.Node, error) {
	return permitCheck(r, call, "User", "UserId", UserPermitsMap)
}

func expandHasRolePermit(r *Resolver, call *ast.MemberNode) (ast.Node, error) {
	return permitCheck(r, call, "Role", "RoleId", RolePermitsMap)
}

func expandIsIncluded(_ *Resolver, call *ast.MemberNode) (ast.Node, error) {
	return &ast.MemberNode{Name: "IsIncluded", Kind: ast.MemberIncluded, Loc: call.Loc}, nil
}

// expandOn builds the mapping for On(Type, id[, map])
func expandOn(r *Resolver, call *ast.MemberNode) (ast.Node, error) {
	typeArg, ok := call.Args[0].(*ast.ConstNode)
	if !ok || typeArg.Kind != ast.ConstString {
		return nil, ferrors.NewInvalidOnArgument(call.Args[0].Location(), 1, "a type name", call.Args[0].String())
	}

	switch target := call.Args[1].(type) {
	case *ast.ConstNode:
		if target.Kind != ast.ConstArg {
			return nil, ferrors.NewInvalidOnArgument(target.Loc, 2, "a ? placeholder", target.String())
		}
	case *ast.MemberNode:
		if target.Kind != ast.MemberContext {
			return nil, ferrors.NewInvalidOnArgument(target.Loc, 2, "a ? placeholder", target.String())
		}
	default:
		return nil, ferrors.NewInvalidOnArgument(call.Args[1].Location(), 2, "a ? placeholder", call.Args[1].String())
	}

	mapping := &ast.MappingNode{
		SourceType: r.resource.Name,
		TargetType: typeArg.Literal.(string),
		Target:     call.Args[1],
		Loc:        call.Loc,
	}

	if len(call.Args) == 3 {
		mapArg, ok := call.Args[2].(*ast.ConstNode)
		if !ok || mapArg.Kind != ast.ConstString {
			return nil, ferrors.NewInvalidOnArgument(call.Args[2].Location(), 3, "a quoted map name", call.Args[2].String())
		}
		mapping.MapName = mapArg.Literal.(string)
	}

	return mapping, nil
}
