// Package index decides which fields could serve as an index for a whole
// filter expression, so an execution layer can avoid a full scan.
package index

import (
	"sort"
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Entry is one index candidate
type Entry struct {
	Name  string
	List  bool          // association or virtual list field
	Field *schema.Field // nil for On(...) mappings
}

// FieldSet is an immutable set of index candidates, ordered by name
type FieldSet struct {
	entries []Entry
}

func single(e Entry) *FieldSet {
	return &FieldSet{entries: []Entry{e}}
}

// Entries returns the candidates ordered by name
func (s *FieldSet) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.entries
}

// Names returns the candidate names ordered by name
func (s *FieldSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of candidates
func (s *FieldSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Lists returns how many candidates are list or association fields
func (s *FieldSet) Lists() int {
	n := 0
	for _, e := range s.Entries() {
		if e.List {
			n++
		}
	}
	return n
}

// Has reports whether name is a candidate, case-insensitively
func (s *FieldSet) Has(name string) bool {
	for _, e := range s.Entries() {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// String renders the set as "{A, B}"
func (s *FieldSet) String() string {
	if s == nil {
		return "none"
	}
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

func union(a, b *FieldSet) *FieldSet {
	merged := make([]Entry, 0, a.Len()+b.Len())
	merged = append(merged, a.entries...)
	for _, e := range b.entries {
		if !a.Has(e.Name) {
			merged = append(merged, e)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})
	return &FieldSet{entries: merged}
}

// cheaper picks the better of two indexable sides of an and: the smaller
// set, then the one with fewer list fields, then the left one
func cheaper(a, b *FieldSet) *FieldSet {
	switch {
	case a.Len() != b.Len():
		if b.Len() < a.Len() {
			return b
		}
		return a
	case b.Lists() < a.Lists():
		return b
	}
	return a
}

// Analyze returns the fields that could serve as an index for n, or nil
// when the expression needs a full scan
func Analyze(n ast.Node) *FieldSet {
	switch node := n.(type) {
	case *ast.OpNode:
		switch node.Op {
		case ast.OpNot:
			return nil
		case ast.OpAnd:
			left, right := Analyze(node.Left), Analyze(node.Right)
			switch {
			case left == nil:
				return right
			case right == nil:
				return left
			}
			return cheaper(left, right)
		case ast.OpOr:
			left, right := Analyze(node.Left), Analyze(node.Right)
			if left == nil || right == nil {
				return nil
			}
			return union(left, right)
		default:
			return comparison(node)
		}

	case *ast.MappingNode:
		return single(Entry{Name: node.MapName, List: true})

	case *ast.MemberNode:
		if node.Kind == ast.MemberField && node.Field != nil && !node.Field.Virtual && node.Field.Indexed() {
			return single(Entry{Name: node.Field.Name, Field: node.Field})
		}
	}
	return nil
}

// AnalyzeQuery analyzes a resolved query
func AnalyzeQuery(q *ast.Query) *FieldSet {
	return Analyze(q.Root)
}

func comparison(op *ast.OpNode) *FieldSet {
	left, ok := op.Left.(*ast.MemberNode)
	if !ok || left.Kind != ast.MemberField || left.Field == nil {
		return nil
	}

	// an index lists matching rows, it cannot list the rows that do not match
	switch op.Op {
	case ast.OpNotEqual, ast.OpContainsNone:
		return nil
	}
	if c, ok := op.Right.(*ast.ConstNode); ok && c.Kind == ast.ConstNull {
		return nil
	}

	switch {
	case left.Join:
		return single(Entry{Name: left.Field.Name, List: true, Field: left.Field})
	case left.Origin != nil, left.Field.Indexed():
		return single(Entry{Name: left.Field.Name, Field: left.Field})
	}
	return nil
}
