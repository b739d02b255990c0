package codegen

import (
	"reflect"
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// ValueSet is the bound value of an array slot. Duplicates collapse.
type ValueSet struct {
	values []interface{}
	keys   map[interface{}]struct{}
}

// NewValueSet creates a set from normalized values
func NewValueSet(values ...interface{}) *ValueSet {
	s := &ValueSet{keys: make(map[interface{}]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts a normalized value
func (s *ValueSet) Add(v interface{}) {
	k := Key(v)
	if _, ok := s.keys[k]; ok {
		return
	}
	s.keys[k] = struct{}{}
	s.values = append(s.values, v)
}

// Has reports whether the set holds a value equal to v
func (s *ValueSet) Has(v interface{}) bool {
	_, ok := s.keys[Key(v)]
	return ok
}

// Len returns the number of distinct values
func (s *ValueSet) Len() int {
	return len(s.values)
}

// Values returns the distinct values in insertion order
func (s *ValueSet) Values() []interface{} {
	return s.values
}

// BindArg converts a caller value for slot. A nil value is only accepted by
// nullable scalar slots.
func BindArg(slot *ast.ArgSlot, v interface{}) (interface{}, error) {
	if slot.Type == nil {
		return nil, ferrors.NewUnexpectedNode("untyped argument slot")
	}

	if v == nil {
		if slot.IsArray || !slot.Type.Nullable {
			return nil, ferrors.NewNullArg(slot.Index, slotTypeName(slot))
		}
		return nil, nil
	}

	if !slot.IsArray {
		val, err := Coerce(slot.Type, v, true)
		if err != nil {
			return nil, ferrors.NewArgTypeMismatch(slot.Index, slotTypeName(slot), TypeName(v)).WithCause(err)
		}
		return val, nil
	}

	if given, ok := v.(*ValueSet); ok {
		set := NewValueSet()
		for _, elem := range given.Values() {
			val, err := bindElem(slot, elem)
			if err != nil {
				return nil, err
			}
			set.Add(val)
		}
		return set, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ferrors.NewArgTypeMismatch(slot.Index, slotTypeName(slot), TypeName(v))
	}

	set := NewValueSet()
	for i := 0; i < rv.Len(); i++ {
		val, err := bindElem(slot, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		set.Add(val)
	}
	return set, nil
}

func bindElem(slot *ast.ArgSlot, elem interface{}) (interface{}, error) {
	if elem == nil {
		return nil, ferrors.NewNullArg(slot.Index, slotTypeName(slot))
	}
	val, err := Coerce(slot.Type, elem, true)
	if err != nil {
		return nil, ferrors.NewArgTypeMismatch(slot.Index, slotTypeName(slot), TypeName(elem)).WithCause(err)
	}
	return val, nil
}

// ParseArg converts text for slot. Array slots take comma separated
// elements; "null" binds null into nullable scalar slots.
func ParseArg(slot *ast.ArgSlot, text string) (interface{}, error) {
	if slot.Type == nil {
		return nil, ferrors.NewUnexpectedNode("untyped argument slot")
	}

	if !slot.IsArray {
		if strings.EqualFold(strings.TrimSpace(text), "null") && slot.Type.Nullable {
			return nil, nil
		}
		val, err := Parse(slot.Type, text)
		if err != nil {
			return nil, ferrors.NewArgParse(slot.Index, slotTypeName(slot), text, err)
		}
		return BindArg(slot, val)
	}

	set := NewValueSet()
	if strings.TrimSpace(text) == "" {
		return set, nil
	}
	for _, part := range strings.Split(text, ",") {
		val, err := Parse(slot.Type, part)
		if err != nil {
			return nil, ferrors.NewArgParse(slot.Index, slotTypeName(slot), part, err)
		}
		set.Add(val)
	}
	return set, nil
}

func slotTypeName(slot *ast.ArgSlot) string {
	name := slot.Type.String()
	if slot.IsArray {
		return "[" + name + "]"
	}
	return name
}

// typeSpecOf is shorthand used by the generator for untyped members
func typeSpecOf(f *schema.Field) *schema.TypeSpec {
	if f == nil || f.Type == nil {
		return &schema.TypeSpec{BaseType: schema.TypeInt}
	}
	return f.Type
}
