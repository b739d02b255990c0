// Package schema describes the content types a filter is compiled against.
// It defines field types with explicit nullability, relationships between
// resources, request context attributes and the virtual list fields that
// stand for associations.
package schema

import (
	"fmt"
	"strings"
)

// PrimitiveType represents the built-in primitive field types
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate

	// Unique identifiers
	TypeUUID

	// Enum (stored as its string value)
	TypeEnum
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeUUID:
		return "uuid"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(s) {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool":
		return TypeBool, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "uuid":
		return TypeUUID, nil
	case "enum":
		return TypeEnum, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec is a field type with nullability
type TypeSpec struct {
	BaseType   PrimitiveType
	Nullable   bool     // ! = false, ? = true
	EnumValues []string // For enum types
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	if t.Nullable {
		return s + "?"
	}
	return s + "!"
}

// IsNumeric returns true if the type is a numeric type
func (t *TypeSpec) IsNumeric() bool {
	return t.BaseType == TypeInt ||
		t.BaseType == TypeBigInt ||
		t.BaseType == TypeFloat ||
		t.BaseType == TypeDecimal
}

// IsText returns true if the type is a text type
func (t *TypeSpec) IsText() bool {
	return t.BaseType == TypeString ||
		t.BaseType == TypeText ||
		t.BaseType == TypeEnum
}

// IsOrdered returns true if values of the type can be compared with < and >
func (t *TypeSpec) IsOrdered() bool {
	return t.IsNumeric() || t.IsText() ||
		t.BaseType == TypeTimestamp || t.BaseType == TypeDate
}

// NonNull returns a copy of the type that rejects null
func (t *TypeSpec) NonNull() *TypeSpec {
	c := *t
	c.Nullable = false
	return &c
}

// ConstraintType represents the type of constraint
type ConstraintType int

const (
	ConstraintUnique ConstraintType = iota
	ConstraintIndex
	ConstraintPrimary
)

// String returns the string representation of the constraint type
func (c ConstraintType) String() string {
	switch c {
	case ConstraintUnique:
		return "unique"
	case ConstraintIndex:
		return "index"
	case ConstraintPrimary:
		return "primary"
	default:
		return "unknown"
	}
}

// Constraint represents a field constraint
type Constraint struct {
	Type ConstraintType
}

// Field describes one field of a resource. Virtual fields stand for a list
// or association rather than a stored scalar. A virtual field with a
// BackingField can be answered from that local field directly.
type Field struct {
	Name        string
	Type        *TypeSpec
	Constraints []Constraint

	Virtual      bool
	TargetType   string // resource the virtual field points at
	MapName      string // association name used to resolve the join
	BackingField string // local foreign key field, if any
}

// HasConstraint reports whether the field carries the given constraint
func (f *Field) HasConstraint(ct ConstraintType) bool {
	for _, c := range f.Constraints {
		if c.Type == ct {
			return true
		}
	}
	return false
}

// IsPrimary reports whether the field is the primary key
func (f *Field) IsPrimary() bool {
	return f.HasConstraint(ConstraintPrimary)
}

// Indexed reports whether the execution layer keeps an index for the field
func (f *Field) Indexed() bool {
	return f.Virtual ||
		f.HasConstraint(ConstraintIndex) ||
		f.HasConstraint(ConstraintUnique) ||
		f.HasConstraint(ConstraintPrimary)
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasManyThrough
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasManyThrough:
		return "has_many_through"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	case "has_many_through":
		return RelationshipHasManyThrough, nil
	case "has_one":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Relationship represents a relationship between resources
type Relationship struct {
	Type           RelationType
	SourceResource string
	TargetResource string
	FieldName      string
	Nullable       bool

	// Foreign key configuration. For belongs_to ForeignKey is a field of the
	// source resource; for has_many_through it is the join table column
	// holding the source id.
	ForeignKey string

	// For has_many_through
	JoinTable      string
	AssociationKey string // join table column holding the target id

	// Primary marks the association used by On(Type, id) without a map name
	Primary bool
}

// MapName returns the name the relationship is addressed by in filters
func (r *Relationship) MapName() string {
	return r.FieldName
}

// IsAssociation reports whether the relationship is many-to-many
func (r *Relationship) IsAssociation() bool {
	return r.Type == RelationshipHasManyThrough
}

// ResourceSchema represents the schema for a resource
type ResourceSchema struct {
	Name          string
	Fields        map[string]*Field
	Relationships map[string]*Relationship

	// OwnerField holds the id of the owning user, RoleField the owning role
	OwnerField string
	RoleField  string

	TableName string
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		Fields:        make(map[string]*Field),
		Relationships: make(map[string]*Relationship),
		TableName:     toSnakeCase(name),
	}
}

// AddField adds a field keyed by its name
func (r *ResourceSchema) AddField(f *Field) *ResourceSchema {
	r.Fields[f.Name] = f
	return r
}

// AddRelationship adds a relationship keyed by its field name
func (r *ResourceSchema) AddRelationship(rel *Relationship) *ResourceSchema {
	if rel.SourceResource == "" {
		rel.SourceResource = r.Name
	}
	r.Relationships[rel.FieldName] = rel
	return r
}

// GetPrimaryKey returns the primary key field
func (r *ResourceSchema) GetPrimaryKey() (*Field, error) {
	for _, field := range r.Fields {
		if field.IsPrimary() {
			return field, nil
		}
	}
	return nil, fmt.Errorf("resource %s has no primary key", r.Name)
}

// FieldMap returns the fields keyed by lowercase name
func (r *ResourceSchema) FieldMap() map[string]*Field {
	result := make(map[string]*Field, len(r.Fields))
	for name, f := range r.Fields {
		result[strings.ToLower(name)] = f
	}
	return result
}

// LookupField finds a field case-insensitively
func (r *ResourceSchema) LookupField(name string) (*Field, bool) {
	if f, ok := r.Fields[name]; ok {
		return f, true
	}
	for fieldName, f := range r.Fields {
		if strings.EqualFold(fieldName, name) {
			return f, true
		}
	}
	return nil, false
}

// LookupRelationship finds a relationship by map name, case-insensitively
func (r *ResourceSchema) LookupRelationship(name string) (*Relationship, bool) {
	for _, rel := range r.Relationships {
		if strings.EqualFold(rel.MapName(), name) {
			return rel, true
		}
	}
	return nil, false
}

// RelationshipsTo returns the relationships pointing at target, sorted by map name
func (r *ResourceSchema) RelationshipsTo(target string) []*Relationship {
	var rels []*Relationship
	for _, rel := range r.Relationships {
		if strings.EqualFold(rel.TargetResource, target) {
			rels = append(rels, rel)
		}
	}
	sortRelationships(rels)
	return rels
}

// PrimaryAssociation returns the primary association to target
func (r *ResourceSchema) PrimaryAssociation(target string) (*Relationship, bool) {
	for _, rel := range r.RelationshipsTo(target) {
		if rel.IsAssociation() && rel.Primary {
			return rel, true
		}
	}
	return nil, false
}

// DirectForeignKey returns the local field holding a belongs_to key to target.
// When mapName is set only the relationship with that name is considered.
func (r *ResourceSchema) DirectForeignKey(target, mapName string) (*Field, bool) {
	for _, rel := range r.RelationshipsTo(target) {
		if rel.Type != RelationshipBelongsTo || rel.ForeignKey == "" {
			continue
		}
		if mapName != "" && !strings.EqualFold(rel.MapName(), mapName) {
			continue
		}
		if f, ok := r.LookupField(rel.ForeignKey); ok && !f.Virtual {
			return f, true
		}
	}
	return nil, false
}

// ForeignKeysTo returns the local fields holding a belongs_to key to target
func (r *ResourceSchema) ForeignKeysTo(target string) []*Field {
	var fields []*Field
	for _, rel := range r.RelationshipsTo(target) {
		if rel.Type != RelationshipBelongsTo || rel.ForeignKey == "" {
			continue
		}
		if f, ok := r.LookupField(rel.ForeignKey); ok && !f.Virtual {
			fields = append(fields, f)
		}
	}
	return fields
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
