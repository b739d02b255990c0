package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator validates resource schemas
type SchemaValidator struct {
	schemas map[string]*ResourceSchema
	errors  []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		schemas: make(map[string]*ResourceSchema),
		errors:  make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single resource schema without cross-resource checks.
// Registration uses it so resources may reference each other in any order.
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)

	v.validatePrimaryKey(schema)
	v.validateFields(schema)
	v.validateOwnership(schema)
	v.validateForeignKeys(schema)
	v.validatePrimaryAssociations(schema)

	return v.result()
}

// Validate performs full validation of a schema against all registered schemas
func (v *SchemaValidator) Validate(schema *ResourceSchema, registry map[string]*ResourceSchema) error {
	v.schemas = registry
	if err := v.ValidateStructural(schema); err != nil {
		return err
	}

	v.validateRelationships(schema)
	return v.result()
}

func (v *SchemaValidator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	msgs := make([]string, len(v.errors))
	for i, err := range v.errors {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n%s", strings.Join(msgs, "\n"))
}

// validatePrimaryKey ensures the resource has exactly one primary key
func (v *SchemaValidator) validatePrimaryKey(schema *ResourceSchema) {
	primaryKeys := make([]*Field, 0)

	for _, field := range schema.Fields {
		if field.IsPrimary() {
			primaryKeys = append(primaryKeys, field)
		}
	}

	if len(primaryKeys) == 0 {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "resource must have a primary key",
			Hint:     "Mark one field with the primary constraint, e.g. Id: int!",
		})
	} else if len(primaryKeys) > 1 {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  fmt.Sprintf("resource has %d primary keys, expected 1", len(primaryKeys)),
			Hint:     "Only one field should be primary",
		})
	} else {
		pk := primaryKeys[0]
		if pk.Type != nil && pk.Type.Nullable {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    pk.Name,
				Message:  "primary key must be non-nullable (!)",
				Hint:     fmt.Sprintf("Change %s: %s to %s: %s", pk.Name, pk.Type.String(), pk.Name, pk.Type.NonNull().String()),
			})
		}
		if pk.Virtual {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    pk.Name,
				Message:  "primary key cannot be virtual",
			})
		}
	}
}

// validateFields checks field types and virtual field targets
func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	for name, field := range schema.Fields {
		if field.Type == nil && !field.Virtual {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "field has no type",
			})
			continue
		}
		if field.Virtual && field.TargetType == "" {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "virtual field must name its target resource",
			})
		}
		if field.BackingField != "" {
			if _, ok := schema.LookupField(field.BackingField); !ok {
				v.errors = append(v.errors, &ValidationError{
					Resource: schema.Name,
					Field:    name,
					Message:  fmt.Sprintf("backing field %s does not exist", field.BackingField),
				})
			}
		}
		if field.Type != nil && field.Type.BaseType == TypeEnum && len(field.Type.EnumValues) == 0 {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "enum field must declare its values",
			})
		}
	}
}

// validateOwnership checks that owner and role fields exist
func (v *SchemaValidator) validateOwnership(schema *ResourceSchema) {
	for _, name := range []string{schema.OwnerField, schema.RoleField} {
		if name == "" {
			continue
		}
		f, ok := schema.LookupField(name)
		if !ok {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "ownership field does not exist",
			})
			continue
		}
		if f.Virtual {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "ownership field cannot be virtual",
			})
		}
	}
}

// validateForeignKeys checks belongs_to foreign keys and join table columns
func (v *SchemaValidator) validateForeignKeys(schema *ResourceSchema) {
	for name, rel := range schema.Relationships {
		switch rel.Type {
		case RelationshipBelongsTo:
			if rel.ForeignKey == "" {
				continue
			}
			if _, ok := schema.LookupField(rel.ForeignKey); !ok {
				v.errors = append(v.errors, &ValidationError{
					Resource: schema.Name,
					Field:    name,
					Message:  fmt.Sprintf("foreign key field %s does not exist", rel.ForeignKey),
					Hint:     fmt.Sprintf("Add %s to %s or remove foreign_key", rel.ForeignKey, schema.Name),
				})
			}
		case RelationshipHasManyThrough:
			if rel.JoinTable == "" || rel.ForeignKey == "" || rel.AssociationKey == "" {
				v.errors = append(v.errors, &ValidationError{
					Resource: schema.Name,
					Field:    name,
					Message:  "has_many_through relationship requires join_table, foreign_key and association_key",
				})
			}
		}
	}
}

// validatePrimaryAssociations allows at most one primary association per target
func (v *SchemaValidator) validatePrimaryAssociations(schema *ResourceSchema) {
	seen := make(map[string]string)
	for name, rel := range schema.Relationships {
		if !rel.Primary {
			continue
		}
		if !rel.IsAssociation() {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "only has_many_through relationships can be primary",
			})
			continue
		}
		target := strings.ToLower(rel.TargetResource)
		if other, ok := seen[target]; ok {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("%s already has a primary association to %s (%s)", schema.Name, rel.TargetResource, other),
				Hint:     "Name the association explicitly with On(Type, ?, \"map\")",
			})
			continue
		}
		seen[target] = name
	}
}

// validateRelationships checks targets and foreign key types across resources
func (v *SchemaValidator) validateRelationships(schema *ResourceSchema) {
	for name, rel := range schema.Relationships {
		target, exists := lookupSchema(v.schemas, rel.TargetResource)
		if !exists {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("references unknown resource %s", rel.TargetResource),
				Hint:     "Ensure the target resource is defined",
			})
			continue
		}

		targetPK, err := target.GetPrimaryKey()
		if err != nil {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("target resource %s has no primary key", rel.TargetResource),
			})
			continue
		}

		if rel.Type != RelationshipBelongsTo || rel.ForeignKey == "" {
			continue
		}
		fk, ok := schema.LookupField(rel.ForeignKey)
		if !ok || fk.Type == nil {
			continue
		}
		if fk.Type.BaseType != targetPK.Type.BaseType {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message: fmt.Sprintf("foreign key %s has type %s but %s.%s is %s",
					fk.Name, fk.Type.BaseType, target.Name, targetPK.Name, targetPK.Type.BaseType),
			})
		}
	}
}

// Errors returns all validation errors
func (v *SchemaValidator) Errors() []*ValidationError {
	return v.errors
}

func lookupSchema(schemas map[string]*ResourceSchema, name string) (*ResourceSchema, bool) {
	if s, ok := schemas[strings.ToLower(name)]; ok {
		return s, true
	}
	for _, s := range schemas {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}
