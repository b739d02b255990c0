package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Provider is the read side of the registry used by the filter compiler.
// Map keys are lowercase names.
type Provider interface {
	Resource(name string) (*ResourceSchema, bool)
	GetFields(resourceName string) (map[string]*Field, error)
	GetContextFields() map[string]*ContextField
	GetGlobalVirtualFields() map[string]*Field
}

// Registry manages all resource schemas, context attributes and global
// virtual fields. Lookups are case-insensitive.
type Registry struct {
	schemas   map[string]*ResourceSchema
	context   map[string]*ContextField
	virtual   map[string]*Field
	validator *SchemaValidator
	mu        sync.RWMutex
}

var _ Provider = (*Registry)(nil)

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*ResourceSchema),
		context:   make(map[string]*ContextField),
		virtual:   make(map[string]*Field),
		validator: NewSchemaValidator(),
	}
}

// Register registers a new resource schema. Its has_many_through
// relationships become global virtual fields named after the relationship.
func (r *Registry) Register(schema *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(schema.Name)
	if _, exists := r.schemas[key]; exists {
		return fmt.Errorf("resource %s is already registered", schema.Name)
	}

	// Relationship targets are checked in ValidateAll to allow forward references
	if err := r.validator.ValidateStructural(schema); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", schema.Name, err)
	}

	for _, rel := range schema.Relationships {
		if rel.SourceResource == "" {
			rel.SourceResource = schema.Name
		}
	}
	r.schemas[key] = schema

	for _, rel := range schema.Relationships {
		if !rel.IsAssociation() {
			continue
		}
		vkey := strings.ToLower(rel.FieldName)
		if _, exists := r.virtual[vkey]; exists {
			continue
		}
		r.virtual[vkey] = &Field{
			Name:       rel.FieldName,
			Virtual:    true,
			TargetType: rel.TargetResource,
			MapName:    rel.FieldName,
		}
	}
	r.fillVirtualTypes()

	return nil
}

// RegisterVirtualField adds a global virtual list field
func (r *Registry) RegisterVirtualField(field *Field) error {
	if !field.Virtual {
		return fmt.Errorf("field %s is not virtual", field.Name)
	}
	if field.TargetType == "" {
		return fmt.Errorf("virtual field %s must name its target resource", field.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(field.Name)
	if _, exists := r.virtual[key]; exists {
		return fmt.Errorf("virtual field %s is already registered", field.Name)
	}
	if field.MapName == "" {
		field.MapName = field.Name
	}
	r.virtual[key] = field
	r.fillVirtualTypes()
	return nil
}

// fillVirtualTypes gives untyped virtual fields the primary key type of their target
func (r *Registry) fillVirtualTypes() {
	for _, f := range r.virtual {
		if f.Type != nil {
			continue
		}
		target, ok := r.schemas[strings.ToLower(f.TargetType)]
		if !ok {
			continue
		}
		if pk, err := target.GetPrimaryKey(); err == nil && pk.Type != nil {
			f.Type = pk.Type.NonNull()
		}
	}
}

// RegisterContextField adds a request context attribute
func (r *Registry) RegisterContextField(field *ContextField) error {
	if field.Type == nil {
		return fmt.Errorf("context field %s has no type", field.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(field.Name)
	if _, exists := r.context[key]; exists {
		return fmt.Errorf("context field %s is already registered", field.Name)
	}
	r.context[key] = field
	return nil
}

// Get retrieves a resource schema by name
func (r *Registry) Get(name string) (*ResourceSchema, bool) {
	return r.Resource(name)
}

// Resource retrieves a resource schema by name, case-insensitively
func (r *Registry) Resource(name string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[strings.ToLower(name)]
	return schema, exists
}

// All returns a copy of all registered schemas keyed by lowercase name
func (r *Registry) All() map[string]*ResourceSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ResourceSchema, len(r.schemas))
	for k, v := range r.schemas {
		result[k] = v
	}
	return result
}

// List returns the sorted names of all resources
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for _, schema := range r.schemas {
		names = append(names, schema.Name)
	}
	sort.Strings(names)
	return names
}

// ValidateAll performs cross-resource validation on all registered schemas
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := NewSchemaValidator()
		if err := v.Validate(r.schemas[name], r.schemas); err != nil {
			return fmt.Errorf("relationship validation failed: %w", err)
		}
	}

	for _, f := range r.virtual {
		if _, ok := r.schemas[strings.ToLower(f.TargetType)]; !ok {
			return fmt.Errorf("virtual field %s references unknown resource %s", f.Name, f.TargetType)
		}
	}
	return nil
}

// Clear removes all registered schemas, context and virtual fields
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas = make(map[string]*ResourceSchema)
	r.context = make(map[string]*ContextField)
	r.virtual = make(map[string]*Field)
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a resource schema exists
func (r *Registry) Exists(name string) bool {
	_, ok := r.Resource(name)
	return ok
}

// GetRelationships returns all relationships for a resource
func (r *Registry) GetRelationships(resourceName string) (map[string]*Relationship, error) {
	schema, exists := r.Resource(resourceName)
	if !exists {
		return nil, fmt.Errorf("resource %s not found", resourceName)
	}
	return schema.Relationships, nil
}

// GetFields returns the fields of a resource keyed by lowercase name
func (r *Registry) GetFields(resourceName string) (map[string]*Field, error) {
	schema, exists := r.Resource(resourceName)
	if !exists {
		return nil, fmt.Errorf("resource %s not found", resourceName)
	}
	return schema.FieldMap(), nil
}

// GetContextFields returns the context attributes keyed by lowercase name
func (r *Registry) GetContextFields() map[string]*ContextField {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ContextField, len(r.context))
	for k, v := range r.context {
		result[k] = v
	}
	return result
}

// GetGlobalVirtualFields returns the virtual list fields keyed by lowercase name
func (r *Registry) GetGlobalVirtualFields() map[string]*Field {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Field, len(r.virtual))
	for k, v := range r.virtual {
		result[k] = v
	}
	return result
}

// RegistryStats holds counts about the registry
type RegistryStats struct {
	TotalResources     int
	TotalFields        int
	TotalRelationships int
	TotalAssociations  int
	TotalContextFields int
	TotalVirtualFields int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() *RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &RegistryStats{
		TotalResources:     len(r.schemas),
		TotalContextFields: len(r.context),
		TotalVirtualFields: len(r.virtual),
	}
	for _, schema := range r.schemas {
		stats.TotalFields += len(schema.Fields)
		stats.TotalRelationships += len(schema.Relationships)
		for _, rel := range schema.Relationships {
			if rel.IsAssociation() {
				stats.TotalAssociations++
			}
		}
	}
	return stats
}
