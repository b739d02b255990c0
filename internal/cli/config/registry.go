package config

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// BuildRegistry turns the schema section into a validated registry
func BuildRegistry(cfg *Config) (*schema.Registry, error) {
	reg := schema.NewRegistry()

	for _, rc := range cfg.Schema.Resources {
		res, err := buildResource(rc)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(res); err != nil {
			return nil, err
		}
	}

	for _, vc := range cfg.Schema.VirtualFields {
		f := &schema.Field{Name: vc.Name, Virtual: true, TargetType: vc.Target, MapName: vc.Map}
		if err := reg.RegisterVirtualField(f); err != nil {
			return nil, err
		}
	}

	for _, cc := range cfg.Schema.ContextFields {
		t, err := ParseType(cc.Type, nil)
		if err != nil {
			return nil, fmt.Errorf("context field %s: %w", cc.Name, err)
		}
		var field *schema.ContextField
		switch strings.ToLower(cc.Name) {
		case "userid":
			field = schema.UserIDField(t)
		case "roleid":
			field = schema.RoleIDField(t)
		default:
			field = schema.ValueField(cc.Name, t)
		}
		if err := reg.RegisterContextField(field); err != nil {
			return nil, err
		}
	}

	if err := reg.ValidateAll(); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildResource(rc ResourceConfig) (*schema.ResourceSchema, error) {
	res := schema.NewResourceSchema(rc.Name)
	if rc.Table != "" {
		res.TableName = rc.Table
	}
	res.OwnerField = rc.OwnerField
	res.RoleField = rc.RoleField

	for _, fc := range rc.Fields {
		f := &schema.Field{
			Name:         fc.Name,
			Virtual:      fc.Virtual,
			TargetType:   fc.Target,
			MapName:      fc.Map,
			BackingField: fc.BackingField,
		}
		if fc.Type != "" {
			t, err := ParseType(fc.Type, fc.Values)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", rc.Name, fc.Name, err)
			}
			f.Type = t
		}
		if fc.Primary {
			f.Constraints = append(f.Constraints, schema.Constraint{Type: schema.ConstraintPrimary})
		}
		if fc.Unique {
			f.Constraints = append(f.Constraints, schema.Constraint{Type: schema.ConstraintUnique})
		}
		if fc.Indexed {
			f.Constraints = append(f.Constraints, schema.Constraint{Type: schema.ConstraintIndex})
		}
		res.AddField(f)
	}

	for _, rel := range rc.Relationships {
		typ, err := schema.ParseRelationType(rel.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rc.Name, rel.Name, err)
		}
		res.AddRelationship(&schema.Relationship{
			Type:           typ,
			TargetResource: rel.Target,
			FieldName:      rel.Name,
			Nullable:       rel.Nullable,
			ForeignKey:     rel.ForeignKey,
			JoinTable:      rel.JoinTable,
			AssociationKey: rel.AssociationKey,
			Primary:        rel.Primary,
		})
	}
	return res, nil
}

// ParseType parses "int!", "string?" or a bare "int", which is non-nullable
func ParseType(s string, values []string) (*schema.TypeSpec, error) {
	s = strings.TrimSpace(s)
	nullable := false
	switch {
	case strings.HasSuffix(s, "?"):
		nullable = true
		s = strings.TrimSuffix(s, "?")
	case strings.HasSuffix(s, "!"):
		s = strings.TrimSuffix(s, "!")
	}

	base, err := schema.ParsePrimitiveType(s)
	if err != nil {
		return nil, err
	}
	return &schema.TypeSpec{BaseType: base, Nullable: nullable, EnumValues: values}, nil
}
