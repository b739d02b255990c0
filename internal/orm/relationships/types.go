// Package relationships answers many-to-many association questions for the
// filter engine: whether a source is linked to a target, and which sources
// are linked to a set of targets. Answers are collected into pooled id sets
// before a filter starts matching, so matching itself never does I/O.
package relationships

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Service answers questions about one association
type Service interface {
	// Exists reports whether sourceID is linked to targetID
	Exists(ctx context.Context, sourceID, targetID interface{}) (bool, error)
	// CollectSourcesForTargets returns the distinct source ids linked to any of targetIDs
	CollectSourcesForTargets(ctx context.Context, targetIDs []interface{}) ([]interface{}, error)
}

// Store builds services over some backing storage
type Store interface {
	Service(rel *schema.Relationship) (Service, error)
}

// Key identifies an association by source type, target type and map name.
// Its parts are lowercase.
type Key struct {
	Source  string
	Target  string
	MapName string
}

// NewKey builds a normalized key
func NewKey(source, target, mapName string) Key {
	return Key{
		Source:  strings.ToLower(source),
		Target:  strings.ToLower(target),
		MapName: strings.ToLower(mapName),
	}
}

// KeyOf returns the key of a relationship
func KeyOf(rel *schema.Relationship) Key {
	return NewKey(rel.SourceResource, rel.TargetResource, rel.MapName())
}

func (k Key) String() string {
	return k.Source + "." + k.MapName + "->" + k.Target
}

// idToString converts an id to its storage representation
func idToString(id interface{}) (string, error) {
	if id == nil {
		return "", ErrNilID
	}

	switch v := id.(type) {
	case string:
		return v, nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case int32:
		return fmt.Sprintf("%d", v), nil
	case uint:
		return fmt.Sprintf("%d", v), nil
	case uint64:
		return fmt.Sprintf("%d", v), nil
	case []byte:
		return string(v), nil
	default:
		// uuid.UUID and other Stringers
		return fmt.Sprintf("%v", v), nil
	}
}

func requireAssociation(rel *schema.Relationship) error {
	if !rel.IsAssociation() || rel.JoinTable == "" {
		return fmt.Errorf("%s: %w", rel.MapName(), ErrNotAssociation)
	}
	return nil
}
