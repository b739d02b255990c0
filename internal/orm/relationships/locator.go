package relationships

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Locator finds the association for a (source, target, map) triple and
// instantiates its service once, on first use.
type Locator struct {
	provider schema.Provider
	store    Store
	logger   *zap.Logger

	mu       sync.RWMutex
	services map[Key]Service
	group    singleflight.Group
}

// NewLocator creates a locator. A nil logger disables logging.
func NewLocator(provider schema.Provider, store Store, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		provider: provider,
		store:    store,
		logger:   logger,
		services: make(map[Key]Service),
	}
}

// Relationship finds the association from source to target. An empty
// mapName selects the primary association.
func (l *Locator) Relationship(source, target, mapName string) (*schema.Relationship, error) {
	res, ok := l.provider.Resource(source)
	if !ok {
		return nil, ferrors.NewUnknownAssociation(source, target, mapName)
	}

	if mapName == "" {
		rel, ok := res.PrimaryAssociation(target)
		if !ok {
			return nil, ferrors.NewMissingPrimaryAssociation(res.Name, target)
		}
		return rel, nil
	}

	rel, ok := res.LookupRelationship(mapName)
	if !ok || !rel.IsAssociation() || !strings.EqualFold(rel.TargetResource, target) {
		return nil, ferrors.NewUnknownAssociation(res.Name, target, mapName)
	}
	return rel, nil
}

// Resolve returns the service for the association from source to target
func (l *Locator) Resolve(source, target, mapName string) (Service, *schema.Relationship, error) {
	rel, err := l.Relationship(source, target, mapName)
	if err != nil {
		return nil, nil, err
	}
	svc, err := l.ServiceFor(rel)
	if err != nil {
		return nil, nil, err
	}
	return svc, rel, nil
}

// ServiceFor returns the service for rel, instantiating it at most once
// even under concurrent first use
func (l *Locator) ServiceFor(rel *schema.Relationship) (Service, error) {
	key := KeyOf(rel)

	l.mu.RLock()
	svc, ok := l.services[key]
	l.mu.RUnlock()
	if ok {
		return svc, nil
	}

	v, err, _ := l.group.Do(key.String(), func() (interface{}, error) {
		l.mu.RLock()
		existing, ok := l.services[key]
		l.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created, err := l.store.Service(rel)
		if err != nil {
			l.logger.Warn("association service unavailable",
				zap.String("association", key.String()),
				zap.Error(err))
			return nil, ferrors.NewSetupFailed(rel.SourceResource, rel.TargetResource, rel.MapName(), err)
		}

		l.mu.Lock()
		l.services[key] = created
		l.mu.Unlock()

		l.logger.Info("association service ready",
			zap.String("association", key.String()),
			zap.String("join_table", rel.JoinTable))
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Service), nil
}

// Len returns the number of instantiated services
func (l *Locator) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.services)
}
