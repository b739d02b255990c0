package relationships

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/orm/schema"
	"github.com/conduit-lang/contentq/internal/orm/schema/schematest"
)

// countingStore counts service instantiations
type countingStore struct {
	inner Store
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *countingStore) Service(rel *schema.Relationship) (Service, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Service(rel)
}

func TestLocator_Relationship(t *testing.T) {
	loc := NewLocator(schematest.NewRegistry(), NewMemoryStore(), nil)

	tests := []struct {
		name    string
		source  string
		target  string
		mapName string
		want    string
		code    ferrors.ErrorCode
	}{
		{"primary association", "Article", "Tag", "", "Tags", ""},
		{"named association", "article", "user", "userpermits", "UserPermits", ""},
		{"unknown map", "Article", "Tag", "Labels", "", ferrors.ErrUnknownAssociation},
		{"map to another target", "Article", "Tag", "Videos", "", ferrors.ErrUnknownAssociation},
		{"belongs_to is not an association", "Article", "Category", "Category", "", ferrors.ErrUnknownAssociation},
		{"no primary association", "Clip", "Video", "", "", ferrors.ErrMissingPrimaryAssociation},
		{"unknown source", "Missing", "Tag", "", "", ferrors.ErrUnknownAssociation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := loc.Relationship(tt.source, tt.target, tt.mapName)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.code), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel.MapName())
		})
	}
}

func TestLocator_InstantiatesOnce(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore(), delay: 20 * time.Millisecond}
	loc := NewLocator(schematest.NewRegistry(), store, nil)

	var wg sync.WaitGroup
	services := make([]Service, 16)
	for i := range services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc, _, err := loc.Resolve("Article", "Tag", "")
			assert.NoError(t, err)
			services[i] = svc
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, 1, loc.Len())
	for _, svc := range services {
		assert.Same(t, services[0], svc)
	}

	_, _, err := loc.Resolve("Article", "Tag", "Tags")
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.calls.Load(), "primary and named lookups share a service")
}

func TestLocator_StoreFailure(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore(), err: errors.New("connection refused")}
	loc := NewLocator(schematest.NewRegistry(), store, nil)

	_, _, err := loc.Resolve("Article", "Video", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.ErrSetupFailed))
	assert.ErrorIs(t, err, store.err)
	assert.Equal(t, 0, loc.Len())
}
