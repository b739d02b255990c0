package relationships

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "contentq:",
	}
}

// RedisStore keeps association rows as Redis sets. The set
// <prefix><source>:<map>:<target id> holds the linked source ids.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, config.Prefix), nil
}

// NewRedisStoreWithClient creates a store with an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Link adds sourceID to the set of targetID
func (r *RedisStore) Link(ctx context.Context, rel *schema.Relationship, sourceID, targetID interface{}) error {
	if err := requireAssociation(rel); err != nil {
		return err
	}
	src, err := idToString(sourceID)
	if err != nil {
		return err
	}
	key, err := r.setKey(KeyOf(rel), targetID)
	if err != nil {
		return err
	}
	return r.client.SAdd(ctx, key, src).Err()
}

// Service returns the service for rel
func (r *RedisStore) Service(rel *schema.Relationship) (Service, error) {
	if err := requireAssociation(rel); err != nil {
		return nil, err
	}
	return &redisService{store: r, key: KeyOf(rel)}, nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) setKey(k Key, targetID interface{}) (string, error) {
	tgt, err := idToString(targetID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:%s:%s", r.prefix, k.Source, k.MapName, tgt), nil
}

type redisService struct {
	store *RedisStore
	key   Key
}

func (s *redisService) Exists(ctx context.Context, sourceID, targetID interface{}) (bool, error) {
	src, err := idToString(sourceID)
	if err != nil {
		return false, err
	}
	key, err := s.store.setKey(s.key, targetID)
	if err != nil {
		return false, err
	}
	return s.store.client.SIsMember(ctx, key, src).Result()
}

func (s *redisService) CollectSourcesForTargets(ctx context.Context, targetIDs []interface{}) ([]interface{}, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(targetIDs))
	for i, id := range targetIDs {
		key, err := s.store.setKey(s.key, id)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}

	members, err := s.store.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]interface{}, len(members))
	for i, m := range members {
		result[i] = m
	}
	return result, nil
}
