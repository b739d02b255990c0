package commands

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/contentq/internal/cli/config"
	"github.com/conduit-lang/contentq/internal/cli/ui"
	"github.com/conduit-lang/contentq/internal/filter/cache"
	"github.com/conduit-lang/contentq/internal/filter/runtime"
	"github.com/conduit-lang/contentq/internal/orm/relationships"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// env is what every filter command needs: config, schema, logger and output
type env struct {
	cfg      *config.Config
	registry *schema.Registry
	logger   *zap.Logger
	out      *ui.Printer
	closers  []func() error
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	reg, err := config.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &env{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
		out:      ui.NewPrinter(cmd.OutOrStdout(), noColor),
	}, nil
}

// close releases stores opened by the command
func (e *env) close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			e.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

// resource checks typeName and prints suggestions when it is unknown
func (e *env) resource(typeName string) (*schema.ResourceSchema, error) {
	res, ok := e.registry.Resource(typeName)
	if !ok {
		e.out.TypeNotFound(typeName, e.registry.List())
		return nil, errReported
	}
	return res, nil
}

// filterCache builds the metadata cache. The association store is opened
// only when withStore is set.
func (e *env) filterCache(ctx context.Context, withStore bool) (*cache.MetaCache, error) {
	opts := runtime.Options{
		Logger:      e.logger,
		MaxPageSize: e.cfg.Filter.MaxPageSize,
		Pools:       relationships.NewPools(),
	}
	if withStore {
		store, err := e.openStore(ctx)
		if err != nil {
			return nil, err
		}
		opts.Locator = relationships.NewLocator(e.registry, store, e.logger)
	}
	return cache.New(e.registry, opts), nil
}

// openStore opens the configured association store and applies the
// configured links to it
func (e *env) openStore(ctx context.Context) (relationships.Store, error) {
	a := e.cfg.Associations
	switch a.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("pgx", a.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open association database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to association database: %w", err)
		}
		e.closers = append(e.closers, db.Close)
		if len(a.Links) > 0 {
			e.logger.Warn("associations.links are ignored by the postgres driver")
		}
		return relationships.NewSQLStore(db), nil

	case config.DriverRedis:
		store, err := relationships.NewRedisStore(ctx, relationships.RedisConfig{
			Addr:     a.Redis.Addr,
			Password: a.Redis.Password,
			DB:       a.Redis.DB,
			Prefix:   a.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		e.closers = append(e.closers, store.Close)
		err = e.applyLinks(func(rel *schema.Relationship, src, tgt interface{}) error {
			return store.Link(ctx, rel, src, tgt)
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		store := relationships.NewMemoryStore()
		if err := e.applyLinks(store.Link); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (e *env) applyLinks(link func(rel *schema.Relationship, src, tgt interface{}) error) error {
	for i, l := range e.cfg.Associations.Links {
		res, ok := e.registry.Resource(l.Resource)
		if !ok {
			return fmt.Errorf("associations.links[%d]: unknown resource %s", i, l.Resource)
		}
		rel, ok := res.LookupRelationship(l.Map)
		if !ok {
			return fmt.Errorf("associations.links[%d]: %s has no association %s", i, res.Name, l.Map)
		}
		if err := link(rel, l.Source, l.Target); err != nil {
			return fmt.Errorf("associations.links[%d]: %w", i, err)
		}
	}
	return nil
}
