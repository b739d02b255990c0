package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Association drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config represents the contentq configuration
type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	Filter       FilterConfig       `mapstructure:"filter"`
	Associations AssociationsConfig `mapstructure:"associations"`
	Schema       SchemaConfig       `mapstructure:"schema"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// FilterConfig holds compile and paging limits
type FilterConfig struct {
	AllowConstants bool `mapstructure:"allow_constants"`
	MaxPageSize    int  `mapstructure:"max_page_size"`
}

// AssociationsConfig selects where association rows are read from
type AssociationsConfig struct {
	Driver      string      `mapstructure:"driver"`
	DatabaseURL string      `mapstructure:"database_url"`
	Redis       RedisConfig `mapstructure:"redis"`
	// Links seed the memory driver
	Links []LinkConfig `mapstructure:"links"`
}

// RedisConfig represents the Redis association store connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LinkConfig is one association row: Source is linked to Target through Map
type LinkConfig struct {
	Resource string      `mapstructure:"resource"`
	Map      string      `mapstructure:"map"`
	Source   interface{} `mapstructure:"source"`
	Target   interface{} `mapstructure:"target"`
}

// SchemaConfig describes the content types filters compile against
type SchemaConfig struct {
	Resources     []ResourceConfig     `mapstructure:"resources"`
	ContextFields []ContextFieldConfig `mapstructure:"context_fields"`
	VirtualFields []VirtualFieldConfig `mapstructure:"virtual_fields"`
}

// ResourceConfig describes one content type
type ResourceConfig struct {
	Name          string               `mapstructure:"name"`
	Table         string               `mapstructure:"table"`
	OwnerField    string               `mapstructure:"owner_field"`
	RoleField     string               `mapstructure:"role_field"`
	Fields        []FieldConfig        `mapstructure:"fields"`
	Relationships []RelationshipConfig `mapstructure:"relationships"`
}

// FieldConfig describes one field. Type is written as in "int!" or "string?".
type FieldConfig struct {
	Name    string   `mapstructure:"name"`
	Type    string   `mapstructure:"type"`
	Values  []string `mapstructure:"values"`
	Primary bool     `mapstructure:"primary"`
	Indexed bool     `mapstructure:"indexed"`
	Unique  bool     `mapstructure:"unique"`

	Virtual      bool   `mapstructure:"virtual"`
	Target       string `mapstructure:"target"`
	Map          string `mapstructure:"map"`
	BackingField string `mapstructure:"backing_field"`
}

// RelationshipConfig describes one relationship
type RelationshipConfig struct {
	Name           string `mapstructure:"name"`
	Type           string `mapstructure:"type"`
	Target         string `mapstructure:"target"`
	ForeignKey     string `mapstructure:"foreign_key"`
	JoinTable      string `mapstructure:"join_table"`
	AssociationKey string `mapstructure:"association_key"`
	Primary        bool   `mapstructure:"primary"`
	Nullable       bool   `mapstructure:"nullable"`
}

// ContextFieldConfig describes a request context attribute
type ContextFieldConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// VirtualFieldConfig describes a global virtual list field
type VirtualFieldConfig struct {
	Name   string `mapstructure:"name"`
	Target string `mapstructure:"target"`
	Map    string `mapstructure:"map"`
}

// Load loads the configuration from path, or from contentq.yml / contentq.yaml
// in the working directory when path is empty. Every scalar key can be
// overridden with a CONTENTQ_ environment variable, e.g.
// CONTENTQ_FILTER_MAX_PAGE_SIZE.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("filter.allow_constants", false)
	v.SetDefault("filter.max_page_size", 1000)
	v.SetDefault("associations.driver", DriverMemory)
	v.SetDefault("associations.database_url", "")
	v.SetDefault("associations.redis.addr", "localhost:6379")
	v.SetDefault("associations.redis.password", "")
	v.SetDefault("associations.redis.db", 0)
	v.SetDefault("associations.redis.prefix", "contentq:")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("contentq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONTENTQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	if cfg.Filter.MaxPageSize <= 0 {
		return fmt.Errorf("filter.max_page_size must be positive, got: %d", cfg.Filter.MaxPageSize)
	}

	a := cfg.Associations
	switch a.Driver {
	case DriverMemory:
	case DriverPostgres:
		if a.DatabaseURL == "" {
			return fmt.Errorf("associations.database_url is required for the %s driver", a.Driver)
		}
	case DriverRedis:
		if a.Redis.Addr == "" {
			return fmt.Errorf("associations.redis.addr is required for the %s driver", a.Driver)
		}
	default:
		return fmt.Errorf("associations.driver must be one of memory, postgres, redis, got: %s", a.Driver)
	}

	for i, l := range a.Links {
		if l.Resource == "" || l.Map == "" || l.Source == nil || l.Target == nil {
			return fmt.Errorf("associations.links[%d] needs resource, map, source and target", i)
		}
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Schema.Resources {
		if r.Name == "" {
			return fmt.Errorf("schema.resources[%d] has no name", i)
		}
		key := strings.ToLower(r.Name)
		if seen[key] {
			return fmt.Errorf("schema.resources: %s is declared twice", r.Name)
		}
		seen[key] = true
	}
	return nil
}
