package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/security"
)

// Config is the engine's top-level configuration, decoded by the embedding
// application with github.com/spf13/viper (env + file + defaults) exactly
// as the teacher's serv package loads its own Config.
type Config struct {
	// DBType selects which internal/dialect and internal/adapter
	// implementation backs the engine: "postgres" (default) or "mssql".
	DBType string `mapstructure:"db_type" json:"db_type" yaml:"db_type" jsonschema:"title=Database Type,enum=postgres,enum=mssql"`

	// SchemaPath is the JSON AuthoringIR file (spec §6) loaded at startup
	// and again whenever the hot-reload watcher sees its size or mtime change.
	SchemaPath string `mapstructure:"schema_path" json:"schema_path" yaml:"schema_path" jsonschema:"title=Schema File Path"`

	// SchemaPollDuration is how often the watcher re-reads SchemaPath for
	// changes; values below 1s disable polling entirely, matching the
	// teacher's DBSchemaPollDuration floor behavior.
	SchemaPollDuration time.Duration `mapstructure:"schema_poll_duration" json:"schema_poll_duration" yaml:"schema_poll_duration" jsonschema:"title=Schema Poll Duration,default=10s"`

	// ValidatorProfile selects one of the three query-validator profiles:
	// "permissive", "standard" (default), "strict".
	ValidatorProfile string `mapstructure:"validator_profile" json:"validator_profile" yaml:"validator_profile" jsonschema:"title=Validator Profile,default=standard"`

	// MockDB runs the engine against adapter.MockAdapter, whose statement
	// methods return no rows, instead of a live database connection,
	// mirroring the teacher's MockDB config flag.
	MockDB bool `mapstructure:"mock_db" json:"mock_db" yaml:"mock_db" jsonschema:"title=Mock DB,default=false"`

	// RLS configures the default tenant/owner row-level security policy;
	// when Disabled, the engine runs security.NoOpPolicy.
	RLS RLSConfig `mapstructure:"rls" json:"rls" yaml:"rls" jsonschema:"title=Row Level Security"`

	TLS security.TLSConfig `mapstructure:"tls" json:"tls" yaml:"tls" jsonschema:"title=Database TLS"`

	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres" yaml:"postgres" jsonschema:"title=PostgreSQL Connection"`
	MSSQL    MSSQLConfig    `mapstructure:"mssql" json:"mssql" yaml:"mssql" jsonschema:"title=SQL Server Connection"`
}

type RLSConfig struct {
	Disabled    bool          `mapstructure:"disabled" json:"disabled" yaml:"disabled" jsonschema:"title=Disable RLS,default=false"`
	TenantField string        `mapstructure:"tenant_field" json:"tenant_field" yaml:"tenant_field" jsonschema:"title=Tenant Column,default=tenant_id"`
	OwnerField  string        `mapstructure:"owner_field" json:"owner_field" yaml:"owner_field" jsonschema:"title=Owner Column,default=author_id"`
	CacheSize   int           `mapstructure:"cache_size" json:"cache_size" yaml:"cache_size" jsonschema:"title=Policy Cache Size,default=5000"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl" jsonschema:"title=Policy Cache TTL,default=30s"`
}

type PostgresConfig struct {
	ConnString   string `mapstructure:"connection_string" json:"connection_string" yaml:"connection_string" jsonschema:"title=Connection String"`
	MaxOpenConns int    `mapstructure:"max_open_conns" json:"max_open_conns" yaml:"max_open_conns" jsonschema:"title=Max Open Connections"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" json:"max_idle_conns" yaml:"max_idle_conns" jsonschema:"title=Max Idle Connections"`
}

type MSSQLConfig struct {
	ConnString   string `mapstructure:"connection_string" json:"connection_string" yaml:"connection_string" jsonschema:"title=Connection String"`
	MaxOpenConns int    `mapstructure:"max_open_conns" json:"max_open_conns" yaml:"max_open_conns" jsonschema:"title=Max Open Connections"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" json:"max_idle_conns" yaml:"max_idle_conns" jsonschema:"title=Max Idle Connections"`
}

// SupportedDBTypes lists the database types this engine can adapt to.
var SupportedDBTypes = []string{"postgres", "mssql"}

func ValidateDBType(dbType string) error {
	if dbType == "" {
		return nil
	}
	for _, t := range SupportedDBTypes {
		if strings.EqualFold(dbType, t) {
			return nil
		}
	}
	return fmt.Errorf("unsupported database type %q: supported types are %s", dbType, strings.Join(SupportedDBTypes, ", "))
}

func (c *Config) Validate() error {
	return ValidateDBType(c.DBType)
}

// LoadConfig decodes Config from configPath/configFile (env overrides
// honored via the FRAISEQL_ prefix), mirroring the teacher's newViper +
// Unmarshal pattern in serv/config.go.
func LoadConfig(configPath, configFile string) (*Config, error) {
	vi := viper.New()
	vi.SetConfigName(strings.TrimSuffix(configFile, "."+strings.TrimPrefix(fileExt(configFile), ".")))
	if configPath == "" {
		vi.AddConfigPath("./config")
	} else {
		vi.AddConfigPath(configPath)
	}
	vi.SetEnvPrefix("FRAISEQL")
	vi.AutomaticEnv()

	vi.SetDefault("validator_profile", "standard")
	vi.SetDefault("schema_poll_duration", 10*time.Second)

	if err := vi.ReadInConfig(); err != nil {
		return nil, errs.Wrap(err, "config: read")
	}

	var conf Config
	if err := vi.Unmarshal(&conf); err != nil {
		return nil, errs.Wrap(err, "config: unmarshal")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func fileExt(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}
