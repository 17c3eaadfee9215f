package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/lugondev/go-amm/internal/keypair"
)

// Config holds all configuration for the application
type Config struct {
	Program  ProgramConfig  `mapstructure:"program"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ProgramConfig holds the identity of the AMM program
type ProgramConfig struct {
	// ID is the base58 program id. Empty means the built-in default.
	ID string `mapstructure:"id"`
	// Keypair is a keypair file whose public key is used when ID is empty.
	Keypair string `mapstructure:"keypair"`
}

// RuntimeConfig holds the sysvars of the in-process runtime
type RuntimeConfig struct {
	// UnixTimestamp seeds the clock. Zero means wall-clock time.
	UnixTimestamp       int64   `mapstructure:"unix_timestamp"`
	LamportsPerByteYear uint64  `mapstructure:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `mapstructure:"exemption_threshold"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text

	// File enables a rotating log file next to stderr output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"` // log or prometheus
	Namespace string `mapstructure:"namespace"`
	// Listen is the address the prometheus handler is served on, if any.
	Listen string `mapstructure:"listen"`
}

// DatabaseConfig selects and configures the journal store
type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"` // memory, pebble, postgres, mongodb or mysql
	Pebble   PebbleConfig   `mapstructure:"pebble"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
}

// PebbleConfig holds embedded store configuration
type PebbleConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	MinPoolSize    uint64 `mapstructure:"min_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // in seconds
}

// MySQLConfig holds MySQL connection settings
type MySQLConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LamportsPerByteYear: 3480,
			ExemptionThreshold:  2.0,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Backend:   "log",
			Namespace: "amm",
		},
		Database: DatabaseConfig{
			Type: "memory",
			Pebble: PebbleConfig{
				Path: "amm-journal",
			},
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "amm",
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
			MongoDB: MongoDBConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "amm",
				MaxPoolSize:    10,
				ConnectTimeout: 10,
			},
			MySQL: MySQLConfig{
				Host:         "localhost",
				Port:         3306,
				Database:     "amm",
				SSLMode:      "false",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.GetViper(), configPath)
}

// LoadWith loads configuration through v. Environment variables use the AMM_
// prefix with dots replaced by underscores, e.g. AMM_LOG_LEVEL.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".amm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, "", cfg)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by their type alone.
func (c *Config) Validate() error {
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	switch c.Metrics.Backend {
	case "log", "prometheus":
	default:
		return fmt.Errorf("invalid metrics backend %q", c.Metrics.Backend)
	}
	if c.Runtime.ExemptionThreshold < 0 {
		return fmt.Errorf("invalid rent exemption threshold %v", c.Runtime.ExemptionThreshold)
	}
	return nil
}

// ProgramID resolves the configured program id, from program.id or else
// program.keypair. The zero key is returned when neither is set.
func (c *Config) ProgramID() (solana.PublicKey, error) {
	if c.Program.ID == "" {
		if c.Program.Keypair == "" {
			return solana.PublicKey{}, nil
		}
		kp, err := keypair.Load(c.Program.Keypair)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid program keypair: %w", err)
		}
		return kp.PublicKey(), nil
	}
	id, err := solana.PublicKeyFromBase58(c.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", c.Program.ID, err)
	}
	return id, nil
}

// bindEnv registers every leaf of cfg as a viper default so AutomaticEnv can
// resolve it during Unmarshal.
func bindEnv(v *viper.Viper, prefix string, cfg any) {
	rv := reflect.Indirect(reflect.ValueOf(cfg))
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			bindEnv(v, key, rv.Field(i).Interface())
			continue
		}
		v.SetDefault(key, rv.Field(i).Interface())
	}
}
