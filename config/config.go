package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const (
	Ram    = "ram"
	Boltdb = "boltdb"
	Sqlite = "sqlite"
	Mongo  = "mongodb"

	AppName   = "guildvault"
	EnvPrefix = "GUILDVAULT_"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envPrefix:"SERVER_"`
	Store     StoreConfig     `mapstructure:"store" envPrefix:"STORE_"`
	Vault     VaultConfig     `mapstructure:"vault" envPrefix:"VAULT_"`
	AutoSave  AutoSaveConfig  `mapstructure:"autosave" envPrefix:"AUTOSAVE_"`
	Log       LogConfig       `mapstructure:"log" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" envPrefix:"TELEMETRY_"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" env:"ADDR"`
	Prefix          string        `mapstructure:"prefix" env:"PREFIX"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// ViewerRate is websocket actions per second allowed per connection.
	ViewerRate  float64 `mapstructure:"viewer_rate" env:"VIEWER_RATE"`
	ViewerBurst int     `mapstructure:"viewer_burst" env:"VIEWER_BURST"`
}

type StoreConfig struct {
	Type          string `mapstructure:"type" env:"TYPE"`
	BoltPath      string `mapstructure:"bolt_path" env:"BOLT_PATH"`
	SQLitePath    string `mapstructure:"sqlite_path" env:"SQLITE_PATH"`
	MongoURI      string `mapstructure:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `mapstructure:"mongo_database" env:"MONGO_DATABASE"`
}

type VaultConfig struct {
	Capacity          int           `mapstructure:"capacity" env:"CAPACITY"`
	CurrencyMaterial  string        `mapstructure:"currency_material" env:"CURRENCY_MATERIAL"`
	ValuableMaterials []string      `mapstructure:"valuable_materials" env:"VALUABLE_MATERIALS" envSeparator:","`
	SaveAttempts      int           `mapstructure:"save_attempts" env:"SAVE_ATTEMPTS"`
	SaveBackoff       time.Duration `mapstructure:"save_backoff" env:"SAVE_BACKOFF"`
	SaveMaxBackoff    time.Duration `mapstructure:"save_max_backoff" env:"SAVE_MAX_BACKOFF"`
	FlushQuiet        time.Duration `mapstructure:"flush_quiet" env:"FLUSH_QUIET"`
	FlushMaxAge       time.Duration `mapstructure:"flush_max_age" env:"FLUSH_MAX_AGE"`
	FlushMaxSlots     int           `mapstructure:"flush_max_slots" env:"FLUSH_MAX_SLOTS"`
}

type AutoSaveConfig struct {
	DataDir             string        `mapstructure:"data_dir" env:"DATA_DIR"`
	FlushInterval       time.Duration `mapstructure:"flush_interval" env:"FLUSH_INTERVAL"`
	IdleCheckInterval   time.Duration `mapstructure:"idle_check_interval" env:"IDLE_CHECK_INTERVAL"`
	IdleThreshold       time.Duration `mapstructure:"idle_threshold" env:"IDLE_THRESHOLD"`
	EvictAfter          time.Duration `mapstructure:"evict_after" env:"EVICT_AFTER"`
	ArchiveEnabled      bool          `mapstructure:"archive_enabled" env:"ARCHIVE_ENABLED"`
	ArchiveInterval     time.Duration `mapstructure:"archive_interval" env:"ARCHIVE_INTERVAL"`
	ArchiveInitialDelay time.Duration `mapstructure:"archive_initial_delay" env:"ARCHIVE_INITIAL_DELAY"`
	Retention           time.Duration `mapstructure:"retention" env:"RETENTION"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL"`
	Format string `mapstructure:"format" env:"FORMAT"`
}

type TelemetryConfig struct {
	// OTLPEndpoint enables trace export when set, e.g. localhost:4318.
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `mapstructure:"service_name" env:"SERVICE_NAME"`
	SampleRatio  float64 `mapstructure:"sample_ratio" env:"SAMPLE_RATIO"`
}

// DefaultDataDir is the per-user data directory, falling back to the working
// directory when the platform has none.
func DefaultDataDir() string {
	dirs, err := gap.NewScope(gap.User, AppName).DataDirs()
	if err != nil || len(dirs) == 0 {
		return "."
	}
	return dirs[0]
}

func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Prefix:          "/vault",
			ShutdownTimeout: 10 * time.Second,
			ViewerRate:      20,
			ViewerBurst:     40,
		},
		Store: StoreConfig{
			Type:          Boltdb,
			BoltPath:      filepath.Join(dataDir, "vaults.db"),
			SQLitePath:    filepath.Join(dataDir, "vaults.sqlite"),
			MongoDatabase: "guildvault",
		},
		Vault: VaultConfig{
			Capacity:         54,
			CurrencyMaterial: "RAW_GOLD",
			ValuableMaterials: []string{
				"*NETHERITE*", "DIAMOND", "DIAMOND_BLOCK", "NETHER_STAR", "ELYTRA", "*SHULKER_BOX",
			},
			SaveAttempts:   3,
			SaveBackoff:    100 * time.Millisecond,
			SaveMaxBackoff: 2 * time.Second,
			FlushQuiet:     200 * time.Millisecond,
			FlushMaxAge:    time.Second,
			FlushMaxSlots:  5,
		},
		AutoSave: AutoSaveConfig{
			DataDir:             dataDir,
			FlushInterval:       time.Second,
			IdleCheckInterval:   5 * time.Minute,
			IdleThreshold:       5 * time.Minute,
			EvictAfter:          10 * time.Minute,
			ArchiveEnabled:      true,
			ArchiveInterval:     24 * time.Hour,
			ArchiveInitialDelay: time.Hour,
			Retention:           30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
			SampleRatio: 1,
		},
	}
}

// Load layers an optional YAML file and then GUILDVAULT_* environment
// variables over Default. An empty path searches the user config dirs for
// guildvault.yml; a missing file is not an error there.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		if dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs(); err == nil {
			for _, d := range dirs {
				v.AddConfigPath(d)
			}
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case Ram:
	case Boltdb:
		if c.Store.BoltPath == "" {
			errs = append(errs, errors.New("store type boltdb needs store.bolt_path"))
		}
	case Sqlite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store type sqlite needs store.sqlite_path"))
		}
	case Mongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store type mongodb needs store.mongo_uri"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store type %q: needs to be one of %s", c.Store.Type,
			strings.Join([]string{Ram, Boltdb, Sqlite, Mongo}, ", ")))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Vault.Capacity < 2 {
		errs = append(errs, fmt.Errorf("vault.capacity must be at least 2, got %d", c.Vault.Capacity))
	}
	if c.Vault.SaveAttempts < 1 {
		errs = append(errs, fmt.Errorf("vault.save_attempts must be at least 1, got %d", c.Vault.SaveAttempts))
	}
	if c.Vault.SaveBackoff <= 0 || c.Vault.SaveMaxBackoff < c.Vault.SaveBackoff {
		errs = append(errs, errors.New("vault.save_backoff must be positive and not exceed vault.save_max_backoff"))
	}
	if c.Vault.FlushMaxSlots < 1 {
		errs = append(errs, errors.New("vault.flush_max_slots must be at least 1"))
	}
	if c.AutoSave.FlushInterval <= 0 || c.AutoSave.IdleCheckInterval <= 0 {
		errs = append(errs, errors.New("autosave intervals must be positive"))
	}
	if c.AutoSave.ArchiveEnabled && (c.AutoSave.ArchiveInterval <= 0 || c.AutoSave.Retention <= 0) {
		errs = append(errs, errors.New("archival needs positive autosave.archive_interval and autosave.retention"))
	}
	if c.AutoSave.DataDir == "" {
		errs = append(errs, errors.New("autosave.data_dir is required"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0,1], got %v", c.Telemetry.SampleRatio))
	}
	return errors.Join(errs...)
}
