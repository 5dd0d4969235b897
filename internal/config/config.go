// Package config loads the podsearch configuration from defaults, an optional YAML
// file and PODSEARCH_ environment variables.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-podcast-search/cache"
	"github.com/goliatone/go-podcast-search/internal/logging"
	"github.com/goliatone/go-podcast-search/internal/store"
	"github.com/goliatone/go-podcast-search/itunes"
	"github.com/goliatone/go-podcast-search/search"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. PODSEARCH_SERVER_ADDR.
	EnvPrefix = "PODSEARCH"
	// DefaultFileName is looked up in the working directory when no file is given.
	DefaultFileName = "podsearch"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	ITunes   ITunesConfig   `mapstructure:"itunes" json:"itunes"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache"`
	Search   SearchConfig   `mapstructure:"search" json:"search"`
	Log      logging.Config `mapstructure:"log" json:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" json:"driver"`
	DSN          string `mapstructure:"dsn" json:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" json:"max_open_conns"`
	// AutoMigrate applies pending migrations when the container starts.
	AutoMigrate bool `mapstructure:"auto_migrate" json:"auto_migrate"`
}

type ITunesConfig struct {
	BaseURL       string        `mapstructure:"base_url" json:"base_url"`
	Limit         int           `mapstructure:"limit" json:"limit"`
	Media         string        `mapstructure:"media" json:"media"`
	Entity        string        `mapstructure:"entity" json:"entity"`
	Country       string        `mapstructure:"country" json:"country"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	RetryAttempts uint          `mapstructure:"retry_attempts" json:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
}

type CacheConfig struct {
	Capacity           int           `mapstructure:"capacity" json:"capacity"`
	NumShards          int           `mapstructure:"num_shards" json:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl" json:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage" json:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval" json:"eviction_interval"`
	// HashKeys stores cache keys as xxhash digests of the serialized arguments.
	HashKeys     bool               `mapstructure:"hash_keys" json:"hash_keys"`
	EarlyRefresh EarlyRefreshConfig `mapstructure:"early_refresh" json:"early_refresh"`
}

type EarlyRefreshConfig struct {
	Enabled             bool          `mapstructure:"enabled" json:"enabled"`
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async_refresh_time" json:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async_refresh_time" json:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `mapstructure:"sync_refresh_time" json:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay" json:"retry_base_delay"`
}

type SearchConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval" json:"refresh_interval"`
	PageSize        int           `mapstructure:"page_size" json:"page_size"`
	MaxLimit        int           `mapstructure:"max_limit" json:"max_limit"`
	MaxPages        int           `mapstructure:"max_pages" json:"max_pages"`
}

// ConfigError reports the first invalid field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Load reads the configuration. path may be empty, in which case ./podsearch.yaml is
// used when present.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller supplied viper instance, so flags can be bound to it
// before the values are read.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every key with its default. Environment overrides only apply
// to keys viper knows about.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("itunes.base_url", d.ITunes.BaseURL)
	v.SetDefault("itunes.limit", d.ITunes.Limit)
	v.SetDefault("itunes.media", d.ITunes.Media)
	v.SetDefault("itunes.entity", d.ITunes.Entity)
	v.SetDefault("itunes.country", d.ITunes.Country)
	v.SetDefault("itunes.timeout", d.ITunes.Timeout)
	v.SetDefault("itunes.retry_attempts", d.ITunes.RetryAttempts)
	v.SetDefault("itunes.retry_delay", d.ITunes.RetryDelay)

	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)
	v.SetDefault("cache.hash_keys", d.Cache.HashKeys)
	v.SetDefault("cache.early_refresh.enabled", d.Cache.EarlyRefresh.Enabled)
	v.SetDefault("cache.early_refresh.min_async_refresh_time", d.Cache.EarlyRefresh.MinAsyncRefreshTime)
	v.SetDefault("cache.early_refresh.max_async_refresh_time", d.Cache.EarlyRefresh.MaxAsyncRefreshTime)
	v.SetDefault("cache.early_refresh.sync_refresh_time", d.Cache.EarlyRefresh.SyncRefreshTime)
	v.SetDefault("cache.early_refresh.retry_base_delay", d.Cache.EarlyRefresh.RetryBaseDelay)

	v.SetDefault("search.refresh_interval", d.Search.RefreshInterval)
	v.SetDefault("search.page_size", d.Search.PageSize)
	v.SetDefault("search.max_limit", d.Search.MaxLimit)
	v.SetDefault("search.max_pages", d.Search.MaxPages)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Default returns the built-in configuration: a local SQLite file and the public
// iTunes endpoint.
func Default() Config {
	it := itunes.DefaultConfig()
	c := cache.DefaultConfig()
	s := search.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       store.DriverSQLite3,
			DSN:          "file:podsearch.db?cache=shared&_busy_timeout=5000",
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		ITunes: ITunesConfig{
			BaseURL:       it.BaseURL,
			Limit:         it.Limit,
			Media:         it.Media,
			Entity:        it.Entity,
			Country:       it.Country,
			Timeout:       it.Timeout,
			RetryAttempts: it.RetryAttempts,
			RetryDelay:    it.RetryDelay,
		},
		Cache: CacheConfig{
			Capacity:           c.Capacity,
			NumShards:          c.NumShards,
			TTL:                c.TTL,
			EvictionPercentage: c.EvictionPercentage,
			EvictionInterval:   c.EvictionInterval,
			HashKeys:           true,
			EarlyRefresh: EarlyRefreshConfig{
				MinAsyncRefreshTime: 30 * time.Second,
				MaxAsyncRefreshTime: 45 * time.Second,
				SyncRefreshTime:     90 * time.Second,
				RetryBaseDelay:      time.Second,
			},
		},
		Search: SearchConfig{
			RefreshInterval: s.RefreshInterval,
			PageSize:        s.PageSize,
			MaxLimit:        s.MaxLimit,
			MaxPages:        s.MaxPages,
		},
		Log: logging.DefaultConfig(),
	}
}

// Validate checks every section and returns a *ConfigError for the first problem.
func (c Config) Validate() error {
	sections := []struct {
		name string
		err  error
	}{
		{"server", validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
			validation.Field(&c.Server.ReadTimeout, validation.Min(time.Duration(0))),
			validation.Field(&c.Server.WriteTimeout, validation.Min(time.Duration(0))),
			validation.Field(&c.Server.ShutdownTimeout, validation.Required),
		)},
		{"database", validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required,
				validation.In(store.DriverSQLite3, store.DriverSQLite, store.DriverPostgres)),
			validation.Field(&c.Database.DSN, validation.Required),
			validation.Field(&c.Database.MaxOpenConns, validation.Min(0)),
		)},
		{"itunes", validation.ValidateStruct(&c.ITunes,
			validation.Field(&c.ITunes.BaseURL, validation.Required, is.URL),
			validation.Field(&c.ITunes.Limit, validation.Required, validation.Min(1), validation.Max(200)),
			validation.Field(&c.ITunes.Media, validation.Required),
			validation.Field(&c.ITunes.Timeout, validation.Required),
			validation.Field(&c.ITunes.RetryAttempts, validation.Required),
			validation.Field(&c.ITunes.RetryDelay, validation.Min(time.Duration(0))),
		)},
		{"search", validation.ValidateStruct(&c.Search,
			validation.Field(&c.Search.RefreshInterval, validation.Min(time.Duration(0))),
			validation.Field(&c.Search.PageSize, validation.Required, validation.Min(1)),
			validation.Field(&c.Search.MaxLimit, validation.Required, validation.Min(c.Search.PageSize)),
			validation.Field(&c.Search.MaxPages, validation.Required, validation.Min(1)),
		)},
		{"log", validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.By(func(any) error {
				_, err := logging.ParseLevel(c.Log.Level)
				return err
			})),
			validation.Field(&c.Log.Format, validation.In(logging.FormatJSON, logging.FormatConsole)),
		)},
	}
	for _, s := range sections {
		if err := configError(s.name, s.err); err != nil {
			return err
		}
	}

	if err := c.CacheConfig().Validate(); err != nil {
		return &ConfigError{Field: "cache", Message: err.Error()}
	}
	return nil
}

func configError(section string, err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ConfigError{Field: section, Message: err.Error()}
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &ConfigError{Field: section + "." + fields[0], Message: errs[fields[0]].Error()}
}

func (c Config) StoreConfig() store.Config {
	return store.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

func (c Config) ITunesConfig() itunes.Config {
	return itunes.Config{
		BaseURL:       c.ITunes.BaseURL,
		Limit:         c.ITunes.Limit,
		Media:         c.ITunes.Media,
		Entity:        c.ITunes.Entity,
		Country:       c.ITunes.Country,
		Timeout:       c.ITunes.Timeout,
		RetryAttempts: c.ITunes.RetryAttempts,
		RetryDelay:    c.ITunes.RetryDelay,
	}
}

func (c Config) CacheConfig() cache.Config {
	out := cache.Config{
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.NumShards,
		TTL:                c.Cache.TTL,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   c.Cache.EvictionInterval,
	}
	if er := c.Cache.EarlyRefresh; er.Enabled {
		out.EarlyRefresh = &cache.EarlyRefreshConfig{
			MinAsyncRefreshTime: er.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: er.MaxAsyncRefreshTime,
			SyncRefreshTime:     er.SyncRefreshTime,
			RetryBaseDelay:      er.RetryBaseDelay,
		}
	}
	return out
}

func (c Config) SearchConfig() search.Config {
	return search.Config{
		RefreshInterval: c.Search.RefreshInterval,
		PageSize:        c.Search.PageSize,
		MaxLimit:        c.Search.MaxLimit,
		MaxPages:        c.Search.MaxPages,
	}
}
