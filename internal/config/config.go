package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appDirName = "s5"
	configName = "config"
	configType = "toml"
	envPrefix  = "S5"
)

const (
	KeyAPIBaseURL       = "api.base_url"
	KeyAPITimeout       = "api.timeout"
	KeySiteOrigin       = "site.origin"
	KeyStoreBackend     = "store.backend"
	KeyStorePath        = "store.path"
	KeyStorePassPrefix  = "store.pass_prefix"
	KeyStoreRedisAddr   = "store.redis_addr"
	KeyStoreRedisPass   = "store.redis_password"
	KeyStoreRedisDB     = "store.redis_db"
	KeyProfilesPath     = "profiles.path"
	KeyFeedPageSize     = "feed.page_size"
	KeyFeedConcurrency  = "feed.fetch_concurrency"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	defaultBaseURL      = "http://localhost:8080/api/v1"
	defaultSiteOrigin   = "http://localhost:3000"
	defaultPageSize     = 10
	defaultConcurrency  = 4
	defaultAPITimeout   = 15 * time.Second
	defaultStoreBackend = "chain"
)

var storeBackends = []string{"file", "pass", "chain", "sqlite", "redis", "memory"}

type Config struct {
	API      APIConfig
	Site     SiteConfig
	Store    StoreConfig
	Profiles ProfilesConfig
	Feed     FeedConfig
	Log      LogConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SiteConfig struct {
	Origin string
}

type StoreConfig struct {
	Backend       string
	Path          string
	PassPrefix    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type ProfilesConfig struct {
	Path string
}

type FeedConfig struct {
	PageSize         int
	FetchConcurrency int
}

type LogConfig struct {
	Level  string
	Format string
}

// Dir is $XDG_CONFIG_HOME/s5, falling back to ~/.config/s5.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}

	return filepath.Join(base, appDirName), nil
}

// Load registers defaults and env bindings on cfg, reads the config file
// (configFile when set, otherwise config.toml in Dir) and decodes the result.
// A missing default config file is not an error; a missing explicit one is.
func Load(cfg *viper.Viper, configFile string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}

	setDefaults(cfg, dir)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if configFile != "" {
		cfg.SetConfigFile(configFile)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(dir)
	}

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	loaded := Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.GetString(KeyAPIBaseURL)), "/"),
			Timeout: cfg.GetDuration(KeyAPITimeout),
		},
		Site: SiteConfig{
			Origin: strings.TrimRight(strings.TrimSpace(cfg.GetString(KeySiteOrigin)), "/"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(strings.TrimSpace(cfg.GetString(KeyStoreBackend))),
			Path:          cfg.GetString(KeyStorePath),
			PassPrefix:    cfg.GetString(KeyStorePassPrefix),
			RedisAddr:     cfg.GetString(KeyStoreRedisAddr),
			RedisPassword: cfg.GetString(KeyStoreRedisPass),
			RedisDB:       cfg.GetInt(KeyStoreRedisDB),
		},
		Profiles: ProfilesConfig{
			Path: cfg.GetString(KeyProfilesPath),
		},
		Feed: FeedConfig{
			PageSize:         cfg.GetInt(KeyFeedPageSize),
			FetchConcurrency: cfg.GetInt(KeyFeedConcurrency),
		},
		Log: LogConfig{
			Level:  cfg.GetString(KeyLogLevel),
			Format: cfg.GetString(KeyLogFormat),
		},
		File: cfg.ConfigFileUsed(),
	}

	if err := loaded.Validate(); err != nil {
		return Config{}, err
	}

	return loaded, nil
}

func setDefaults(cfg *viper.Viper, dir string) {
	cfg.SetDefault(KeyAPIBaseURL, defaultBaseURL)
	cfg.SetDefault(KeyAPITimeout, defaultAPITimeout)
	cfg.SetDefault(KeySiteOrigin, defaultSiteOrigin)
	cfg.SetDefault(KeyStoreBackend, defaultStoreBackend)
	cfg.SetDefault(KeyStorePath, filepath.Join(dir, "store"))
	cfg.SetDefault(KeyStorePassPrefix, "s5")
	cfg.SetDefault(KeyStoreRedisAddr, "")
	cfg.SetDefault(KeyStoreRedisPass, "")
	cfg.SetDefault(KeyStoreRedisDB, 0)
	cfg.SetDefault(KeyProfilesPath, filepath.Join(dir, "profiles.toml"))
	cfg.SetDefault(KeyFeedPageSize, defaultPageSize)
	cfg.SetDefault(KeyFeedConcurrency, defaultConcurrency)
	cfg.SetDefault(KeyLogLevel, "warn")
	cfg.SetDefault(KeyLogFormat, "console")
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%s is empty", KeyAPIBaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyAPITimeout)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyFeedPageSize, c.Feed.PageSize)
	}
	if c.Feed.FetchConcurrency <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyFeedConcurrency, c.Feed.FetchConcurrency)
	}
	if !ValidStoreBackend(c.Store.Backend) {
		return fmt.Errorf("unsupported %s %q (want one of %s)", KeyStoreBackend, c.Store.Backend, strings.Join(storeBackends, ", "))
	}

	return nil
}

func ValidStoreBackend(name string) bool {
	for _, backend := range storeBackends {
		if backend == name {
			return true
		}
	}

	return false
}
