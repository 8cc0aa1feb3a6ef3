// Package settings loads cache configuration from a file and the environment.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/3XBAT/lru"
)

// EnvPrefix is prepended to every environment variable, e.g. LRU_CAPACITY.
const EnvPrefix = "LRU"

// Defaults used when neither the file nor the environment set a value.
const (
	DefaultCapacity   = 128
	DefaultEngine     = lru.EngineLinked
	DefaultThreadSafe = true
)

// Settings is the full configuration of the command line tool.
type Settings struct {
	Cache   lru.Config `mapstructure:"cache"`
	Logging Logging    `mapstructure:"logging"`
	Metrics Metrics    `mapstructure:"metrics"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// Load reads settings. When path is empty a file named "lru" (yaml, json or
// toml) is looked up in the working directory and its absence is not an
// error. Environment variables override file values: cache.capacity is read
// from LRU_CACHE_CAPACITY and so on.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lru")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.capacity", DefaultCapacity)
	v.SetDefault("cache.default_ttl", "0s")
	v.SetDefault("cache.thread_safe", DefaultThreadSafe)
	v.SetDefault("cache.engine", string(DefaultEngine))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("metrics.addr", ":9090")
}

func (s *Settings) validate() error {
	engine, err := lru.ParseEngine(string(s.Cache.Engine))
	if err != nil {
		return err
	}
	s.Cache.Engine = engine

	if s.Cache.Capacity <= 0 {
		return fmt.Errorf("%w: %d", lru.ErrInvalidCapacity, s.Cache.Capacity)
	}
	if s.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must not be negative, got %s", s.Cache.DefaultTTL)
	}
	return nil
}
