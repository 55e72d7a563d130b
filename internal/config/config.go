package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/thushan/tabkeeper/internal/adapter/reactor"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/pkg/container"
)

const (
	EnvPrefix     = "TABKEEPER"
	EnvConfigFile = "TABKEEPER_CONFIG_FILE"

	DefaultStoragePath   = "./data"
	ContainerStoragePath = "/data"
)

// defaultStoragePath keeps the database on the mounted volume when running
// in a container
func defaultStoragePath() string {
	if container.IsContainerised() {
		return ContainerStoragePath
	}
	return DefaultStoragePath
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	rc := reactor.DefaultConfig()
	windows := make(map[string]time.Duration, len(rc.Windows))
	for kind, d := range rc.Windows {
		windows[string(kind)] = d
	}

	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			Dir:        "./logs",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			FileOutput: false,
		},
		Storage: StorageConfig{
			Path:           defaultStoragePath(),
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
			SyncWrites:     true,
		},
		Reactor: ReactorConfig{
			Windows:       windows,
			DefaultWindow: rc.Default,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// ReactorConfig converts the debounce windows for the reactor, unknown
// kinds are ignored
func (c *Config) ReactorConfig() reactor.Config {
	out := reactor.Config{
		Default: c.Reactor.DefaultWindow,
		Windows: make(map[domain.ResourceKind]time.Duration, len(c.Reactor.Windows)),
	}
	for name, d := range c.Reactor.Windows {
		out.Windows[domain.ResourceKind(strings.ToLower(name))] = d
	}
	return out
}

// Load loads configuration from file and environment variables. onChange,
// when set, receives a freshly decoded Config every time the file changes.
func Load(onChange func(*Config)) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	}

	// It's okay if config file doesn't exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	if config.Filename != "" && onChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			if next, err := decode(v); err == nil {
				onChange(next)
			}
		})
		v.WatchConfig()
	}

	return config, nil
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = v.ConfigFileUsed()
	if _, err := config.Engine.Location(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults registers every key so environment overrides apply to keys
// absent from the file
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.theme", d.Logging.Theme)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.file_output", d.Logging.FileOutput)

	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.gc_interval", d.Storage.GCInterval)
	v.SetDefault("storage.gc_discard_ratio", d.Storage.GCDiscardRatio)
	v.SetDefault("storage.in_memory", d.Storage.InMemory)
	v.SetDefault("storage.sync_writes", d.Storage.SyncWrites)

	v.SetDefault("reactor.default_window", d.Reactor.DefaultWindow)
	v.SetDefault("reactor.windows", d.Reactor.Windows)

	v.SetDefault("presets.file", d.Presets.File)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("engine.timezone", d.Engine.Timezone)
}
