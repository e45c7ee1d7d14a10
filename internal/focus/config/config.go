package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Autostart begins a focus session as soon as the daemon is up.
	Autostart bool `koanf:"autostart"`

	// CacheSize bounds the verdict cache; least recently used entries
	// are evicted first.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// DisableCache bypasses verdict caching entirely. Useful for testing
	// scenarios where cache behavior needs to be bypassed.
	DisableCache bool `koanf:"disable_cache"`

	// DataDir is the directory holding the prefs and history databases.
	DataDir string `koanf:"data_dir" validate:"required"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// RetentionDays is how long finished sessions are kept in history.
	RetentionDays int `koanf:"retention_days" validate:"required,gte=1"`

	// SeedDir optionally points at a directory of starter rule profiles,
	// applied once when the store holds no rules yet.
	SeedDir string `koanf:"seed_dir"`

	// TickMS is the timer countdown interval in milliseconds. Shortened
	// only for development runs.
	TickMS uint `koanf:"tick_ms" validate:"required,gte=1,lte=60000"`
}

// DEFAULT_APP_CONFIG defines the default application configuration. It
// includes default values for the verdict cache, environment, log level,
// data directory, history retention, and countdown interval.
var DEFAULT_APP_CONFIG = AppConfig{
	Autostart:     false,
	CacheSize:     1024,
	DisableCache:  false,
	DataDir:       "/var/lib/focusgate/",
	Env:           "prod",
	LogLevel:      "info",
	RetentionDays: 90,
	SeedDir:       "",
	TickMS:        1000,
}

// envLoader is a function that loads environment variables with the
// prefix "FOCUS_". It transforms the keys to lowercase and removes the
// prefix, and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FOCUS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "FOCUS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided
// Koanf instance using the structs provider and DEFAULT_APP_CONFIG.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
