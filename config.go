package appcore

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// CoreConfig holds bootstrap tuning for the orchestration core. All fields
// have working defaults; applications override them via a YAML or TOML file,
// environment variables, or both.
type CoreConfig struct {
	// InitTimeout bounds the whole InitializeAll pass in Run.
	InitTimeout time.Duration `yaml:"initTimeout" toml:"initTimeout" env:"INIT_TIMEOUT"`

	// DestroyTimeout bounds teardown in Run.
	DestroyTimeout time.Duration `yaml:"destroyTimeout" toml:"destroyTimeout" env:"DESTROY_TIMEOUT"`

	// WaitAttempts is the default attempt limit for WaitFor.
	WaitAttempts int `yaml:"waitAttempts" toml:"waitAttempts" env:"WAIT_ATTEMPTS"`

	// WaitInterval is the default delay between WaitFor attempts.
	WaitInterval time.Duration `yaml:"waitInterval" toml:"waitInterval" env:"WAIT_INTERVAL"`
}

// DefaultCoreConfig returns the built-in defaults.
func DefaultCoreConfig() *CoreConfig {
	return &CoreConfig{
		InitTimeout:    30 * time.Second,
		DestroyTimeout: 30 * time.Second,
		WaitAttempts:   10,
		WaitInterval:   250 * time.Millisecond,
	}
}

// LoadConfigFile populates cfg from a YAML or TOML file, chosen by
// extension. cfg must be a pointer to a struct.
func LoadConfigFile(path string, cfg any) error {
	if err := checkConfigTarget(cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigFeeder, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfigFeeder, path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfigFeeder, path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigFile, path)
	}
	return nil
}

// FeedFromEnv overlays cfg fields from environment variables named
// PREFIX_<env tag>. Unset variables leave the field untouched, so file
// values and defaults survive.
func FeedFromEnv(prefix string, cfg any) error {
	if err := checkConfigTarget(cfg); err != nil {
		return err
	}

	rv := reflect.ValueOf(cfg).Elem()
	rt := rv.Type()
	prefix = strings.ToUpper(prefix)

	for i := 0; i < rt.NumField(); i++ {
		tag, ok := rt.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		name := strings.ToUpper(tag)
		if prefix != "" {
			name = prefix + "_" + name
		}
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := setConfigField(rv.Field(i), value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfigFeeder, name, err)
		}
	}
	return nil
}

func setConfigField(field reflect.Value, raw string) error {
	// Durations carry unit suffixes that plain integer casting cannot parse.
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	converted, err := cast.FromType(raw, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert %q to %v: %w", raw, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}

func checkConfigTarget(cfg any) error {
	if cfg == nil {
		return ErrConfigNil
	}
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	return nil
}
