// Package config loads the command line configuration from a file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables overriding file keys,
// e.g. NODEGRAPH_STORE_REDIS_ADDR for store.redis.addr.
const EnvPrefix = "NODEGRAPH_"

// Config is the complete configuration.
type Config struct {
	LogLevel        string       `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	HistoryCapacity int          `mapstructure:"history_capacity" validate:"gte=1,lte=100000"`
	Format          string       `mapstructure:"format" validate:"oneof=yaml json msgpack"`
	Compress        bool         `mapstructure:"compress"`
	Store           StoreConfig  `mapstructure:"store"`
	Server          ServerConfig `mapstructure:"server"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=memory file redis"`
	Dir           string        `mapstructure:"dir"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" validate:"gte=0"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0,lte=15"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// ServerConfig configures the inspector.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// Keys lists every configuration key in dotted form.
var Keys = []string{
	"log_level",
	"history_capacity",
	"format",
	"compress",
	"store.backend",
	"store.dir",
	"store.encryption_key",
	"store.lock_ttl",
	"store.redis.addr",
	"store.redis.password",
	"store.redis.db",
	"store.redis.prefix",
	"store.redis.ttl",
	"server.addr",
}

// Defaults returns the configuration used when nothing is set.
func Defaults() map[string]any {
	return map[string]any{
		"log_level":        "info",
		"history_capacity": 100,
		"format":           "yaml",
		"compress":         false,
		"store": map[string]any{
			"backend":  "file",
			"dir":      filepath.Join(".nodegraph", "documents"),
			"lock_ttl": "30s",
			"redis": map[string]any{
				"addr":   "localhost:6379",
				"db":     0,
				"prefix": "nodegraph:document:",
				"ttl":    "0s",
			},
		},
		"server": map[string]any{
			"addr": ":8080",
		},
	}
}

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(StoreConfig)
		if s.Backend == "file" && s.Dir == "" {
			sl.ReportError(s.Dir, "dir", "Dir", "required_for_file", "")
		}
		if s.Backend == "redis" && s.Redis.Addr == "" {
			sl.ReportError(s.Redis.Addr, "redis.addr", "Addr", "required_for_redis", "")
		}
	}, StoreConfig{})
}

// Load reads path (YAML, or JSON by extension), overlays NODEGRAPH_* variables,
// decodes and validates the result. An empty path or a missing file means defaults.
func Load(path string) (Config, error) {
	values := Defaults()

	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		merge(values, file)
	}

	for _, key := range Keys {
		env := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v, ok := os.LookupEnv(env); ok {
			set(values, key, v)
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(values); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend requirements.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), message(fe)))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_for_file", "required_for_redis":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("minimum value is %s", fe.Param())
	case "lte":
		return fmt.Sprintf("maximum value is %s", fe.Param())
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	out := make(map[string]any)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &out)
	} else {
		err = yaml.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return out, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func set(values map[string]any, key string, v string) {
	parts := strings.Split(key, ".")
	m := values
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
