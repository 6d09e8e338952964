package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	//tygo:emit export type CacheBackend = typeof CacheBackendSQLite | typeof CacheBackendRedis;
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/folio.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	Hostname                  string        `koanf:"hostname"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"3689"`

	// StorageQuotaBytes bounds the total size of persisted entries. Zero means
	// unlimited.
	StorageQuotaBytes   int64  `koanf:"storage_quota_bytes"`
	BookKeyPrefix       string `koanf:"book_key_prefix" default:"folio:book"`
	PreferenceKeyPrefix string `koanf:"preference_key_prefix" default:"folio"`
	SamplesDir          string `koanf:"samples_dir" default:"./samples"`

	ShellOriginURL    string   `koanf:"shell_origin_url" default:"http://127.0.0.1:6060"`
	ShellCacheVersion string   `koanf:"shell_cache_version" default:"folio-shell-v1"`
	ShellResources    []string `koanf:"shell_resources" default:"[\"/\",\"/index.html\",\"/manifest.webmanifest\"]"`
	CacheBackend      string   `koanf:"cache_backend" default:"sqlite"`
	RedisURL          string   `koanf:"redis_url" default:"redis://127.0.0.1:6379/0"`

	PDFZoomDPI       int           `koanf:"pdf_zoom_dpi" default:"86"`
	PDFRenderTimeout time.Duration `koanf:"pdf_render_timeout" default:"30s"`
}

// New builds the config from defaults, an optional YAML file, and then the
// environment, with later sources taking precedence.
func New() (*Config, error) {
	// A missing .env is the normal case outside of local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", configFile)
		}
	}

	err = k.Load(env.Provider("", ".", strings.ToLower), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	if cfg.CacheBackend != CacheBackendSQLite && cfg.CacheBackend != CacheBackendRedis {
		return nil, errors.Errorf("invalid cache_backend %q: must be %q or %q", cfg.CacheBackend, CacheBackendSQLite, CacheBackendRedis)
	}

	return cfg, nil
}

// NewForTest returns a config that points at an in-memory database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.ServerHost = "127.0.0.1"
	cfg.Hostname = "test"
	return cfg
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	missing := []string{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if !v.Field(i).IsZero() {
			continue
		}
		key := field.Tag.Get("koanf")
		missing = append(missing, fmt.Sprintf("%s (env) / %s (file)", toEnvName(key), key))
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func toEnvName(key string) string {
	return strcase.ToScreamingSnake(key)
}
