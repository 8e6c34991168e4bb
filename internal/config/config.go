package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from environment variables before they are mapped
	// to config keys. Nested keys are separated by a double underscore:
	// NEWSREPORT_DATABASE__NAME -> database.name.
	EnvPrefix = "NEWSREPORT_"

	// ConfigPathEnvVar points at an optional YAML config file.
	ConfigPathEnvVar = "NEWSREPORT_CONFIG"

	// DefaultDatabaseName is the database the reports run against when none is configured.
	DefaultDatabaseName = "news"
)

// Empty result rendering modes.
const (
	EmptySuppress = "suppress"
	EmptyBorder   = "border"
)

type Config struct {
	Primary       Primary             `koanf:"primary" validate:"required"`
	Database      DatabaseConfig      `koanf:"database" validate:"required"`
	Report        ReportConfig        `koanf:"report" validate:"required"`
	Logging       LoggingConfig       `koanf:"logging" validate:"required"`
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Observability ObservabilityConfig `koanf:"observability"`
	Storage       StorageConfig       `koanf:"storage"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type DatabaseConfig struct {
	// URL, when set, is used verbatim and the discrete fields below are ignored.
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"gte=0,lte=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name" validate:"required_without=URL"`
	SSLMode        string        `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gte=0"`
}

type ReportConfig struct {
	ArticleLimit   int      `koanf:"article_limit" validate:"gte=0"`
	ErrorThreshold float64  `koanf:"error_threshold"`
	EmptyMode      string   `koanf:"empty_mode" validate:"required,oneof=suppress border"`
	SkipViews      bool     `koanf:"skip_views"`
	Only           []string `koanf:"only"`
}

type LoggingConfig struct {
	Level    string `koanf:"level" validate:"required,oneof=trace debug info warn error"`
	Format   string `koanf:"format" validate:"required,oneof=console json"`
	TraceSQL bool   `koanf:"trace_sql"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
}

type StorageConfig struct {
	O3 O3Config `koanf:"o3"`
}

// O3Config configures the S3-compatible bucket that report snapshots are archived to.
type O3Config struct {
	Endpoint  string `koanf:"endpoint" validate:"omitempty,url"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Prefix    string `koanf:"prefix"`
}

// Enabled reports whether enough of the O3 config is present to build a client.
func (c O3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

func defaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Database: DatabaseConfig{
			Host:           "",
			Name:           DefaultDatabaseName,
			ConnectTimeout: 10 * time.Second,
		},
		Report: ReportConfig{
			ArticleLimit:   3,
			ErrorThreshold: 1,
			EmptyMode:      EmptySuppress,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Observability: *DefaultObservabilityConfig(),
		Storage: StorageConfig{
			O3: O3Config{Region: "us-east-1", Prefix: "reports"},
		},
	}
}

// Load builds the configuration from, in increasing priority: built-in
// defaults, the YAML file at path (or $NEWSREPORT_CONFIG), a .env file in the
// working directory, and NEWSREPORT_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// NEWSREPORT_REPORT__ONLY=articles,errors arrives as a single element.
	cfg.Report.Only = splitList(cfg.Report.Only)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the nested observability section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
