package startup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Loads a .env file from the working directory, if present, before the
	// environment is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"page-server/internal/assets"
	"page-server/internal/logging"
	"page-server/internal/session"
)

// ModeProduction is the NODE_ENV value that selects production behavior.
// Every other value, including "test", runs in development mode.
const ModeProduction = "production"

// ModeDevelopment names the non-production mode in logs and metrics.
const ModeDevelopment = "development"

// Config holds all application configuration. It is read once by Load and
// not modified afterwards.
type Config struct {
	Env             string        `koanf:"node_env"`
	Port            string        `koanf:"port" validate:"required,numeric"`
	SessionSecret   string        `koanf:"session_secret" validate:"required"`
	BuildDir        string        `koanf:"build_dir" validate:"required"`
	SourceDir       string        `koanf:"source_dir" validate:"required"`
	PublicDir       string        `koanf:"public_dir"`
	MetricsPort     string        `koanf:"metrics_port" validate:"required,numeric"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	LogLevel        string        `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogStaticFiles  bool          `koanf:"log_static_files"`
	LogHealthChecks bool          `koanf:"log_health_checks"`
	TLSCertFile     string        `koanf:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile      string        `koanf:"tls_key_file" validate:"required_with=TLSCertFile"`
	WatchInterval   time.Duration `koanf:"watch_interval" validate:"gt=0"`
	MemoryLimit     int64         `koanf:"memory_limit" validate:"gte=0"`
	MemoryRatio     float64       `koanf:"memory_ratio" validate:"gt=0,lte=1"`

	// Derived paths
	ClientDir    string `koanf:"-"`
	ManifestPath string `koanf:"-"`
}

var defaults = map[string]any{
	"node_env":          ModeDevelopment,
	"port":              "3000",
	"build_dir":         "build",
	"source_dir":        "app/assets",
	"public_dir":        "public",
	"metrics_port":      "9090",
	"metrics_enabled":   false,
	"log_level":         "info",
	"log_static_files":  false,
	"log_health_checks": false,
	"watch_interval":    "300ms",
	"memory_limit":      0,
	"memory_ratio":      0.85,
}

// envValue maps an environment variable to its config key. Unknown and
// empty variables are ignored so defaults apply.
func envValue(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	key := strings.ToLower(name)
	switch key {
	case "session_secret", "tls_cert_file", "tls_key_file":
		return key, value
	}
	if _, ok := defaults[key]; ok {
		return key, value
	}
	return "", nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the configuration from the environment. The session secret is
// not checked here; commands that need it call RequireSessionSecret.
func Load() (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := validate.StructExcept(&cfg, "SessionSecret"); err != nil {
		return nil, describeValidation(err)
	}

	cfg.ClientDir = filepath.Join(cfg.BuildDir, "client")
	cfg.ManifestPath = filepath.Join(cfg.BuildDir, "server", "manifest.json")
	return &cfg, nil
}

// RequireSessionSecret returns session.ErrMissingSecret when no secret is
// configured.
func (c *Config) RequireSessionSecret() error {
	if err := validate.Var(c.SessionSecret, "required"); err != nil {
		return session.ErrMissingSecret
	}
	return nil
}

// IsProduction reports whether NODE_ENV selects production.
func (c *Config) IsProduction() bool {
	return c.Env == ModeProduction
}

// Mode returns ModeProduction or ModeDevelopment.
func (c *Config) Mode() string {
	if c.IsProduction() {
		return ModeProduction
	}
	return ModeDevelopment
}

// TLSEnabled reports whether a development certificate is configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Level returns the configured log level.
func (c *Config) Level() logging.LogLevel {
	return logging.ParseLevel(c.LogLevel)
}

// BuildOptions returns the asset build layout for this configuration.
func (c *Config) BuildOptions() assets.BuildOptions {
	return assets.BuildOptions{
		SourceDir:    c.SourceDir,
		PublicDir:    c.PublicDir,
		OutDir:       c.ClientDir,
		ManifestPath: c.ManifestPath,
	}
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", envName(fe.StructField()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}

var envNames = map[string]string{
	"Env":             "NODE_ENV",
	"Port":            "PORT",
	"SessionSecret":   "SESSION_SECRET",
	"BuildDir":        "BUILD_DIR",
	"SourceDir":       "SOURCE_DIR",
	"PublicDir":       "PUBLIC_DIR",
	"MetricsPort":     "METRICS_PORT",
	"MetricsEnabled":  "METRICS_ENABLED",
	"LogLevel":        "LOG_LEVEL",
	"LogStaticFiles":  "LOG_STATIC_FILES",
	"LogHealthChecks": "LOG_HEALTH_CHECKS",
	"TLSCertFile":     "TLS_CERT_FILE",
	"TLSKeyFile":      "TLS_KEY_FILE",
	"WatchInterval":   "WATCH_INTERVAL",
	"MemoryLimit":     "MEMORY_LIMIT",
	"MemoryRatio":     "MEMORY_RATIO",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}
