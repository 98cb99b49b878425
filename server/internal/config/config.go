package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values for the service configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultDeadline       = 8 * time.Second
	DefaultCacheTTL       = 5 * time.Minute
	DefaultStreamInterval = 5 * time.Second
	DefaultLogLevel       = "info"
	DefaultInsightsPath   = "insights.json"
	DefaultAssetsDir      = "static/assets"
)

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Inference InferenceConfig `yaml:"inference"`
	Content   ContentConfig   `yaml:"content"`
	Stream    StreamConfig    `yaml:"stream"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket stream listen on (default 8080).
	HTTPPort int `yaml:"http_port" validate:"min=1,max=65535"`

	// Auth configures how the server authenticates incoming API requests.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit throttles prediction submissions. Zero RPS disables it.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=apikey none"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// RateLimitConfig is a token bucket applied to POST /api/v1/predict.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

// InferenceConfig describes the remote scoring endpoint.
type InferenceConfig struct {
	// Endpoint is the full URL predictions are POSTed to. When empty the
	// service runs offline and every result is simulated.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Deadline is the hard upper bound on one remote attempt (default 8s).
	Deadline time.Duration `yaml:"deadline" validate:"gt=0"`

	// Auth configures how the service authenticates to the endpoint.
	Auth ClientAuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// ClientAuthConfig specifies the authentication mode for outbound requests.
type ClientAuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=apikey bearer basic none"`

	// Header is the HTTP header name for the API key (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token variable name (Mode == "bearer").
	TokenEnv string `yaml:"token_env"`

	// Username and PasswordEnv are used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a ClientAuthConfig) Key() string { return lookupEnv(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a ClientAuthConfig) Token() string { return lookupEnv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a ClientAuthConfig) Password() string { return lookupEnv(a.PasswordEnv) }

// TLSConfig holds outbound TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ContentConfig locates the precomputed presentation artifacts.
type ContentConfig struct {
	// InsightsPath is the JSON payload served at /api/insights.
	InsightsPath string `yaml:"insights_path"`

	// AssetsDir holds chart images and chart JSON specs.
	AssetsDir string `yaml:"assets_dir"`

	// CacheTTL is how long a loaded chart stays cached (default 5m).
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// StreamConfig controls the lifecycle WebSocket stream.
type StreamConfig struct {
	// Interval is the periodic re-broadcast interval (default 5s).
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

var validate = newValidator()

// newValidator reports fields by their yaml names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := check(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is also the
// configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Inference: InferenceConfig{
			Deadline: DefaultDeadline,
		},
		Content: ContentConfig{
			InsightsPath: DefaultInsightsPath,
			AssetsDir:    DefaultAssetsDir,
			CacheTTL:     DefaultCacheTTL,
		},
		Stream: StreamConfig{
			Interval: DefaultStreamInterval,
		},
	}
}

// check runs the struct-tag rules and the cross-field constraints.
func check(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	if cfg.Inference.Auth.Mode == "apikey" && cfg.Inference.Auth.Header == "" {
		return fmt.Errorf("inference.auth.header is required when mode is apikey")
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst == 0 {
		return fmt.Errorf("server.rate_limit.burst must be positive when rps is set")
	}
	return nil
}

// fieldPath turns "Config.inference.deadline" into "inference.deadline".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// SlogLevel returns the configured level. Unknown names map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
