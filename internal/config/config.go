package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Graph   GraphConfig   `koanf:"graph"`
	Logging LoggingConfig `koanf:"log"`
	Auth    AuthConfig    `koanf:"auth"`
	Chains  ChainsConfig  `koanf:"chains"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`

	// AllowCredentials is honoured only for origins listed explicitly, never for "*".
	AllowCredentials bool `koanf:"allow_credentials"`
}

// GraphConfig describes the graph store and how long to wait for it at startup.
type GraphConfig struct {
	Driver             string        `koanf:"driver"` // neo4j|memory
	URI                string        `koanf:"uri"`
	Database           string        `koanf:"database"`
	Username           string        `koanf:"username"`
	Password           string        `koanf:"password"`
	MaxConnections     int           `koanf:"max_connections"`
	WarmUpAttempts     int           `koanf:"warmup_attempts"`
	WarmUpInitialDelay time.Duration `koanf:"warmup_initial_delay"`
	WarmUpMaxDelay     time.Duration `koanf:"warmup_max_delay"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `koanf:"level"`
	Format        string `koanf:"format"` // text|json
	IncludeCaller bool   `koanf:"include_caller"`
}

// AuthConfig configures bearer token verification and the admin allow-list.
type AuthConfig struct {
	Enabled   bool     `koanf:"enabled"`
	JWTSecret string   `koanf:"jwt_secret"`
	Issuer    string   `koanf:"issuer"`
	AdminIDs  []string `koanf:"admin_ids"`
}

// ChainsConfig bounds chain searches.
type ChainsConfig struct {
	MaxLength int `koanf:"max_length"`
}

const (
	DriverNeo4j  = "neo4j"
	DriverMemory = "memory"

	// FileEnv names the variable pointing at an optional TOML config file.
	FileEnv = "GRAPH_SERVICE_CONFIG"

	longestChain = 10
)

// envKeys maps the supported environment variables onto config keys.
var envKeys = map[string]string{
	"SERVER_HOST":                "http.host",
	"SERVER_PORT":                "http.port",
	"SERVER_READ_TIMEOUT":        "http.read_timeout",
	"SERVER_WRITE_TIMEOUT":       "http.write_timeout",
	"SERVER_IDLE_TIMEOUT":        "http.idle_timeout",
	"SERVER_SHUTDOWN_TIMEOUT":    "http.shutdown_timeout",
	"SERVER_METRICS_ENABLED":     "http.metrics_enabled",
	"SERVER_ALLOWED_ORIGINS":     "http.allowed_origins",
	"SERVER_ALLOW_CREDENTIALS":   "http.allow_credentials",
	"GRAPH_DRIVER":               "graph.driver",
	"GRAPH_URI":                  "graph.uri",
	"GRAPH_DATABASE":             "graph.database",
	"GRAPH_USERNAME":             "graph.username",
	"GRAPH_PASSWORD":             "graph.password",
	"GRAPH_MAX_CONNECTIONS":      "graph.max_connections",
	"GRAPH_WARMUP_ATTEMPTS":      "graph.warmup_attempts",
	"GRAPH_WARMUP_INITIAL_DELAY": "graph.warmup_initial_delay",
	"GRAPH_WARMUP_MAX_DELAY":     "graph.warmup_max_delay",
	"LOG_LEVEL":                  "log.level",
	"LOG_FORMAT":                 "log.format",
	"LOG_INCLUDE_CALLER":         "log.include_caller",
	"AUTH_ENABLED":               "auth.enabled",
	"AUTH_JWT_SECRET":            "auth.jwt_secret",
	"AUTH_ISSUER":                "auth.issuer",
	"AUTH_ADMIN_IDS":             "auth.admin_ids",
	"CHAINS_MAX_LENGTH":          "chains.max_length",
}

func defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"host":              "0.0.0.0",
			"port":              8080,
			"read_timeout":      10 * time.Second,
			"write_timeout":     60 * time.Second,
			"idle_timeout":      60 * time.Second,
			"shutdown_timeout":  10 * time.Second,
			"metrics_enabled":   false,
			"allowed_origins":   []string{},
			"allow_credentials": false,
		},
		"graph": map[string]any{
			"driver":               DriverNeo4j,
			"uri":                  "",
			"database":             "",
			"username":             "",
			"password":             "",
			"max_connections":      10,
			"warmup_attempts":      5,
			"warmup_initial_delay": 500 * time.Millisecond,
			"warmup_max_delay":     8 * time.Second,
		},
		"log": map[string]any{
			"level":          "info",
			"format":         "text",
			"include_caller": false,
		},
		"auth": map[string]any{
			"enabled":    true,
			"jwt_secret": "",
			"issuer":     "",
			"admin_ids":  []string{},
		},
		"chains": map[string]any{
			"max_length": longestChain,
		},
	}
}

// Load layers defaults, an optional TOML file, environment variables and flags, in that order.
// The file comes from a "config" flag when flags has one, else from GRAPH_SERVICE_CONFIG.
// flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFile(flags); path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(name string) string {
		return envKeys[name]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.HTTP.AllowedOrigins = trimAll(cfg.HTTP.AllowedOrigins)
	cfg.Auth.AdminIDs = trimAll(cfg.Auth.AdminIDs)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.HTTP.Port))
	}
	switch c.Graph.Driver {
	case DriverNeo4j:
		if c.Graph.URI == "" {
			errs = append(errs, errors.New("GRAPH_URI is required for the neo4j driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown graph driver %q", c.Graph.Driver))
	}
	if c.Graph.WarmUpAttempts <= 0 {
		errs = append(errs, errors.New("GRAPH_WARMUP_ATTEMPTS must be positive"))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required when auth is enabled"))
	}
	if c.Chains.MaxLength < 2 || c.Chains.MaxLength > longestChain {
		errs = append(errs, fmt.Errorf("CHAINS_MAX_LENGTH must be between 2 and %d", longestChain))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// RegisterFlags adds the command-line overrides understood by Load.
// Flags left at their defaults do not override the file or environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a TOML config file (env "+FileEnv+")")
	fs.String("http.host", "0.0.0.0", "listen host")
	fs.Int("http.port", 8080, "listen port")
	fs.Bool("http.metrics_enabled", false, "expose /metrics")
	fs.Bool("http.allow_credentials", false, "allow credentialed CORS requests from listed origins")
	fs.String("graph.driver", DriverNeo4j, "graph store driver: neo4j or memory")
	fs.String("graph.uri", "", "neo4j connection URI")
	fs.String("graph.database", "", "neo4j database name")
	fs.Int("graph.warmup_attempts", 5, "connectivity attempts at startup")
	fs.String("log.level", "info", "log level: debug, info, warn, error")
	fs.String("log.format", "text", "log format: text or json")
	fs.Bool("auth.enabled", true, "require an admin bearer token on /graph routes")
	fs.Int("chains.max_length", longestChain, "default chain length bound")
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func configFile(flags *pflag.FlagSet) string {
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String()
		}
	}
	return os.Getenv(FileEnv)
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	return map[string]any(p), nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}
