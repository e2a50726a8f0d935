package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Configuration comes from two layers, loaded in order:

	1. defaults() through koanf's confmap provider
	2. environment variables prefixed with EMPLOYEE_ (a .env file in the
	   working directory is loaded into the environment first by godotenv)

	After the prefix, the first underscore separates the section from the key:

	    EMPLOYEE_DATABASE_HOST            -> database.host
	    EMPLOYEE_DATABASE_CONNECT_TIMEOUT -> database.connect_timeout

	Observability has one more level, named by its sub-section:

	    EMPLOYEE_OBSERVABILITY_LOGGING_LEVEL       -> observability.logging.level
	    EMPLOYEE_OBSERVABILITY_NEW_RELIC_LICENSE_KEY -> observability.new_relic.license_key
*/

const envPrefix = "EMPLOYEE_"

// Database drivers understood by the database package.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	// Env is the deployment environment ("local", "development", "production").
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port string `koanf:"port" validate:"required"`

	// Timeouts are in seconds.
	ReadTimeout  int `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout int `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout  int `koanf:"idle_timeout" validate:"required,min=1"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the sustained number of requests per second allowed per
	// client IP; RateBurst is how many may arrive at once.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=1"`
}

type DatabaseConfig struct {
	Driver         string        `koanf:"driver" validate:"required,oneof=mysql postgres"`
	Host           string        `koanf:"host" validate:"required"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user" validate:"required"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name" validate:"required"`
	SSLMode        string        `koanf:"ssl_mode"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"min=0"`
}

type AuthConfig struct {
	SecretKey string        `koanf:"secret_key" validate:"required"`
	Issuer    string        `koanf:"issuer" validate:"required"`
	Audience  string        `koanf:"audience" validate:"required"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"min=1m"`
}

var (
	hostnamePattern   = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)
	dbNamePattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	minimumSecretSize = 32
)

// exampleSecrets are placeholder keys from documentation that must never
// reach a running deployment.
var exampleSecrets = map[string]bool{
	"your-super-secret-key-with-at-least-32-characters": true,
	"change-me-change-me-change-me-change-me":           true,
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env": "development",

		"server.port":                 "5100",
		"server.read_timeout":         30,
		"server.write_timeout":        30,
		"server.idle_timeout":         60,
		"server.cors_allowed_origins": []string{"*"},
		"server.rate_limit":           20.0,
		"server.rate_burst":           40,

		"database.driver":          DriverMySQL,
		"database.host":            "localhost",
		"database.user":            "root",
		"database.password":        "",
		"database.name":            "Mitarbeiter",
		"database.ssl_mode":        "disable",
		"database.connect_timeout": "10s",

		"auth.issuer":    "employee-api",
		"auth.audience":  "employee-api-clients",
		"auth.token_ttl": "15m",
	}
}

// envKey maps EMPLOYEE_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}

	if section == "observability" {
		for _, sub := range []string{"logging", "new_relic", "health_checks"} {
			if field, found := strings.CutPrefix(rest, sub+"_"); found {
				return section + "." + sub + "." + field
			}
		}
	}

	return section + "." + rest
}

// envValue maps the key and splits comma separated lists.
func envValue(key, value string) (string, any) {
	key = envKey(key)
	if key == "server.cors_allowed_origins" {
		origins := strings.Split(value, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return key, origins
	}
	return key, value
}

// Load reads, defaults and validates the configuration. All problems are
// reported together.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Observability keys are optional; missing ones keep their defaults.
	observability := DefaultObservabilityConfig()
	if err := k.Unmarshal("observability", observability); err != nil {
		return nil, fmt.Errorf("unmarshal observability config: %w", err)
	}
	cfg.Observability = observability
	cfg.Observability.Environment = cfg.Primary.Env

	if cfg.Database.Port == 0 {
		cfg.Database.Port = cfg.Database.DefaultPort()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate runs the struct tag rules and the cross-field rules.
func (c *Config) Validate() error {
	var problems []error

	if err := validator.New().Struct(c); err != nil {
		problems = append(problems, err)
	}
	if err := c.Database.Validate(); err != nil {
		problems = append(problems, err)
	}
	if err := c.Auth.Validate(); err != nil {
		problems = append(problems, err)
	}
	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
	}
	return nil
}

// DefaultPort is the usual listening port for the configured driver.
func (d DatabaseConfig) DefaultPort() int {
	if d.Driver == DriverPostgres {
		return 5432
	}
	return 3306
}

// Validate checks the database settings beyond what struct tags express.
func (d DatabaseConfig) Validate() error {
	var problems []error

	if net.ParseIP(d.Host) == nil && !hostnamePattern.MatchString(d.Host) {
		problems = append(problems, fmt.Errorf("database.host %q is not a valid IP address or hostname", d.Host))
	}
	if d.Port < 1 || d.Port > 65535 {
		problems = append(problems, fmt.Errorf("database.port %d must be between 1 and 65535", d.Port))
	}
	if len(d.Name) > 64 {
		problems = append(problems, errors.New("database.name must not exceed 64 characters"))
	}
	if !dbNamePattern.MatchString(d.Name) {
		problems = append(problems, fmt.Errorf("database.name %q may only contain letters, digits and underscores and must not start with a digit", d.Name))
	}
	if d.Password == "" && !d.IsLocal() {
		problems = append(problems, errors.New("database.password is required for non-local hosts"))
	}

	return errors.Join(problems...)
}

// IsLocal reports whether the database runs on this machine.
func (d DatabaseConfig) IsLocal() bool {
	if strings.EqualFold(d.Host, "localhost") {
		return true
	}
	ip := net.ParseIP(d.Host)
	return ip != nil && ip.IsLoopback()
}

// Validate rejects short or well known signing keys.
func (a AuthConfig) Validate() error {
	var problems []error

	if len(a.SecretKey) < minimumSecretSize {
		problems = append(problems, fmt.Errorf("auth.secret_key must be at least %d characters", minimumSecretSize))
	}
	if exampleSecrets[a.SecretKey] {
		problems = append(problems, errors.New("auth.secret_key is an example value; generate a real secret"))
	}

	return errors.Join(problems...)
}
