package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/logging"
)

// MinSecretLength is the shortest accepted JWT signing secret, in bytes.
const MinSecretLength = 32

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	DBPath string

	// Tokens
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Timezone used to resolve calendar filters such as LAST_WEEK.
	Timezone string

	// First-run admin account, created only when the users table is empty.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	parseErrors []string
}

func Load() *Config {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "expenses.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "expense-tracker"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		Timezone: getEnv("TIMEZONE", "Local"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
	cfg.JWTTTL = cfg.getEnvDuration("JWT_TTL", 60*time.Minute)
	cfg.ShutdownTimeout = cfg.getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second)

	return cfg
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	errors := append([]string(nil), c.parseErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < MinSecretLength {
		errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT_TTL %v: must be at least 1 minute", c.JWTTTL))
	}
	if c.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid SHUTDOWN_TIMEOUT %v: must be positive", c.ShutdownTimeout))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT '%s': must be text or json", c.LogFormat))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid TIMEZONE '%s': %v", c.Timezone, err))
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errors = append(errors, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// BootstrapAdmin reports whether a first-run admin account is configured.
func (c *Config) BootstrapAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("invalid %s '%s': %v", key, value, err))
		return defaultValue
	}
	return d
}
