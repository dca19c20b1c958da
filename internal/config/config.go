// Package config reads the server settings from the environment, after
// loading an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port         string
	DBPath       string
	TemplateDir  string
	StaticDir    string
	SecureCookie bool

	AdminName     string
	AdminEmail    string
	AdminPassword string

	SessionDuration  time.Duration
	APITokenDuration time.Duration

	LogLevel  string
	LogFormat string

	// CORSAllowedOrigins lists the origins allowed to call the JSON API.
	CORSAllowedOrigins []string

	// EnvFileLoaded reports whether a .env file was read.
	EnvFileLoaded bool
}

// Load reads the configuration. Variables already set in the environment
// win over values from the .env files. With no files given, ".env" in the
// working directory is tried and silently skipped when absent.
func Load(files ...string) Config {
	loaded := godotenv.Load(files...) == nil

	return Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "ledger.db"),
		TemplateDir:  getEnv("TEMPLATE_DIR", "web/templates"),
		StaticDir:    getEnv("STATIC_DIR", "web/static"),
		SecureCookie: getEnvAsBool("SECURE_COOKIE", false),

		AdminName:     getEnv("ADMIN_NAME", "Administrador"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		SessionDuration:  getEnvAsDuration("SESSION_DURATION", 30*24*time.Hour),
		APITokenDuration: getEnvAsDuration("API_TOKEN_DURATION", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		EnvFileLoaded: loaded,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
