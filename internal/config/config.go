// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	defaultSQLitePath = "minifeed.db"
)

// Config is the API server configuration.
type Config struct {
	Host        string
	Port        string
	Storage     string
	Database    Database
	CORSOrigins []string
	Docs        Docs
	LogLevel    string
	LogFormat   string
}

// Database selects the GORM dialector and its DSN.
type Database struct {
	Driver string
	DSN    string
}

// Docs is the metadata served with the API route listing.
type Docs struct {
	Title       string
	Description string
	Version     string
	Tag         string
	Prefix      string
}

// Relay is the browser-facing relay configuration.
type Relay struct {
	Host       string
	Port       string
	BackendURL string
	Timeout    time.Duration
	LogLevel   string
	LogFormat  string
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (r *Relay) Addr() string {
	return r.Host + ":" + r.Port
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// LoadRelay is Load for the relay process.
func LoadRelay() (*Relay, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return RelayFromEnv(os.Getenv)
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// FromEnv builds the API configuration from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Host:        withDefault(getenv("APP_HOST"), "0.0.0.0"),
		Port:        withDefault(getenv("APP_PORT"), withDefault(getenv("PORT"), "3001")),
		CORSOrigins: splitList(withDefault(getenv("CORS_ORIGINS"), "http://localhost:3000")),
		Docs: Docs{
			Title:       withDefault(getenv("APP_TITLE"), "Mini Feed API"),
			Description: getenv("APP_DESCRIPTION"),
			Version:     withDefault(getenv("APP_VERSION"), "1.0"),
			Tag:         withDefault(getenv("APP_TAG"), "posts"),
			Prefix:      withDefault(getenv("APP_DOCS_PREFIX"), "/api"),
		},
		LogLevel:  withDefault(getenv("LOG_LEVEL"), "info"),
		LogFormat: withDefault(getenv("LOG_FORMAT"), "text"),
	}

	if err := validatePort(cfg.Port); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(cfg.Docs.Prefix, "/") {
		cfg.Docs.Prefix = "/" + cfg.Docs.Prefix
	}

	storage, db, err := resolveStorage(getenv)
	if err != nil {
		return nil, err
	}
	cfg.Storage = storage
	cfg.Database = db
	return cfg, nil
}

// RelayFromEnv builds the relay configuration from getenv.
func RelayFromEnv(getenv func(string) string) (*Relay, error) {
	backend := withDefault(getenv("BACKEND_URL"),
		withDefault(getenv("NEXT_PUBLIC_BACKEND_ENDPOINT"), "http://localhost:3001"))

	cfg := &Relay{
		Host:       withDefault(getenv("RELAY_HOST"), "0.0.0.0"),
		Port:       withDefault(getenv("RELAY_PORT"), "3000"),
		BackendURL: strings.TrimRight(backend, "/"),
		Timeout:    10 * time.Second,
		LogLevel:   withDefault(getenv("LOG_LEVEL"), "info"),
		LogFormat:  withDefault(getenv("LOG_FORMAT"), "text"),
	}
	if err := validatePort(cfg.Port); err != nil {
		return nil, err
	}
	if raw := getenv("RELAY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RELAY_TIMEOUT %q", raw)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func resolveStorage(getenv func(string) string) (string, Database, error) {
	kind := strings.ToLower(strings.TrimSpace(getenv("STORAGE")))
	url := getenv("DATABASE_URL")

	if kind == "" {
		switch {
		case strings.HasPrefix(url, "sqlite://"):
			kind = StorageSQLite
		case url != "" || getenv("DB_HOST") != "":
			kind = StoragePostgres
		default:
			kind = StorageSQLite
		}
	}

	switch kind {
	case StorageMemory:
		return kind, Database{}, nil
	case StorageSQLite:
		path := defaultSQLitePath
		if strings.HasPrefix(url, "sqlite://") {
			path = strings.TrimPrefix(url, "sqlite://")
		}
		return kind, Database{Driver: StorageSQLite, DSN: path}, nil
	case StoragePostgres:
		if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
			return kind, Database{Driver: StoragePostgres, DSN: url}, nil
		}
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			withDefault(getenv("DB_HOST"), "localhost"),
			withDefault(getenv("DB_USER"), "postgres"),
			getenv("DB_PASSWORD"),
			withDefault(getenv("DB_NAME"), "minifeed"),
			withDefault(getenv("DB_PORT"), "5432"),
			withDefault(getenv("DB_SSLMODE"), "disable"),
		)
		return kind, Database{Driver: StoragePostgres, DSN: dsn}, nil
	default:
		return "", Database{}, fmt.Errorf("unknown STORAGE %q: want memory, sqlite or postgres", kind)
	}
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
