// Package config loads the service configuration from a YAML file, an
// optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// EnvPath names the variable that overrides DefaultPath.
const EnvPath = "PAYROLL_CONFIG"

// DefaultPath is the config file read when EnvPath is unset.
var DefaultPath = filepath.Join("internal", "payroll", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int    `yaml:"GRPC_PORT"`
	HTTPPort int    `yaml:"HTTP_PORT"`
	LogLevel string `yaml:"LOG_LEVEL"`

	Storage    string `yaml:"STORAGE"`
	DataFile   string `yaml:"DATA_FILE"`
	SQLitePath string `yaml:"SQLITE_PATH"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`

	ExportSchedule  string   `yaml:"EXPORT_SCHEDULE"`
	ExportFormats   []string `yaml:"EXPORT_FORMATS"`
	ExportBucket    string   `yaml:"EXPORT_BUCKET"`
	ExportPrefix    string   `yaml:"EXPORT_PREFIX"`
	ExportRegion    string   `yaml:"EXPORT_REGION"`
	ExportEndpoint  string   `yaml:"EXPORT_ENDPOINT"`
	ExportAccessKey string   `yaml:"EXPORT_ACCESS_KEY"`
	ExportSecretKey string   `yaml:"EXPORT_SECRET_KEY"`
}

// Load reads .env (if present), then the YAML file at path, then applies
// environment overrides and defaults. An empty path resolves through
// EnvPath and DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Storage, "STORAGE")
	setString(&c.DataFile, "DATA_FILE")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBSSLMode, "DB_SSLMODE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Topic, "TOPIC")
	setString(&c.ExportSchedule, "EXPORT_SCHEDULE")
	setString(&c.ExportBucket, "EXPORT_BUCKET")
	setString(&c.ExportPrefix, "EXPORT_PREFIX")
	setString(&c.ExportRegion, "EXPORT_REGION")
	setString(&c.ExportEndpoint, "EXPORT_ENDPOINT")
	setString(&c.ExportAccessKey, "EXPORT_ACCESS_KEY")
	setString(&c.ExportSecretKey, "EXPORT_SECRET_KEY")
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := os.LookupEnv("EXPORT_FORMATS"); ok && v != "" {
		c.ExportFormats = splitList(v)
	}
	for name, dst := range map[string]*int{
		"GRPC_PORT": &c.GRPCPort,
		"HTTP_PORT": &c.HTTPPort,
		"DB_PORT":   &c.DBPort,
	} {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 50051
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Storage == "" {
		c.Storage = StorageFile
	}
	if c.DataFile == "" {
		c.DataFile = "data.json"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "payroll.db"
	}
	if c.DBPort == 0 {
		c.DBPort = 5432
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Topic == "" {
		c.Topic = "payroll-events"
	}
	if c.ExportPrefix == "" {
		c.ExportPrefix = "reports"
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}
	return nil
}

// ExportEnabled reports whether scheduled report publishing is configured.
func (c *Config) ExportEnabled() bool {
	return c.ExportSchedule != "" && c.ExportBucket != ""
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
