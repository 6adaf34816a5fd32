package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		// Driver is one of sqlite3 (default), mysql, postgres.
		Driver string `yaml:"driver"`
		// DSN is driver specific; for sqlite3 it is the database file path.
		DSN string `yaml:"dsn"`
		// Echo logs every SQL statement when true.
		Echo bool `yaml:"echo"`

		// Used to build a DSN when one is not given (mysql/postgres).
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Audit struct {
		Jobs           int `yaml:"jobs"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
		// MinConfidence drops vulture rows below this percentage.
		MinConfidence int `yaml:"min_confidence"`
	} `yaml:"audit"`

	Export struct {
		// ExcludeMetrics drops radon metric rows from the exported bundle.
		// Metrics never count toward issue totals either way.
		ExcludeMetrics bool `yaml:"exclude_metrics"`
	} `yaml:"export"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		Model string `yaml:"model"`
	} `yaml:"ai"`

	Logger struct {
		Level string `yaml:"level"`
	} `yaml:"logger"`
}

// Load reads the YAML config file and applies defaults plus environment
// overrides. A missing file is not an error: the defaults make the CLI
// usable with a local SQLite database and no config at all.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Audit.Jobs <= 0 {
		c.Audit.Jobs = 4
	}
	if c.Audit.TimeoutSeconds <= 0 {
		c.Audit.TimeoutSeconds = 300
	}
	if c.Audit.MinConfidence <= 0 {
		c.Audit.MinConfidence = 50
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8780
	}
}

// IncludeMetrics reports whether radon rows belong in the export bundle.
func (c *Config) IncludeMetrics() bool { return !c.Export.ExcludeMetrics }

// applyEnv lets the environment override database location and SQL echo,
// so the core can be pointed at a different store without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("CODEAUDIT_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("CODEAUDIT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CODEAUDIT_SQL_ECHO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Database.Echo = b
		}
	}
	if v := os.Getenv("CODEAUDIT_EXCLUDE_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Export.ExcludeMetrics = b
		}
	}
}

// DSN resolves the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return c.PostgresDSN()
	default:
		return "codeaudit.db"
	}
}

// Helper to build a MySQL DSN
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper to build a Postgres DSN
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
