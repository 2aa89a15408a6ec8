package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Alteration strategies for the synchronization engine.
const (
	// StrategyAuto uses the engine's native in-place alteration when the
	// dialect supports it and falls back to rebuild otherwise.
	StrategyAuto = "auto"
	// StrategyRebuild forces drop-and-recreate for every structural change.
	StrategyRebuild = "rebuild"
)

// EngineConfig describes the managed storage engine.
type EngineConfig struct {
	Type     string `yaml:"type"` // sqlite | postgres
	Path     string `yaml:"path"` // sqlite database file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// DesignStoreConfig describes where design records are persisted. The store
// is deliberately separate from the managed engine.
type DesignStoreConfig struct {
	Backend    string `yaml:"backend"` // sqlite | mongo
	Path       string `yaml:"path"`    // sqlite design database file
	URI        string `yaml:"uri"`     // mongo connection URI
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Database   string `yaml:"database"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Collection string `yaml:"collection"`
}

// ServerConfig describes the HTTP boundary.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	DesignStore DesignStoreConfig `yaml:"design_store"`
	Server      ServerConfig      `yaml:"server"`
	Strategy    string            `yaml:"strategy"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// Default returns a config usable without any file on disk: a local sqlite
// engine with a sibling design database.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults normalizes engine/backend names and fills the gaps a minimal
// config file leaves open.
func (c *Config) ApplyDefaults() {
	c.Engine.Type = normalizeEngineType(c.Engine.Type)
	c.DesignStore.Backend = normalizeStoreBackend(c.DesignStore.Backend)

	if c.Engine.Type == "sqlite" && c.Engine.Path == "" {
		c.Engine.Path = "designer.db"
	}
	if c.Engine.Type == "postgres" {
		if c.Engine.Port == 0 {
			c.Engine.Port = 5432
		}
		if c.Engine.SSLMode == "" {
			c.Engine.SSLMode = "disable"
		}
	}

	if c.DesignStore.Backend == "sqlite" && c.DesignStore.Path == "" {
		c.DesignStore.Path = "design_storage.db"
	}
	if c.DesignStore.Backend == "mongo" {
		if c.DesignStore.Port == 0 {
			c.DesignStore.Port = 27017
		}
		if c.DesignStore.Database == "" {
			c.DesignStore.Database = "table_designer"
		}
		if c.DesignStore.Collection == "" {
			c.DesignStore.Collection = "table_designs"
		}
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}

	if c.Strategy == "" {
		c.Strategy = StrategyAuto
	}
	c.Strategy = strings.ToLower(strings.TrimSpace(c.Strategy))
}

// EngineDSN renders the connection string for the managed engine.
func (c *Config) EngineDSN() string {
	if c.Engine.Type == "sqlite" {
		return c.Engine.Path
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Engine.Host,
		c.Engine.Port,
		c.Engine.Username,
		c.Engine.Password,
		c.Engine.Database,
		c.Engine.SSLMode,
	)
}

// DesignStoreMongoURI renders the mongo connection URI for the design store,
// preferring an explicit URI when one is configured.
func (c *Config) DesignStoreMongoURI() string {
	if c.DesignStore.URI != "" {
		return c.DesignStore.URI
	}

	host := c.DesignStore.Host
	if host == "" {
		host = "localhost"
	}
	port := c.DesignStore.Port
	if port == 0 {
		port = 27017
	}

	var credentials string
	if c.DesignStore.Username != "" {
		credentials = url.QueryEscape(c.DesignStore.Username)
		if c.DesignStore.Password != "" {
			credentials = fmt.Sprintf("%s:%s", credentials, url.QueryEscape(c.DesignStore.Password))
		}
		credentials += "@"
	}

	return fmt.Sprintf("mongodb://%s%s:%d", credentials, host, port)
}

func normalizeEngineType(engineType string) string {
	engineType = strings.ToLower(strings.TrimSpace(engineType))
	switch engineType {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "postgresql":
		return "postgres"
	default:
		return engineType
	}
}

func normalizeStoreBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	switch backend {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "mongo", "mongodb":
		return "mongo"
	default:
		return backend
	}
}
