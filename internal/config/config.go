package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "CLAUSE_SCANNER_CONFIG"
	dotenvPathEnv      = "CLAUSE_SCANNER_DOTENV"
	databaseDSNEnv     = "DATABASE_DSN"
	catalogueEnv       = "RISK_CATALOGUE_PATH"
	thresholdEnv       = "MATCH_THRESHOLD"
	embeddingKeyEnv    = "EMBEDDING_API_KEY"
	embeddingModelEnv  = "EMBEDDING_MODEL"
	openRouterKeyEnv   = "OPENROUTER_API_KEY"
	rewriteModelEnv    = "REWRITE_MODEL"
	serverAddrEnv      = "SERVER_ADDR"
	logLevelEnv        = "LOG_LEVEL"
	allowOriginsEnv    = "CORS_ALLOW_ORIGINS"
	defaultThreshold   = 0.75
	defaultChunkSize   = 600
	defaultOverlap     = 150
	defaultMinChunkLen = 20
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Catalogue CatalogueConfig `yaml:"catalogue"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Database  DatabaseConfig  `yaml:"database"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes" validate:"gt=0"`
	AllowOrigins   []string `yaml:"allowOrigins" validate:"dive,required"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// CatalogueConfig points at the static risk catalogue loaded at startup.
type CatalogueConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// MatcherConfig tunes semantic matching.
type MatcherConfig struct {
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
}

// IngestConfig controls document segmentation.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunkSize" validate:"gt=0"`
	ChunkOverlap int `yaml:"chunkOverlap" validate:"gte=0,ltfield=ChunkSize"`
	MinChunkLen  int `yaml:"minChunkLen" validate:"gte=0"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=openai service"`
	BaseURL   string `yaml:"baseUrl"`
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batchSize" validate:"gt=0"`
}

// RewriteConfig defines how to contact the chat-completions API used for rewrites.
type RewriteConfig struct {
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"maxTokens" validate:"gt=0"`
	Concurrency int     `yaml:"concurrency" validate:"gt=0"`
}

// DatabaseConfig describes Postgres connection details; an empty DSN disables persistence.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

var validate = validator.New()

// Load reads an optional .env file and the YAML file named by CLAUSE_SCANNER_CONFIG, applies
// environment overrides and validates the result. A named file that cannot be read or parsed
// is an error.
func Load() (Config, error) {
	loadDotenv()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Decoding over the defaults keeps unset keys and honours explicit zero values.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadDotenv() {
	path := os.Getenv(dotenvPathEnv)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load %s: %v", path, err)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(catalogueEnv); v != "" {
		c.Catalogue.Path = v
	}

	if v := os.Getenv(thresholdEnv); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Matcher.Threshold = t
		} else {
			log.Printf("config: ignoring %s=%q: %v", thresholdEnv, v, err)
		}
	}

	if v := os.Getenv(embeddingKeyEnv); v != "" {
		c.Embedding.APIKey = v
	}

	if v := os.Getenv(embeddingModelEnv); v != "" {
		c.Embedding.Model = v
	}

	if v := os.Getenv(openRouterKeyEnv); v != "" {
		c.Rewrite.APIKey = v
	}

	if v := os.Getenv(rewriteModelEnv); v != "" {
		c.Rewrite.Model = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(allowOriginsEnv); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowOrigins = origins
	}
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8000",
			MaxUploadBytes: 10 << 20,
			AllowOrigins:   []string{"*"},
		},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Catalogue: CatalogueConfig{Path: "dataset/synthetic_gold_standard_with_nli.json"},
		Matcher:   MatcherConfig{Threshold: defaultThreshold},
		Ingest: IngestConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultOverlap,
			MinChunkLen:  defaultMinChunkLen,
		},
		Embedding: EmbeddingConfig{
			Provider:  "service",
			BaseURL:   "http://localhost:8001",
			Model:     "all-MiniLM-L6-v2",
			BatchSize: 64,
		},
		Rewrite: RewriteConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "mistralai/mistral-7b-instruct:free",
			Temperature: 0.1,
			MaxTokens:   300,
			Concurrency: 4,
		},
	}
}
