package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingCredential = errors.New("missing embedding API credential")
	ErrUnknownProvider   = errors.New("unknown embedding provider")
	ErrInvalidSetting    = errors.New("invalid setting")
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

const (
	DefaultChunkSize      = 600
	DefaultChunkOverlap   = 100
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultOllamaModel    = "nomic-embed-text"
	DefaultGeminiModel    = "text-embedding-004"
	DefaultBatchSize      = 2
	DefaultBatchPause     = 500 * time.Millisecond
	DefaultKeyEnv         = "OPENAI_API_KEY"
	DefaultCollection     = "chunks"
	DefaultLogLevel       = "info"
)

type Config struct {
	RAG      RAGConfig      `yaml:"rag"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	Index    IndexConfig    `yaml:"index"`
	Chromem  ChromemConfig  `yaml:"chromem"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// RAGConfig controls how page text is chunked.
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LLMConfig selects the embedding provider and the batch loop settings.
type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Key       string        `yaml:"key"`
	KeyEnv    string        `yaml:"key_env"`
	BatchSize int           `yaml:"batch_size"`
	Pause     time.Duration `yaml:"pause"`
	Strict    bool          `yaml:"strict"`
}

type IndexConfig struct {
	WriteMapping *bool `yaml:"write_mapping"`
}

// ChromemConfig mirrors embedded chunks into a chromem-go persistent collection.
type ChromemConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	ExportFile    string `yaml:"export_file"`
	EncryptionKey string `yaml:"encryption_key"`
}

// DatabaseConfig mirrors embedded chunks into a pgvector table.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
	// Reset drops the documents table before it is recreated.
	Reset    bool   `yaml:"reset"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LoadConfig reads a YAML config from path. An empty path or a missing file
// yields the defaults. Keys absent from the file keep their default, so an
// explicit zero such as `chunk_overlap: 0` or `pause: 0s` is honoured.
func LoadConfig(path string) (*Config, error) {
	cfg := baseConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := baseConfig()
	cfg.ApplyDefaults()
	return cfg
}

func baseConfig() *Config {
	return &Config{
		RAG: RAGConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		EmbedLLM: LLMConfig{
			BatchSize: DefaultBatchSize,
			Pause:     DefaultBatchPause,
		},
	}
}

// ApplyDefaults fills the settings whose empty value means "derive it":
// provider, model (per provider), key variable, mapping switch, chromem
// location and log level. Numeric settings are left alone so that invalid
// values reach Validate. It is safe to call more than once.
func (c *Config) ApplyDefaults() {
	c.EmbedLLM.Provider = strings.ToLower(strings.TrimSpace(c.EmbedLLM.Provider))
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOpenAI
	}
	if c.EmbedLLM.Model == "" {
		switch c.EmbedLLM.Provider {
		case ProviderOllama:
			c.EmbedLLM.Model = DefaultOllamaModel
		case ProviderGemini:
			c.EmbedLLM.Model = DefaultGeminiModel
		default:
			c.EmbedLLM.Model = DefaultEmbeddingModel
		}
	}
	if c.EmbedLLM.KeyEnv == "" {
		c.EmbedLLM.KeyEnv = DefaultKeyEnv
	}

	if c.Index.WriteMapping == nil {
		on := true
		c.Index.WriteMapping = &on
	}

	if c.Chromem.Path == "" {
		c.Chromem.Path = "./chromemdb"
	}
	if c.Chromem.Collection == "" {
		c.Chromem.Collection = DefaultCollection
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// FitOverlap scales the overlap down when it no longer fits a smaller chunk
// size, keeping the default overlap-to-size ratio.
func (r *RAGConfig) FitOverlap() {
	if r.ChunkSize > 0 && r.ChunkOverlap >= r.ChunkSize {
		r.ChunkOverlap = r.ChunkSize * DefaultChunkOverlap / DefaultChunkSize
	}
}

// Validate checks the chunking and batching settings.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidSetting, c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidSetting, c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.EmbedLLM.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidSetting, c.EmbedLLM.BatchSize)
	}
	if c.EmbedLLM.Pause < 0 {
		return fmt.Errorf("%w: pause must not be negative, got %s", ErrInvalidSetting, c.EmbedLLM.Pause)
	}
	return nil
}

// MappingEnabled reports whether the row mapping sidecar should be written.
func (c *Config) MappingEnabled() bool {
	return c.Index.WriteMapping == nil || *c.Index.WriteMapping
}

// ResolveCredential fills EmbedLLM.Key from the environment when the file did
// not set one. Providers that need a key fail with ErrMissingCredential.
func (c *Config) ResolveCredential() error {
	switch c.EmbedLLM.Provider {
	case ProviderOllama:
		return nil
	case ProviderOpenAI, ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.EmbedLLM.Provider)
	}

	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = strings.TrimSpace(os.Getenv(c.EmbedLLM.KeyEnv))
	}
	if c.EmbedLLM.Key == "" {
		return fmt.Errorf("%w: %s not found in environment variables", ErrMissingCredential, c.EmbedLLM.KeyEnv)
	}
	return nil
}
