package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DirName is the per-user directory holding config, prompts and data.
const DirName = ".docquery"

// Duration is a time.Duration written as a Go duration string ("60s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Config is the complete docquery configuration.
type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking" yaml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval" yaml:"retrieval"`
	Ingest    IngestConfig    `toml:"ingest" yaml:"ingest"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// ChunkingConfig sets the sliding window.
type ChunkingConfig struct {
	ChunkSize int `toml:"chunk_size" yaml:"chunk_size" validate:"gt=0"`
	Overlap   int `toml:"overlap" yaml:"overlap" validate:"gt=0,ltfield=ChunkSize"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          domain.AIProvider `toml:"provider" yaml:"provider" validate:"oneof=hashing openai ollama"`
	Model             string            `toml:"model,omitempty" yaml:"model,omitempty"`
	BaseURL           string            `toml:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey            string            `toml:"api_key,omitempty" yaml:"api_key,omitempty"`
	Dimensions        int               `toml:"dimensions,omitempty" yaml:"dimensions,omitempty" validate:"gte=0"`
	BatchSize         int               `toml:"batch_size" yaml:"batch_size" validate:"gt=0,lte=2048"`
	Concurrency       int               `toml:"concurrency" yaml:"concurrency" validate:"gt=0,lte=64"`
	Timeout           Duration          `toml:"timeout" yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond float64           `toml:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int               `toml:"burst" yaml:"burst" validate:"gte=0"`
	MaxRetries        int               `toml:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	CacheTTL          Duration          `toml:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
}

// RetrievalConfig holds search and context defaults.
type RetrievalConfig struct {
	Limit         int     `toml:"limit" yaml:"limit" validate:"gt=0"`
	MinSimilarity float64 `toml:"min_similarity" yaml:"min_similarity" validate:"gte=-1,lte=1"`
	MaxTokens     int     `toml:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
	BoostFactor   float64 `toml:"boost_factor" yaml:"boost_factor" validate:"gte=1"`
	PricingLimit  int     `toml:"pricing_limit" yaml:"pricing_limit" validate:"gtefield=Limit"`

	// PricingFocus scales pricing-bearing chunks for pricing questions that
	// name no identifier. 1 disables it.
	PricingFocus float64 `toml:"pricing_focus" yaml:"pricing_focus" validate:"gte=1"`

	// PricingSearchBoost scales pricing-bearing chunks in pricing_search mode.
	PricingSearchBoost float64 `toml:"pricing_search_boost" yaml:"pricing_search_boost" validate:"gte=1"`
}

// IngestConfig bounds the batch orchestrator.
type IngestConfig struct {
	Workers int `toml:"workers" yaml:"workers" validate:"gte=1,lte=1000"`
}

// LLMConfig selects the completion provider. An openai provider without an
// API key leaves question answering disabled.
type LLMConfig struct {
	Provider     domain.AIProvider `toml:"provider" yaml:"provider" validate:"oneof=openai ollama"`
	Model        string            `toml:"model" yaml:"model"`
	BaseURL      string            `toml:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey       string            `toml:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout      Duration          `toml:"timeout" yaml:"timeout" validate:"gte=0"`
	HistoryTurns int               `toml:"history_turns" yaml:"history_turns" validate:"gte=0"`
	MaxTokens    int               `toml:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature  float64           `toml:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
}

// StorageConfig selects the index store.
type StorageConfig struct {
	Backend domain.StorageBackend `toml:"backend" yaml:"backend" validate:"oneof=sqlite memory"`
	DataDir string                `toml:"data_dir,omitempty" yaml:"data_dir,omitempty"`
}

// LogConfig sets the log level used when --verbose is not given.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize: domain.DefaultChunkSize,
			Overlap:   domain.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:    domain.AIProviderHashing,
			BatchSize:   domain.DefaultBatchSize,
			Concurrency: 4,
			Timeout:     Duration(60 * time.Second),
			Burst:       1,
			MaxRetries:  2,
			CacheTTL:    Duration(10 * time.Minute),
		},
		Retrieval: RetrievalConfig{
			Limit:         domain.DefaultSearchLimit,
			MinSimilarity: domain.DefaultMinSimilarity,
			MaxTokens:     domain.DefaultMaxTokens,
			BoostFactor:   domain.DefaultBoostFactor,
			PricingLimit:  domain.DefaultPricingLimit,

			PricingFocus:       domain.DefaultPricingFocus,
			PricingSearchBoost: domain.DefaultPricingSearchBoost,
		},
		Ingest: IngestConfig{Workers: domain.DefaultWorkers},
		LLM: LLMConfig{
			Provider:     domain.AIProviderOpenAI,
			Model:        "gpt-4o-mini",
			Timeout:      Duration(120 * time.Second),
			HistoryTurns: domain.DefaultHistoryTurns,
			Temperature:  0.1,
		},
		Storage: StorageConfig{Backend: domain.StorageSQLite},
		Log:     LogConfig{Level: "warn"},
	}
}

// DefaultDir returns ~/.docquery.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.docquery/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file yields the defaults. Values present in the file
// override defaults; a .env file in the working directory and the process
// environment fill unset API keys. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is not an error.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, as YAML when the extension is .yaml or .yml and
// as TOML otherwise.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// API keys may be present.
	return os.WriteFile(path, data, 0600)
}

// Validate checks every field constraint. Failures wrap
// domain.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// DataDir returns the storage directory with a leading ~ expanded, or
// ~/.docquery/data when unset.
func (c *Config) DataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "data"), nil
	}
	return expandHome(dir)
}

func (c *Config) applyEnv() {
	key := os.Getenv("OPENAI_API_KEY")
	if c.Embedding.APIKey == "" && c.Embedding.Provider == domain.AIProviderOpenAI {
		c.Embedding.APIKey = key
	}
	if c.LLM.APIKey == "" && c.LLM.Provider == domain.AIProviderOpenAI {
		c.LLM.APIKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if c.Embedding.BaseURL == "" && c.Embedding.Provider == domain.AIProviderOllama {
			c.Embedding.BaseURL = host
		}
		if c.LLM.BaseURL == "" && c.LLM.Provider == domain.AIProviderOllama {
			c.LLM.BaseURL = host
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return toml.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
