// Package ai provides factory functions for creating embedding and
// completion service adapters from configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI collaborators built from configuration.
type Services struct {
	Embedding  driven.EmbeddingService
	Completion driven.CompletionService // nil when answering is not configured
	Warnings   []string                 // Non-fatal issues, e.g. answering disabled.
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.Completion != nil {
		s.Completion.Close()
	}
}

// Create builds the embedding service and, when possible, the completion
// service. An embedding failure is fatal; a completion failure only adds a
// warning since retrieval works without it.
func Create(cfg *file.Config) (*Services, error) {
	embedding, err := CreateEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	out := &Services{Embedding: embedding}
	completion, err := CreateCompletionService(cfg.LLM)
	switch {
	case err != nil:
		out.Warnings = append(out.Warnings, err.Error())
	case completion == nil:
		out.Warnings = append(out.Warnings, "answering disabled: no "+cfg.LLM.Provider.String()+" API key configured")
	default:
		out.Completion = completion
	}
	return out, nil
}

// CreateEmbeddingService creates the embedding service for the configured
// provider. Failures wrap domain.ErrEmbeddingUnavailable.
func CreateEmbeddingService(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	model := cfg.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[cfg.Provider]
	}
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[model]
	}

	switch cfg.Provider {
	case domain.AIProviderHashing, "":
		return hashing.NewEmbeddingService(hashing.Config{Dimensions: dimensions}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      model,
			Timeout:    cfg.Timeout.Std(),
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      model,
			Timeout:    cfg.Timeout.Std(),
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrEmbeddingUnavailable, cfg.Provider)
	}
}

// CreateCompletionService creates the completion service for the configured
// provider. Returns nil without error when the provider needs an API key
// and none is set.
func CreateCompletionService(cfg file.LLMConfig) (driven.CompletionService, error) {
	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewCompletionService(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout.Std(),
		}), nil

	case domain.AIProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return openaillm.NewCompletionService(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout.Std(),
		})

	default:
		return nil, fmt.Errorf("%w: unsupported completion provider: %s", domain.ErrLLMUnavailable, cfg.Provider)
	}
}

// ping validates connectivity within pingTimeout.
func ping(ctx context.Context, p interface{ Ping(context.Context) error }) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}
