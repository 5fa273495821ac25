package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/core/domain"
)

// Check is the connectivity result for one configured service.
type Check struct {
	Service string // "embedding" or "completion"
	Name    string // provider/model
	Err     error  // nil when reachable
	Skipped bool   // not configured
}

// ConfigValidator validates AI provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, cfg file.EmbeddingConfig) Check {
	check := Check{Service: "embedding", Name: string(cfg.Provider)}
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		check.Err = err
		return check
	}
	defer svc.Close()

	check.Name = fmt.Sprintf("%s/%s (%d dims)", cfg.Provider, svc.ModelName(), svc.Dimensions())
	if err := ping(ctx, svc); err != nil {
		check.Err = fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return check
}

// ValidateLLM creates the completion service and pings it. An unconfigured
// service is reported as skipped.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, cfg file.LLMConfig) Check {
	check := Check{Service: "completion", Name: string(cfg.Provider)}
	svc, err := CreateCompletionService(cfg)
	if err != nil {
		check.Err = err
		return check
	}
	if svc == nil {
		check.Skipped = true
		return check
	}
	defer svc.Close()

	check.Name = fmt.Sprintf("%s/%s", cfg.Provider, svc.ModelName())
	if err := ping(ctx, svc); err != nil {
		check.Err = fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return check
}

// ValidateAll checks every configured service.
func (v *ConfigValidator) ValidateAll(ctx context.Context, cfg *file.Config) []Check {
	return []Check{
		v.ValidateEmbedding(ctx, cfg.Embedding),
		v.ValidateLLM(ctx, cfg.LLM),
	}
}
