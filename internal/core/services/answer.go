package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// Fallback system prompts used when no prompt store is configured or a
// template cannot be loaded. Each takes the context blob.
const (
	fallbackAnswerPrompt = `Answer the question using only the documents below. ` +
		`Cite the file each fact comes from. If the documents do not contain the answer, say so.

%s`
	fallbackPricingPrompt = `Answer the product and pricing question using only the documents below. ` +
		`Match model numbers exactly, quote prices as written and cite the file for each price. ` +
		`If no price is listed for a product, say so.

%s`
)

// AnswerConfig tunes the completion call.
type AnswerConfig struct {
	// HistoryTurns is the number of most recent prior turns sent.
	HistoryTurns int
	MaxTokens    int
	Temperature  float64
}

// DefaultAnswerConfig returns the default answer settings.
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{HistoryTurns: domain.DefaultHistoryTurns, Temperature: 0.1}
}

// AnswerService answers questions from the assembled context.
type AnswerService struct {
	retrieval *RetrievalService
	llm       driven.CompletionService
	prompts   driven.PromptStore
	cfg       AnswerConfig
}

// NewAnswerService creates a new answer service. The completion service and
// prompt store may be nil.
func NewAnswerService(
	retrieval *RetrievalService,
	llm driven.CompletionService,
	prompts driven.PromptStore,
	cfg AnswerConfig,
) *AnswerService {
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}
	return &AnswerService{retrieval: retrieval, llm: llm, prompts: prompts, cfg: cfg}
}

// Ask retrieves context for query and passes it with the recent history to
// the completion service. The completion text is returned unaltered.
func (s *AnswerService) Ask(ctx context.Context, query string, opts driving.AskOptions) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if opts.Retrieve.Mode == "" {
		opts.Retrieve.Mode = domain.RetrievalAuto
	}

	started := time.Now()
	retrieval, err := s.retrieval.Retrieve(ctx, query, opts.Retrieve)
	if err != nil {
		return nil, err
	}
	retrievalTime := time.Since(started)

	messages := s.messages(query, retrieval, opts.History)

	logger.Section("Completion")
	logger.Debug("Sending %d messages (%d context tokens) to %s", len(messages), retrieval.Context.Tokens, s.llm.ModelName())

	completionStart := time.Now()
	completion, err := s.llm.Complete(ctx, messages, driven.CompletionOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	answer := &domain.Answer{
		Response:       completion.Text,
		Model:          completion.Model,
		Usage:          completion.Usage,
		Context:        retrieval.Context,
		Results:        retrieval.Results,
		ChunksSearched: retrieval.Scanned,
		Intent:         retrieval.Intent,
		RetrievalTime:  retrievalTime,
		CompletionTime: time.Since(completionStart),
		ResponseTime:   time.Since(started),
	}
	if answer.Model == "" {
		answer.Model = s.llm.ModelName()
	}
	for _, section := range retrieval.Context.Sections {
		answer.FilesUsed = append(answer.FilesUsed, section.Filename)
	}

	docs := make(map[string]bool)
	var total float64
	for _, r := range retrieval.Results {
		docs[r.Document.ID] = true
		total += r.Score
	}
	answer.FilesAnalyzed = len(docs)
	if n := len(retrieval.Results); n > 0 {
		answer.AverageSimilarity = total / float64(n)
	}
	return answer, nil
}

func (s *AnswerService) messages(query string, retrieval *driving.Retrieval, history []domain.ChatTurn) []domain.ChatTurn {
	name, fallback := driven.PromptAnswerSystem, fallbackAnswerPrompt
	if retrieval.Mode == domain.RetrievalPricing {
		name, fallback = driven.PromptPricingSystem, fallbackPricingPrompt
	}
	template := s.loadPrompt(name, fallback)

	contextText := retrieval.Context.Text
	if contextText == "" {
		contextText = "(no matching documents)"
	}

	messages := []domain.ChatTurn{{Role: domain.RoleSystem, Content: strings.Replace(template, "%s", contextText, 1)}}
	if n := len(history); n > s.cfg.HistoryTurns {
		history = history[n-s.cfg.HistoryTurns:]
	}
	for _, turn := range history {
		if turn.Role == domain.RoleSystem || strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, turn)
	}
	return append(messages, domain.ChatTurn{Role: domain.RoleUser, Content: query})
}

func (s *AnswerService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	template, err := s.prompts.Load(name)
	if err != nil || !strings.Contains(template, "%s") {
		logger.Warn("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	return template
}
