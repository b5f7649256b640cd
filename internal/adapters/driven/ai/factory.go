// Package ai provides factory functions for creating LLM service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/proofscan/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/proofscan/internal/adapters/driven/llm/gemini"
	openaillm "github.com/custodia-labs/proofscan/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/proofscan/internal/config"
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateLLMService creates the service selected by cfg.Provider.
// Returns nil when enrichment is disabled.
func CreateLLMService(ctx context.Context, cfg config.LLMConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, nil

	case config.ProviderVertex:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			VertexAI: true,
			Project:  cfg.Project,
			Location: cfg.Location,
			Model:    cfg.Model,
			BaseURL:  cfg.BaseURL,
		})

	case config.ProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})

	case config.ProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})

	case config.ProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, cfg.Provider)
	}
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil when enrichment is disabled.
func CreateAndValidateLLMService(ctx context.Context, cfg config.LLMConfig) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'proofscan check' to diagnose",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := Ping(ctx, svc); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// Ping checks svc within pingTimeout.
func Ping(ctx context.Context, svc driven.LLMService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable (%w)", domain.ErrLLMUnavailable, svc.ModelName(), err)
	}
	return nil
}
