// Package gemini provides an LLM service adapter for Gemini models on
// Vertex AI or the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel    = "gemini-1.5-pro"
	DefaultLocation = "us-central1"
)

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// VertexAI selects Vertex AI with application default credentials.
	// Otherwise the Gemini API is used with APIKey.
	VertexAI bool

	// Project and Location address the Vertex AI endpoint.
	Project  string
	Location string

	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model is the model to use (default: gemini-1.5-pro).
	Model string

	// BaseURL overrides the service endpoint.
	BaseURL string

	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

// LLMService generates completions through the genai client.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a Gemini service. Vertex AI clients resolve
// credentials at construction time.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	}
	if cfg.VertexAI {
		if cfg.Project == "" {
			return nil, errors.New("gemini: project is required for Vertex AI")
		}
		if cfg.Location == "" {
			cfg.Location = DefaultLocation
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("gemini: API key is required")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &LLMService{client: client, model: cfg.Model}, nil
}

// Generate produces a completion for prompt. An attachment is sent as
// an inline part before the prompt text.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	config := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens) //nolint:gosec // bounded by configuration
	}
	config.Temperature = genai.Ptr(float32(opts.Temperature))
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	var parts []*genai.Part
	if att := opts.Attachment; att != nil && len(att.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}

	var text strings.Builder
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}

// ModelName returns the name of the model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the model description, which checks credentials and the
// model name without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, nil); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
