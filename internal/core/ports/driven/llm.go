package driven

import "context"

// LLMService provides language model inference for coupon extraction.
// This is an optional service - when nil, coupon info is recorded as absent.
//
// Implementations include:
//   - Gemini on Vertex AI or the Gemini API
//   - OpenAI and compatible chat completion APIs
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces a completion for the prompt, optionally with a
	// document attached.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks providers that support it for a JSON response body.
	JSON bool

	// Attachment is sent alongside the prompt when non-nil.
	Attachment *Attachment
}

// Attachment is a binary document passed to the model.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// AttachmentCapable is implemented by services that can state whether
// they accept document attachments. Services that do not implement it
// are assumed to accept them.
type AttachmentCapable interface {
	SupportsAttachments() bool
}
