package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// DefaultCouponPrompt is used when no prompt store is configured or the
// stored template fails to parse.
const DefaultCouponPrompt = `You are analyzing a Direct Mail PDF proof for a dealership.

File: {{.FileName}}
{{- if .Path}}
Folder: {{.Path}}
{{- end}}
Metadata: {{.MetadataJSON}}

Please extract the following information about coupon offers from this document:
1. Coupon offer description (e.g., "$500 off", "0% APR for 60 months", "Free oil changes for 1 year")
2. Expiration date (if mentioned)
3. Terms and conditions (brief summary)
4. Target vehicle models or types (if specified)
5. Any special requirements or restrictions
{{- if not .HasContent}}

The document itself is not attached; infer only what the file name and metadata support.
{{- end}}

Format your response as a structured JSON object with the following keys:
- offers: List of offer descriptions
- expiration_date: The expiration date if found, otherwise null
- terms: Brief summary of terms and conditions
- target_vehicles: List of vehicle models or types
- restrictions: Any special requirements

If no coupon information is found, return an empty offers list.
Respond with the JSON object only.`

// EnrichOptions holds generation settings for coupon extraction.
type EnrichOptions struct {
	Temperature float64
	MaxTokens   int
}

// Enricher asks a language model for coupon offers in a file.
// A nil LLM service disables enrichment and every result is absent.
type Enricher struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	retry   retry.Policy
	opts    EnrichOptions
	log     zerolog.Logger
}

// NewEnricher creates an enricher. llm and prompts may be nil.
func NewEnricher(
	llm driven.LLMService,
	prompts driven.PromptStore,
	policy retry.Policy,
	opts EnrichOptions,
	log zerolog.Logger,
) *Enricher {
	return &Enricher{
		llm:     llm,
		prompts: prompts,
		retry:   policy,
		opts:    opts,
		log:     log.With().Str("component", "enricher").Logger(),
	}
}

// Enabled reports whether an inference service is configured.
func (e *Enricher) Enabled() bool {
	return e.llm != nil
}

// promptData is the template input for coupon prompts.
type promptData struct {
	FileName     string
	Path         string
	Metadata     map[string]string
	MetadataJSON string
	HasContent   bool
}

// Enrich produces the coupon info for one file. Failures never escape:
// they are logged and recorded as error markers on the result.
func (e *Enricher) Enrich(ctx context.Context, file domain.FileDescriptor, meta domain.MetadataRecord) domain.CouponInfo {
	if e.llm == nil {
		return domain.AbsentCoupon()
	}

	if len(file.Content) > 0 && !e.acceptsAttachments() {
		file.Content = nil
	}

	prompt, err := e.buildPrompt(file, meta)
	if err != nil {
		e.log.Error().Str("file_id", file.ID).Str("stage", "prompt").Err(err).Msg("Building prompt failed")
		return domain.FailedCoupon()
	}

	opts := driven.GenerateOptions{
		MaxTokens:   e.opts.MaxTokens,
		Temperature: e.opts.Temperature,
		JSON:        true,
	}
	if len(file.Content) > 0 {
		mimeType := file.MIMEType
		if mimeType == "" {
			mimeType = "application/pdf"
		}
		opts.Attachment = &driven.Attachment{MIMEType: mimeType, Data: file.Content}
	}

	text, err := retry.DoValue(ctx, e.retry, func(ctx context.Context) (string, error) {
		return e.llm.Generate(ctx, prompt, opts)
	})
	if err != nil {
		e.log.Error().
			Str("file_id", file.ID).
			Str("file", file.Name).
			Str("stage", "enrich").
			Err(fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)).
			Msg("Coupon extraction failed")
		return domain.FailedCoupon()
	}

	coupon := ParseCouponResponse(text)
	if coupon.Status == domain.CouponUnparseable {
		e.log.Warn().
			Str("file_id", file.ID).
			Str("file", file.Name).
			Str("stage", "parse").
			Int("response_len", len(text)).
			Err(coupon.Err()).
			Msg("Model response is not JSON")
	}
	return coupon
}

func (e *Enricher) acceptsAttachments() bool {
	if ac, ok := e.llm.(driven.AttachmentCapable); ok {
		return ac.SupportsAttachments()
	}
	return true
}

func (e *Enricher) buildPrompt(file domain.FileDescriptor, meta domain.MetadataRecord) (string, error) {
	fields := meta.Map()
	metaJSON, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	data := promptData{
		FileName:     file.Name,
		Path:         strings.Join(file.ParentPath, "/"),
		Metadata:     fields,
		MetadataJSON: string(metaJSON),
		HasContent:   len(file.Content) > 0,
	}

	text := e.loadTemplate()
	out, err := renderPrompt(text, data)
	if err != nil && text != DefaultCouponPrompt {
		e.log.Warn().Err(err).Msg("Custom prompt template invalid, using default")
		return renderPrompt(DefaultCouponPrompt, data)
	}
	return out, err
}

func (e *Enricher) loadTemplate() string {
	if e.prompts == nil {
		return DefaultCouponPrompt
	}
	text, err := e.prompts.Load(driven.PromptCouponExtraction)
	if err != nil || strings.TrimSpace(text) == "" {
		return DefaultCouponPrompt
	}
	return text
}

func renderPrompt(text string, data promptData) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// ParseCouponResponse decodes model output defensively. Markdown code
// fences and surrounding prose are tolerated; blank output is absent;
// anything that still does not decode is unparseable.
func ParseCouponResponse(text string) domain.CouponInfo {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.AbsentCoupon()
	}

	candidates := []string{trimmed, stripCodeFence(trimmed)}
	if s, ok := enclosed(trimmed, '{', '}'); ok {
		candidates = append(candidates, s)
	}
	if s, ok := enclosed(trimmed, '[', ']'); ok {
		candidates = append(candidates, s)
	}

	for _, c := range candidates {
		var value any
		if err := json.Unmarshal([]byte(c), &value); err == nil {
			return domain.ExtractedCoupon(value, text)
		}
	}
	return domain.UnparseableCoupon(text)
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func enclosed(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
