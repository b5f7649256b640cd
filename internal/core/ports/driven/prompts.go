package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the embedded
	// default when one exists, or an error otherwise.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptCouponExtraction asks for offers found in a proof.
	// The template is rendered with text/template and receives
	// .FileName, .Path, .Metadata (map of present fields) and .HasContent.
	PromptCouponExtraction = "coupon_extraction"
)
