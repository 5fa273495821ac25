package driven

// PromptStore provides access to completion prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system prompt for answering from documents.
	// The template expects one %s placeholder for the context blob.
	PromptAnswerSystem = "answer_system"

	// PromptPricingSystem is the system prompt for product-pricing questions.
	// The template expects one %s placeholder for the context blob.
	PromptPricingSystem = "pricing_system"
)
