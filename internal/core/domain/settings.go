package domain

const unknownDescription = "Unknown"

// Chunking and ingestion defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultWorkers      = 100
	DefaultBatchSize    = 32
	DefaultHistoryTurns = 8
	DefaultPricingLimit = 30
)

// RetrievalMode selects which retrieval path a query takes.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalStandard runs similarity search only.
	RetrievalStandard RetrievalMode = "standard"

	// RetrievalPricing runs similarity search followed by the product-pricing matcher.
	RetrievalPricing RetrievalMode = "pricing"

	// RetrievalAuto picks pricing when the query looks like a product or price question.
	RetrievalAuto RetrievalMode = "auto"

	// RetrievalPricingSearch favours pricing-bearing chunks and keeps them
	// even below the similarity floor.
	RetrievalPricingSearch RetrievalMode = "pricing_search"
)

// IsValid returns true if the mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalStandard, RetrievalPricing, RetrievalAuto, RetrievalPricingSearch:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalStandard:
		return "Standard (similarity search)"
	case RetrievalPricing:
		return "Pricing (similarity + product/pricing cross-reference)"
	case RetrievalPricingSearch:
		return "Pricing search (similarity with pricing chunks favoured)"
	case RetrievalAuto:
		return "Auto (pricing for identifier queries)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an embedding or completion provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in local feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (built-in, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the index store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-v1",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hashing-v1": 512,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
