package domain

import "time"

// ChatRole is the speaker of a conversation turn.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message of the conversation history.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// TokenUsage is reported by the completion service and passed through.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the generated prose with its metadata.
type Completion struct {
	Text  string
	Model string
	Usage TokenUsage
}

// Answer is the result of a question answered from the index.
type Answer struct {
	// Response is the completion text, unaltered.
	Response string

	Model string
	Usage TokenUsage

	// Context is the blob the answer was generated from.
	Context ContextBlob

	// Results are the ranked results the context was built from.
	Results []SearchResult

	// FilesUsed are the filenames of documents present in the context.
	FilesUsed []string

	// FilesAnalyzed is the number of distinct documents among the results.
	FilesAnalyzed int

	// ChunksSearched is the number of chunks scored.
	ChunksSearched int

	// AverageSimilarity is the mean score of the included results.
	AverageSimilarity float64

	// Intent is the detected intent of the query.
	Intent QueryIntent

	// RetrievalTime and CompletionTime are wall-clock durations.
	RetrievalTime  time.Duration
	CompletionTime time.Duration
	ResponseTime   time.Duration
}
