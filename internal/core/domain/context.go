package domain

// ContextBlob is the token-budgeted text handed to the completion service.
type ContextBlob struct {
	// Text is the assembled context.
	Text string

	// Tokens is the estimated token count of Text.
	Tokens int

	// MaxTokens is the budget the blob was assembled under.
	MaxTokens int

	// Sections lists documents in layout order.
	Sections []ContextSection

	// Included is the number of chunks placed in the blob.
	Included int

	// Omitted is the number of results left out by the budget.
	Omitted int
}

// ContextSection is one document's group within a context blob.
type ContextSection struct {
	DocumentID string
	Filename   string
	ChunkIDs   []string
	Scores     []float64
}

// ChunkIDs returns every included chunk ID in layout order.
func (b *ContextBlob) ChunkIDs() []string {
	var ids []string
	for _, s := range b.Sections {
		ids = append(ids, s.ChunkIDs...)
	}
	return ids
}

// DocumentIDs returns the included document IDs in layout order.
func (b *ContextBlob) DocumentIDs() []string {
	ids := make([]string, 0, len(b.Sections))
	for _, s := range b.Sections {
		ids = append(ids, s.DocumentID)
	}
	return ids
}
