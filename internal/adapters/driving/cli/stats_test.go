package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func testStats() *domain.IndexStats {
	return &domain.IndexStats{
		Documents:       3,
		Indexed:         2,
		Failed:          1,
		Chunks:          40,
		EmbeddedChunks:  38,
		EstimatedTokens: 5200,
		ByFileType:      map[domain.FileType]int{domain.FileTypePDF: 2, domain.FileTypeCSV: 1},
		IndexingRate:    66.7,
		Recent:          testDocuments()[:1],
		Dimensions:      256,
	}
}

func TestStatsCmd(t *testing.T) {
	t.Run("prints statistics", func(t *testing.T) {
		ingest, _, _, cleanup := setupTestServices()
		defer cleanup()
		ingest.stats = testStats()

		out, err := executeCommand("stats")

		require.NoError(t, err)
		assert.Contains(t, out, "Index statistics")
		assert.Contains(t, out, "3 (2 indexed, 1 failed, 0 pending)")
		assert.Contains(t, out, "66.7%")
		assert.Contains(t, out, "40 (38 embedded)")
		assert.Contains(t, out, "Dimensions:  256")
		assert.Contains(t, out, "csv    1")
		assert.Contains(t, out, "pdf    2")
		assert.Contains(t, out, "manual.pdf")
	})

	t.Run("empty index", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()

		out, err := executeCommand("stats")

		require.NoError(t, err)
		assert.Contains(t, out, "0 (0 indexed, 0 failed, 0 pending)")
		assert.NotContains(t, out, "Dimensions")
		assert.NotContains(t, out, "By type")
	})

	t.Run("json", func(t *testing.T) {
		ingest, _, _, cleanup := setupTestServices()
		defer cleanup()
		ingest.stats = testStats()

		out, err := executeCommand("stats", "--json")

		require.NoError(t, err)
		assert.Contains(t, out, `"embedded_chunks": 38`)
		assert.Contains(t, out, `"pdf": 2`)
		assert.Contains(t, out, `"doc-1"`)
	})

	t.Run("service error", func(t *testing.T) {
		ingest, _, _, cleanup := setupTestServices()
		defer cleanup()
		ingest.err = errMock

		_, err := executeCommand("stats")

		assert.ErrorIs(t, err, errMock)
	})
}
