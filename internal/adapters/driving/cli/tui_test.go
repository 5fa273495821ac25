package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui"
	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
)

func stubProgram(t *testing.T) *[]*tui.App {
	t.Helper()
	var started []*tui.App
	old := runProgram
	runProgram = func(app *tui.App) error {
		started = append(started, app)
		return nil
	}
	t.Cleanup(func() { runProgram = old })
	return &started
}

func TestTUICmd(t *testing.T) {
	t.Run("starts on the menu", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()
		started := stubProgram(t)

		_, err := executeCommand("tui")

		require.NoError(t, err)
		require.Len(t, *started, 1)
		assert.Equal(t, messages.ViewMenu, (*started)[0].CurrentView())
	})

	t.Run("requires retrieval service", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()
		retrievalService = nil
		stubProgram(t)
		tuiCmd.SetContext(context.Background())

		err := runTUI(tuiCmd, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, tui.ErrMissingRetrievalService)
	})

	t.Run("rejects arguments", func(t *testing.T) {
		_, _, _, cleanup := setupTestServices()
		defer cleanup()
		stubProgram(t)

		_, err := executeCommand("tui", "extra")
		assert.Error(t, err)
	})
}
