package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

var (
	askOpts      searchFlags
	askMode      string
	askMaxTokens int
	askSources   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the most relevant chunks, assembles them into a context and asks the
configured language model to answer strictly from it.

Without a question, starts an interactive session that keeps the recent
conversation as history. Type "exit" or press Ctrl-D to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askOpts.register(askCmd)
	askCmd.Flags().StringVar(&askMode, "mode", string(domain.RetrievalAuto), "retrieval mode: standard, pricing, pricing_search or auto")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "context budget in tokens (default from config)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the chunks the answer was built from")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	mode := domain.RetrievalMode(askMode)
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, askMode)
	}
	search, err := askOpts.options(cmd)
	if err != nil {
		return err
	}
	opts := driving.AskOptions{
		Retrieve: driving.RetrieveOptions{Search: search, MaxTokens: askMaxTokens, Mode: mode},
	}

	if len(args) == 1 {
		answer, err := answerService.Ask(cmd.Context(), args[0], opts)
		if err != nil {
			return askError(err)
		}
		printAnswer(cmd, answer)
		return nil
	}
	return askInteractive(cmd, opts)
}

// askInteractive reads questions line by line and keeps the history.
func askInteractive(cmd *cobra.Command, opts driving.AskOptions) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		cmd.Println(titleStyle.Render("docquery") + mutedStyle.Render(" - ask about your documents, \"exit\" to quit"))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			cmd.Print("\n> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := answerService.Ask(cmd.Context(), question, opts)
		if err != nil {
			if errors.Is(err, domain.ErrLLMUnavailable) {
				return askError(err)
			}
			cmd.PrintErrln(errorStyle.Render("Error: " + err.Error()))
			continue
		}
		printAnswer(cmd, answer)

		opts.History = append(opts.History,
			domain.ChatTurn{Role: domain.RoleUser, Content: question},
			domain.ChatTurn{Role: domain.RoleAssistant, Content: answer.Response},
		)
	}
}

func askError(err error) error {
	if errors.Is(err, domain.ErrLLMUnavailable) {
		return fmt.Errorf("%w: configure [llm] in the config file or set OPENAI_API_KEY", err)
	}
	return fmt.Errorf("ask failed: %w", err)
}

func printAnswer(cmd *cobra.Command, a *domain.Answer) {
	cmd.Println(boxStyle.Render(a.Response))

	files := "none"
	if len(a.FilesUsed) > 0 {
		files = strings.Join(a.FilesUsed, ", ")
	}
	cmd.Println(mutedStyle.Render(fmt.Sprintf(
		"Files: %s | %d chunks searched, %d files analysed, avg similarity %.2f | %s, %d tokens in %s",
		files, a.ChunksSearched, a.FilesAnalyzed, a.AverageSimilarity,
		a.Model, a.Usage.TotalTokens, a.ResponseTime.Round(time.Millisecond))))

	if askSources {
		printResults(cmd, a.Results)
	}
}
