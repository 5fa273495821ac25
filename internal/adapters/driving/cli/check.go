package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/ai"
)

var checkCmd = &cobra.Command{
	Use:         "check",
	Short:       "Check connectivity to the configured AI providers",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	checks := ai.NewConfigValidator().ValidateAll(cmd.Context(), appConfig)

	failed := 0
	for _, c := range checks {
		switch {
		case c.Skipped:
			cmd.Printf("  %s %-10s %s\n", warningStyle.Render("-"), c.Service, mutedStyle.Render("not configured"))
		case c.Err != nil:
			failed++
			cmd.Printf("  %s %-10s %s: %v\n", errorStyle.Render("✗"), c.Service, c.Name, c.Err)
		default:
			cmd.Printf("  %s %-10s %s\n", successStyle.Render("✓"), c.Service, c.Name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d services unreachable", failed, len(checks))
	}
	return nil
}
