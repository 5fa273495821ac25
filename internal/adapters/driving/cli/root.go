// Package cli provides the docquery command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/metrics"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Persistent flags.
var (
	configPath  string
	verbose     bool
	storeFlag   string
	dataDirFlag string
	metricsAddr string
)

// Services used by commands. They are built on first use and replaced with
// doubles in tests.
var (
	appConfig        *file.Config
	appMetrics       *metrics.Metrics
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	answerService    driving.AnswerService
	closeServices    func()
)

// Command annotations that skip parts of setup.
const (
	annotationNoServices = "docquery/no-services"
	annotationNoConfig   = "docquery/no-config"
)

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Index documents and answer questions from them",
	Long: `docquery indexes PDF, Word, Excel, CSV, JSON, Markdown, HTML, XML and text
files into a local vector index, retrieves the chunks most relevant to a
query and assembles them into a token-budgeted context for a language model.

Product and pricing questions get special treatment: model numbers found in
the results are cross-referenced with price lists so both sides reach the
context together.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.docquery/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&storeFlag, "store", "", "index store backend: sqlite or memory")
	flags.StringVar(&dataDirFlag, "data-dir", "", "directory holding the index database")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and builds services unless the command opts out
// or services are already present.
func setup(cmd *cobra.Command, _ []string) error {
	if _, skip := cmd.Annotations[annotationNoConfig]; skip {
		return nil
	}
	if err := loadConfig(); err != nil {
		return err
	}

	logger.SetVerbose(verbose)
	if !verbose {
		if err := logger.SetLevel(appConfig.Log.Level); err != nil {
			return err
		}
	}

	if _, skip := cmd.Annotations[annotationNoServices]; skip {
		return nil
	}
	if ingestService != nil && retrievalService != nil {
		return nil
	}

	a, err := newApp(appConfig)
	if err != nil {
		return err
	}
	a.bind()

	if metricsAddr != "" {
		serveMetrics(cmd.Context(), metricsAddr, appMetrics)
	}
	return nil
}

func loadConfig() error {
	if appConfig != nil {
		return nil
	}

	cfg, err := file.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if storeFlag != "" {
		cfg.Storage.Backend = domain.StorageBackend(storeFlag)
	}
	if dataDirFlag != "" {
		cfg.Storage.DataDir = dataDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

func shutdown() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}
