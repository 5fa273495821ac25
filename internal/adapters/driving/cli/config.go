package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective configuration",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: ""},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the default configuration to --config or ~/.docquery/config.toml.
A path ending in .yaml or .yml is written as YAML.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: ""},
	RunE:        runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "output format: toml or yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	// Keys are not echoed.
	cfg := *appConfig
	if cfg.Embedding.APIKey != "" {
		cfg.Embedding.APIKey = "********"
	}
	if cfg.LLM.APIKey != "" {
		cfg.LLM.APIKey = "********"
	}

	var (
		data []byte
		err  error
	)
	switch configFormat {
	case "toml":
		data, err = toml.Marshal(&cfg)
	case "yaml", "yml":
		data, err = yaml.Marshal(&cfg)
	default:
		return fmt.Errorf("unknown format %q", configFormat)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = file.DefaultPath(); err != nil {
			return err
		}
	}

	if !configForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := file.Save(path, file.Default()); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}
