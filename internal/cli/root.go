// Package cli holds the raredx command tree: one-shot classification, the
// disease catalogue and the terminal UI, all against the same classifier
// configuration the web server uses.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/RareDx/internal/classifier"
	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/logging"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	classifierURL string
	logLevel      string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "raredx",
		Short: "Rare disease classification from medical images",
		Long: `RareDx sends a medical image to a zero-shot classification service and
shows the ranked candidate conditions.

Configuration comes from the environment (and a .env file if present), the
same variables the web server reads. Flags override them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.classifierURL, "classifier-url", "", "Classification service base URL (overrides CLASSIFIER_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr: debug, info, warn, error")

	cmd.AddCommand(newClassifyCmd(opts))
	cmd.AddCommand(newDiseasesCmd(opts))
	cmd.AddCommand(newTUICmd(opts))

	return cmd
}

// load reads the configuration and applies flag overrides before validation.
func (o *options) load() (*config.Config, error) {
	return config.LoadWith(func(cfg *config.Config) {
		if o.classifierURL != "" {
			cfg.Classifier.URL = o.classifierURL
		}
		if o.logLevel != "" {
			cfg.Logging.Level = o.logLevel
		}
	})
}

// client builds the classifier client and the logger it writes to.
func (o *options) client(logOut io.Writer) (*config.Config, *classifier.Client, *slog.Logger, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)

	client, err := classifier.New(cfg.Classifier, classifier.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("classifier: %w", err)
	}
	return cfg, client, logger, nil
}

// outputFormat is the --output flag value.
type outputFormat string

const (
	formatText outputFormat = "text"
	formatYAML outputFormat = "yaml"
	formatJSON outputFormat = "json"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatYAML, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
	}
}
