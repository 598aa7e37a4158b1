package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/RareDx/internal/core"
)

// newClassifyCmd creates the classify command
func newClassifyCmd(opts *options) *cobra.Command {
	var output string
	var expandAll bool

	cmd := &cobra.Command{
		Use:   "classify IMAGE",
		Short: "Classify one medical image",
		Long: `Classify sends IMAGE to the classification service and prints the
ranked candidate conditions in the order the service returned them.

Only the first candidate is shown in full unless --expand-all is set.`,
		Example: `  # Classify a scan against the default service
  raredx classify ./scan.png

  # Every candidate in full, as YAML
  raredx classify ./scan.png --expand-all --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}

			cfg, client, logger, err := opts.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			raw, err := core.ReadImageFile(args[0], cfg.Upload.MaxFileSize)
			if err != nil {
				return err
			}

			orch := core.NewOrchestrator(client, core.NewMemoryPreviewStore(), core.WithLogger(logger))
			defer orch.Close()

			if err := orch.SelectFile(raw); err != nil {
				return err
			}

			outcome := orch.Submit(cmd.Context())
			if outcome.IsFailure() {
				return errors.New(outcome.Message)
			}

			results := orch.Results()
			if expandAll {
				expandAllCards(orch, results)
				results = orch.Results()
			}

			file, _ := orch.SelectedFile()
			report := newReport(file.Info(), results.Items())
			if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, yaml or json")
	cmd.Flags().BoolVar(&expandAll, "expand-all", false, "Show every candidate in full")

	return cmd
}

func expandAllCards(orch *core.Orchestrator, results *core.ResultsView) {
	for _, item := range results.Items() {
		if !item.Expanded {
			_ = orch.ToggleCard(item.Index)
		}
	}
}
