package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/RareDx/internal/application"
	"github.com/JonMunkholm/RareDx/internal/core"
)

// newTUICmd creates the interactive terminal command
func newTUICmd(opts *options) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal interface",
		Long: `Open a full-screen terminal interface to pick an image, classify it and
browse the candidate cards.

Logs would corrupt the screen, so they are discarded unless --log-file is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}

			cfg, client, logger, err := opts.client(logOut)
			if err != nil {
				return err
			}

			orch := core.NewOrchestrator(client, core.NewMemoryPreviewStore(), core.WithLogger(logger))
			defer orch.Close()

			return application.Run(cmd.Context(), application.Deps{
				Orchestrator: orch,
				Catalog:      client,
				Health:       client,
				MaxFileSize:  cfg.Upload.MaxFileSize,
			})
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file")

	return cmd
}
