package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDiseasesCmd creates the diseases command
func newDiseasesCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "diseases",
		Short: "List the conditions the classifier can recognise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}

			_, client, _, err := opts.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			diseases, err := client.Diseases(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch diseases: %w", err)
			}
			return writeDiseases(cmd.OutOrStdout(), format, diseases)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, yaml or json")

	return cmd
}
