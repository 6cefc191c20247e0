package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

func scoreCmd(opts *options) *cobra.Command {
	var digestOnly bool
	cmd := &cobra.Command{
		Use:   "score <file|->",
		Short: "Score one submission and print the result JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := opts.loadRules()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read submission: %w", err)
			}

			in, err := assessment.ParseInput(raw)
			if err != nil {
				return err
			}
			if err := in.Validate(); err != nil {
				return err
			}
			res, err := assessment.Run(rs, in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if digestOnly {
				fmt.Fprintln(out, res.Digest())
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&digestOnly, "digest", false, "print only the result digest")
	return cmd
}
