package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

func rulesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rule tables",
	}
	cmd.AddCommand(rulesValidateCmd(opts), rulesDumpCmd(opts))
	return cmd
}

func rulesValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Load and validate a rule table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.rulesPath
			if len(args) == 1 {
				path = args[0]
			}
			rs, err := ruleset.Open(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok\tversion=%s\tfingerprint=%s\tcomposites=%d\tquestions=%d\tflags=%d\n",
				rs.Version, rs.Fingerprint(), len(rs.Composites), len(rs.Questions), len(rs.Flags))
			return nil
		},
	}
}

func rulesDumpCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the loaded rule table with scales resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := opts.loadRules()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rs)
			}
			return rs.WriteYAML(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}
