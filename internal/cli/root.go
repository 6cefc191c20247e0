// Package cli implements the blueprint operator command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

// Execute runs the root command against os.Args. An interrupt cancels the
// command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRoot().ExecuteContext(ctx)
}

// options are the persistent flags shared by every subcommand.
type options struct {
	rulesPath string
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "blueprint",
		Short:         "Score questionnaire submissions and manage rule tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", os.Getenv("RULES_PATH"),
		"rule table YAML (default: embedded table)")

	root.AddCommand(
		scoreCmd(opts),
		rulesCmd(opts),
		batchCmd(opts),
		regressCmd(opts),
		mcpCmd(opts),
	)
	return root
}

func (o *options) loadRules() (*ruleset.Ruleset, error) {
	rs, err := ruleset.Open(o.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rs, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
