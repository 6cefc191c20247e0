package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nyashahama/vitality-blueprint-backend/internal/mcptool"
)

func mcpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve score_assessment and describe_rules over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := opts.loadRules()
			if err != nil {
				return err
			}
			return server.ServeStdio(mcptool.NewServer(rs))
		},
	}
}
