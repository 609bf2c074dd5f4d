package cli

import (
	"context"
	"log"
	"os"

	"github.com/kube-rca/alert-analyzer/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the diagnostic tools over MCP (stdio)",
	Long: `Expose the read-only diagnostic tool catalog to other agents using the
Model Context Protocol over stdin/stdout. Logs are written to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		// stdout은 프로토콜 전용
		log.SetOutput(os.Stderr)

		cfg := loadConfig()
		res, err := openResources(ctx, cfg)
		if err != nil {
			return err
		}
		defer res.Close()

		registry, err := buildRegistry(cfg, res)
		if err != nil {
			return err
		}
		return mcpserver.New(registry, cfg.Pipeline.ToolTimeout).Run()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
