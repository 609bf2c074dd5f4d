// alert-analyzer 명령 (serve, replay, classify, tools, mcp, hash-key)
package cli

import (
	"github.com/spf13/cobra"
)

var routingPath string

var rootCmd = &cobra.Command{
	Use:   "alert-analyzer",
	Short: "Infrastructure alert analysis and notification",
	Long: `alert-analyzer receives infrastructure events (budget notifications,
metric alarms, custom error events), classifies them, gathers read-only
diagnostic context, asks a language model for a root-cause analysis and
delivers a formatted notification.

Examples:
  # Run the HTTP (and optional Kafka) ingress
  alert-analyzer serve

  # Process saved events once
  alert-analyzer replay events/*.json

  # Show how an event would be classified and routed
  alert-analyzer classify event.json`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute - root 명령 실행
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&routingPath, "routing", "", "routing config file (overrides ROUTING_CONFIG)")
}
