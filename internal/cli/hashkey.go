package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/service"
	"github.com/spf13/cobra"
)

// hashKeyCmd - INGEST_API_KEY_HASH에 넣을 bcrypt 해시 출력 (인자 또는 stdin)
var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the bcrypt hash of an ingest API key (for INGEST_API_KEY_HASH)",
	Long: `Print the bcrypt hash of an ingest API key. The key is read from the
argument, or from stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read key: %w", err)
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("key is empty")
		}

		hash, err := service.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
