package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file...]",
	Short: "Run saved event payloads through the full pipeline",
	Long: `Run each file through the same pipeline as the HTTP ingress and print
the outcome as JSON. Events are delivered to their routed destinations;
already delivered dedupe keys are skipped when a database ledger is configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

// runReplay - 저장된 페이로드 파일을 파이프라인으로 다시 처리
func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	failed := 0
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		outcome := a.pipeline.Process(ctx, raw)
		if outcome.State != model.StateDelivered {
			failed++
		}
		if err := enc.Encode(map[string]any{"file": path, "outcome": model.NewEventResponse(outcome)}); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d events not delivered", failed, len(args))
	}
	return nil
}
