package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/routing"
	"github.com/kube-rca/alert-analyzer/internal/service"
	"github.com/kube-rca/alert-analyzer/internal/tool"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Show classification, routing and tool selection for an event",
	Long: `Normalize and classify an event payload without calling any tool,
model or destination. Prints the classification, the routing decision and
the diagnostic tools that would be invoked.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

// classifyReport - classify 명령 출력
type classifyReport struct {
	Classification model.Classification `json:"classification"`
	Title          string               `json:"title"`
	DedupeKey      string               `json:"dedupe_key"`
	Route          routeReport          `json:"route"`
	Tools          []toolCallReport     `json:"tools"`
}

type routeReport struct {
	Rule        string `json:"rule"`
	Destination string `json:"destination"`
	Analyze     bool   `json:"analyze"`
}

type toolCallReport struct {
	Tool  string    `json:"tool"`
	Args  tool.Args `json:"args,omitempty"`
	Error string    `json:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	report, err := classifyPayload(raw, loadConfig().Pipeline.RoutingConfigPath, time.Now().UTC())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func classifyPayload(raw []byte, routingConfig string, receivedAt time.Time) (classifyReport, error) {
	event, err := service.Normalize(raw, receivedAt)
	if err != nil {
		return classifyReport{}, err
	}
	table, err := routing.LoadOrDefault(routingConfig)
	if err != nil {
		return classifyReport{}, fmt.Errorf("failed to load routing config: %w", err)
	}

	cls := service.NewClassifier(service.DefaultClassificationRules()...).Classify(event)
	decision := table.Route(cls)

	report := classifyReport{
		Classification: cls,
		Title:          service.Title(cls),
		DedupeKey:      model.DedupeKey(event),
		Route: routeReport{
			Rule:        decision.Rule,
			Destination: decision.Destination.ID,
			Analyze:     decision.Analyze,
		},
	}
	for _, call := range tool.DefaultSelection().For(cls.Category) {
		entry := toolCallReport{Tool: call.Tool}
		bound, err := call.Bind(cls.Metadata)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Args = bound
		}
		report.Tools = append(report.Tools, entry)
	}
	return report, nil
}
