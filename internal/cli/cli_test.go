package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/tool"
	"golang.org/x/crypto/bcrypt"
)

func TestClassifyPayload(t *testing.T) {
	raw := []byte(`{"detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`)

	report, err := classifyPayload(raw, "", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("classifyPayload() error = %v", err)
	}

	if report.Classification.Category != model.CategoryBudgetWarning {
		t.Fatalf("category = %s", report.Classification.Category)
	}
	if report.Route.Rule != "budget-warning" || report.Route.Destination != "heartbeat" || !report.Route.Analyze {
		t.Fatalf("route = %+v", report.Route)
	}
	if len(report.Tools) != 6 || report.Tools[0].Tool != tool.NameBudgetStatus {
		t.Fatalf("tools = %+v", report.Tools)
	}
	last := report.Tools[len(report.Tools)-1]
	if last.Tool != tool.NameSimilarIncidents || last.Args.String("query") != "Monthly" {
		t.Fatalf("similar_incidents call = %+v", last)
	}
}

func TestClassifyPayloadMissingInput(t *testing.T) {
	raw := []byte(`{"AlarmName":"api-latency","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/ApiGateway","MetricName":"Latency"}}`)

	report, err := classifyPayload(raw, "", time.Now())
	if err != nil {
		t.Fatalf("classifyPayload() error = %v", err)
	}
	var lambdaCall *toolCallReport
	for i := range report.Tools {
		if report.Tools[i].Tool == tool.NameLambdaMetrics {
			lambdaCall = &report.Tools[i]
		}
	}
	if lambdaCall == nil || lambdaCall.Error == "" {
		t.Fatalf("lambda metrics call should report missing function_name: %+v", report.Tools)
	}
}

func TestClassifyPayloadRejects(t *testing.T) {
	if _, err := classifyPayload([]byte(`{"foo":"bar"}`), "", time.Now()); err == nil {
		t.Fatalf("expected unsupported shape error")
	}
}

func TestHashKeyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("s3cret\n"))
	rootCmd.SetArgs([]string{"hash-key"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not match key: %v", err)
	}
}

func TestPrintTools(t *testing.T) {
	registry, err := buildRegistry(loadConfig(), &resources{})
	if err != nil {
		t.Fatalf("buildRegistry() error = %v", err)
	}

	var out bytes.Buffer
	toolsCmd.SetOut(&out)
	t.Cleanup(func() { toolsCmd.SetOut(nil) })

	if err := printTools(toolsCmd, registry.Specs()); err != nil {
		t.Fatalf("printTools() error = %v", err)
	}
	for _, name := range []string{tool.NameBudgetStatus, tool.NameMetricHistory, tool.NameSimilarIncidents} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("tool %s not listed:\n%s", name, out.String())
		}
	}
}

func TestBuildAppRejectsStageBudgets(t *testing.T) {
	cfg := loadConfig()
	cfg.Pipeline.Timeout = 30 * time.Second
	cfg.Pipeline.ToolTimeout = 15 * time.Second
	cfg.Model.Timeout = 30 * time.Second
	cfg.Delivery.Timeout = 10 * time.Second

	_, err := buildApp(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "stage budgets exceed") {
		t.Fatalf("buildApp() error = %v, want stage budget rejection", err)
	}
}
