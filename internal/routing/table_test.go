package routing

import (
	"strings"
	"testing"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

const testRouting = `
analysis:
  enabled: true
  allow: ["force-analyze"]
  deny: ["noisy-job"]
destinations:
  - id: critical
    url: https://hooks.example.com/critical
  - id: heartbeat
    url_env: TEST_HEARTBEAT_URL
  - id: ops
    kind: webhook
    url: https://ops.example.com/hook
    oauth2:
      token_url: https://auth.example.com/token
      client_id: analyzer
      client_secret_env: TEST_OPS_SECRET
rules:
  - name: big-budget
    category: budget_critical
    analyze: true
    destination: critical
  - name: lambda-errors
    category: metric_alarm
    when: namespace == "AWS/Lambda" && severity_hint == "error"
    analyze: true
    destination: ops
  - name: high-threshold
    category: "*"
    when: threshold >= 90
    analyze: true
    destination: critical
  - name: alarms
    category: metric_alarm
    analyze: false
    destination: heartbeat
default:
  analyze: true
  destination: heartbeat
`

func loadTestTable(t *testing.T) *Table {
	t.Helper()
	t.Setenv("TEST_HEARTBEAT_URL", "https://hooks.example.com/heartbeat")
	t.Setenv("TEST_OPS_SECRET", "s3cret")

	table, err := Load(strings.NewReader(testRouting))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return table
}

func classification(category model.Category, raw string, md model.Metadata) model.Classification {
	return model.Classification{
		Event:    model.AlertEvent{Source: model.SourceAlarm, RawPayload: []byte(raw)},
		Category: category,
		Metadata: md,
	}
}

func TestRoute(t *testing.T) {
	table := loadTestTable(t)

	tests := []struct {
		name        string
		cls         model.Classification
		wantRule    string
		wantAnalyze bool
		wantDest    string
	}{
		{
			name:        "category match",
			cls:         classification(model.CategoryBudgetCritical, `{}`, model.Metadata{"threshold": 120.0}),
			wantRule:    "big-budget",
			wantAnalyze: true,
			wantDest:    "critical",
		},
		{
			name: "predicate match",
			cls: classification(model.CategoryMetricAlarm, `{}`, model.Metadata{
				"namespace":     "AWS/Lambda",
				"severity_hint": "error",
			}),
			wantRule:    "lambda-errors",
			wantAnalyze: true,
			wantDest:    "ops",
		},
		{
			name:        "predicate false falls through",
			cls:         classification(model.CategoryMetricAlarm, `{}`, model.Metadata{"namespace": "AWS/EC2"}),
			wantRule:    "alarms",
			wantAnalyze: false,
			wantDest:    "heartbeat",
		},
		{
			name:        "wildcard category with numeric predicate",
			cls:         classification(model.CategoryBudgetWarning, `{}`, model.Metadata{"threshold": 95.0}),
			wantRule:    "high-threshold",
			wantAnalyze: true,
			wantDest:    "critical",
		},
		{
			name:        "predicate error means no match",
			cls:         classification(model.CategoryBudgetWarning, `{}`, model.Metadata{}),
			wantRule:    "default",
			wantAnalyze: true,
			wantDest:    "heartbeat",
		},
		{
			name:        "deny list disables analysis",
			cls:         classification(model.CategoryUnclassified, `{"job":"noisy-job"}`, nil),
			wantRule:    "default",
			wantAnalyze: false,
			wantDest:    "heartbeat",
		},
		{
			name:        "allow list wins over rule and deny",
			cls:         classification(model.CategoryMetricAlarm, `{"a":"force-analyze noisy-job"}`, nil),
			wantRule:    "alarms",
			wantAnalyze: true,
			wantDest:    "heartbeat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Route(tt.cls)
			if got.Rule != tt.wantRule {
				t.Fatalf("Rule = %q, want %q", got.Rule, tt.wantRule)
			}
			if got.Analyze != tt.wantAnalyze {
				t.Fatalf("Analyze = %v, want %v", got.Analyze, tt.wantAnalyze)
			}
			if got.Destination.ID != tt.wantDest {
				t.Fatalf("Destination = %q, want %q", got.Destination.ID, tt.wantDest)
			}
		})
	}
}

func TestDestinationResolve(t *testing.T) {
	table := loadTestTable(t)

	heartbeat, ok := table.Destination("heartbeat")
	if !ok {
		t.Fatalf("heartbeat destination missing")
	}
	if heartbeat.URL != "https://hooks.example.com/heartbeat" || heartbeat.Kind != model.DestinationSlack {
		t.Fatalf("heartbeat = %+v", heartbeat)
	}

	ops, _ := table.Destination("ops")
	if ops.Kind != model.DestinationWebhook {
		t.Fatalf("ops kind = %q", ops.Kind)
	}
	if ops.OAuth2 == nil || ops.OAuth2.ClientSecret != "s3cret" {
		t.Fatalf("ops oauth2 = %+v", ops.OAuth2)
	}
}

func TestAnalysisDisabled(t *testing.T) {
	table, err := LoadBytes([]byte(`
analysis:
  enabled: false
destinations:
  - id: a
    url: https://example.com
rules:
  - name: all
    analyze: true
    destination: a
default:
  destination: a
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	got := table.Route(classification(model.CategoryCustomError, `{}`, nil))
	if got.Rule != "all" || got.Analyze {
		t.Fatalf("Route() = %+v, want rule all without analysis", got)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown destination",
			yaml: "destinations: [{id: a, url: x}]\nrules: [{name: r, category: metric_alarm, destination: b}]\ndefault: {destination: a}",
			want: "unknown destination",
		},
		{
			name: "unknown category",
			yaml: "destinations: [{id: a, url: x}]\nrules: [{name: r, category: nope, destination: a}]\ndefault: {destination: a}",
			want: "unknown category",
		},
		{
			name: "bad expression",
			yaml: "destinations: [{id: a, url: x}]\nrules: [{name: r, when: 'threshold >>', destination: a}]\ndefault: {destination: a}",
			want: "invalid when expression",
		},
		{
			name: "duplicate destination",
			yaml: "destinations: [{id: a, url: x}, {id: a, url: y}]\ndefault: {destination: a}",
			want: "duplicate destination",
		},
		{
			name: "unknown field",
			yaml: "destinations: [{id: a, url: x}]\ndefault: {destination: a}\nextra: true",
			want: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatalf("Load() error = nil, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestDefaultTable(t *testing.T) {
	t.Setenv("SLACK_CRITICAL_WEBHOOK", "https://hooks.slack.com/critical")
	t.Setenv("SLACK_HEARTBEAT_WEBHOOK", "https://hooks.slack.com/heartbeat")

	table, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	tests := []struct {
		category    model.Category
		md          model.Metadata
		wantDest    string
		wantAnalyze bool
	}{
		{model.CategoryBudgetCritical, nil, "critical", true},
		{model.CategoryBudgetWarning, nil, "heartbeat", true},
		{model.CategoryMetricAlarm, model.Metadata{"severity_hint": "error"}, "critical", true},
		{model.CategoryMetricAlarm, model.Metadata{"severity_hint": "warning"}, "heartbeat", true},
		{model.CategoryCustomError, nil, "critical", true},
		{model.CategoryUnclassified, nil, "heartbeat", false},
	}

	for _, tt := range tests {
		got := table.Route(classification(tt.category, `{}`, tt.md))
		if got.Destination.ID != tt.wantDest || got.Analyze != tt.wantAnalyze {
			t.Errorf("%s: Route() = (%s, %v), want (%s, %v)",
				tt.category, got.Destination.ID, got.Analyze, tt.wantDest, tt.wantAnalyze)
		}
	}

	if d, _ := table.Destination("critical"); d.URL != "https://hooks.slack.com/critical" {
		t.Fatalf("critical URL = %q", d.URL)
	}
}
