package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

var testReceivedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func mustNormalize(t *testing.T, raw string) model.AlertEvent {
	t.Helper()
	event, err := Normalize([]byte(raw), testReceivedAt)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return event
}

func TestNormalizeShapes(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		source model.EventSource
	}{
		{
			name:   "budget notification",
			raw:    `{"detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
			source: model.SourceBudget,
		},
		{
			name:   "metric alarm",
			raw:    `{"AlarmName":"X","Trigger":{"Namespace":"AWS/Lambda"}}`,
			source: model.SourceAlarm,
		},
		{
			name:   "custom event",
			raw:    `{"detail-type":"EMR Cluster State Change","source":"aws.emr","detail":{"state":"TERMINATED_WITH_ERRORS"}}`,
			source: model.SourceCustom,
		},
		{
			name:   "sns lambda envelope",
			raw:    `{"Records":[{"Sns":{"Message":"{\"AlarmName\":\"api-errors\",\"NewStateValue\":\"ALARM\"}"}}]}`,
			source: model.SourceAlarm,
		},
		{
			name:   "sns http notification",
			raw:    `{"Type":"Notification","Message":"{\"detail-type\":\"AWS Budget Notification\",\"detail\":{\"budgetName\":\"Monthly\"}}"}`,
			source: model.SourceBudget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := mustNormalize(t, tt.raw)
			if event.Source != tt.source {
				t.Fatalf("source = %q, want %q", event.Source, tt.source)
			}
			if !event.ReceivedAt.Equal(testReceivedAt) {
				t.Fatalf("received_at = %v, want %v", event.ReceivedAt, testReceivedAt)
			}
			if len(event.RawPayload) == 0 {
				t.Fatalf("raw payload not kept")
			}
		})
	}
}

func TestNormalizeBudgetNumbers(t *testing.T) {
	event := mustNormalize(t, `{"detail-type":"AWS Budget Notification","detail":{"budgetName":" Monthly ","thresholdPercentage":"85%","actualSpend":"n/a"}}`)

	d := event.Budget.Detail
	if d.BudgetName != "Monthly" {
		t.Fatalf("budget name = %q", d.BudgetName)
	}
	if d.ThresholdPercentage == nil || *d.ThresholdPercentage != 85 {
		t.Fatalf("threshold = %v, want 85", d.ThresholdPercentage)
	}
	if d.ActualSpend != nil {
		t.Fatalf("unparseable actualSpend should be absent, got %v", *d.ActualSpend)
	}
}

func TestNormalizeRejectsUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "scenario C unrecognized object", raw: `{"foo":"bar"}`},
		{name: "empty", raw: ``},
		{name: "array", raw: `[1,2,3]`},
		{name: "not json", raw: `alarm fired`},
		{name: "custom detail not object", raw: `{"detail-type":"Job Failed","detail":"boom"}`},
		{name: "empty alarm name", raw: `{"AlarmName":"","Trigger":{}}`},
		{name: "nested too deep", raw: `{"Type":"Notification","Message":"{\"Type\":\"Notification\",\"Message\":\"{\\\"Type\\\":\\\"Notification\\\",\\\"Message\\\":\\\"{}\\\"}\"}"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.raw), testReceivedAt)
			if !errors.Is(err, model.ErrUnsupportedEventShape) {
				t.Fatalf("Normalize() error = %v, want ErrUnsupportedEventShape", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name      string
		raw       string
		category  model.Category
		rule      string
		metadata  map[string]any
		ambiguous []string
	}{
		{
			name:     "scenario A budget warning",
			raw:      `{"detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
			category: model.CategoryBudgetWarning,
			rule:     "budget-notification-warning",
			metadata: map[string]any{"budget_name": "Monthly", "threshold": 85.0},
		},
		{
			name:     "budget critical",
			raw:      `{"detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":100,"actualSpend":1020.5}}`,
			category: model.CategoryBudgetCritical,
			rule:     "budget-notification-critical",
			metadata: map[string]any{"threshold": 100.0, "actual_spend": 1020.5},
		},
		{
			name:     "scenario B metric alarm",
			raw:      `{"AlarmName":"X","Trigger":{"Namespace":"AWS/Lambda"}}`,
			category: model.CategoryMetricAlarm,
			rule:     "metric-alarm",
			metadata: map[string]any{"alarm_name": "X", "namespace": "AWS/Lambda", "severity_hint": "warning"},
		},
		{
			name:     "lambda alarm derives function and log group",
			raw:      `{"AlarmName":"checkout-api-errors","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/Lambda","MetricName":"Errors"}}`,
			category: model.CategoryMetricAlarm,
			rule:     "metric-alarm",
			metadata: map[string]any{
				"function_name": "checkout-api",
				"log_group":     "/aws/lambda/checkout-api",
				"severity_hint": "error",
				"metric_name":   "Errors",
			},
		},
		{
			name:     "function name from dimension",
			raw:      `{"AlarmName":"slow","Trigger":{"Namespace":"AWS/Lambda","Dimensions":[{"name":"FunctionName","value":"worker"}]}}`,
			category: model.CategoryMetricAlarm,
			rule:     "metric-alarm",
			metadata: map[string]any{"function_name": "worker", "log_group": "/aws/lambda/worker"},
		},
		{
			name:      "budget alarm is flagged as ambiguous",
			raw:       `{"AlarmName":"budget-85%-monthly","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/Billing"}}`,
			category:  model.CategoryBudgetWarning,
			rule:      "budget-alarm-warning",
			metadata:  map[string]any{"threshold": 85.0, "budget_name": "budget-85%-monthly"},
			ambiguous: []string{"metric-alarm"},
		},
		{
			name:      "budget alarm over limit is critical",
			raw:       `{"AlarmName":"budget-100%","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/Billing"}}`,
			category:  model.CategoryBudgetCritical,
			rule:      "budget-alarm-critical",
			metadata:  map[string]any{"threshold": 100.0},
			ambiguous: []string{"budget-alarm-warning", "metric-alarm"},
		},
		{
			name:     "budget alarm below 80 falls through",
			raw:      `{"AlarmName":"budget-50%","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/Billing"}}`,
			category: model.CategoryMetricAlarm,
			rule:     "metric-alarm",
		},
		{
			name:     "custom failure",
			raw:      `{"detail-type":"EMR Cluster State Change","source":"aws.emr","detail":{"state":"TERMINATED_WITH_ERRORS","clusterId":"j-123"}}`,
			category: model.CategoryCustomError,
			rule:     "custom-error",
			metadata: map[string]any{"cluster_id": "j-123", "state": "TERMINATED_WITH_ERRORS", "event_source": "aws.emr"},
		},
		{
			name:     "custom success is unclassified",
			raw:      `{"detail-type":"EMR Cluster State Change","detail":{"state":"RUNNING"}}`,
			category: model.CategoryUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := classifier.Classify(mustNormalize(t, tt.raw))
			if cls.Category != tt.category {
				t.Fatalf("category = %q, want %q", cls.Category, tt.category)
			}
			if cls.Rule != tt.rule {
				t.Fatalf("rule = %q, want %q", cls.Rule, tt.rule)
			}
			for key, want := range tt.metadata {
				if got := cls.Metadata[key]; got != want {
					t.Fatalf("metadata[%q] = %#v, want %#v", key, got, want)
				}
			}
			if !reflect.DeepEqual(cls.Ambiguous, tt.ambiguous) {
				t.Fatalf("ambiguous = %v, want %v", cls.Ambiguous, tt.ambiguous)
			}
		})
	}
}

func TestClassifyFallbackKeepsRawPayload(t *testing.T) {
	raw := `{"detail-type":"Job State Change","detail":{"state":"SUCCEEDED"}}`
	cls := NewClassifier().Classify(mustNormalize(t, raw))

	if cls.Category != model.CategoryUnclassified || cls.Confidence != model.ConfidenceFallback {
		t.Fatalf("got %q/%q, want unclassified/fallback", cls.Category, cls.Confidence)
	}
	if cls.Metadata["raw"] != raw {
		t.Fatalf("raw metadata = %v", cls.Metadata["raw"])
	}
}

func TestClassifyMissingFieldsAreAbsent(t *testing.T) {
	cls := NewClassifier().Classify(mustNormalize(t, `{"detail-type":"AWS Budget Notification","detail":{}}`))

	if cls.Category != model.CategoryBudgetWarning {
		t.Fatalf("category = %q", cls.Category)
	}
	for _, key := range []string{"budget_name", "threshold", "actual_spend", "forecasted_spend"} {
		if _, ok := cls.Metadata[key]; ok {
			t.Fatalf("metadata[%q] should be absent", key)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	payloads := []string{
		`{"detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
		`{"AlarmName":"checkout-api-errors","NewStateValue":"ALARM","Trigger":{"Namespace":"AWS/Lambda"}}`,
		`{"detail-type":"Glue Job State Change","detail":{"state":"FAILED","errorMessage":"oom"}}`,
	}
	classifier := NewClassifier()

	for _, raw := range payloads {
		first := classifier.Classify(mustNormalize(t, raw))
		for i := 0; i < 5; i++ {
			next := classifier.Classify(mustNormalize(t, raw))
			if !reflect.DeepEqual(first, next) {
				t.Fatalf("classification differs for %s:\n%#v\n%#v", raw, first, next)
			}
			if model.DedupeKey(first.Event) != model.DedupeKey(next.Event) {
				t.Fatalf("dedupe key differs for %s", raw)
			}
		}
	}
}

func TestDedupeKeyIgnoresReceivedAt(t *testing.T) {
	raw := []byte(`{"AlarmName":"X","NewStateValue":"ALARM","StateChangeTime":"2026-03-01T09:00:00Z"}`)
	a, _ := Normalize(raw, testReceivedAt)
	b, _ := Normalize(raw, testReceivedAt.Add(time.Hour))
	if model.DedupeKey(a) != model.DedupeKey(b) {
		t.Fatalf("dedupe key depends on receive time")
	}

	other, _ := Normalize([]byte(`{"AlarmName":"Y","NewStateValue":"ALARM","StateChangeTime":"2026-03-01T09:00:00Z"}`), testReceivedAt)
	if model.DedupeKey(a) == model.DedupeKey(other) {
		t.Fatalf("different alarms share a dedupe key")
	}
}

func TestDedupeKeyDistinguishesOccurrences(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		wantEqual bool
	}{
		{
			name:      "budget events with different id",
			a:         `{"id":"evt-1","time":"2026-03-01T00:00:00Z","detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
			b:         `{"id":"evt-2","time":"2026-04-01T00:00:00Z","detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
			wantEqual: false,
		},
		{
			name:      "budget redelivery with same id",
			a:         `{"id":"evt-1","time":"2026-03-01T00:00:00Z","detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85}}`,
			b:         `{"id":"evt-1","time":"2026-03-01T00:00:00Z","detail-type":"AWS Budget Notification","detail":{"budgetName":"Monthly","thresholdPercentage":85,"actualSpend":"851"}}`,
			wantEqual: true,
		},
		{
			name:      "alarms without state change time use sns message id",
			a:         `{"Type":"Notification","MessageId":"m-1","Message":"{\"AlarmName\":\"X\",\"NewStateValue\":\"ALARM\"}"}`,
			b:         `{"Type":"Notification","MessageId":"m-2","Message":"{\"AlarmName\":\"X\",\"NewStateValue\":\"ALARM\"}"}`,
			wantEqual: false,
		},
		{
			name:      "sns retry of the same alarm",
			a:         `{"Type":"Notification","MessageId":"m-1","Message":"{\"AlarmName\":\"X\",\"NewStateValue\":\"ALARM\"}"}`,
			b:         `{"Records":[{"Sns":{"MessageId":"m-1","Message":"{\"AlarmName\":\"X\",\"NewStateValue\":\"ALARM\"}"}}]}`,
			wantEqual: true,
		},
		{
			name:      "bare alarms fall back to payload",
			a:         `{"AlarmName":"X","NewStateValue":"ALARM","NewStateReason":"5 errors"}`,
			b:         `{"AlarmName":"X","NewStateValue":"ALARM","NewStateReason":"9 errors"}`,
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := model.DedupeKey(mustNormalize(t, tt.a))
			b := model.DedupeKey(mustNormalize(t, tt.b))
			if (a == b) != tt.wantEqual {
				t.Fatalf("keys %q and %q: equal=%t, want %t", a, b, a == b, tt.wantEqual)
			}
		})
	}
}
