package tool

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"
)

const maxMetricSeries = 10

// RangeQuerier - promv1.API 중 range query만 사용
type RangeQuerier interface {
	QueryRange(ctx context.Context, query string, r promv1.Range, opts ...promv1.Option) (prommodel.Value, promv1.Warnings, error)
}

// MetricHistory - CloudWatch exporter가 수집한 메트릭 이력 (Prometheus range query)
type MetricHistory struct {
	api RangeQuerier
	now func() time.Time
}

func NewMetricHistory(api RangeQuerier) *MetricHistory {
	return &MetricHistory{api: api, now: time.Now}
}

func (t *MetricHistory) Name() string { return NameMetricHistory }

func (t *MetricHistory) Spec() Spec {
	return Spec{
		Name:        NameMetricHistory,
		Description: "History of the alarm metric from Prometheus (min, max, avg, last per series)",
		Params: []Param{
			{Name: "namespace", Type: ParamString, Description: "CloudWatch namespace, e.g. AWS/Lambda", Required: true},
			{Name: "metric_name", Type: ParamString, Description: "CloudWatch metric name, e.g. Errors", Required: true},
			{Name: "hours", Type: ParamNumber, Description: "Hours of history (default 6, max 72)"},
		},
	}
}

func (t *MetricHistory) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	if t.api == nil {
		return nil, fmt.Errorf("prometheus not configured: %w", ErrUnavailable)
	}
	namespace, err := args.RequireString("namespace")
	if err != nil {
		return nil, err
	}
	metric, err := args.RequireString("metric_name")
	if err != nil {
		return nil, err
	}
	hours := args.Int("hours", 6, 1, 72)

	query := ExporterMetricName(namespace, metric)
	end := t.now()
	r := promv1.Range{
		Start: end.Add(-time.Duration(hours) * time.Hour),
		End:   end,
		Step:  stepFor(hours),
	}

	value, warnings, err := t.api.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus query %s: %w", query, err)
	}

	matrix, ok := value.(prommodel.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", value)
	}

	series := make([]map[string]any, 0, len(matrix))
	for i, stream := range matrix {
		if i >= maxMetricSeries {
			break
		}
		series = append(series, summarizeStream(stream))
	}

	out := map[string]any{
		"query":        query,
		"hours":        hours,
		"series":       series,
		"series_count": len(matrix),
		"truncated":    len(matrix) > maxMetricSeries,
	}
	if len(warnings) > 0 {
		out["warnings"] = []string(warnings)
	}
	return out, nil
}

func summarizeStream(stream *prommodel.SampleStream) map[string]any {
	labels := make(map[string]string, len(stream.Metric))
	for k, v := range stream.Metric {
		if k == prommodel.MetricNameLabel {
			continue
		}
		labels[string(k)] = string(v)
	}

	summary := map[string]any{
		"labels": labels,
		"points": len(stream.Values),
	}
	if len(stream.Values) == 0 {
		return summary
	}

	minV, maxV, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, p := range stream.Values {
		v := float64(p.Value)
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
		sum += v
	}
	last := stream.Values[len(stream.Values)-1]

	summary["min"] = round2(minV)
	summary["max"] = round2(maxV)
	summary["avg"] = round2(sum / float64(len(stream.Values)))
	summary["last"] = round2(float64(last.Value))
	summary["last_at"] = last.Timestamp.Time().UTC().Format(time.RFC3339)
	return summary
}

// ExporterMetricName - CloudWatch namespace/metric -> exporter 메트릭 이름
// 예: AWS/Lambda, Errors -> aws_lambda_errors_sum
func ExporterMetricName(namespace, metric string) string {
	ns := strings.ToLower(strings.ReplaceAll(namespace, "/", "_"))
	return ns + "_" + snakeCase(metric) + "_sum"
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' || r == '.' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// 포인트 수를 대략 120개 이하로 유지
func stepFor(hours int) time.Duration {
	step := time.Duration(hours) * time.Hour / 120
	if step < time.Minute {
		return time.Minute
	}
	return step.Round(time.Minute)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
