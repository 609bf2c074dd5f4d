package tool

import (
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// Binding - 도구 인자 바인딩 (고정값 또는 분류 metadata 키)
type Binding struct {
	literal any
	key     string
}

// Lit - 고정값 바인딩
func Lit(v any) Binding {
	return Binding{literal: v}
}

// From - metadata 키 바인딩 (키가 없으면 missing_input)
func From(key string) Binding {
	return Binding{key: key}
}

// Call - 선택 정책의 도구 호출 1건
type Call struct {
	Tool string
	Args map[string]Binding
}

// Bind - metadata에서 인자를 채움
// From 바인딩 키가 metadata에 없으면 ErrMissingInput 반환 (도구는 호출하지 않음)
func (c Call) Bind(md model.Metadata) (Args, error) {
	args := make(Args, len(c.Args))
	for name, b := range c.Args {
		if b.key == "" {
			args[name] = b.literal
			continue
		}
		v, ok := md[b.key]
		if !ok || v == nil || v == "" {
			return args, fmt.Errorf("%s (metadata %s): %w", name, b.key, model.ErrMissingInput)
		}
		args[name] = v
	}
	return args, nil
}

// SelectionTable - 분류별 실행할 도구 목록
// 목록 순서가 우선순위 (프롬프트 크기 제한 시 뒤에서부터 생략)
type SelectionTable map[model.Category][]Call

// For - 분류에 해당하는 호출 목록
func (s SelectionTable) For(category model.Category) []Call {
	return s[category]
}

// 도구 이름
const (
	NameCostBreakdown    = "get_cost_breakdown"
	NameServiceCosts     = "get_service_costs"
	NameBudgetStatus     = "get_budget_status"
	NameCostForecast     = "get_cost_forecast"
	NameLambdaMetrics    = "get_lambda_metrics"
	NameLambdaErrors     = "get_lambda_errors"
	NameEC2Instances     = "get_ec2_instances"
	NameEMRClusterStatus = "get_emr_cluster_status"
	NameCloudWatchLogs   = "get_cloudwatch_logs"
	NameSearchLogs       = "search_logs"
	NameResourceTags     = "get_resource_tags"
	NameRecentChanges    = "get_recent_changes"
	NameMetricHistory    = "metric_history"
	NameSimilarIncidents = "similar_incidents"
)

// DefaultSelection - 기본 선택 정책
func DefaultSelection() SelectionTable {
	budget := []Call{
		{Tool: NameBudgetStatus},
		{Tool: NameCostBreakdown, Args: map[string]Binding{"days": Lit(7)}},
		{Tool: NameServiceCosts, Args: map[string]Binding{"days": Lit(7), "top": Lit(5)}},
		{Tool: NameCostForecast},
		{Tool: NameRecentChanges, Args: map[string]Binding{"hours": Lit(24)}},
		{Tool: NameSimilarIncidents, Args: map[string]Binding{"query": From("budget_name"), "limit": Lit(3)}},
	}

	return SelectionTable{
		model.CategoryBudgetWarning:  budget,
		model.CategoryBudgetCritical: budget,
		model.CategoryMetricAlarm: {
			{Tool: NameCloudWatchLogs, Args: map[string]Binding{
				"log_group":      From("log_group"),
				"hours":          Lit(1),
				"limit":          Lit(20),
				"filter_pattern": Lit("ERROR"),
			}},
			{Tool: NameLambdaMetrics, Args: map[string]Binding{"function_name": From("function_name"), "hours": Lit(24)}},
			{Tool: NameLambdaErrors, Args: map[string]Binding{"function_name": From("function_name"), "limit": Lit(20)}},
			{Tool: NameMetricHistory, Args: map[string]Binding{
				"namespace":   From("namespace"),
				"metric_name": From("metric_name"),
				"hours":       Lit(6),
			}},
			{Tool: NameRecentChanges, Args: map[string]Binding{"hours": Lit(24)}},
			{Tool: NameSimilarIncidents, Args: map[string]Binding{"query": From("alarm_name"), "limit": Lit(3)}},
		},
		model.CategoryCustomError: {
			{Tool: NameEMRClusterStatus, Args: map[string]Binding{"cluster_id": From("cluster_id")}},
			{Tool: NameCloudWatchLogs, Args: map[string]Binding{
				"log_group":      From("log_group"),
				"hours":          Lit(1),
				"limit":          Lit(20),
				"filter_pattern": Lit("ERROR"),
			}},
			{Tool: NameRecentChanges, Args: map[string]Binding{"hours": Lit(24)}},
			{Tool: NameSimilarIncidents, Args: map[string]Binding{"query": From("detail_type"), "limit": Lit(3)}},
		},
		model.CategoryUnclassified: {
			{Tool: NameRecentChanges, Args: map[string]Binding{"hours": Lit(24)}},
		},
	}
}
