// AlertEvent -> Classification 분류
//
// 규칙은 위에서 아래로 평가하고 처음 매칭된 규칙을 사용 (규칙 순서가 우선순위)
// 이후 규칙 중 다른 분류로도 매칭되는 규칙은 Ambiguous에 기록만 함
// 매칭되는 규칙이 없으면 unclassified (에러 아님)

package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

var (
	thresholdPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	functionNamePattern = regexp.MustCompile(`(?i)([a-z0-9_-]+?)[-_]?(errors|duration|throttles)`)
	failureStates       = []string{"TERMINATED_WITH_ERRORS", "FAILED", "FAILURE", "ERROR", "TIMED_OUT", "ABORTED"}
)

// ClassificationRule - (predicate, extractor) 쌍
type ClassificationRule struct {
	Name     string
	Category model.Category
	Match    func(model.AlertEvent) bool
	Extract  func(model.AlertEvent) model.Metadata
}

// Classifier 구조체 정의
type Classifier struct {
	rules []ClassificationRule
}

// NewClassifier - 규칙 목록으로 Classifier 생성 (비어 있으면 기본 규칙)
func NewClassifier(rules ...ClassificationRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultClassificationRules()
	}
	return &Classifier{rules: rules}
}

// Rules - 평가 순서대로 규칙 이름
func (c *Classifier) Rules() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return names
}

// Classify - 같은 입력이면 항상 같은 결과 (외부 호출 없음)
func (c *Classifier) Classify(event model.AlertEvent) model.Classification {
	for i, rule := range c.rules {
		if !rule.Match(event) {
			continue
		}

		md := model.Metadata{}
		if rule.Extract != nil {
			md = rule.Extract(event)
		}

		var ambiguous []string
		for _, later := range c.rules[i+1:] {
			if later.Category != rule.Category && later.Match(event) {
				ambiguous = append(ambiguous, later.Name)
			}
		}

		return model.Classification{
			Event:      event,
			Category:   rule.Category,
			Confidence: model.ConfidenceRuleMatch,
			Rule:       rule.Name,
			Ambiguous:  ambiguous,
			Metadata:   md,
		}
	}

	return model.Classification{
		Event:      event,
		Category:   model.CategoryUnclassified,
		Confidence: model.ConfidenceFallback,
		Metadata:   model.Metadata{"raw": string(event.RawPayload)},
	}
}

// DefaultClassificationRules - 기본 규칙 (순서 중요)
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{
			Name:     "budget-notification-critical",
			Category: model.CategoryBudgetCritical,
			Match: func(e model.AlertEvent) bool {
				return e.Budget != nil && e.Budget.Detail.ThresholdPercentage != nil && *e.Budget.Detail.ThresholdPercentage >= 100
			},
			Extract: budgetMetadata,
		},
		{
			Name:     "budget-notification-warning",
			Category: model.CategoryBudgetWarning,
			Match:    func(e model.AlertEvent) bool { return e.Budget != nil },
			Extract:  budgetMetadata,
		},
		{
			Name:     "budget-alarm-critical",
			Category: model.CategoryBudgetCritical,
			Match: func(e model.AlertEvent) bool {
				threshold, ok := budgetAlarmThreshold(e)
				return ok && threshold >= 100
			},
			Extract: budgetAlarmMetadata,
		},
		{
			Name:     "budget-alarm-warning",
			Category: model.CategoryBudgetWarning,
			Match: func(e model.AlertEvent) bool {
				threshold, ok := budgetAlarmThreshold(e)
				return ok && threshold >= 80
			},
			Extract: budgetAlarmMetadata,
		},
		{
			Name:     "metric-alarm",
			Category: model.CategoryMetricAlarm,
			Match:    func(e model.AlertEvent) bool { return e.Alarm != nil },
			Extract:  alarmMetadata,
		},
		{
			Name:     "custom-error",
			Category: model.CategoryCustomError,
			Match:    isCustomFailure,
			Extract:  customMetadata,
		},
	}
}

func budgetMetadata(e model.AlertEvent) model.Metadata {
	md := model.Metadata{}
	d := e.Budget.Detail
	setString(md, "budget_name", d.BudgetName)
	setString(md, "detail_type", e.Budget.DetailType)
	setNumber(md, "threshold", d.ThresholdPercentage)
	setNumber(md, "actual_spend", d.ActualSpend)
	setNumber(md, "forecasted_spend", d.ForecastedSpend)
	return md
}

// budgetAlarmThreshold - 예산 알람이면 이름의 NN% 값 반환
func budgetAlarmThreshold(e model.AlertEvent) (float64, bool) {
	if e.Alarm == nil || !strings.EqualFold(e.Alarm.NewStateValue, "ALARM") {
		return 0, false
	}
	isBudget := strings.Contains(strings.ToLower(e.Alarm.AlarmName), "budget") || e.Alarm.Trigger.Namespace == "AWS/Billing"
	if !isBudget {
		return 0, false
	}
	return parseThreshold(e.Alarm.AlarmName)
}

func budgetAlarmMetadata(e model.AlertEvent) model.Metadata {
	md := model.Metadata{}
	setString(md, "alarm_name", e.Alarm.AlarmName)
	setString(md, "budget_name", e.Alarm.AlarmName)
	setString(md, "state", e.Alarm.NewStateValue)
	setString(md, "reason", e.Alarm.NewStateReason)
	if threshold, ok := parseThreshold(e.Alarm.AlarmName); ok {
		md["threshold"] = threshold
	}
	return md
}

func alarmMetadata(e model.AlertEvent) model.Metadata {
	a := e.Alarm
	md := model.Metadata{}
	setString(md, "alarm_name", a.AlarmName)
	setString(md, "description", a.AlarmDescription)
	setString(md, "state", a.NewStateValue)
	setString(md, "reason", a.NewStateReason)
	setString(md, "state_change_time", a.StateChangeTime)
	setString(md, "region", a.Region)
	setString(md, "namespace", a.Trigger.Namespace)
	setString(md, "metric_name", a.Trigger.MetricName)
	setNumber(md, "threshold", a.Trigger.Threshold)

	fn := a.Dimension("FunctionName")
	if fn == "" && (a.Trigger.Namespace == "AWS/Lambda" || strings.Contains(strings.ToLower(a.AlarmName), "lambda")) {
		fn = functionNameFromAlarm(a.AlarmName)
	}
	setString(md, "function_name", fn)
	if fn != "" {
		md["log_group"] = "/aws/lambda/" + fn
	}

	upper := strings.ToUpper(a.AlarmName)
	if strings.Contains(upper, "ERROR") || strings.Contains(upper, "CRITICAL") {
		md["severity_hint"] = "error"
	} else {
		md["severity_hint"] = "warning"
	}
	return md
}

// isCustomFailure - 실패 상태 또는 에러 메시지가 있는 커스텀 이벤트
func isCustomFailure(e model.AlertEvent) bool {
	if e.Custom == nil {
		return false
	}
	if containsFailure(e.Custom.DetailType) {
		return true
	}
	for _, key := range []string{"state", "status", "errorCode"} {
		if containsFailure(e.Custom.DetailString(key)) {
			return true
		}
	}
	return e.Custom.DetailString("errorMessage") != ""
}

func customMetadata(e model.AlertEvent) model.Metadata {
	c := e.Custom
	md := model.Metadata{}
	setString(md, "detail_type", c.DetailType)
	setString(md, "event_source", c.Source)

	state := c.DetailString("state")
	if state == "" {
		state = c.DetailString("status")
	}
	setString(md, "state", state)
	setString(md, "cluster_id", c.DetailString("clusterId"))
	setString(md, "error_message", truncate(c.DetailString("errorMessage"), 500))
	setString(md, "log_group", c.DetailString("logGroup"))

	if len(c.Resources) > 0 {
		md["resource"] = c.Resources[0]
	}
	if fn := c.DetailString("functionName"); fn != "" {
		md["function_name"] = fn
		if _, ok := md["log_group"]; !ok {
			md["log_group"] = "/aws/lambda/" + fn
		}
	}
	return md
}

func containsFailure(s string) bool {
	if s == "" {
		return false
	}
	upper := strings.ToUpper(s)
	for _, state := range failureStates {
		if strings.Contains(upper, state) {
			return true
		}
	}
	return false
}

func parseThreshold(name string) (float64, bool) {
	m := thresholdPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func functionNameFromAlarm(name string) string {
	m := functionNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], "-_")
}

func setString(md model.Metadata, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		md[key] = value
	}
}

func setNumber(md model.Metadata, key string, value *float64) {
	if value != nil {
		md[key] = *value
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
