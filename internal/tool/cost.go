// 비용 관련 도구 (Cost Explorer / Budgets 조회)

package tool

import "context"

// CostBreakdown - 최근 N일 일별 비용 추이
type CostBreakdown struct {
	inspector Inspector
}

func NewCostBreakdown(in Inspector) *CostBreakdown {
	return &CostBreakdown{inspector: in}
}

func (t *CostBreakdown) Name() string { return NameCostBreakdown }

func (t *CostBreakdown) Spec() Spec {
	return Spec{
		Name:        NameCostBreakdown,
		Description: "Daily cost breakdown with trend for the last N days",
		Params: []Param{
			{Name: "days", Type: ParamNumber, Description: "Days to query (default 7, max 90)"},
		},
	}
}

func (t *CostBreakdown) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameCostBreakdown, map[string]any{
		"days": args.Int("days", 7, 1, 90),
	})
}

// ServiceCosts - 서비스별 비용 상위 N개
type ServiceCosts struct {
	inspector Inspector
}

func NewServiceCosts(in Inspector) *ServiceCosts {
	return &ServiceCosts{inspector: in}
}

func (t *ServiceCosts) Name() string { return NameServiceCosts }

func (t *ServiceCosts) Spec() Spec {
	return Spec{
		Name:        NameServiceCosts,
		Description: "Top services by cost with percentage of total",
		Params: []Param{
			{Name: "days", Type: ParamNumber, Description: "Days to query (default 7, max 90)"},
			{Name: "top", Type: ParamNumber, Description: "Number of services (default 5, max 20)"},
		},
	}
}

func (t *ServiceCosts) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameServiceCosts, map[string]any{
		"days": args.Int("days", 7, 1, 90),
		"top":  args.Int("top", 5, 1, 20),
	})
}

// BudgetStatus - 전체 예산 사용 현황
type BudgetStatus struct {
	inspector Inspector
}

func NewBudgetStatus(in Inspector) *BudgetStatus {
	return &BudgetStatus{inspector: in}
}

func (t *BudgetStatus) Name() string { return NameBudgetStatus }

func (t *BudgetStatus) Spec() Spec {
	return Spec{
		Name:        NameBudgetStatus,
		Description: "Status of all budgets (limit, actual, forecast, percentage)",
	}
}

func (t *BudgetStatus) Invoke(ctx context.Context, _ Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameBudgetStatus, map[string]any{})
}

// CostForecast - 이번 달 비용 예측
type CostForecast struct {
	inspector Inspector
}

func NewCostForecast(in Inspector) *CostForecast {
	return &CostForecast{inspector: in}
}

func (t *CostForecast) Name() string { return NameCostForecast }

func (t *CostForecast) Spec() Spec {
	return Spec{
		Name:        NameCostForecast,
		Description: "Month-to-date spend and end of month forecast",
	}
}

func (t *CostForecast) Invoke(ctx context.Context, _ Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameCostForecast, map[string]any{})
}
