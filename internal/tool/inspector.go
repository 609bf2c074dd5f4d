package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// ErrUnavailable - 도구 백엔드가 설정되지 않았거나 응답할 수 없음
var ErrUnavailable = errors.New(model.ReasonUnavailable)

// Inspector - 읽기 전용 inspection 서비스 (client.InspectorClient)
// operation은 도구 이름과 동일하게 사용
type Inspector interface {
	Inspect(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

func inspect(ctx context.Context, in Inspector, operation string, args map[string]any) (map[string]any, error) {
	if in == nil {
		return nil, fmt.Errorf("%s: inspector not configured: %w", operation, ErrUnavailable)
	}
	return in.Inspect(ctx, operation, args)
}

// InspectorTools - inspection 서비스에 위임하는 기본 도구 목록
func InspectorTools(in Inspector) []Tool {
	return []Tool{
		NewCostBreakdown(in),
		NewServiceCosts(in),
		NewBudgetStatus(in),
		NewCostForecast(in),
		NewLambdaMetrics(in),
		NewLambdaErrors(in),
		NewEC2Instances(in),
		NewEMRClusterStatus(in),
		NewCloudWatchLogs(in),
		NewSearchLogs(in),
		NewResourceTags(in),
		NewRecentChanges(in),
	}
}
