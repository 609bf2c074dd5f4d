// 로그 조회 도구 (CloudWatch Logs, Logs Insights)

package tool

import (
	"context"
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

type CloudWatchLogs struct {
	inspector Inspector
}

func NewCloudWatchLogs(in Inspector) *CloudWatchLogs {
	return &CloudWatchLogs{inspector: in}
}

func (t *CloudWatchLogs) Name() string { return NameCloudWatchLogs }

func (t *CloudWatchLogs) Spec() Spec {
	return Spec{
		Name:        NameCloudWatchLogs,
		Description: "Recent log entries from a CloudWatch log group",
		Params: []Param{
			{Name: "log_group", Type: ParamString, Description: "Log group name, e.g. /aws/lambda/my-function", Required: true},
			{Name: "hours", Type: ParamNumber, Description: "Hours of logs (default 1, max 72)"},
			{Name: "filter_pattern", Type: ParamString, Description: "Optional filter pattern, e.g. ERROR"},
			{Name: "limit", Type: ParamNumber, Description: "Max entries (default 50, max 100)"},
		},
	}
}

func (t *CloudWatchLogs) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	group, err := args.RequireString("log_group")
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"log_group": group,
		"hours":     args.Int("hours", 1, 1, 72),
		"limit":     args.Int("limit", 50, 1, 100),
	}
	if pattern := args.String("filter_pattern"); pattern != "" {
		req["filter_pattern"] = pattern
	}
	return inspect(ctx, t.inspector, NameCloudWatchLogs, req)
}

type SearchLogs struct {
	inspector Inspector
}

func NewSearchLogs(in Inspector) *SearchLogs {
	return &SearchLogs{inspector: in}
}

func (t *SearchLogs) Name() string { return NameSearchLogs }

func (t *SearchLogs) Spec() Spec {
	return Spec{
		Name:        NameSearchLogs,
		Description: "Logs Insights query across log groups",
		Params: []Param{
			{Name: "log_groups", Type: ParamList, Description: "Log group names", Required: true},
			{Name: "query", Type: ParamString, Description: "Logs Insights query", Required: true},
			{Name: "hours", Type: ParamNumber, Description: "Hours to search (default 24, max 168)"},
		},
	}
}

func (t *SearchLogs) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	groups := args.Strings("log_groups")
	if len(groups) == 0 {
		return nil, fmt.Errorf("log_groups: %w", model.ErrMissingInput)
	}
	query, err := args.RequireString("query")
	if err != nil {
		return nil, err
	}
	return inspect(ctx, t.inspector, NameSearchLogs, map[string]any{
		"log_groups": groups,
		"query":      query,
		"hours":      args.Int("hours", 24, 1, 168),
	})
}
