package tool

import "context"

// ResourceTags - 태그가 붙은 리소스 목록
type ResourceTags struct {
	inspector Inspector
}

func NewResourceTags(in Inspector) *ResourceTags {
	return &ResourceTags{inspector: in}
}

func (t *ResourceTags) Name() string { return NameResourceTags }

func (t *ResourceTags) Spec() Spec {
	return Spec{
		Name:        NameResourceTags,
		Description: "Tagged resources with their tags",
		Params: []Param{
			{Name: "limit", Type: ParamNumber, Description: "Max resources (default 20, max 50)"},
		},
	}
}

func (t *ResourceTags) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameResourceTags, map[string]any{
		"limit": args.Int("limit", 20, 1, 50),
	})
}

// RecentChanges - CloudTrail 기준 최근 변경 이벤트 (읽기 이벤트 제외)
type RecentChanges struct {
	inspector Inspector
}

func NewRecentChanges(in Inspector) *RecentChanges {
	return &RecentChanges{inspector: in}
}

func (t *RecentChanges) Name() string { return NameRecentChanges }

func (t *RecentChanges) Spec() Spec {
	return Spec{
		Name:        NameRecentChanges,
		Description: "Recent write events from the audit trail",
		Params: []Param{
			{Name: "hours", Type: ParamNumber, Description: "Hours to look back (default 24, max 168)"},
		},
	}
}

func (t *RecentChanges) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameRecentChanges, map[string]any{
		"hours": args.Int("hours", 24, 1, 168),
	})
}
