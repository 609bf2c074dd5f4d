package tool

import (
	"context"
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// Embedder - 텍스트 임베딩 (client.EmbeddingClient)
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// AnalysisSearcher - 과거 분석 결과 유사도 검색 (db.Postgres)
type AnalysisSearcher interface {
	SearchSimilarAnalyses(ctx context.Context, vector []float32, limit int) ([]model.SimilarAnalysis, error)
}

// SimilarIncidents - 과거에 분석한 유사 알림 조회 (pgvector cosine distance)
type SimilarIncidents struct {
	embedder Embedder
	searcher AnalysisSearcher
}

func NewSimilarIncidents(embedder Embedder, searcher AnalysisSearcher) *SimilarIncidents {
	return &SimilarIncidents{embedder: embedder, searcher: searcher}
}

func (t *SimilarIncidents) Name() string { return NameSimilarIncidents }

func (t *SimilarIncidents) Spec() Spec {
	return Spec{
		Name:        NameSimilarIncidents,
		Description: "Previously analyzed alerts similar to the query, with their root cause",
		Params: []Param{
			{Name: "query", Type: ParamString, Description: "Text to search with (alarm name, budget name, ...)", Required: true},
			{Name: "limit", Type: ParamNumber, Description: "Max results (default 3, max 10)"},
		},
	}
}

func (t *SimilarIncidents) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	if t.embedder == nil || t.searcher == nil {
		return nil, fmt.Errorf("similarity search not configured: %w", ErrUnavailable)
	}
	query, err := args.RequireString("query")
	if err != nil {
		return nil, err
	}
	limit := args.Int("limit", 3, 1, 10)

	vector, _, err := t.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := t.searcher.SearchSimilarAnalyses(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search analyses: %w", err)
	}

	items := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		items = append(items, map[string]any{
			"execution_id": m.ExecutionID,
			"category":     m.Category,
			"title":        m.Title,
			"root_cause":   m.RootCause,
			"severity":     m.Severity,
			"similarity":   round2(1 - m.Distance),
			"analyzed_at":  m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	return map[string]any{
		"query":   query,
		"matches": items,
		"count":   len(items),
	}, nil
}
