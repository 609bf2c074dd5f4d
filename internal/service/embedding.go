package service

import (
	"context"
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// AnalysisRepo - analyses 테이블 저장 (db.Postgres)
type AnalysisRepo interface {
	InsertAnalysis(ctx context.Context, rec model.AnalysisRecord, vector []float32, embeddingModel string) (int64, error)
}

type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// EmbeddingService - 분석 결과를 임베딩과 함께 저장
// 저장된 결과는 similar_incidents 도구의 검색 대상이 됨
type EmbeddingService struct {
	repo   AnalysisRepo
	client EmbeddingClient
}

func NewEmbeddingService(repo AnalysisRepo, client EmbeddingClient) *EmbeddingService {
	return &EmbeddingService{repo: repo, client: client}
}

// EmbeddingText - 검색 대상 텍스트 (제목 + 근본 원인)
func EmbeddingText(rec model.AnalysisRecord) string {
	return rec.Title + "\n" + rec.Analysis.RootCause
}

// Archive - 분석 레코드 저장
//   - skipped 분석은 저장하지 않음 (id 0)
//   - degraded 분석은 임베딩 없이 저장 (검색 대상 아님)
func (s *EmbeddingService) Archive(ctx context.Context, rec model.AnalysisRecord) (int64, error) {
	if rec.ExecutionID == "" {
		return 0, fmt.Errorf("execution_id is required")
	}
	if rec.Analysis.Skipped {
		return 0, nil
	}

	var (
		vector         []float32
		embeddingModel string
	)
	if !rec.Analysis.Degraded && s.client != nil {
		v, m, err := s.client.EmbedText(ctx, EmbeddingText(rec))
		if err != nil {
			return 0, fmt.Errorf("embed analysis: %w", err)
		}
		vector, embeddingModel = v, m
	}
	return s.repo.InsertAnalysis(ctx, rec, vector, embeddingModel)
}
