package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/pgvector/pgvector-go"
)

// EnsureAnalysisSchema - analyses 테이블 생성 (pgvector 확장 필요)
func (db *Postgres) EnsureAnalysisSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
		CREATE TABLE IF NOT EXISTS analyses (
			id BIGSERIAL PRIMARY KEY,
			execution_id TEXT NOT NULL UNIQUE,
			dedupe_key TEXT NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			root_cause TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT '',
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			analysis JSONB NOT NULL DEFAULT '{}',
			context JSONB NOT NULL DEFAULT '[]',
			embedding vector,
			embedding_model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS analyses_dedupe_key_idx ON analyses(dedupe_key)`,
		`CREATE INDEX IF NOT EXISTS analyses_category_idx ON analyses(category)`,
		`CREATE INDEX IF NOT EXISTS analyses_created_at_idx ON analyses(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertAnalysis - 분석 결과 저장
// vector가 비어 있으면 embedding은 NULL (유사도 검색 대상에서 제외)
func (db *Postgres) InsertAnalysis(ctx context.Context, rec model.AnalysisRecord, vector []float32, embeddingModel string) (int64, error) {
	analysisJSON, err := json.Marshal(rec.Analysis)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal analysis: %w", err)
	}
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal context: %w", err)
	}

	var embedding any
	if len(vector) > 0 {
		embedding = pgvector.NewVector(vector)
	}

	query := `
		INSERT INTO analyses (
			execution_id, dedupe_key, category, title, root_cause, severity, degraded,
			analysis, context, embedding, embedding_model, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (execution_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err = db.Pool.QueryRow(ctx, query,
		rec.ExecutionID,
		rec.DedupeKey,
		string(rec.Category),
		rec.Title,
		rec.Analysis.RootCause,
		string(rec.Analysis.Severity),
		rec.Analysis.Degraded,
		analysisJSON,
		contextJSON,
		embedding,
		embeddingModel,
		rec.CreatedAt,
	).Scan(&id)
	if IsNoRows(err) {
		return 0, nil
	}
	return id, err
}

// SearchSimilarAnalyses - cosine distance 기준 유사 분석 조회
// degraded 분석은 원인 정보가 없으므로 제외
func (db *Postgres) SearchSimilarAnalyses(ctx context.Context, vector []float32, limit int) ([]model.SimilarAnalysis, error) {
	query := `
		SELECT execution_id, category, title, root_cause, severity,
			embedding <=> $1 AS distance, created_at
		FROM analyses
		WHERE embedding IS NOT NULL AND degraded = FALSE
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SimilarAnalysis
	for rows.Next() {
		var s model.SimilarAnalysis
		if err := rows.Scan(&s.ExecutionID, &s.Category, &s.Title, &s.RootCause, &s.Severity, &s.Distance, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
