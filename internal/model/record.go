package model

import "time"

// AnalysisRecord - 분석 결과 저장용 레코드 (analyses 테이블)
// similar_incidents 도구의 검색 대상
type AnalysisRecord struct {
	ExecutionID string           `json:"execution_id"`
	DedupeKey   string           `json:"dedupe_key"`
	Category    Category         `json:"category"`
	Title       string           `json:"title"`
	Analysis    AnalysisResult   `json:"analysis"`
	Context     []ToolInvocation `json:"context"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SimilarAnalysis - 유사도 검색 결과 1건
// Distance: cosine distance (0 = 동일)
type SimilarAnalysis struct {
	ExecutionID string    `json:"execution_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	RootCause   string    `json:"root_cause"`
	Severity    string    `json:"severity"`
	Distance    float64   `json:"distance"`
	CreatedAt   time.Time `json:"created_at"`
}
