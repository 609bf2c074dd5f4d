package db

import (
	"context"
	"time"
)

// EnsureDeliverySchema - deliveries 테이블 생성
func (db *Postgres) EnsureDeliverySchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS deliveries (
			dedupe_key TEXT PRIMARY KEY,
			destination TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			reserved_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			delivered_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS deliveries_status_idx ON deliveries(status)`,
		`CREATE INDEX IF NOT EXISTS deliveries_delivered_at_idx ON deliveries(delivered_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// ReserveDelivery - 전송 전 dedupe_key 선점
//
// 반환값:
//   - true: 선점 성공 (새 키, 이전 선점이 5분 넘게 완료되지 않음, 또는 전송 기록이 retention보다 오래됨)
//   - false: retention 안에 이미 전송됨, 또는 다른 실행이 전송 중
func (db *Postgres) ReserveDelivery(ctx context.Context, dedupeKey, destination string, retention time.Duration) (bool, error) {
	query := `
		INSERT INTO deliveries (dedupe_key, destination, status, reserved_at, updated_at)
		VALUES ($1, $2, 'pending', NOW(), NOW())
		ON CONFLICT (dedupe_key) DO UPDATE
		SET destination = EXCLUDED.destination,
			status = 'pending',
			attempts = 0,
			reserved_at = NOW(),
			delivered_at = NULL,
			updated_at = NOW()
		WHERE (deliveries.status <> 'delivered'
				AND deliveries.reserved_at < NOW() - INTERVAL '5 minutes')
			OR (deliveries.status = 'delivered'
				AND deliveries.delivered_at < NOW() - make_interval(secs => $3))
		RETURNING dedupe_key
	`

	var key string
	err := db.Pool.QueryRow(ctx, query, dedupeKey, destination, retention.Seconds()).Scan(&key)
	if IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompleteDelivery - 전송 성공 기록
func (db *Postgres) CompleteDelivery(ctx context.Context, dedupeKey string, attempts int) error {
	query := `
		UPDATE deliveries
		SET status = 'delivered', attempts = $2, delivered_at = NOW(), updated_at = NOW()
		WHERE dedupe_key = $1
	`
	_, err := db.Pool.Exec(ctx, query, dedupeKey, attempts)
	return err
}

// ReleaseDelivery - 전송 실패 시 선점 해제 (다음 수신 때 다시 전송 가능)
func (db *Postgres) ReleaseDelivery(ctx context.Context, dedupeKey string) error {
	query := `DELETE FROM deliveries WHERE dedupe_key = $1 AND status = 'pending'`
	_, err := db.Pool.Exec(ctx, query, dedupeKey)
	return err
}
