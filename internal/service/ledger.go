package service

import (
	"context"
	"sync"
	"time"
)

// deliveryLease - pending 상태 예약이 만료되는 시간
// 전송 도중 프로세스가 죽은 경우 이후 재전송을 허용
const deliveryLease = 5 * time.Minute

// DefaultDedupeRetention - 전송 완료 기록을 유지하는 기본 기간
// 이 기간이 지나면 같은 dedupe_key라도 다시 전송 (주기적으로 반복되는 알림)
const DefaultDedupeRetention = 24 * time.Hour

// pruneEvery - MemoryLedger가 만료 항목을 정리하는 Reserve 호출 간격
const pruneEvery = 1024

// DeliveryLedger - dedupe_key 기준 전송 이력 (at-most-once)
//   - Reserve: 전송 전 예약, 이미 전송됐거나 다른 실행이 전송 중이면 false
//   - Complete: 전송 성공 기록
//   - Release: 전송 실패 시 예약 해제 (이후 재전송 가능)
type DeliveryLedger interface {
	Reserve(ctx context.Context, dedupeKey, destination string) (bool, error)
	Complete(ctx context.Context, dedupeKey string, attempts int) error
	Release(ctx context.Context, dedupeKey string) error
}

// deliveryStore - db.Postgres의 deliveries 테이블 접근
type deliveryStore interface {
	ReserveDelivery(ctx context.Context, dedupeKey, destination string, retention time.Duration) (bool, error)
	CompleteDelivery(ctx context.Context, dedupeKey string, attempts int) error
	ReleaseDelivery(ctx context.Context, dedupeKey string) error
}

// PostgresLedger - deliveries 테이블 기반 ledger (여러 replica 간 공유)
type PostgresLedger struct {
	store     deliveryStore
	retention time.Duration
}

// NewPostgresLedger - PostgresLedger 객체 생성 (retention <= 0이면 기본값)
func NewPostgresLedger(store deliveryStore, retention time.Duration) *PostgresLedger {
	return &PostgresLedger{store: store, retention: retentionOrDefault(retention)}
}

func (l *PostgresLedger) Reserve(ctx context.Context, dedupeKey, destination string) (bool, error) {
	return l.store.ReserveDelivery(ctx, dedupeKey, destination, l.retention)
}

func (l *PostgresLedger) Complete(ctx context.Context, dedupeKey string, attempts int) error {
	return l.store.CompleteDelivery(ctx, dedupeKey, attempts)
}

func (l *PostgresLedger) Release(ctx context.Context, dedupeKey string) error {
	return l.store.ReleaseDelivery(ctx, dedupeKey)
}

func retentionOrDefault(retention time.Duration) time.Duration {
	if retention <= 0 {
		return DefaultDedupeRetention
	}
	return retention
}

type ledgerEntry struct {
	delivered   bool
	reservedAt  time.Time
	deliveredAt time.Time
}

// held - 아직 재선점할 수 없는 항목인지
func (e ledgerEntry) held(now time.Time, retention time.Duration) bool {
	if e.delivered {
		return now.Sub(e.deliveredAt) < retention
	}
	return now.Sub(e.reservedAt) < deliveryLease
}

// MemoryLedger - 프로세스 내 ledger (DB 미설정 시)
type MemoryLedger struct {
	mu        sync.Mutex
	entries   map[string]ledgerEntry
	retention time.Duration
	reserves  int
	now       func() time.Time
}

// NewMemoryLedger - MemoryLedger 객체 생성 (retention <= 0이면 기본값)
func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	return &MemoryLedger{
		entries:   make(map[string]ledgerEntry),
		retention: retentionOrDefault(retention),
		now:       time.Now,
	}
}

func (l *MemoryLedger) Reserve(_ context.Context, dedupeKey, _ string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[dedupeKey]; ok && e.held(now, l.retention) {
		return false, nil
	}
	l.entries[dedupeKey] = ledgerEntry{reservedAt: now}

	l.reserves++
	if l.reserves%pruneEvery == 0 {
		for key, e := range l.entries {
			if !e.held(now, l.retention) {
				delete(l.entries, key)
			}
		}
	}
	return true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, dedupeKey string, _ int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[dedupeKey]
	e.delivered = true
	e.deliveredAt = l.now()
	l.entries[dedupeKey] = e
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, dedupeKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[dedupeKey]; ok && !e.delivered {
		delete(l.entries, dedupeKey)
	}
	return nil
}
