// 메시지 전송 (Delivery Publisher)
//
// 흐름:
//   - ledger에 dedupe_key 예약 (이미 전송된 키면 전송하지 않고 Duplicate ack)
//   - destination별 rate limit 대기
//   - 최대 N회 전송 (2xx만 성공, 나머지는 backoff 후 재시도)
//   - 성공 시 Complete, 소진 시 전체 메시지를 로그로 남기고 Release 후 DeliveryError 반환

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"golang.org/x/time/rate"
)

// Sender - destination으로 메시지 1회 전송 (client.WebhookSender)
type Sender interface {
	Send(ctx context.Context, dest model.Destination, msg model.OutboundMessage) (int, error)
}

// DeliveryObserver - 전송 결과 관측 (metrics)
//   - result: delivered / duplicate / failed
type DeliveryObserver interface {
	ObserveDelivery(destination, result string, attempts int)
}

// PublisherConfig - 재시도 및 rate limit 설정
type PublisherConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	RatePerSec  float64
	Burst       int
}

// Publisher 구조체 정의
type Publisher struct {
	sender   Sender
	ledger   DeliveryLedger
	cfg      PublisherConfig
	observer DeliveryObserver
	sleep    sleepFunc

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPublisher - Publisher 객체 생성 (ledger가 nil이면 중복 검사 없음)
func NewPublisher(sender Sender, ledger DeliveryLedger, cfg PublisherConfig, observer DeliveryObserver) *Publisher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 4 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Publisher{
		sender:   sender,
		ledger:   ledger,
		cfg:      cfg,
		observer: observer,
		sleep:    sleepContext,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Publish - 메시지를 destination으로 전송
// 실패는 *model.DeliveryError로 반환 (panic 없음)
func (p *Publisher) Publish(ctx context.Context, msg model.OutboundMessage, dest model.Destination) (model.Ack, error) {
	ack := model.Ack{Destination: dest.ID, DedupeKey: msg.DedupeKey}

	reserved := false
	if p.ledger != nil && msg.DedupeKey != "" {
		ok, err := p.ledger.Reserve(ctx, msg.DedupeKey, dest.ID)
		switch {
		case err != nil:
			// ledger 장애 시에도 알림은 전송 (webhook은 Idempotency-Key로 중복 방지)
			log.Printf("[Publisher] Failed to reserve delivery (key=%s): %v", msg.DedupeKey, err)
		case !ok:
			log.Printf("[Publisher] Skipping duplicate delivery (key=%s, destination=%s)", msg.DedupeKey, dest.ID)
			ack.Duplicate = true
			p.observe(dest.ID, "duplicate", 0)
			return ack, nil
		default:
			reserved = true
		}
	}

	limiter := p.limiter(dest.ID)
	backoff := NewBackoff(p.cfg.BaseBackoff, p.cfg.MaxBackoff)

	var (
		lastStatus int
		lastErr    error
		attempts   int
	)
	for attempts < p.cfg.MaxAttempts {
		if err := limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		attempts++
		status, err := p.sendOnce(ctx, dest, msg)
		if err == nil {
			ack.StatusCode = status
			ack.Attempts = attempts
			if reserved {
				if err := p.ledger.Complete(context.WithoutCancel(ctx), msg.DedupeKey, attempts); err != nil {
					log.Printf("[Publisher] Failed to record delivery (key=%s): %v", msg.DedupeKey, err)
				}
			}
			log.Printf("[Publisher] Delivered to %s (key=%s, attempts=%d, status=%d)", dest.ID, msg.DedupeKey, attempts, status)
			p.observe(dest.ID, "delivered", attempts)
			return ack, nil
		}

		lastStatus, lastErr = status, err
		log.Printf("[Publisher] Delivery attempt failed (destination=%s, attempt=%d/%d, status=%d): %v",
			dest.ID, attempts, p.cfg.MaxAttempts, status, err)

		if attempts >= p.cfg.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, backoff.Next()); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		body = []byte(msg.Render())
	}
	log.Printf("[Publisher] Delivery failed (destination=%s, key=%s, attempts=%d), message=%s",
		dest.ID, msg.DedupeKey, attempts, body)

	if reserved {
		if err := p.ledger.Release(context.WithoutCancel(ctx), msg.DedupeKey); err != nil {
			log.Printf("[Publisher] Failed to release delivery (key=%s): %v", msg.DedupeKey, err)
		}
	}
	p.observe(dest.ID, "failed", attempts)

	return model.Ack{}, &model.DeliveryError{
		Destination: dest.ID,
		DedupeKey:   msg.DedupeKey,
		Attempts:    attempts,
		StatusCode:  lastStatus,
		Err:         lastErr,
	}
}

func (p *Publisher) sendOnce(ctx context.Context, dest model.Destination, msg model.OutboundMessage) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()
	return p.sender.Send(ctx, dest, msg)
}

// limiter - destination별 token bucket
func (p *Publisher) limiter(id string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[id]; ok {
		return l
	}
	limit := rate.Inf
	if p.cfg.RatePerSec > 0 {
		limit = rate.Limit(p.cfg.RatePerSec)
	}
	l := rate.NewLimiter(limit, p.cfg.Burst)
	p.limiters[id] = l
	return l
}

func (p *Publisher) observe(destination, result string, attempts int) {
	if p.observer != nil {
		p.observer.ObserveDelivery(destination, result, attempts)
	}
}
