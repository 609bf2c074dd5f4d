// Kafka 토픽 인입 consumer
//
// 흐름:
//   - consumer group으로 토픽 구독 (franz-go)
//   - PollFetches로 받은 레코드 배치를 제한된 동시성으로 파이프라인 처리
//   - 배치 처리가 끝난 뒤 offset commit (at-least-once, 중복은 전송 ledger가 걸러냄)
//
// 레코드 하나의 실패(rejected, delivery_failed)는 로그만 남기고 commit 함
// 파이프라인 전체를 다시 돌리는 재시도는 하지 않음
//
// 종료/리밸런스로 Run ctx가 취소되어도 받은 배치는 끝까지 처리 (레코드마다 PIPELINE_TIMEOUT으로 제한)
// abandoned 레코드는 commit하지 않고, 해당 partition은 그 offset 앞까지만 commit
// (다음 할당 때 그 레코드부터 다시 받음)

package consumer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kube-rca/alert-analyzer/internal/config"
	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Processor - 원본 이벤트 1건 처리
type Processor interface {
	Process(ctx context.Context, raw []byte) model.Outcome
}

// recordSource - kgo.Client 중 consumer가 사용하는 부분
type recordSource interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	Close()
}

// partitionKey - commit 보류 상태를 관리하는 단위
type partitionKey struct {
	topic     string
	partition int32
}

// Consumer - Kafka 이벤트 consumer
type Consumer struct {
	source      recordSource
	processor   Processor
	topic       string
	concurrency int

	// held - partition별 가장 앞선 abandoned offset (Run goroutine에서만 접근)
	held map[partitionKey]int64
}

// New - consumer group 클라이언트 생성
func New(cfg config.KafkaConfig, processor Processor) (*Consumer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return newConsumer(client, processor, cfg.Topic, defaultConcurrency), nil
}

func newConsumer(source recordSource, processor Processor, topic string, concurrency int) *Consumer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Consumer{
		source:      source,
		processor:   processor,
		topic:       topic,
		concurrency: concurrency,
		held:        make(map[partitionKey]int64),
	}
}

// Run - ctx가 취소될 때까지 레코드 처리
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("[Consumer] Consuming topic=%s", c.topic)
	for {
		fetches := c.source.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}

		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				continue
			}
			log.Printf("[Consumer] Fetch error (topic=%s, partition=%d): %v", fe.Topic, fe.Partition, fe.Err)
		}

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		// 이미 받은 레코드는 취소와 무관하게 끝까지 처리
		abandoned := c.processBatch(context.WithoutCancel(ctx), records)

		commit := c.committable(records, abandoned)
		if len(commit) < len(records) {
			log.Printf("[Consumer] Holding offsets (records=%d, committable=%d, held_partitions=%d)", len(records), len(commit), len(c.held))
		}
		if len(commit) == 0 {
			continue
		}
		if err := c.source.CommitRecords(context.WithoutCancel(ctx), commit...); err != nil {
			log.Printf("[Consumer] Failed to commit offsets (records=%d): %v", len(commit), err)
		}
	}
}

// processBatch - 배치 내 레코드를 동시에 처리하고 모두 끝날 때까지 대기
// 반환값: records와 같은 순서의 abandoned 여부
func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) []bool {
	abandoned := make([]bool, len(records))
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, record := range records {
		g.Go(func() error {
			outcome := c.processor.Process(ctx, record.Value)
			if outcome.State != model.StateDelivered {
				log.Printf("[Consumer] Record not delivered (partition=%d, offset=%d, state=%s, execution=%s): %v",
					record.Partition, record.Offset, outcome.State, outcome.ExecutionID, outcome.Err)
			}
			abandoned[i] = outcome.State == model.StateAbandoned
			return nil
		})
	}
	_ = g.Wait()
	return abandoned
}

// committable - commit해도 되는 레코드만 반환
//   - abandoned 레코드가 있는 partition은 그 offset 앞까지만 commit
//   - 보류된 offset의 레코드가 다시 처리되면 보류 해제
func (c *Consumer) committable(records []*kgo.Record, abandoned []bool) []*kgo.Record {
	for i, r := range records {
		key := partitionKey{topic: r.Topic, partition: r.Partition}
		held, ok := c.held[key]
		switch {
		case abandoned[i]:
			if !ok || r.Offset < held {
				c.held[key] = r.Offset
			}
		case ok && r.Offset == held:
			delete(c.held, key)
		}
	}

	out := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if held, ok := c.held[partitionKey{topic: r.Topic, partition: r.Partition}]; ok && r.Offset >= held {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Close - 클라이언트 종료 (group 탈퇴)
func (c *Consumer) Close() {
	c.source.Close()
}
