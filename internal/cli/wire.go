// 설정 -> 클라이언트 -> 도구 Registry -> 파이프라인 조립
//
// 외부 연동은 모두 선택 사항:
//   - DB 미설정: 메모리 ledger, 분석 기록 저장 안 함, similar_incidents unavailable
//   - 모델 미설정: 모든 분석이 model_error fallback
//   - inspector/prometheus 미설정: 해당 도구 unavailable

package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/kube-rca/alert-analyzer/internal/client"
	"github.com/kube-rca/alert-analyzer/internal/config"
	"github.com/kube-rca/alert-analyzer/internal/db"
	"github.com/kube-rca/alert-analyzer/internal/metrics"
	"github.com/kube-rca/alert-analyzer/internal/routing"
	"github.com/kube-rca/alert-analyzer/internal/service"
	"github.com/kube-rca/alert-analyzer/internal/tool"
)

// loadConfig - 환경변수 설정 + 플래그 override
func loadConfig() config.Config {
	cfg := config.Load()
	if routingPath != "" {
		cfg.Pipeline.RoutingConfigPath = routingPath
	}
	return cfg
}

// resources - 여러 명령이 공유하는 외부 연결
type resources struct {
	store    *db.Postgres
	embedder *client.EmbeddingClient
}

func openResources(ctx context.Context, cfg config.Config) (*resources, error) {
	res := &resources{}

	if cfg.Postgres.Enabled() {
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		res.store = &db.Postgres{Pool: pool}
		if err := res.store.EnsureSchema(ctx); err != nil {
			res.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	} else {
		log.Printf("Postgres not configured, using in-memory delivery ledger")
	}

	if cfg.Embedding.APIKey != "" {
		embedder, err := client.NewEmbeddingClient(ctx, cfg.Embedding)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.embedder = embedder
	}

	return res, nil
}

func (r *resources) Close() {
	if r.store != nil {
		r.store.Close()
	}
}

// buildRegistry - 진단 도구 등록
func buildRegistry(cfg config.Config, res *resources) (*tool.Registry, error) {
	tools := tool.InspectorTools(client.NewInspectorClient(cfg.Inspector))

	promAPI, err := client.NewPrometheusAPI(cfg.Prometheus.URL)
	if err != nil {
		return nil, err
	}
	tools = append(tools, tool.NewMetricHistory(promAPI))

	if res.store != nil && res.embedder != nil {
		tools = append(tools, tool.NewSimilarIncidents(res.embedder, res.store))
	} else {
		tools = append(tools, tool.NewSimilarIncidents(nil, nil))
	}

	return tool.NewRegistry(tools...)
}

// buildModelClient - MODEL_PROVIDER에 따른 LLM 클라이언트
// 설정이 없으면 nil (분석은 fallback)
func buildModelClient(ctx context.Context, cfg config.Config) (service.ModelClient, string, error) {
	switch cfg.Model.Provider {
	case "agent":
		agent := client.NewAgentClient(cfg.Agent)
		if !agent.IsConfigured() {
			log.Printf("AGENT_URL not set, analyses will use fallback")
			return nil, "", nil
		}
		return agent, "agent", nil
	case "genai", "":
		if cfg.Model.APIKey == "" {
			log.Printf("AI_API_KEY not set, analyses will use fallback")
			return nil, "", nil
		}
		genai, err := client.NewGenAIClient(ctx, cfg.Model)
		if err != nil {
			return nil, "", err
		}
		return genai, genai.ModelID(), nil
	default:
		return nil, "", fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.Model.Provider)
	}
}

// app - 조립된 파이프라인과 자원
type app struct {
	cfg      config.Config
	res      *resources
	registry *tool.Registry
	pipeline *service.Pipeline
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table, err := routing.LoadOrDefault(cfg.Pipeline.RoutingConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing config: %w", err)
	}

	res, err := openResources(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg, res)
	if err != nil {
		res.Close()
		return nil, err
	}

	modelClient, modelName, err := buildModelClient(ctx, cfg)
	if err != nil {
		res.Close()
		return nil, err
	}

	recorder := metrics.NewRecorder()

	gatherer := service.NewGatherer(registry, tool.DefaultSelection(), cfg.Pipeline.ToolConcurrency, cfg.Pipeline.ToolTimeout,
		service.WithToolObserver(recorder))
	analyzer := service.NewAnalyzer(modelClient, service.AnalyzerConfig{
		ModelName:       modelName,
		MaxPromptBytes:  cfg.Pipeline.MaxPromptBytes,
		MaxOutputTokens: cfg.Model.MaxOutputTokens,
		Timeout:         cfg.Model.Timeout,
		MaxRetries:      cfg.Model.MaxRetries,
	}, recorder)

	var ledger service.DeliveryLedger = service.NewMemoryLedger(cfg.Delivery.DedupeRetention)
	if res.store != nil {
		ledger = service.NewPostgresLedger(res.store, cfg.Delivery.DedupeRetention)
	}
	publisher := service.NewPublisher(client.NewWebhookSender(cfg.Delivery.Timeout), ledger, service.PublisherConfig{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		BaseBackoff: cfg.Delivery.BaseBackoff,
		MaxBackoff:  cfg.Delivery.MaxBackoff,
		RatePerSec:  cfg.Delivery.RatePerSec,
		Burst:       cfg.Delivery.Burst,
	}, recorder)

	opts := []service.PipelineOption{
		service.WithPipelineObserver(recorder),
		service.WithPipelineTimeout(cfg.Pipeline.Timeout),
		service.WithDeliveryReserve(cfg.Delivery.Timeout),
	}
	if res.store != nil {
		var embedder service.EmbeddingClient
		if res.embedder != nil {
			embedder = res.embedder
		}
		opts = append(opts, service.WithArchiver(service.NewEmbeddingService(res.store, embedder)))
	}

	pipeline := service.NewPipeline(
		service.NewClassifier(service.DefaultClassificationRules()...),
		gatherer,
		analyzer,
		service.NewFormatter(cfg.Pipeline.FallbackTextFormat),
		publisher,
		table,
		opts...,
	)

	return &app{cfg: cfg, res: res, registry: registry, pipeline: pipeline}, nil
}

func (a *app) Close() {
	a.res.Close()
}
