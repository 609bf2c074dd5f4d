package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Pipeline   PipelineConfig
	Model      ModelConfig
	Agent      AgentConfig
	Embedding  EmbeddingConfig
	Inspector  InspectorConfig
	Prometheus PrometheusConfig
	Postgres   PostgresConfig
	Kafka      KafkaConfig
	Ingest     IngestConfig
	Delivery   DeliveryConfig
}

type ServerConfig struct {
	Addr string
}

// PipelineConfig - 파이프라인 시간 예산 및 동시성
type PipelineConfig struct {
	Timeout            time.Duration
	ToolTimeout        time.Duration
	ToolConcurrency    int
	MaxPromptBytes     int
	RoutingConfigPath  string
	FallbackTextFormat string
}

// ModelConfig - LLM 호출 설정
//   - Provider: genai (Gemini API) 또는 agent (HTTP 추론 서비스)
type ModelConfig struct {
	Provider        string
	APIKey          string
	ModelID         string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetries      int
}

type AgentConfig struct {
	BaseURL string
}

type EmbeddingConfig struct {
	APIKey string
	Model  string
}

// InspectorConfig - 읽기 전용 진단 도구를 실행하는 외부 inspection 서비스
type InspectorConfig struct {
	BaseURL string
	Token   string
}

type PrometheusConfig struct {
	URL string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

// Enabled - DB 접속 정보가 설정되어 있는지
func (c PostgresConfig) Enabled() bool {
	return c.DatabaseURL != "" || (c.User != "" && c.Database != "")
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// Enabled - Kafka 수신 사용 여부
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// IngestConfig - 인입 엔드포인트 인증 설정 (모두 비어 있으면 인증 없음)
type IngestConfig struct {
	JWTSecret    string
	OIDCIssuer   string
	OIDCAudience string
	APIKeyHash   string
}

// DeliveryConfig - 전송 재시도 및 중복 억제 설정
//   - DedupeRetention: 전송 완료 기록 유지 기간 (지나면 같은 알림도 다시 전송)
type DeliveryConfig struct {
	Timeout         time.Duration
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	RatePerSec      float64
	Burst           int
	DedupeRetention time.Duration
}

// Load - .env(있으면) 로드 후 환경변수에서 설정 구성
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	return Config{
		Server: ServerConfig{
			Addr: getenv("HTTP_ADDR", ":8080"),
		},
		Pipeline: PipelineConfig{
			Timeout:            getDuration("PIPELINE_TIMEOUT", 90*time.Second),
			ToolTimeout:        getDuration("TOOL_TIMEOUT", 15*time.Second),
			ToolConcurrency:    getInt("TOOL_CONCURRENCY", 5),
			MaxPromptBytes:     getInt("MAX_PROMPT_BYTES", 24000),
			RoutingConfigPath:  os.Getenv("ROUTING_CONFIG"),
			FallbackTextFormat: os.Getenv("FALLBACK_TEXT_TEMPLATE"),
		},
		Model: ModelConfig{
			Provider:        getenv("MODEL_PROVIDER", "genai"),
			APIKey:          os.Getenv("AI_API_KEY"),
			ModelID:         getenv("LLM_MODEL_ID", "gemini-2.5-flash"),
			Temperature:     getFloat("LLM_TEMPERATURE", 0.3),
			MaxOutputTokens: getInt("LLM_MAX_TOKENS", 2000),
			Timeout:         getDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:      getInt("LLM_MAX_RETRIES", 2),
		},
		Agent: AgentConfig{
			BaseURL: os.Getenv("AGENT_URL"),
		},
		Embedding: EmbeddingConfig{
			APIKey: os.Getenv("AI_API_KEY"),
			Model:  getenv("EMBEDDING_MODEL", "text-embedding-004"),
		},
		Inspector: InspectorConfig{
			BaseURL: os.Getenv("INSPECTOR_URL"),
			Token:   os.Getenv("INSPECTOR_TOKEN"),
		},
		Prometheus: PrometheusConfig{
			URL: os.Getenv("PROMETHEUS_URL"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   os.Getenv("KAFKA_TOPIC"),
			Group:   getenv("KAFKA_GROUP", "alert-analyzer"),
		},
		Ingest: IngestConfig{
			JWTSecret:    os.Getenv("INGEST_JWT_SECRET"),
			OIDCIssuer:   os.Getenv("INGEST_OIDC_ISSUER"),
			OIDCAudience: os.Getenv("INGEST_OIDC_AUDIENCE"),
			APIKeyHash:   os.Getenv("INGEST_API_KEY_HASH"),
		},
		Delivery: DeliveryConfig{
			Timeout:     getDuration("DELIVERY_TIMEOUT", 10*time.Second),
			MaxAttempts: getInt("DELIVERY_MAX_ATTEMPTS", 3),
			BaseBackoff: getDuration("DELIVERY_BACKOFF", 500*time.Millisecond),
			MaxBackoff:  getDuration("DELIVERY_MAX_BACKOFF", 4*time.Second),
			RatePerSec:  getFloat("DELIVERY_RATE_PER_SEC", 1),
			Burst:       getInt("DELIVERY_BURST", 3),

			DedupeRetention: getDuration("DELIVERY_DEDUPE_RETENTION", 24*time.Hour),
		},
	}
}

// Validate - 단계별 시간 예산이 PIPELINE_TIMEOUT 안에 들어가는지 확인
// 도구 수집, 모델 호출 1회, 전송 1회가 모두 끝날 수 있어야 함 (재시도는 남은 시간 안에서만 수행)
func (c Config) Validate() error {
	p := c.Pipeline
	if p.Timeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive, got %s", p.Timeout)
	}
	for name, d := range map[string]time.Duration{
		"TOOL_TIMEOUT":     p.ToolTimeout,
		"LLM_TIMEOUT":      c.Model.Timeout,
		"DELIVERY_TIMEOUT": c.Delivery.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	stages := p.ToolTimeout + c.Model.Timeout + c.Delivery.Timeout
	if stages >= p.Timeout {
		return fmt.Errorf("stage budgets exceed PIPELINE_TIMEOUT %s: tool %s + model %s + delivery %s = %s",
			p.Timeout, p.ToolTimeout, c.Model.Timeout, c.Delivery.Timeout, stages)
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %v", key, val, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", key, val, fallback)
		return fallback
	}
	return d
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
