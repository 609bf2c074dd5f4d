// 라우팅 테이블 (분류 -> 분석 여부 / 전송 대상)
//
// 시작 시 한 번 로드 (변경 시 재시작)
// 로드 이후 읽기 전용이므로 여러 파이프라인 실행에서 동시에 사용 가능
package routing

import (
	"fmt"
	"os"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// Config - 라우팅 테이블 YAML 문서
type Config struct {
	Analysis     AnalysisConfig      `yaml:"analysis"`
	Destinations []DestinationConfig `yaml:"destinations"`
	Rules        []RuleConfig        `yaml:"rules"`
	Default      DefaultConfig       `yaml:"default"`
}

// AnalysisConfig - 전역 AI 분석 설정
type AnalysisConfig struct {
	// Enabled - 전체 분석 on/off (기본 true)
	Enabled *bool `yaml:"enabled,omitempty"`
	// Allow - 원본 페이로드에 포함되면 분석을 강제하는 문자열 (Deny보다 우선)
	Allow []string `yaml:"allow,omitempty"`
	// Deny - 원본 페이로드에 포함되면 분석하지 않는 문자열
	Deny []string `yaml:"deny,omitempty"`
}

// IsEnabled - 분석 사용 여부
func (a AnalysisConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// DestinationConfig - 전송 대상 1개
type DestinationConfig struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind,omitempty"`
	// URL은 그대로 사용, URLEnv는 URL을 담은 환경변수 이름
	URL    string        `yaml:"url,omitempty"`
	URLEnv string        `yaml:"url_env,omitempty"`
	OAuth2 *OAuth2Config `yaml:"oauth2,omitempty"`
}

// OAuth2Config - 인증이 필요한 webhook용 client credentials
type OAuth2Config struct {
	TokenURL        string   `yaml:"token_url"`
	ClientID        string   `yaml:"client_id"`
	ClientSecretEnv string   `yaml:"client_secret_env"`
	Scopes          []string `yaml:"scopes,omitempty"`
}

// RuleConfig - 카테고리(+ 선택적 metadata 조건) -> 라우트
type RuleConfig struct {
	Name string `yaml:"name"`
	// Category - 분류 카테고리, 비어 있거나 "*"이면 모두 매칭
	Category string `yaml:"category,omitempty"`
	// When - 분류 metadata로 평가하는 expr-lang 조건식 (예: `threshold >= 100`)
	When        string `yaml:"when,omitempty"`
	Analyze     bool   `yaml:"analyze"`
	Destination string `yaml:"destination"`
}

// DefaultConfig - 매칭되는 규칙이 없을 때의 라우트
type DefaultConfig struct {
	Analyze     bool   `yaml:"analyze"`
	Destination string `yaml:"destination"`
}

// Validate - 규칙과 전송 대상 간 참조 검증
func (c *Config) Validate() error {
	ids := make(map[string]struct{}, len(c.Destinations))
	for i, d := range c.Destinations {
		if d.ID == "" {
			return fmt.Errorf("destination at index %d: id is required", i)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("duplicate destination %q", d.ID)
		}
		switch model.DestinationKind(d.Kind) {
		case "", model.DestinationSlack, model.DestinationWebhook:
		default:
			return fmt.Errorf("destination %q: unknown kind %q", d.ID, d.Kind)
		}
		if d.OAuth2 != nil && (d.OAuth2.TokenURL == "" || d.OAuth2.ClientID == "") {
			return fmt.Errorf("destination %q: oauth2 requires token_url and client_id", d.ID)
		}
		ids[d.ID] = struct{}{}
	}

	for i, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule at index %d: name is required", i)
		}
		if r.Category != "" && r.Category != "*" && !model.Category(r.Category).Valid() {
			return fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
		if _, ok := ids[r.Destination]; !ok {
			return fmt.Errorf("rule %q: unknown destination %q", r.Name, r.Destination)
		}
	}

	if _, ok := ids[c.Default.Destination]; !ok {
		return fmt.Errorf("default: unknown destination %q", c.Default.Destination)
	}
	return nil
}

// resolve - 런타임 전송 대상 생성 (설정된 경우 URL/secret을 환경변수에서 읽음)
func (d DestinationConfig) resolve() model.Destination {
	kind := model.DestinationKind(d.Kind)
	if kind == "" {
		kind = model.DestinationSlack
	}

	url := d.URL
	if url == "" && d.URLEnv != "" {
		url = strings.TrimSpace(os.Getenv(d.URLEnv))
	}

	dest := model.Destination{ID: d.ID, Kind: kind, URL: url}
	if d.OAuth2 != nil {
		dest.OAuth2 = &model.OAuth2Credentials{
			TokenURL:     d.OAuth2.TokenURL,
			ClientID:     d.OAuth2.ClientID,
			ClientSecret: os.Getenv(d.OAuth2.ClientSecretEnv),
			Scopes:       d.OAuth2.Scopes,
		}
	}
	return dest
}
