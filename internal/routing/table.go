package routing

import (
	"fmt"
	"log"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// Table - 컴파일된 라우팅 테이블 (생성 후 변경 없음)
type Table struct {
	analysis     AnalysisConfig
	rules        []compiledRule
	destinations map[string]model.Destination
	fallback     model.RoutingRule
}

type compiledRule struct {
	model.RoutingRule
	program *vm.Program
}

// New - 설정 검증, 조건식 컴파일, 전송 대상 구성
func New(cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		analysis:     cfg.Analysis,
		destinations: make(map[string]model.Destination, len(cfg.Destinations)),
		fallback: model.RoutingRule{
			Name:        "default",
			Analyze:     cfg.Default.Analyze,
			Destination: cfg.Default.Destination,
		},
	}

	for _, d := range cfg.Destinations {
		dest := d.resolve()
		if dest.URL == "" {
			log.Printf("[Routing] destination %s has no URL configured", dest.ID)
		}
		t.destinations[d.ID] = dest
	}

	for _, r := range cfg.Rules {
		rule := compiledRule{RoutingRule: model.RoutingRule{
			Name:        r.Name,
			Category:    model.Category(r.Category),
			When:        strings.TrimSpace(r.When),
			Analyze:     r.Analyze,
			Destination: r.Destination,
		}}
		if r.Category == "*" {
			rule.Category = ""
		}
		if rule.When != "" {
			program, err := expr.Compile(rule.When,
				expr.Env(map[string]any{}),
				expr.AllowUndefinedVariables(),
				expr.AsBool(),
			)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid when expression: %w", r.Name, err)
			}
			rule.program = program
		}
		t.rules = append(t.rules, rule)
	}

	return t, nil
}

// Rules - 평가 순서대로의 규칙 목록
func (t *Table) Rules() []model.RoutingRule {
	out := make([]model.RoutingRule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r.RoutingRule)
	}
	return out
}

// Destination - id로 전송 대상 조회
func (t *Table) Destination(id string) (model.Destination, bool) {
	d, ok := t.destinations[id]
	return d, ok
}

// Route - 분류에 처음 매칭되는 규칙 선택 및 분석 여부 결정
// 분석 여부 우선순위: 전역 스위치 -> allow -> deny -> 규칙의 analyze
func (t *Table) Route(cls model.Classification) model.RouteDecision {
	rule := t.match(cls)

	return model.RouteDecision{
		Rule:        rule.Name,
		Analyze:     t.shouldAnalyze(cls, rule),
		Destination: t.destinations[rule.Destination],
	}
}

func (t *Table) match(cls model.Classification) model.RoutingRule {
	env := predicateEnv(cls)
	for _, r := range t.rules {
		if r.Category != "" && r.Category != cls.Category {
			continue
		}
		if r.program != nil {
			out, err := expr.Run(r.program, env)
			if err != nil {
				log.Printf("[Routing] rule %s predicate failed: %v", r.Name, err)
				continue
			}
			if matched, ok := out.(bool); !ok || !matched {
				continue
			}
		}
		return r.RoutingRule
	}
	return t.fallback
}

func (t *Table) shouldAnalyze(cls model.Classification, rule model.RoutingRule) bool {
	if !t.analysis.IsEnabled() {
		return false
	}
	raw := string(cls.Event.RawPayload)
	for _, pattern := range t.analysis.Allow {
		if pattern != "" && strings.Contains(raw, pattern) {
			return true
		}
	}
	for _, pattern := range t.analysis.Deny {
		if pattern != "" && strings.Contains(raw, pattern) {
			return false
		}
	}
	return rule.Analyze
}

// predicateEnv - 조건식 환경 (metadata 키 + category, source)
func predicateEnv(cls model.Classification) map[string]any {
	env := make(map[string]any, len(cls.Metadata)+2)
	for k, v := range cls.Metadata {
		env[k] = v
	}
	env["category"] = string(cls.Category)
	env["source"] = string(cls.Event.Source)
	return env
}
