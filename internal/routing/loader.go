package routing

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// LoadFile - YAML 파일에서 라우팅 테이블 로드
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open routing file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load - reader에서 라우팅 테이블 로드
func Load(r io.Reader) (*Table, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse routing YAML: %w", err)
	}
	return New(cfg)
}

// LoadBytes - YAML bytes에서 라우팅 테이블 로드
func LoadBytes(data []byte) (*Table, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse routing YAML: %w", err)
	}
	return New(cfg)
}

// Default - 내장 라우팅 테이블
// 긴급 카테고리는 "critical", 나머지는 "heartbeat"로 전송
func Default() (*Table, error) {
	return LoadBytes(defaultConfig)
}

// LoadOrDefault - path가 있으면 로드, 없으면 내장 테이블
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
