package client

import (
	"fmt"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
)

// NewPrometheusAPI - metric_history 도구용 Prometheus HTTP API 클라이언트
// PROMETHEUS_URL이 비어 있으면 nil 반환 (도구는 unavailable 처리)
func NewPrometheusAPI(address string) (promv1.API, error) {
	if address == "" {
		return nil, nil
	}
	c, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return promv1.NewAPI(c), nil
}
