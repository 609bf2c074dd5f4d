package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/alert-analyzer/internal/consumer"
	"github.com/kube-rca/alert-analyzer/internal/handler"
	"github.com/kube-rca/alert-analyzer/internal/metrics"
	"github.com/kube-rca/alert-analyzer/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ingress (and Kafka consumer when configured)",
	Long: `Run the event ingress.

Endpoints:
  POST /webhook/events   raw event payload (budget, alarm, custom, SNS envelope)
  GET  /ping             health check
  GET  /metrics          Prometheus metrics
  GET  /openapi.json     OpenAPI document

When KAFKA_BROKERS and KAFKA_TOPIC are set, events are also consumed from Kafka.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe - HTTP 인입 서버와 (설정 시) Kafka consumer 실행, SIGINT/SIGTERM 시 종료
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := service.NewIngressAuthenticator(ctx, cfg.Ingest)
	if err != nil {
		return fmt.Errorf("failed to configure ingest auth: %w", err)
	}
	if !auth.Enabled() {
		log.Printf("Ingest authentication not configured, /webhook/events is open")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.NewRouter(handler.RouterDeps{
			Pipeline: a.pipeline,
			Auth:     auth,
			Metrics:  metrics.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var kc *consumer.Consumer
	if cfg.Kafka.Enabled() {
		kc, err = consumer.New(cfg.Kafka, a.pipeline)
		if err != nil {
			return err
		}
		defer kc.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("HTTP server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if kc != nil {
		g.Go(func() error {
			return kc.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
