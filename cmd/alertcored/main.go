// Command alertcored is the alert-core process entrypoint: it wires
// the connection registry, offline queue, delivery tracker, webhook
// dispatcher, broadcast engine, and push HTTP endpoint together, then
// serves until signaled to stop. Grounded on the teacher's cmd/main.go
// + internal/server/server.go Start/waitForShutdown lifecycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/auth"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/broadcast"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/clock"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/config"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/delivery"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/heartbeat"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/logging"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/metrics"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/prediction"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/protocol"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/push"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/queue"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/repository"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (defaults to built-in config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("alertcored exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.Real{}
	reg := registry.New()
	q := queue.New(cfg.OfflineQueue.Capacity)
	tracker := delivery.New()
	metricsInstance := metrics.New()
	systemMetrics := metrics.NewSystemMetrics()
	validator := auth.NewJWTValidator(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiration)*time.Second)

	// The relational subscription store is out of scope (§1); an empty
	// in-memory double keeps the webhook dispatcher wired and testable
	// until a real repository.Subscriptions implementation is plugged in.
	subs := &repository.InMemorySubscriptions{}
	history := &repository.InMemoryAlertHistory{}

	dispatcher := webhook.New(subs, cfg.WebhookTimeout(), cfg.Webhook.Concurrency, metricsInstance, log)

	engine := broadcast.New(
		reg, q, tracker, dispatcher, history, clk,
		alert.Thresholds{
			Low:    cfg.Alerts.DefaultThresholdLow,
			Medium: cfg.Alerts.DefaultThresholdMedium,
			High:   cfg.Alerts.DefaultThresholdHigh,
		},
		cfg.ReAlertWindow(),
		log,
	)
	engine.SetRecorder(metricsInstance)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeat.Heartbeat(ctx, reg, clk, cfg.HeartbeatInterval(), heartbeatSender(clk), log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeat.Reaper(ctx, reg, clk, cfg.ReaperInterval(), cfg.IdleTimeout(), log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		metricsInstance.RunSystemSampler(ctx, systemMetrics, 15*time.Second)
	}()

	scheduler, err := newCleanupScheduler(engine, cfg, log)
	if err != nil {
		return fmt.Errorf("build cleanup scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown error", zap.Error(err))
		}
	}()

	var source *prediction.Source
	if cfg.NATS.URL != "" {
		source, err = prediction.Connect(prediction.Config{
			URL:             cfg.NATS.URL,
			MaxReconnects:   cfg.NATS.MaxReconnects,
			ReconnectWait:   time.Duration(cfg.NATS.ReconnectWaitMS) * time.Millisecond,
			ReconnectJitter: 100 * time.Millisecond,
		}, metricsInstance, log)
		if err != nil {
			return fmt.Errorf("connect prediction source: %w", err)
		}
		defer source.Close()

		if err := source.Subscribe(ctx, cfg.NATS.PredictionSubject, func(ctx context.Context, p alert.Prediction) {
			result := engine.ProcessPrediction(ctx, p)
			if result.Fired {
				log.Info("alert fired",
					zap.String("alert_id", result.AlertID),
					zap.String("severity", string(result.Severity)),
					zap.Int("connections_attempted", result.ConnectionsAttempted))
			}
		}); err != nil {
			return fmt.Errorf("subscribe to prediction subject: %w", err)
		}
	} else {
		log.Warn("no NATS URL configured, prediction source disabled")
	}

	httpServer := buildHTTPServer(cfg, reg, validator, engine, clk, metricsInstance, log)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("push endpoint listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
		}
	}()

	waitForShutdown(log)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown error", zap.Error(err))
	}

	wg.Wait()
	return nil
}

func heartbeatSender(clk clock.Clock) heartbeat.Sender {
	return func(conn registry.Connection) error {
		payload, err := protocol.Encode(protocol.TypeHeartbeat, protocol.HeartbeatData{Message: "ping"}, clk.Now())
		if err != nil {
			return err
		}
		return conn.Transport.SendText(payload)
	}
}

func newCleanupScheduler(engine *broadcast.Engine, cfg *config.Config, log *zap.Logger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.CleanupInterval()),
		gocron.NewTask(func() {
			engine.PeriodicCleanup(time.Now(), cfg.DeliveryTTL(), cfg.OfflineQueueTTL())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule periodic cleanup job: %w", err)
	}

	log.Info("cleanup scheduler configured", zap.Duration("interval", cfg.CleanupInterval()))
	return scheduler, nil
}

func buildHTTPServer(cfg *config.Config, reg *registry.Registry, validator auth.Validator, engine *broadcast.Engine, clk clock.Clock, metricsInstance *metrics.Metrics, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", push.NewHandler(reg, validator, engine, clk, metricsInstance, log))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler(reg))

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
}

func healthHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","connections":%d,"authenticated":%d}`,
			reg.Count(), reg.CountAuthenticated())
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func waitForShutdown(log *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("received shutdown signal, draining", zap.String("signal", sig.String()))
}
