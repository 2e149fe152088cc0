// Hookflow Worker — выполняет workflow из очереди.
//
// Worker:
//   - Получает задания workflow.run из очереди (RabbitMQ или Redis)
//   - Создаёт job и выполняет действия по порядку
//   - Записывает результат в Postgres
//   - Возвращает ошибку уровня run в очередь для повторной доставки
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/shaiso/Hookflow/internal/api"
	"github.com/shaiso/Hookflow/internal/config"
	"github.com/shaiso/Hookflow/internal/mq"
	"github.com/shaiso/Hookflow/internal/repo"
	"github.com/shaiso/Hookflow/internal/telemetry"
	"github.com/shaiso/Hookflow/internal/worker"
)

func main() {
	fs := pflag.NewFlagSet("hookflow-worker", pflag.ExitOnError)
	configFile := fs.String("config", "", "Config file (yaml, json, toml)")
	migrateOnStart := fs.Bool("migrate", false, "Apply database migrations before starting")
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting hookflow-worker",
		"queue_backend", cfg.Queue.Backend,
		"concurrency", cfg.Worker.Concurrency,
	)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *migrateOnStart {
		version, err := repo.MigrateUp(cfg.DB.URL)
		if err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied", "version", version)
	}

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Очередь
	queue, err := mq.Open(ctx, cfg.Queue, cfg.Worker.Concurrency, mq.Hooks{
		OnRetry: func(string, int, time.Duration) {
			metrics.ObserveRedelivery()
		},
		OnDeadLetter: func(string, int) {
			metrics.ObserveDeadLetter()
		},
	}, logger)
	if err != nil {
		logger.Error("failed to connect to queue", "error", err)
		os.Exit(1)
	}
	defer queue.Close()
	logger.Info("queue connected", "backend", cfg.Queue.Backend)

	// Executors
	executors := &worker.Executors{
		Slack:   worker.NewSlackExecutor(cfg.Worker.SlackTimeout),
		Webhook: worker.NewWebhookExecutor(cfg.Worker.WebhookTimeout),
	}

	mailer, err := worker.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		logger.Warn("SMTP not configured, sendEmail actions will fail", "error", err)
	} else {
		defer mailer.Close()
		executors.Email = worker.NewEmailExecutor(mailer)
	}

	jobRepo := repo.NewJobRepo(pool)

	// Создаём worker
	w := worker.New(worker.Config{
		Queue:       queue,
		Jobs:        jobRepo,
		Executors:   executors,
		ActionDelay: cfg.Worker.ActionDelay,
		Metrics:     metrics,
		Logger:      logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz, /metrics, /api/v1/jobs
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(rw, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Read-only API по job'ам
	api.NewHandler(api.Config{Jobs: jobRepo, Logger: logger}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Worker.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}

	logger.Info("hookflow-worker stopped")
}
