package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"labelDesk/internal/batch"
	"labelDesk/internal/binding"
	"labelDesk/internal/config"
	"labelDesk/internal/database"
	"labelDesk/internal/metrics"
	"labelDesk/internal/pdf"
	"labelDesk/internal/render"
	"labelDesk/internal/sequence"
	"labelDesk/internal/storage"
	"labelDesk/internal/tasks"
	"labelDesk/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	browser, err := pdf.Launch(logger)
	if err != nil {
		log.Fatalf("launch browser: %v", err)
	}
	defer browser.Close()

	renderer, err := render.NewHTMLRenderer(logger, cfg.Print.PrinterDPI)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}
	host := pdf.NewHost(browser, logger)
	resolver := binding.NewResolver(logger)
	numbers := sequence.NewTieredService(cfg.Sequence, redisClient, db, storageClient, logger)

	concurrency := cfg.Print.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	batchCfg := batch.Config{
		BatchSize:       cfg.Print.BatchSize,
		WarnThreshold:   cfg.Print.WarnThreshold,
		FallbackTimeout: cfg.Print.FallbackTimeout,
	}
	// 每个编排器同一时刻只跑一个打印周期，并发度由编排器数量决定。
	executors := make([]worker.Executor, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		executors = append(executors, batch.NewOrchestrator(renderer, host, numbers, resolver, batchCfg, logger))
	}
	pool := worker.NewExecutorPool(executors...)

	go serveMetrics(cfg.Worker.MetricsPort, logger)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		// 预览任务不占用编排器，留出额外槽位。
		Concurrency: concurrency + 2,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypePrintBatch, worker.NewPrintTaskHandler(db, storageClient, redisClient, pool, logger))
	mux.Handle(tasks.TypeLabelPreview, worker.NewPreviewTaskHandler(storageClient, redisClient, renderer, host, resolver, logger))

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("print_concurrency", concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}

func serveMetrics(port int, logger *slog.Logger) {
	if port <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("worker metrics listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("worker metrics server stopped", slog.Any("error", err))
	}
}
