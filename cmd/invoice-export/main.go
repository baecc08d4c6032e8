package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/queue"
)

func main() {
	var (
		taskID = flag.String("task", "", "task id to export (required)")
		out    = flag.String("out", "invoices.xlsx", "output XLSX file path")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if *taskID == "" {
		fmt.Fprintln(os.Stderr, "error: --task is required")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if len(cfg.Queue.EncryptionKey) != 32 {
		fmt.Fprintln(os.Stderr, "error: QUEUE_ENCRYPTION_KEY must decode to 32 bytes")
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := queue.NewRedisStore(queue.RedisConfig{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
		PoolSize: cfg.Queue.PoolSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: redis connect: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	q, err := queue.New(store, queue.Config{
		Name:          cfg.Queue.QueueName,
		StatusPrefix:  cfg.Queue.StatusPrefix,
		ResultPrefix:  cfg.Queue.ResultPrefix,
		EncryptionKey: cfg.Queue.EncryptionKey,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	result, err := q.GetResult(ctx, *taskID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: result: %v\n", err)
		os.Exit(1)
	}
	if result == nil {
		fmt.Fprintf(os.Stderr, "error: no result for task %s (absent or expired)\n", *taskID)
		os.Exit(1)
	}

	svc := export.NewService(logger)
	data, err := svc.InvoicesXLSX(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: export: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}
