package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/queue"
	"github.com/joseph-ayodele/invoice-extractor/internal/worker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := queue.NewRedisStore(queue.RedisConfig{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
		PoolSize: cfg.Queue.PoolSize,
	})
	if err != nil {
		logger.Error("failed to connect to redis", "error", err, "addr", cfg.Queue.RedisAddr)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("redis close error", "error", err)
		}
	}()

	q, err := queue.New(store, queue.Config{
		Name:          cfg.Queue.QueueName,
		StatusPrefix:  cfg.Queue.StatusPrefix,
		ResultPrefix:  cfg.Queue.ResultPrefix,
		EncryptionKey: cfg.Queue.EncryptionKey,
	}, logger)
	if err != nil {
		logger.Error("failed to build queue", "error", err)
		os.Exit(1)
	}

	reader := pdf.NewReader(pdf.Config{
		Pdftotext: cfg.PDF.Pdftotext,
		Pdfinfo:   cfg.PDF.Pdfinfo,
		Pdftoppm:  cfg.PDF.Pdftoppm,
		Tesseract: cfg.PDF.Tesseract,
		OCRLang:   cfg.PDF.OCRLang,
		DPI:       cfg.PDF.OCRDPI,
	}, logger)

	// One client per process: its semaphore bounds all in-flight LLM calls.
	client := openai.NewClient(openai.Config{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		Timeout:       cfg.LLM.Timeout,
		MaxConcurrent: cfg.LLM.MaxConcurrent,
	}, reader, logger)

	analyzer := pipeline.NewAnalyzer(reader, client, logger)
	invoiceStage := pipeline.NewInvoiceStage(client, logger)

	w := worker.New(q, reader, analyzer, invoiceStage, logger,
		worker.WithPollInterval(cfg.Worker.PollInterval),
	)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, draining")
		w.Stop()
	}()

	w.Run(ctx)
	w.Wait()
}
