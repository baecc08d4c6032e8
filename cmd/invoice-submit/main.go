package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/queue"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// metaFlags collects repeated --meta key=value pairs.
type metaFlags map[string]any

func (m metaFlags) String() string { return fmt.Sprintf("%v", map[string]any(m)) }

func (m metaFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	// comma-separated values become lists (e.g. candidate customer names)
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			list = append(list, strings.TrimSpace(p))
		}
		m[key] = list
		return nil
	}
	m[key] = value
	return nil
}

func main() {
	var (
		pdfPath  = flag.String("pdf", "", "path to the PDF file (required)")
		docType  = flag.String("type", "text", "document type: text, scanned, password_protected, copy_protected")
		password = flag.String("password", "", "PDF password (password_protected only)")
		numPages = flag.Int("invoices", 1, "expected invoice count")
		ranges   = flag.String("ranges", "", "explicit 1-based page ranges, e.g. 1-3,4,5-6")
		ttl      = flag.Int("ttl", task.DefaultResultTTL, "result TTL in seconds")
		wait     = flag.Bool("wait", false, "poll until the task reaches a terminal status and print the result")
		meta     = metaFlags{}
	)
	flag.Var(meta, "meta", "metadata key=value (repeatable; comma-separated values become lists)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "error: --pdf is required")
		os.Exit(1)
	}
	if _, ok := constants.ParseDocumentType(*docType); !ok {
		fmt.Fprintf(os.Stderr, "error: unknown document type %q\n", *docType)
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

	t := &task.Task{
		PDFPath:      *pdfPath,
		DocumentType: constants.DocumentType(*docType),
		Password:     *password,
		ProcessType:  string(constants.ProcessTypeInvoice),
		NumPages:     *numPages,
		ResultTTL:    *ttl,
		Metadata:     map[string]any(meta),
	}
	if *ranges != "" {
		t.PageRanges = strings.Split(*ranges, ",")
	}

	taskID, err := q.Enqueue(ctx, t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: enqueue: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(taskID)

	if !*wait {
		return
	}

	for {
		status, err := q.GetTaskStatus(ctx, taskID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: status: %v\n", err)
			os.Exit(1)
		}
		if status.Terminal() {
			fmt.Fprintf(os.Stderr, "status: %s\n", status)
			result, err := q.GetResult(ctx, taskID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: result: %v\n", err)
				os.Exit(1)
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			if status == task.StatusFailed {
				os.Exit(2)
			}
			return
		}
		time.Sleep(time.Second)
	}
}
