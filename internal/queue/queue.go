// Package queue implements the durable, encrypted task queue: FIFO task
// lists partitioned by document type, plaintext status keys, and TTL'd
// encrypted result blobs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// Queue is the task store contract shared by submitters and workers.
type Queue interface {
	// Enqueue assigns a task id if missing and appends the encrypted task to
	// its document-type FIFO with initial status pending.
	Enqueue(ctx context.Context, t *task.Task) (string, error)
	// Dequeue pops the oldest task across all document-type queues.
	// Returns (nil, nil) when every queue is empty; callers poll.
	Dequeue(ctx context.Context) (*task.Task, error)
	// UpdateTaskStatus is an idempotent overwrite.
	UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error
	// GetTaskStatus reports failed for unknown ids: callers cannot
	// distinguish "never existed" from "failed" through this call alone.
	GetTaskStatus(ctx context.Context, taskID string) (task.Status, error)
	// StoreResult encrypts and persists the result with the given TTL and
	// sets status completed as a side effect.
	StoreResult(ctx context.Context, taskID string, result any, ttl time.Duration) error
	// GetResult returns nil when the result is absent or expired. The value
	// is either the ordered per-range result list or a single error object.
	GetResult(ctx context.Context, taskID string) (any, error)
}

// RedisQueue implements Queue over a Store and a Crypter.
//
// Key layout: <name>:<doc_type> list, <statusPrefix>:<task_id> string,
// <resultPrefix>:<task_id> string with TTL. Statuses are written without
// expiry (results carry their own TTL); a completed task's status outlives
// its result blob.
type RedisQueue struct {
	store        Store
	crypter      *Crypter
	name         string
	statusPrefix string
	resultPrefix string
	logger       *slog.Logger
}

// Config holds queue naming and encryption settings.
type Config struct {
	Name          string // default "invoice_tasks"
	StatusPrefix  string // default "invoice_status"
	ResultPrefix  string // default "invoice_result"
	EncryptionKey []byte // 32 bytes
}

// New builds a RedisQueue on top of an already connected Store.
func New(store Store, cfg Config, logger *slog.Logger) (*RedisQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	crypter, err := NewCrypter(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "invoice_tasks"
	}
	if cfg.StatusPrefix == "" {
		cfg.StatusPrefix = "invoice_status"
	}
	if cfg.ResultPrefix == "" {
		cfg.ResultPrefix = "invoice_result"
	}
	return &RedisQueue{
		store:        store,
		crypter:      crypter,
		name:         cfg.Name,
		statusPrefix: cfg.StatusPrefix,
		resultPrefix: cfg.ResultPrefix,
		logger:       logger,
	}, nil
}

func (q *RedisQueue) queueKey(dt constants.DocumentType) string {
	return q.name + ":" + string(dt)
}

func (q *RedisQueue) statusKey(taskID string) string {
	return q.statusPrefix + ":" + taskID
}

func (q *RedisQueue) resultKey(taskID string) string {
	return q.resultPrefix + ":" + taskID
}

func (q *RedisQueue) Enqueue(ctx context.Context, t *task.Task) (string, error) {
	t.Normalize(q.logger)
	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = time.Now().UTC()
	}

	plain, err := t.Marshal()
	if err != nil {
		return "", err
	}
	sealed, err := q.crypter.Seal(plain)
	if err != nil {
		return "", err
	}

	if err := q.store.Push(ctx, q.queueKey(t.DocumentType), sealed); err != nil {
		return "", err
	}
	if err := q.UpdateTaskStatus(ctx, t.TaskID, task.StatusPending); err != nil {
		return "", err
	}

	q.logger.Info("queue.enqueue",
		"task_id", t.TaskID,
		"document_type", t.DocumentType,
		"num_pages", t.NumPages,
	)
	return t.TaskID, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*task.Task, error) {
	for _, dt := range constants.DocumentTypes {
		sealed, err := q.store.Pop(ctx, q.queueKey(dt))
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		plain, err := q.crypter.Open(sealed)
		if err != nil {
			q.logger.Error("queue.dequeue.decrypt_failed", "document_type", dt, "error", err)
			return nil, err
		}
		t, err := task.Unmarshal(plain)
		if err != nil {
			return nil, err
		}
		q.logger.Debug("queue.dequeue", "task_id", t.TaskID, "document_type", dt)
		return t, nil
	}
	return nil, nil
}

func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	return q.store.Set(ctx, q.statusKey(taskID), []byte(status), 0)
}

func (q *RedisQueue) GetTaskStatus(ctx context.Context, taskID string) (task.Status, error) {
	val, err := q.store.Get(ctx, q.statusKey(taskID))
	if errors.Is(err, common.ErrNotFound) {
		return task.StatusFailed, nil
	}
	if err != nil {
		return task.StatusFailed, err
	}
	return task.Status(val), nil
}

func (q *RedisQueue) StoreResult(ctx context.Context, taskID string, result any, ttl time.Duration) error {
	plain, err := json.Marshal(result)
	if err != nil {
		return common.WrapError(err, "marshal result")
	}
	sealed, err := q.crypter.Seal(plain)
	if err != nil {
		return err
	}
	if err := q.store.Set(ctx, q.resultKey(taskID), sealed, ttl); err != nil {
		return err
	}
	// completion is implied by a stored result; callers need no extra write
	if err := q.UpdateTaskStatus(ctx, taskID, task.StatusCompleted); err != nil {
		return err
	}
	q.logger.Info("queue.store_result", "task_id", taskID, "ttl", ttl)
	return nil
}

func (q *RedisQueue) GetResult(ctx context.Context, taskID string) (any, error) {
	sealed, err := q.store.Get(ctx, q.resultKey(taskID))
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	plain, err := q.crypter.Open(sealed)
	if err != nil {
		q.logger.Error("queue.get_result.decrypt_failed", "task_id", taskID, "error", err)
		return nil, err
	}
	var result any
	if err := json.Unmarshal(plain, &result); err != nil {
		return nil, common.WrapError(err, "unmarshal result")
	}
	return result, nil
}
