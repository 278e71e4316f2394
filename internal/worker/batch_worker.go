package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Redis BLPOP resolution is one second
)

// Store persists queued items. CopyMany is the fast path for a full batch;
// Insert is the row-by-row recovery path.
type Store[T any] interface {
	CopyMany(ctx context.Context, batch []*T) error
	Insert(ctx context.Context, item *T) error
}

// BatchWorker drains a Redis list into a Store in batches.
type BatchWorker[T any] struct {
	queue string
	store Store[T]
	rdb   redis.UniversalClient
	log   zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	retryBackoff time.Duration
	validate     func(*T) error
}

func newBatchWorker[T any](component, queue string, store Store[T], rdb redis.UniversalClient, log zerolog.Logger) *BatchWorker[T] {
	return &BatchWorker[T]{
		queue:        queue,
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", component).Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		retryBackoff: 2 * time.Second,
	}
}

// Queue is the Redis list this worker drains.
func (w *BatchWorker[T]) Queue() string {
	return w.queue
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *BatchWorker[T]) Start(ctx context.Context) {
	w.log.Info().Str("queue", w.queue).Msg("Worker started")

	buffer := make([]*T, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		item, err := w.decode(result[1])
		if err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed payload")
			continue
		}
		buffer = append(buffer, item)
	}
}

func (w *BatchWorker[T]) decode(raw string) (*T, error) {
	var item T
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, err
	}
	if w.validate != nil {
		if err := w.validate(&item); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

// flushSafe tries COPY, then row-by-row inserts, then requeues what is left.
func (w *BatchWorker[T]) flushSafe(ctx context.Context, batch []*T) {
	if len(batch) == 0 {
		return
	}
	err := w.store.CopyMany(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Batch persisted")
		return
	}

	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	var requeue []*T
	for _, item := range batch {
		if err := w.store.Insert(ctx, item); err != nil {
			w.log.Error().Err(err).Msg("Insert failed, requeueing")
			requeue = append(requeue, item)
		}
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *BatchWorker[T]) requeue(ctx context.Context, items []*T) {
	pipe := w.rdb.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			w.log.Error().Err(err).Msg("Dropping unencodable item")
			continue
		}
		pipe.RPush(ctx, w.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue items, data lost")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items")
	// Give a struggling database room before the next attempt.
	sleep(ctx, w.retryBackoff)
}

func (w *BatchWorker[T]) shutdown(buffer []*T) {
	w.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flushSafe(ctx, buffer)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
