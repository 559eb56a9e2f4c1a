package embedding

import (
	"context"
	"fmt"
	"time"

	"document-index/internal/models"

	"github.com/rs/zerolog/log"
)

type BatchOptions struct {
	BatchSize int
	// Pause is slept between consecutive batches.
	Pause time.Duration
}

// BatchError marks the batch at which embedding stopped.
type BatchError struct {
	Batch int // 1-based
	Start int // first chunk offset of the batch
	End   int // one past the last chunk offset
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding failed at batch %d (chunks %d-%d): %v", e.Batch, e.Start, e.End-1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Result is the embedded prefix of the input. Failure is set when a batch
// failed and every chunk from that batch on was dropped.
type Result struct {
	Embedded []models.EmbeddedChunk
	Total    int
	Batches  int
	Failure  *BatchError
}

func (r *Result) Truncated() bool { return r.Failure != nil }

func (r *Result) Dropped() int { return r.Total - len(r.Embedded) }

// EmbedChunks embeds chunks in contiguous batches, one embedder call per
// batch, in order. The first failing batch ends the run: it is logged and
// recorded in Result.Failure, and no error is returned for it.
func EmbedChunks(ctx context.Context, chunks []models.Chunk, embedder Embedder, opts BatchOptions) (*Result, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidArgument, opts.BatchSize)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: nil embedder", ErrInvalidArgument)
	}

	res := &Result{
		Total:    len(chunks),
		Embedded: make([]models.EmbeddedChunk, 0, len(chunks)),
	}

	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))
		batchNum := start/opts.BatchSize + 1

		if start > 0 {
			if err := sleep(ctx, opts.Pause); err != nil {
				res.fail(batchNum, start, end, err)
				break
			}
		}

		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("got %d vectors for %d texts", len(vectors), len(batch))
		}
		if err != nil {
			res.fail(batchNum, start, end, err)
			break
		}

		for i, c := range batch {
			res.Embedded = append(res.Embedded, models.EmbeddedChunk{Chunk: c, Embedding: vectors[i]})
		}
		res.Batches++
		log.Debug().Int("batch", batchNum).Int("size", len(batch)).Msg("Embedded batch")
	}

	return res, nil
}

func (r *Result) fail(batch, start, end int, err error) {
	r.Failure = &BatchError{Batch: batch, Start: start, End: end, Err: err}
	log.Error().
		Err(err).
		Int("batch", batch).
		Int("embedded", len(r.Embedded)).
		Int("dropped", r.Total-len(r.Embedded)).
		Msgf("Embedding failed at batch %d", batch)
	log.Warn().Msg(models.QuotaHint)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
