package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"document-index/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns [len(text), call number] for every text and fails on
// the configured 1-based call.
type fakeEmbedder struct {
	calls    [][]string
	failOn   int
	failWith error
	short    bool
	onCall   func(call int)
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	call := len(f.calls)
	if f.onCall != nil {
		f.onCall(call)
	}
	if call == f.failOn {
		return nil, f.failWith
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = []float32{float32(len(t)), float32(call)}
	}
	if f.short {
		return vectors[:len(vectors)-1], nil
	}
	return vectors, nil
}

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			FileName:   "doc",
			PageIndex:  i / 3,
			ChunkIndex: i % 3,
			Text:       fmt.Sprintf("chunk number %d", i),
		}
	}
	return chunks
}

func TestEmbedChunksAllBatchesSucceed(t *testing.T) {
	for _, batchSize := range []int{1, 2, 3, 7, 50} {
		t.Run(fmt.Sprintf("batch_%d", batchSize), func(t *testing.T) {
			chunks := makeChunks(7)
			fake := &fakeEmbedder{}

			res, err := EmbedChunks(context.Background(), chunks, fake, BatchOptions{BatchSize: batchSize})
			require.NoError(t, err)

			assert.False(t, res.Truncated())
			assert.Zero(t, res.Dropped())
			require.Len(t, res.Embedded, len(chunks))
			for i, ec := range res.Embedded {
				assert.Equal(t, chunks[i], ec.Chunk)
				assert.Equal(t, float32(len(chunks[i].Text)), ec.Embedding[0])
			}
			wantCalls := (len(chunks) + batchSize - 1) / batchSize
			assert.Len(t, fake.calls, wantCalls)
			assert.Equal(t, wantCalls, res.Batches)
		})
	}
}

func TestEmbedChunksStopsAtFailingBatch(t *testing.T) {
	quota := errors.New("429 quota exceeded")
	chunks := makeChunks(9)

	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("fail_on_%d", k), func(t *testing.T) {
			fake := &fakeEmbedder{failOn: k, failWith: quota}

			res, err := EmbedChunks(context.Background(), chunks, fake, BatchOptions{BatchSize: 2})
			require.NoError(t, err)

			require.True(t, res.Truncated())
			assert.Len(t, fake.calls, k, "no batch after the failure is attempted")
			assert.Len(t, res.Embedded, 2*(k-1))
			assert.Equal(t, len(chunks)-2*(k-1), res.Dropped())
			for i, ec := range res.Embedded {
				assert.Equal(t, chunks[i], ec.Chunk)
			}

			assert.Equal(t, k, res.Failure.Batch)
			assert.Equal(t, 2*(k-1), res.Failure.Start)
			assert.Equal(t, min(2*k, len(chunks)), res.Failure.End)
			assert.ErrorIs(t, res.Failure, quota)
			assert.Contains(t, res.Failure.Error(), fmt.Sprintf("batch %d", k))
		})
	}
}

func TestEmbedChunksVectorCountMismatch(t *testing.T) {
	fake := &fakeEmbedder{short: true}

	res, err := EmbedChunks(context.Background(), makeChunks(4), fake, BatchOptions{BatchSize: 2})
	require.NoError(t, err)
	require.True(t, res.Truncated())
	assert.Equal(t, 1, res.Failure.Batch)
	assert.Empty(t, res.Embedded)
}

func TestEmbedChunksInvalidArguments(t *testing.T) {
	_, err := EmbedChunks(context.Background(), makeChunks(2), &fakeEmbedder{}, BatchOptions{BatchSize: 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = EmbedChunks(context.Background(), makeChunks(2), nil, BatchOptions{BatchSize: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	fake := &fakeEmbedder{}

	res, err := EmbedChunks(context.Background(), nil, fake, BatchOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Embedded)
	assert.False(t, res.Truncated())
	assert.Empty(t, fake.calls)
}

func TestEmbedChunksCancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeEmbedder{onCall: func(int) { cancel() }}

	res, err := EmbedChunks(ctx, makeChunks(6), fake, BatchOptions{BatchSize: 2, Pause: time.Hour})
	require.NoError(t, err)

	require.True(t, res.Truncated())
	assert.Equal(t, 2, res.Failure.Batch)
	assert.ErrorIs(t, res.Failure, context.Canceled)
	assert.Len(t, res.Embedded, 2)
	assert.Len(t, fake.calls, 1)
}

func TestEmbedChunksPausesBetweenBatches(t *testing.T) {
	var stamps []time.Time
	fake := &fakeEmbedder{onCall: func(int) { stamps = append(stamps, time.Now()) }}

	_, err := EmbedChunks(context.Background(), makeChunks(3), fake, BatchOptions{BatchSize: 1, Pause: 20 * time.Millisecond})
	require.NoError(t, err)

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 20*time.Millisecond)
	}
}

func TestEmbedChunksTwoPageScenario(t *testing.T) {
	chunks := []models.Chunk{
		{FileName: "doc", PageIndex: 0, ChunkIndex: 0, Text: "a"},
		{FileName: "doc", PageIndex: 0, ChunkIndex: 1, Text: "b"},
		{FileName: "doc", PageIndex: 0, ChunkIndex: 2, Text: "c"},
		{FileName: "doc", PageIndex: 1, ChunkIndex: 0, Text: "d"},
		{FileName: "doc", PageIndex: 1, ChunkIndex: 1, Text: "e"},
	}
	fake := &fakeEmbedder{}

	res, err := EmbedChunks(context.Background(), chunks, fake, BatchOptions{BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, fake.calls)
	require.Len(t, res.Embedded, 5)
	var pairs [][2]int
	for _, ec := range res.Embedded {
		pairs = append(pairs, [2]int{ec.PageIndex, ec.ChunkIndex})
	}
	assert.Equal(t, [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}}, pairs)
}
