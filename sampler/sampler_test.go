package sampler_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/sampler"
)

// deterministicEmbedder returns a one-hot-ish vector derived from each
// chunk's position so distinct chunks are never accidentally identical,
// without depending on any real embedding model.
type deterministicEmbedder struct {
	dim   int
	calls int
}

func (e *deterministicEmbedder) Embed(_ context.Context, inputs []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(inputs))
	for i := range inputs {
		v := make([]float64, e.dim)
		v[i%e.dim] = 1
		if e.dim > 1 {
			v[(i+1)%e.dim] = 0.3
		}
		out[i] = v
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("embedding provider unavailable")
}

func TestChunkInvariantHoldsAcrossInput(t *testing.T) {
	raw := strings.Repeat("abcdefghij", 100) // 1000 bytes
	embedder := &deterministicEmbedder{dim: 8}

	result, err := sampler.Sample(context.Background(), raw, 3, embedder)
	require.NoError(t, err)

	chunks := result.State.Chunks()
	for _, c := range chunks {
		assert.Equal(t, raw[c.Start:c.End], c.Content)
	}
	for _, v := range result.Vignettes {
		require.Less(t, v.Position, len(chunks))
		assert.Equal(t, chunks[v.Position].Content, v.Content)
	}
}

func TestSampleSelectsAtMostK(t *testing.T) {
	raw := strings.Repeat("x", 50) // one chunk only, shorter than ChunkSize
	embedder := &deterministicEmbedder{dim: 4}

	result, err := sampler.Sample(context.Background(), raw, 5, embedder)
	require.NoError(t, err)
	assert.Len(t, result.Vignettes, 1)
	assert.False(t, result.HasMore)
}

func TestEmptyInputAbortsSampling(t *testing.T) {
	embedder := &deterministicEmbedder{dim: 4}
	_, err := sampler.Sample(context.Background(), "", 1, embedder)
	require.ErrorIs(t, err, sampler.ErrEmptyChunks)
}

func TestSamplerExhaustionScenario(t *testing.T) {
	embedder := &deterministicEmbedder{dim: 4}
	result, err := sampler.Sample(context.Background(), "Short.", 1, embedder)
	require.NoError(t, err)
	require.Len(t, result.Vignettes, 1)
	assert.False(t, result.HasMore)

	more, err := result.State.RequestMore(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, more.Vignettes)
	assert.False(t, more.HasMore)
}

func TestRequestMoreRejectsNonPositiveCount(t *testing.T) {
	embedder := &deterministicEmbedder{dim: 4}
	result, err := sampler.Sample(context.Background(), "Short.", 1, embedder)
	require.NoError(t, err)

	before := result.State.Chunks()

	_, err = result.State.RequestMore(context.Background(), 0)
	require.ErrorIs(t, err, sampler.ErrNonPositiveCount)

	_, err = result.State.RequestMore(context.Background(), -5)
	require.ErrorIs(t, err, sampler.ErrNonPositiveCount)

	assert.Equal(t, before, result.State.Chunks())
}

func TestSampleRejectsNonPositiveCount(t *testing.T) {
	embedder := &deterministicEmbedder{dim: 4}
	_, err := sampler.Sample(context.Background(), "Short.", 0, embedder)
	require.ErrorIs(t, err, sampler.ErrNonPositiveCount)
}

func TestRequestMoreNeverDuplicatesPositions(t *testing.T) {
	raw := strings.Repeat("abcdefghij", 200) // 2000 bytes, many chunks
	embedder := &deterministicEmbedder{dim: 16}

	result, err := sampler.Sample(context.Background(), raw, 4, embedder)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, v := range result.Vignettes {
		seen[v.Position] = true
	}

	for i := 0; i < 5; i++ {
		more, err := result.State.RequestMore(context.Background(), 4)
		require.NoError(t, err)
		for _, v := range more.Vignettes {
			assert.False(t, seen[v.Position], "position %d returned twice", v.Position)
			seen[v.Position] = true
		}
		if !more.HasMore {
			break
		}
	}
}

func TestRequestMoreOverrequestReturnsAllRemainingAndHasMoreFalse(t *testing.T) {
	raw := strings.Repeat("abcdefghij", 50) // 500 bytes, a handful of chunks
	embedder := &deterministicEmbedder{dim: 8}

	result, err := sampler.Sample(context.Background(), raw, 1, embedder)
	require.NoError(t, err)

	more, err := result.State.RequestMore(context.Background(), 1000)
	require.NoError(t, err)
	assert.False(t, more.HasMore)

	total := len(result.Vignettes) + len(more.Vignettes)
	assert.Equal(t, len(result.State.Chunks()), total)
}

func TestEmbedderErrorPropagates(t *testing.T) {
	_, err := sampler.Sample(context.Background(), strings.Repeat("a", 500), 2, failingEmbedder{})
	require.Error(t, err)
}

func TestSampleIsDeterministicWithSeed(t *testing.T) {
	raw := strings.Repeat("abcdefghij", 100)
	embedder1 := &deterministicEmbedder{dim: 8}
	embedder2 := &deterministicEmbedder{dim: 8}

	r1, err := sampler.Sample(context.Background(), raw, 3, embedder1, sampler.WithSeed(42))
	require.NoError(t, err)
	r2, err := sampler.Sample(context.Background(), raw, 3, embedder2, sampler.WithSeed(42))
	require.NoError(t, err)

	require.Len(t, r1.Vignettes, len(r2.Vignettes))
	for i := range r1.Vignettes {
		assert.Equal(t, r1.Vignettes[i].Position, r2.Vignettes[i].Position)
	}
}

func TestFarthestPointSelectionIsLocallyOptimal(t *testing.T) {
	// Four orthogonal-ish directions; selecting 2 of 4 greedily should not
	// pick two near-duplicate directions when a maximally distant pair
	// exists.
	embedder := &fixedEmbedder{
		vectors: [][]float64{
			{1, 0, 0, 0},
			{0.99, 0.01, 0, 0}, // near-duplicate of the first
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
	}
	// Exactly four overlapping windows: three full steps plus one final chunk.
	raw := strings.Repeat("z", 3*(sampler.ChunkSize-sampler.Overlap)+sampler.ChunkSize)
	result, err := sampler.Sample(context.Background(), raw, 2, embedder, sampler.WithSeed(1))
	require.NoError(t, err)
	require.Len(t, result.Vignettes, 2)
	assert.NotEqual(t, result.Vignettes[0].Position == 0 && result.Vignettes[1].Position == 1, true,
		"greedy selection should not settle on the two near-duplicate vectors when better spread exists")
}

type fixedEmbedder struct{ vectors [][]float64 }

func (e *fixedEmbedder) Embed(_ context.Context, inputs []string) ([][]float64, error) {
	if len(inputs) != len(e.vectors) {
		return nil, errors.New("fixedEmbedder: chunk count mismatch")
	}
	return e.vectors, nil
}
