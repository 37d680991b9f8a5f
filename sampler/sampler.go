// Package sampler implements the diversity sampler (C6): it chunks a raw
// document into overlapping windows, embeds each chunk through a
// caller-supplied batch embedder, and selects a diverse subset by
// farthest-point sampling over cosine distance. Selection is stateful so a
// follow-up requestMore call returns new, non-duplicate samples.
package sampler

import (
	"context"
	"errors"
	"fmt"
)

const (
	// ChunkSize is the window width, in bytes, of each chunk.
	ChunkSize = 200
	// Overlap is the number of bytes shared between consecutive chunks.
	Overlap = 10
)

type (
	// Chunk is one overlapping window over the raw input. The invariant
	// rawData[Start:End] == Content always holds.
	Chunk struct {
		Content string
		Start   int
		End     int
	}

	// Vignette is one selected chunk, paired with its embedding and its
	// position (index into the document's chunk list).
	Vignette struct {
		Content   string
		Position  int
		Embedding []float64
	}

	// Embedder embeds a batch of chunk contents into same-length unit
	// vectors. The sampler never calls it chunk-by-chunk: Sample makes a
	// single batch call, and RequestMore reuses the embeddings held in
	// State without calling it again.
	Embedder interface {
		Embed(ctx context.Context, inputs []string) ([][]float64, error)
	}

	// State is the stateful record a caller threads across RequestMore
	// calls against the same document. The zero value is not usable;
	// obtain one from Sample.
	State struct {
		rawData         string
		allChunks       []Chunk
		allEmbeddings   [][]float64
		providedIndices map[int]struct{}
	}

	// Result is the outcome of Sample or State.RequestMore.
	Result struct {
		Vignettes []Vignette
		State     *State
		HasMore   bool
	}

	options struct {
		rng randSource
	}

	// Option configures Sample.
	Option func(*options)
)

// WithSeed makes the first-pick random draw reproducible, resolving the
// sampler's only open design question (the source leaves the first pick
// unseeded). Omitting it falls back to a randomly seeded source.
func WithSeed(seed int64) Option {
	return func(o *options) { o.rng = newPCGSource(seed) }
}

// ErrEmptyChunks is returned when the raw input produces no chunks to
// sample from.
var ErrEmptyChunks = errors.New("sampler: input produced no chunks")

// Sample chunks raw, embeds every chunk, and selects up to k of them by
// farthest-point sampling, returning the selected vignettes and a State a
// caller can pass to RequestMore for additional, non-duplicate picks.
func Sample(ctx context.Context, raw string, k int, embed Embedder, opts ...Option) (Result, error) {
	o := &options{rng: newCryptoSource()}
	for _, opt := range opts {
		opt(o)
	}

	chunks := chunkText(raw)
	if len(chunks) == 0 {
		return Result{}, ErrEmptyChunks
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	embeddings, err := embed.Embed(ctx, contents)
	if err != nil {
		return Result{}, fmt.Errorf("sampler: embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return Result{}, fmt.Errorf("sampler: embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	state := &State{
		rawData:         raw,
		allChunks:       chunks,
		allEmbeddings:   embeddings,
		providedIndices: make(map[int]struct{}, len(chunks)),
	}
	return selectFrom(state, k, o.rng)
}

// Chunks returns a copy of the document's full chunk list, in document
// order, regardless of which have already been provided.
func (s *State) Chunks() []Chunk {
	out := make([]Chunk, len(s.allChunks))
	copy(out, s.allChunks)
	return out
}

// RawData returns the original input the state was built from.
func (s *State) RawData() string { return s.rawData }

// ErrNonPositiveCount is returned by RequestMore when k is not a positive
// count. State is left unmutated.
var ErrNonPositiveCount = errors.New("Count must be greater than 0")

// RequestMore selects up to k additional vignettes from the complement of
// s's already-provided positions, by the same farthest-point rule, never
// re-selecting a position already returned on this state chain. k must be
// positive; s is left unmutated when it returns an error.
func (s *State) RequestMore(_ context.Context, k int) (Result, error) {
	if k <= 0 {
		return Result{}, ErrNonPositiveCount
	}
	return selectFrom(s, k, newCryptoSource())
}

func selectFrom(s *State, k int, rng randSource) (Result, error) {
	if k <= 0 {
		return Result{}, ErrNonPositiveCount
	}
	remaining := make([]int, 0, len(s.allChunks)-len(s.providedIndices))
	for i := range s.allChunks {
		if _, ok := s.providedIndices[i]; !ok {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 0 {
		return Result{Vignettes: nil, State: s, HasMore: len(s.providedIndices) < len(s.allChunks)}, nil
	}

	count := k
	if count > len(remaining) {
		count = len(remaining)
	}

	selected := farthestPointSelect(s.allEmbeddings, remaining, count, rng)
	vignettes := make([]Vignette, len(selected))
	for i, idx := range selected {
		vignettes[i] = Vignette{
			Content:   s.allChunks[idx].Content,
			Position:  idx,
			Embedding: s.allEmbeddings[idx],
		}
		s.providedIndices[idx] = struct{}{}
	}
	return Result{
		Vignettes: vignettes,
		State:     s,
		HasMore:   len(s.providedIndices) < len(s.allChunks),
	}, nil
}

// chunkText splits raw into overlapping ChunkSize-byte windows with Overlap
// bytes shared between consecutive windows, stopping once a window reaches
// the end of the input.
func chunkText(raw string) []Chunk {
	if len(raw) == 0 {
		return nil
	}
	step := ChunkSize - Overlap
	var chunks []Chunk
	for start := 0; start < len(raw); start += step {
		end := start + ChunkSize
		if end > len(raw) {
			end = len(raw)
		}
		chunks = append(chunks, Chunk{Content: raw[start:end], Start: start, End: end})
		if end == len(raw) {
			break
		}
	}
	return chunks
}
