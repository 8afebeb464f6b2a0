package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	ragerr "github.com/perbu/groundrag/pkg/errors"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelInfo() string
}

// SimpleEmbedder is a deterministic bag-of-words embedder. Each lower-cased
// word is hashed into one of dim buckets, so texts sharing words end up
// close in L2 distance. It needs no network and is used for tests.
type SimpleEmbedder struct {
	dim int
}

func NewSimpleEmbedder(dimension int) *SimpleEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &SimpleEmbedder{dim: dimension}
}

func (e *SimpleEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	return vec, nil
}

func (e *SimpleEmbedder) ModelInfo() string {
	return "simple-embedder-v1"
}

// EmbedAll embeds texts one at a time, in order. The first vector fixes the
// dimension; any later vector of a different length aborts with a
// dimension mismatch. progress, when non-nil, is called after each text.
func EmbedAll(ctx context.Context, e Embedder, texts []string, progress func(done, total int)) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	dim := 0
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "embedding text",
				ragerr.Field("position", i),
				ragerr.FieldModel(e.ModelInfo()),
			)
		}
		if i == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, ragerr.New(ragerr.CodeIndexDimensionMismatch, "embedding dimension changed during build",
				ragerr.Field("position", i),
				ragerr.Field("expected", dim),
				ragerr.Field("got", len(v)),
				ragerr.FieldModel(e.ModelInfo()),
			)
		}
		vectors = append(vectors, v)
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	return vectors, nil
}
