package rag

import (
	"context"

	"github.com/perbu/groundrag/pkg/embedder"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"go.uber.org/zap"
)

// Retriever answers top-k queries against a loaded index and its corpus.
// It never mutates either, so one Retriever may serve concurrent readers.
type Retriever struct {
	embedder embedder.Embedder
	index    *Index
	corpus   []Chunk
	log      *zap.Logger
}

// NewRetriever checks that index and corpus are aligned before accepting
// them.
func NewRetriever(e embedder.Embedder, ix *Index, corpus []Chunk, log *zap.Logger) (*Retriever, error) {
	if ix == nil {
		return nil, ragerr.New(ragerr.CodeIndexNotFound, "no index loaded, run the index command first")
	}
	if err := checkAlignment(ix, corpus); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{embedder: e, index: ix, corpus: corpus, log: log}, nil
}

// SearchTopK embeds question and returns the k nearest chunks, nearest
// first, each with its distance. Fewer than k results come back when the
// corpus is smaller than k.
func (r *Retriever) SearchTopK(ctx context.Context, question string, k int) ([]SearchResult, error) {
	q, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "embedding question",
			ragerr.FieldModel(r.embedder.ModelInfo()),
		)
	}
	return r.searchVector(q, k)
}

func (r *Retriever) searchVector(q []float32, k int) ([]SearchResult, error) {
	hits, err := r.index.Search(q, k)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(r.corpus) {
			return nil, ragerr.New(ragerr.CodeIndexCorrupt, "search hit outside corpus", ragerr.Field("position", h.Position))
		}
		results = append(results, SearchResult{Chunk: r.corpus[h.Position], Score: h.Distance})
		r.log.Debug("retrieved chunk",
			zap.String("citation", r.corpus[h.Position].Citation()),
			zap.Float32("score", h.Distance),
		)
	}
	return results, nil
}

// Corpus returns the chunks backing the retriever.
func (r *Retriever) Corpus() []Chunk {
	return r.corpus
}

// Neighbours returns the chunks of target's document within n chunks either
// side of it, in corpus order, target included. A negative n counts as 0.
func Neighbours(corpus []Chunk, target Chunk, n int) []Chunk {
	if n < 0 {
		n = 0
	}
	if target.Position < 0 || target.Position >= len(corpus) {
		return []Chunk{target}
	}

	start := target.Position - n
	if start < 0 {
		start = 0
	}
	end := target.Position + n + 1
	if end > len(corpus) {
		end = len(corpus)
	}

	var out []Chunk
	for i := start; i < end; i++ {
		if corpus[i].DocID == target.DocID {
			out = append(out, corpus[i])
		}
	}
	return out
}
