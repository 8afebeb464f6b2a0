package rag

import (
	"context"

	"github.com/perbu/groundrag/pkg/embedder"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"go.uber.org/zap"
)

// Indexer embeds a corpus, builds the index and persists both.
type Indexer struct {
	embedder embedder.Embedder
	store    *Store
	log      *zap.Logger
}

func NewIndexer(e embedder.Embedder, store *Store, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{embedder: e, store: store, log: log}
}

// Build replaces any existing index with one built from corpus. Every
// chunk is embedded before anything is written, so a failed build leaves
// the previous files untouched.
func (ix *Indexer) Build(ctx context.Context, corpus []Chunk) (Summary, error) {
	if len(corpus) == 0 {
		return Summary{}, ragerr.New(ragerr.CodeCorpusBuildEmpty, "corpus is empty, nothing to index")
	}

	ix.log.Info("embedding chunks", zap.Int("chunks", len(corpus)), zap.String("model", ix.embedder.ModelInfo()))

	texts := make([]string, len(corpus))
	for i, c := range corpus {
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedAll(ctx, ix.embedder, texts, func(done, total int) {
		if done%10 == 0 || done == total {
			ix.log.Info("embedding progress", zap.Int("done", done), zap.Int("total", total))
		}
	})
	if err != nil {
		return Summary{}, err
	}

	index, err := BuildIndex(vectors)
	if err != nil {
		return Summary{}, err
	}

	if ix.store.Exists() {
		ix.log.Info("replacing existing index", zap.String("index", ix.store.IndexPath()))
	}
	if err := ix.store.Save(index, corpus, ix.embedder.ModelInfo()); err != nil {
		return Summary{}, err
	}

	s := Summary{
		Chunks:     len(corpus),
		Vectors:    index.Len(),
		Dimension:  index.Dimension(),
		ModelInfo:  ix.embedder.ModelInfo(),
		IndexPath:  ix.store.IndexPath(),
		CorpusPath: ix.store.CorpusPath(),
	}
	ix.log.Info("index saved",
		zap.Int("vectors", s.Vectors),
		zap.Int("dimension", s.Dimension),
		zap.String("index", s.IndexPath),
		zap.String("corpus", s.CorpusPath),
	)
	return s, nil
}
