package main

import (
	"context"

	"github.com/perbu/groundrag/internal/config"
	"github.com/perbu/groundrag/pkg/embedder"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/perbu/groundrag/pkg/generator"
	"github.com/perbu/groundrag/pkg/rag"
	"go.uber.org/zap"
)

// newEmbedder builds the embedding client for the configured provider.
func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return embedder.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Models.Embed, cfg.Timeouts.Embed)
	case "ollama":
		return embedder.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Models.Embed, cfg.Timeouts.Embed)
	}
	return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "unknown provider %q", cfg.Provider)
}

func newGenerator(cfg *config.Config) (generator.Generator, error) {
	switch cfg.Provider {
	case "openai":
		return generator.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Models.Generate, cfg.Timeouts.Generate)
	case "ollama":
		return generator.NewOllamaGenerator(cfg.Ollama.BaseURL, cfg.Models.Generate, cfg.Timeouts.Generate)
	}
	return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "unknown provider %q", cfg.Provider)
}

// openRetriever loads the persisted index and pairs it with a cached query
// embedder.
func openRetriever(cfg *config.Config, log *zap.Logger) (*rag.Retriever, error) {
	ix, corpus, meta, err := rag.NewStore(cfg.Index.Dir).Load()
	if err != nil {
		return nil, err
	}

	e, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	if meta.ModelInfo != e.ModelInfo() {
		log.Warn("index was built with a different embedding model, distances may be meaningless",
			zap.String("index_model", meta.ModelInfo),
			zap.String("configured_model", e.ModelInfo()),
		)
	}
	log.Info("index loaded",
		zap.Int("vectors", meta.Count),
		zap.Int("dimension", meta.Dimension),
		zap.String("dir", cfg.Index.Dir),
	)

	return rag.NewRetriever(embedder.WithCache(e, cfg.Cache.Size, cfg.Cache.TTL, log), ix, corpus, log)
}

// pipeline answers questions in both modes against one index.
type pipeline struct {
	retriever *rag.Retriever
	answerer  *generator.Answerer
	topK      int
}

func newPipeline(cfg *config.Config, log *zap.Logger) (*pipeline, error) {
	r, err := openRetriever(cfg, log)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		retriever: r,
		answerer:  generator.NewAnswerer(gen, log),
		topK:      cfg.Retrieval.TopK,
	}, nil
}

// grounded retrieves the top-k chunks for question and answers from them.
// The formatted context is returned alongside the answer.
func (p *pipeline) grounded(ctx context.Context, question string) (answer, contextText string, err error) {
	results, err := p.retriever.SearchTopK(ctx, question, p.topK)
	if err != nil {
		return "", "", err
	}
	contextText = rag.FormatContext(results)
	answer, err = p.answerer.Grounded(ctx, question, contextText)
	if err != nil {
		return "", contextText, err
	}
	return answer, contextText, nil
}

func (p *pipeline) ungrounded(ctx context.Context, question string) (string, error) {
	return p.answerer.Ungrounded(ctx, question)
}
