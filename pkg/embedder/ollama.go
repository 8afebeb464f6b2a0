package embedder

import (
	"context"
	"strings"
	"time"

	"github.com/perbu/groundrag/internal/ollama"
	ragerr "github.com/perbu/groundrag/pkg/errors"
)

// OllamaEmbedder uses a local Ollama server's embeddings endpoint.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	c, err := ollama.New(baseURL, timeout)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeConfigValidateInvalidValue, "ollama.base_url")
	}
	return &OllamaEmbedder{client: c, model: model}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerr.New(ragerr.CodeEmbeddingInputInvalid, "cannot embed empty text")
	}
	v, err := e.client.Embeddings(ctx, e.model, text)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "ollama embeddings", ragerr.FieldModel(e.model))
	}
	return v, nil
}

func (e *OllamaEmbedder) ModelInfo() string {
	return "ollama-" + e.model
}
