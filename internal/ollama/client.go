// Package ollama adapts the Ollama api client to the two calls groundrag
// makes: embeddings and non-streaming generate.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const DefaultBaseURL = "http://127.0.0.1:11434"

type Client struct {
	api *api.Client
}

// New returns a client for baseURL. Every request is a single attempt bounded
// by timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing ollama url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama url %q needs a scheme and host", baseURL)
	}
	return &Client{api: api.NewClient(u, &http.Client{Timeout: timeout})}, nil
}

// Embeddings calls POST /api/embeddings.
func (c *Client) Embeddings(ctx context.Context, model, prompt string) ([]float32, error) {
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{Model: model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama response has no embedding")
	}
	vec := make([]float32, len(resp.Embedding))
	for i, f := range resp.Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}

// Generate calls POST /api/generate with streaming disabled and returns the
// response text verbatim.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	var sb strings.Builder
	err := c.api.Generate(ctx, &api.GenerateRequest{Model: model, Prompt: prompt, Stream: &stream},
		func(resp api.GenerateResponse) error {
			sb.WriteString(resp.Response)
			return nil
		})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return sb.String(), nil
}
