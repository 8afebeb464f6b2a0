// Package generator produces answers from a text generation model, either
// grounded in retrieved context or from the model alone.
package generator

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/perbu/groundrag/internal/ollama"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Generator turns a prompt into a completion. Implementations make a single
// attempt per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelInfo() string
}

// OllamaGenerator calls Ollama's /api/generate with streaming disabled.
type OllamaGenerator struct {
	client *ollama.Client
	model  string
}

func NewOllamaGenerator(baseURL, model string, timeout time.Duration) (*OllamaGenerator, error) {
	c, err := ollama.New(baseURL, timeout)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeConfigValidateInvalidValue, "ollama.base_url")
	}
	return &OllamaGenerator{client: c, model: model}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.client.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", ragerr.Wrap(err, ragerr.CodeGenerationUpstreamFailure, "ollama generate", ragerr.FieldModel(g.model))
	}
	return out, nil
}

func (g *OllamaGenerator) ModelInfo() string {
	return "ollama-" + g.model
}

// OpenAIGenerator sends the prompt as a single user message to an
// OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIGenerator, error) {
	if apiKey == "" && baseURL == "" {
		return nil, ragerr.New(ragerr.CodeConfigValidateInvalidValue, "OPENAI_API_KEY not set and no openai.base_url configured")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", ragerr.Wrap(err, ragerr.CodeGenerationUpstreamFailure, "openai chat completion", ragerr.FieldModel(g.model))
	}
	if len(resp.Choices) == 0 {
		return "", ragerr.New(ragerr.CodeGenerationUpstreamFailure, "no choices returned from API", ragerr.FieldModel(g.model))
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) ModelInfo() string {
	return "openai-" + g.model
}
