package generator

import (
	"context"
	"strings"

	ragerr "github.com/perbu/groundrag/pkg/errors"
	"go.uber.org/zap"
)

// Answerer runs the two answering modes against one Generator.
type Answerer struct {
	gen Generator
	log *zap.Logger
}

func NewAnswerer(gen Generator, log *zap.Logger) *Answerer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Answerer{gen: gen, log: log}
}

// Grounded answers question strictly from context and returns the model's
// response verbatim.
func (a *Answerer) Grounded(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ragerr.New(ragerr.CodeGenerationInputInvalid, "question is empty")
	}
	a.log.Debug("grounded generation",
		zap.String("model", a.gen.ModelInfo()),
		zap.Int("context_bytes", len(contextText)),
	)
	return a.generate(ctx, GroundedPrompt(question, contextText))
}

// Ungrounded answers question from the model alone.
func (a *Answerer) Ungrounded(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ragerr.New(ragerr.CodeGenerationInputInvalid, "question is empty")
	}
	a.log.Debug("ungrounded generation", zap.String("model", a.gen.ModelInfo()))
	return a.generate(ctx, UngroundedPrompt(question))
}

func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", ragerr.Wrap(err, ragerr.CodeGenerationUpstreamFailure, "generating answer",
			ragerr.FieldModel(a.gen.ModelInfo()),
		)
	}
	return out, nil
}
