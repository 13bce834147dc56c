package ai

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned when the backend answers with an unexpected payload.
var ErrMalformedResponse = errors.New("malformed inference response")

// Params are the sampling parameters of a single text-generation call.
type Params struct {
	MaxNewTokens       int
	Temperature        float64
	DoSample           bool
	NumReturnSequences int
	TopK               int
	TopP               float64
}

// Generator produces a continuation of prompt.
//
// Implementations return the prompt followed by the generated continuation,
// so callers can locate speaker markers the prompt introduced.
type Generator interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, params Params) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return f(ctx, prompt, params)
}
