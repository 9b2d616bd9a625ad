package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidhbaek/codegen/internal/anthropic"
	"github.com/davidhbaek/codegen/internal/gemini"
	"github.com/davidhbaek/codegen/internal/openai"
	"github.com/davidhbaek/codegen/internal/wire"
)

type Client interface {
	// Send one prompt and return the model's text exactly as received
	Generate(ctx context.Context, req *wire.Request) (string, error)
	// Return the underlying LLM being prompted
	Model() string
}

// Enforce interface compliance
var (
	_ Client = &gemini.Client{}
	_ Client = &openai.Client{}
	_ Client = &anthropic.Client{}
)

// Provider names a remote API family.
type Provider string

const (
	Gemini    Provider = "gemini"
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

var Providers = []Provider{Gemini, OpenAI, Anthropic}

// KeyName is the env file entry holding the provider's API key.
func (p Provider) KeyName() string {
	return strings.ToUpper(string(p)) + "_API_KEY"
}

func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("provider must be one of %v", Providers)
}
