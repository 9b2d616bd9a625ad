package llm

import (
	"fmt"
	"strings"

	"github.com/davidhbaek/codegen/internal/anthropic"
	"github.com/davidhbaek/codegen/internal/gemini"
	"github.com/davidhbaek/codegen/internal/openai"
)

const (
	FLASH  = "gemini-2.0-flash"
	PRO    = "gemini-2.5-pro"
	GPT    = "gpt-4o"
	OPUS   = "claude-3-opus-20240229"
	SONNET = "claude-3-5-sonnet-20241022"
	HAIKU  = "claude-3-haiku-20240307"
)

var aliases = map[string]string{
	"flash":  FLASH,
	"pro":    PRO,
	"gpt":    GPT,
	"opus":   OPUS,
	"sonnet": SONNET,
	"haiku":  HAIKU,
}

var prefixes = []struct {
	prefix   string
	provider Provider
}{
	{"gemini", Gemini},
	{"gpt", OpenAI},
	{"chatgpt", OpenAI},
	{"o1", OpenAI},
	{"o3", OpenAI},
	{"o4", OpenAI},
	{"claude", Anthropic},
}

// Resolve expands an alias and picks the provider serving the model.
func Resolve(model string) (Provider, string, error) {
	name := strings.TrimSpace(model)
	if full, ok := aliases[strings.ToLower(name)]; ok {
		name = full
	}

	for _, p := range prefixes {
		if strings.HasPrefix(strings.ToLower(name), p.prefix) {
			return p.provider, name, nil
		}
	}

	return "", "", fmt.Errorf("unknown model %q: use a gemini-*, gpt-*, o*-* or claude-* model, or one of [flash, pro, gpt, haiku, sonnet, opus]", model)
}

type ClientFactory func(model, apiKey string) Client

type ClientConfig struct {
	Models map[Provider]ClientFactory
}

func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		Models: map[Provider]ClientFactory{
			Gemini: func(model, apiKey string) Client {
				return gemini.NewClient(model, apiKey)
			},
			OpenAI: func(model, apiKey string) Client {
				return openai.NewClient(model, openai.NewConfig(openai.DefaultBaseURL, apiKey))
			},
			Anthropic: func(model, apiKey string) Client {
				return anthropic.NewClient(model, anthropic.NewConfig(anthropic.DefaultBaseURL, apiKey))
			},
		},
	}
}

func (c *ClientConfig) NewClient(provider Provider, model, apiKey string) (Client, error) {
	factory, ok := c.Models[provider]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", provider)
	}
	return factory(model, apiKey), nil
}
