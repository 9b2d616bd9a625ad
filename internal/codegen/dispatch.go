package codegen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davidhbaek/codegen/internal/attach"
	"github.com/davidhbaek/codegen/internal/ctxlog"
	"github.com/davidhbaek/codegen/internal/llm"
	"github.com/davidhbaek/codegen/internal/wire"
)

const DefaultLanguage = "python"

const (
	generateTemplate = "Generate %s code for: %s"
	askTemplate      = "Answer this programming question: %s"
)

// GenerateCode asks the model for code in language (python when empty) and
// returns its reply unmodified.
func GenerateCode(ctx context.Context, client llm.Client, prompt, language, system string, bundle *attach.Bundle) (string, error) {
	if language == "" {
		language = DefaultLanguage
	}

	text, err := dispatch(ctx, client, fmt.Sprintf(generateTemplate, language, prompt), system, bundle)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return text, nil
}

// AskQuestion asks a programming question and returns the reply unmodified.
func AskQuestion(ctx context.Context, client llm.Client, question, system string, bundle *attach.Bundle) (string, error) {
	text, err := dispatch(ctx, client, fmt.Sprintf(askTemplate, question), system, bundle)
	if err != nil {
		return "", fmt.Errorf("getting response: %w", err)
	}
	return text, nil
}

func dispatch(ctx context.Context, client llm.Client, prompt, system string, bundle *attach.Bundle) (string, error) {
	req := &wire.Request{Prompt: prompt, System: system}
	if bundle != nil {
		req.Images = bundle.Images
		req.System = joinNonEmpty("\n\n", system, bundle.SystemPrompt())
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("sending prompt", "model", client.Model(), "prompt_bytes", len(req.Prompt), "images", len(req.Images))

	start := time.Now()
	text, err := client.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	logger.Debug("received response", "model", client.Model(), "bytes", len(text), "elapsed", time.Since(start))
	return text, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
