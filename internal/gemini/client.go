// Package gemini talks to the Google Gemini API through the official SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/davidhbaek/codegen/internal/wire"
)

type Client struct {
	model  string
	apiKey string
	opts   []option.ClientOption
}

// NewClient returns a client for model. Extra options are passed to the SDK
// after the API key, so an endpoint or HTTP client can be overridden.
func NewClient(model, apiKey string, opts ...option.ClientOption) *Client {
	return &Client{
		model:  model,
		apiKey: apiKey,
		opts:   opts,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Generate(ctx context.Context, req *wire.Request) (string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(c.model)
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData(img.Subtype(), img.Data))
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to send message to Gemini: %w", err)
	}

	return responseText(resp)
}

var errNoCandidates = errors.New("no candidates in Gemini response")

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errNoCandidates
	}

	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("%w (finish reason %s)", errNoCandidates, cand.FinishReason)
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}
