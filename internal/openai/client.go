package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidhbaek/codegen/internal/wire"
)

const DefaultBaseURL = "https://api.openai.com"

type Config struct {
	baseURL string
	apiKey  string
}

func NewConfig(baseURL, apiKey string) *Config {
	return &Config{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	config     *Config
	model      string
	httpClient *http.Client
}

func NewClient(model string, config *Config) *Client {
	return &Client{
		config: config,
		model:  model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     1 * time.Minute,
			},
		},
	}
}

func (c *Client) Model() string {
	return c.model
}

// Generate sends a single user turn and returns the streamed reply.
func (c *Client) Generate(ctx context.Context, req *wire.Request) (string, error) {
	content := []wire.Content{&wire.Text{Type: "text", Text: req.Prompt}}
	for _, img := range req.Images {
		part := &wire.OpenAIImage{Type: "image_url"}
		part.ImageURL.URL = img.DataURL()
		content = append(content, part)
	}

	rsp, err := c.SendMessage(ctx, []wire.Message{{Role: "user", Content: content}}, req.System)
	if err != nil {
		return "", fmt.Errorf("sending prompt: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return "", readError(rsp)
	}

	return c.ReadBody(rsp.Body)
}

func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error) {
	// The OpenAI API doesn't have a separate field for system prompts like the Anthropic API does
	if len(systemPrompt) > 0 {
		messages = append([]wire.Message{{
			Role:    "system",
			Content: []wire.Content{&wire.Text{Type: "text", Text: systemPrompt}},
		}}, messages...)
	}

	reqBody, err := json.Marshal(struct {
		Model    string         `json:"model"`
		Messages []wire.Message `json:"messages"`
		Stream   bool           `json:"stream"`
	}{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.config.baseURL, "v1/chat/completions"), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.apiKey))

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return &wire.Response{
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}, nil
}

type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReadBody accumulates the content deltas of a chat completion event stream.
func (c *Client) ReadBody(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var text strings.Builder
	for scanner.Scan() {
		field, payload, ok := strings.Cut(scanner.Text(), ":")
		if !ok || field != "data" {
			continue
		}

		payload = strings.TrimSpace(payload)
		if payload == "[DONE]" {
			break
		}

		chunk := streamChunk{}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("unmarshaling response from API: %w", err)
		}

		if chunk.Error != nil {
			return "", &wire.APIError{StatusCode: http.StatusOK, Type: chunk.Error.Type, Message: chunk.Error.Message}
		}

		for _, choice := range chunk.Choices {
			text.WriteString(choice.Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading response stream: %w", err)
	}

	return text.String(), nil
}

func readError(rsp *wire.Response) error {
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("reading error body: %w", err)
	}

	errRsp := struct {
		Error errorBody `json:"error"`
	}{}
	if err := json.Unmarshal(data, &errRsp); err != nil || errRsp.Error.Message == "" {
		return &wire.APIError{StatusCode: rsp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	return &wire.APIError{StatusCode: rsp.StatusCode, Type: errRsp.Error.Type, Message: errRsp.Error.Message}
}
