package anthropic

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

const maxTokens = 4096

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
	// Claude reads images best when they come before the text
	content := []wire.Content{}
	for _, img := range req.Images {
		part := &wire.AnthropicImage{Type: "image"}
		part.Source.Type = "base64"
		part.Source.MediaType = img.MediaType
		part.Source.Data = img.Base64()
		content = append(content, part)
	}
	content = append(content, &wire.Text{Type: "text", Text: req.Prompt})

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
	reqBody, err := json.Marshal(struct {
		Model        string         `json:"model"`
		MaxTokens    int            `json:"max_tokens"`
		SystemPrompt string         `json:"system,omitempty"`
		Messages     []wire.Message `json:"messages"`
		Stream       bool           `json:"stream"`
	}{
		Model:        c.model,
		MaxTokens:    maxTokens,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Stream:       true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.config.baseURL, "v1/messages"), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("sending POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Accept", "text/event-stream")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return &wire.Response{
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}, nil
}

// ReadBody accumulates the text deltas of a messages event stream.
func (c *Client) ReadBody(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var text strings.Builder
	for scanner.Scan() {
		msgType, payload, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		switch msgType {
		case "event":
		case "data":
			sseData := SSEData{}
			if err := json.Unmarshal([]byte(payload), &sseData); err != nil {
				return "", fmt.Errorf("unmarshaling response from API: %w", err)
			}

			switch sseData.Type {
			case "content_block_delta":
				content := ContentBlockDelta{}
				if err := json.Unmarshal([]byte(payload), &content); err != nil {
					return "", err
				}
				text.WriteString(content.Delta.Text)

			case "error":
				errEvent := ErrorEvent{}
				if err := json.Unmarshal([]byte(payload), &errEvent); err != nil {
					return "", err
				}
				return "", &wire.APIError{StatusCode: http.StatusOK, Type: errEvent.Error.Type, Message: errEvent.Error.Message}

			case "message_stop":
				return text.String(), nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading response stream: %w", err)
	}

	return text.String(), nil
}

// The Anthropic API doesn't stream errors that happen before the message starts
// Only a JSON body
func readError(rsp *wire.Response) error {
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("reading error body: %w", err)
	}

	errRsp := ErrorEvent{}
	if err := json.Unmarshal(data, &errRsp); err != nil || errRsp.Error.Message == "" {
		return &wire.APIError{StatusCode: rsp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	return &wire.APIError{StatusCode: rsp.StatusCode, Type: errRsp.Error.Type, Message: errRsp.Error.Message}
}
