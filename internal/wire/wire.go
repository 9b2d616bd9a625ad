// Package wire holds types that represent anything that goes across a boundary
// Think I/O operations
package wire

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Request is what the dispatchers hand to a provider client.
type Request struct {
	Prompt string
	System string
	Images []Image
}

// Image is a decoded attachment ready to be encoded for a provider.
type Image struct {
	MediaType string
	Data      []byte
}

// Subtype returns the part after "image/", e.g. "png".
func (i Image) Subtype() string {
	_, sub, ok := strings.Cut(i.MediaType, "/")
	if !ok {
		return i.MediaType
	}
	return sub
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MediaType, i.Base64())
}

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content interface {
	GetType() string
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var _ Content = &Text{}

func (t *Text) GetType() string {
	return "text"
}

type OpenAIImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

var _ Content = &OpenAIImage{}

func (I *OpenAIImage) GetType() string {
	return "image_url"
}

type AnthropicImage struct {
	Type   string `json:"type"`
	Source struct {
		Type      string `json:"type"`
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	} `json:"source"`
}

var _ Content = &AnthropicImage{}

func (I *AnthropicImage) GetType() string {
	return "image"
}

type Response struct {
	StatusCode int
	Body       io.ReadCloser
}

// APIError is a non-2xx reply or an in-stream error event from a provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
}
