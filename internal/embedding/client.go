package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by the embedding and generation
// capabilities.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI API client. baseURL overrides the API
// endpoint when non-empty, which is how OpenAI-compatible local model
// servers are pointed at.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use by other
// capability wrappers (generation, translation).
func (c *Client) Client() *openai.Client {
	return c.client
}
