package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Client communicates with the Anthropic Messages API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a Client for the given API key and model name.
func New(apiKey, model string) *Client {
	return NewWithBaseURL(defaultBaseURL, apiKey, model)
}

// NewWithBaseURL creates a Client targeting a non-default API endpoint
// (used by tests against httptest servers).
func NewWithBaseURL(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// messagesRequest is the JSON body for POST /v1/messages.
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
}

// wireBlock mirrors one entry of the response content array. Block shapes
// vary by type; unknown types are ignored rather than rejected.
type wireBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// messagesResponse is the JSON returned by POST /v1/messages.
type messagesResponse struct {
	Content []wireBlock `json:"content"`
}

// apiError is the JSON error envelope returned on non-2xx responses.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a single model call and returns the parsed content blocks.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    req.Messages,
		Tools:       req.Tools,
	})
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("messages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
			return Response{}, fmt.Errorf("messages: %s (%s)", ae.Error.Message, ae.Error.Type)
		}
		return Response{}, fmt.Errorf("messages: unexpected status %d", resp.StatusCode)
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, fmt.Errorf("decoding messages response: %w", err)
	}

	return Response{Content: parseBlocks(result.Content)}, nil
}

// parseBlocks converts wire blocks into the tagged-union form. Text blocks
// keep their text; tool_use blocks contribute any "results" entries carried
// in their input. Other block types carry nothing this layer consumes.
func parseBlocks(blocks []wireBlock) []ContentBlock {
	var out []ContentBlock
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, ContentBlock{Kind: BlockText, Text: b.Text})
		case "tool_use", "web_search_tool_result":
			var input struct {
				Results []SearchResult `json:"results"`
			}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &input); err != nil {
					continue
				}
			}
			if len(input.Results) > 0 {
				out = append(out, ContentBlock{Kind: BlockToolResult, Results: input.Results})
			}
		}
	}
	return out
}
