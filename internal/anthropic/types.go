package anthropic

// Message represents a chat message in the Anthropic API format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool identifies a server-side tool the model may invoke during a call.
// For live web search this is the built-in web_search tool; the client does
// not interpret the descriptor beyond attaching it to the request.
type Tool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// WebSearchTool returns the descriptor for Anthropic's built-in web search.
func WebSearchTool() Tool {
	return Tool{Type: "web_search_20250305", Name: "web_search"}
}

// BlockKind discriminates the variants of a response content block.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolResult BlockKind = "tool_result"
)

// SearchResult is one entry returned by the web search tool.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ContentBlock is a tagged union over the block shapes a response may carry.
// Kind selects the variant: Text is set for BlockText, Results for
// BlockToolResult.
type ContentBlock struct {
	Kind    BlockKind
	Text    string
	Results []SearchResult
}

// Request describes a single model call.
type Request struct {
	Messages    []Message
	System      string
	Temperature float64
	MaxTokens   int
	Tools       []Tool
}

// Response is the parsed result of a model call.
type Response struct {
	Content []ContentBlock
}
