package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/makemyrecipe/makemyrecipe/internal/anthropic"
)

// searchTemperature is the fixed, lower randomness used for search calls.
const searchTemperature = 0.1

// Completer is the model-call capability the assistant drives.
type Completer interface {
	Complete(ctx context.Context, req anthropic.Request) (anthropic.Response, error)
}

// Limiter gates outbound model calls.
type Limiter interface {
	Admit(ctx context.Context) error
	Record()
}

// Assistant turns one user-facing request into one to three model calls,
// depending on whether the model emits <search> tags in its first answer.
// The protocol is depth-1: tags appearing in the final answer are not
// processed again.
type Assistant struct {
	client      Completer
	limiter     Limiter
	maxTokens   int
	temperature float64
}

// New creates an Assistant. maxTokens and temperature apply to generation
// calls; search calls always run at searchTemperature.
func New(client Completer, limiter Limiter, maxTokens int, temperature float64) *Assistant {
	return &Assistant{
		client:      client,
		limiter:     limiter,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Respond generates a grounded response for the given messages. When the
// initial generation asks for searches and enableSearch is true, each query
// is executed in order and a follow-up generation produces the final answer.
// Respond never returns an error: any model-call failure degrades to a
// deterministic fallback response with no citations. When tags are present
// but search is disabled, the raw text (tags included) is returned as-is.
func (a *Assistant) Respond(ctx context.Context, messages []anthropic.Message, systemPrompt string, enableSearch bool) (string, []Citation) {
	if systemPrompt == "" {
		systemPrompt = RecipeSystemPrompt()
	}

	initial, err := a.call(ctx, anthropic.Request{
		Messages:    messages,
		System:      systemPrompt,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		slog.Error("initial generation failed", "error", err)
		return Fallback(messages), nil
	}
	initialText, _ := extractContent(initial)

	queries := ExtractSearchQueries(initialText)
	if len(queries) == 0 || !enableSearch {
		return initialText, nil
	}
	slog.Info("found search queries", "count", len(queries), "queries", queries)

	var citations []Citation
	var results strings.Builder
	for _, query := range queries {
		content, searchCitations, err := a.search(ctx, query)
		if err != nil {
			// One failed search must not abort the rest; the final
			// generation proceeds with partial information.
			slog.Warn("search failed", "query", query, "error", err)
			content = fmt.Sprintf("Search error: %v", err)
			searchCitations = nil
		}
		fmt.Fprintf(&results, "\n\nSearch results for '%s':\n%s", query, content)
		citations = append(citations, searchCitations...)
	}

	finalMessages := append(append([]anthropic.Message{}, messages...),
		anthropic.Message{Role: "assistant", Content: StripSearchTags(initialText)},
		anthropic.Message{Role: "user", Content: fmt.Sprintf(
			"Here are the search results for your queries:%s\n\n"+
				"Please provide a comprehensive recipe response based on "+
				"this information, including proper citations.", results.String())},
	)

	final, err := a.call(ctx, anthropic.Request{
		Messages:    finalMessages,
		System:      systemPrompt,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		slog.Error("final generation failed", "error", err)
		return Fallback(messages), nil
	}

	finalText, finalCitations := extractContent(final)
	return finalText, append(citations, finalCitations...)
}

// search issues one dedicated search call with the web search tool attached.
func (a *Assistant) search(ctx context.Context, query string) (string, []Citation, error) {
	resp, err := a.call(ctx, anthropic.Request{
		Messages:    []anthropic.Message{{Role: "user", Content: "Search for: " + query}},
		System:      searchSystemPrompt,
		Temperature: searchTemperature,
		MaxTokens:   a.maxTokens,
		Tools:       []anthropic.Tool{anthropic.WebSearchTool()},
	})
	if err != nil {
		return "", nil, err
	}
	content, citations := extractContent(resp)
	return content, citations, nil
}

// call gates one outbound model call through the rate limiter and records
// its issuance.
func (a *Assistant) call(ctx context.Context, req anthropic.Request) (anthropic.Response, error) {
	if err := a.limiter.Admit(ctx); err != nil {
		return anthropic.Response{}, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := a.client.Complete(ctx, req)
	a.limiter.Record()
	return resp, err
}

// extractContent flattens a response into text and citations: text blocks
// are joined with newlines, tool-result entries become citations, and any
// gathered citations are appended inline as a numbered Sources list.
func extractContent(resp anthropic.Response) (string, []Citation) {
	var parts []string
	var citations []Citation
	for _, block := range resp.Content {
		switch block.Kind {
		case anthropic.BlockText:
			parts = append(parts, block.Text)
		case anthropic.BlockToolResult:
			for _, r := range block.Results {
				citations = append(citations, NewCitation(r.Title, r.URL, r.Snippet))
			}
		}
	}

	content := strings.Join(parts, "\n")
	if len(citations) > 0 {
		var b strings.Builder
		b.WriteString(content)
		b.WriteString("\n\n**Sources:**\n")
		for i, c := range citations {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, c.Title, c.URL)
		}
		content = b.String()
	}
	return content, citations
}

// Fallback produces a deterministic canned response keyed off the last user
// message, used whenever the model is unreachable.
func Fallback(messages []anthropic.Message) string {
	if len(messages) == 0 {
		return "Hello! I'm MakeMyRecipe, your AI cooking assistant. " +
			"I can help you find recipes, cooking tips, and ingredient " +
			"suggestions. What would you like to cook today?"
	}

	last := strings.ToLower(messages[len(messages)-1].Content)
	for _, word := range []string{"recipe", "cook", "make", "how to"} {
		if strings.Contains(last, word) {
			return "I'd love to help you with that recipe! While I'm currently " +
				"unable to search for the latest recipes online, I can suggest " +
				"some classic approaches. Could you tell me more about what " +
				"ingredients you have available or what type of cuisine you're " +
				"interested in?"
		}
	}

	return "I'm here to help you with cooking and recipes! Please let me know what " +
		"you'd like to make, and I'll do my best to assist you with ingredients, " +
		"cooking techniques, and step-by-step instructions."
}
