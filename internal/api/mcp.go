package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
	"github.com/makemyrecipe/makemyrecipe/internal/recipestore"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Recipes       *recipe.Service
	Conversations *conversation.Service
	Saved         *recipestore.Store
}

// NewMCPServer creates an MCP server with all makemyrecipe tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"makemyrecipe",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("makemyrecipe — AI cooking assistant with web-grounded recipe search and conversation history."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_recipes",
			mcp.WithDescription("Search the web for recipes matching a description, with optional cuisine and dietary constraints."),
			mcp.WithString("query", mcp.Description("What to cook, in plain words"), mcp.Required()),
			mcp.WithString("cuisine", mcp.Description("Cuisine style, e.g. italian, thai, middle_eastern")),
			mcp.WithArray("dietary_restrictions", mcp.Description("Dietary constraints, e.g. vegan, gluten_free")),
			mcp.WithNumber("max_prep_time_minutes", mcp.Description("Maximum prep time in minutes")),
		),
		mcpSearchRecipes(deps),
	)

	s.AddTool(
		mcp.NewTool("suggest_recipes",
			mcp.WithDescription("Suggest recipes that use the given ingredients."),
			mcp.WithArray("ingredients", mcp.Description("Ingredients to use"), mcp.Required()),
			mcp.WithArray("exclude_ingredients", mcp.Description("Ingredients to avoid")),
		),
		mcpSuggestRecipes(deps),
	)

	s.AddTool(
		mcp.NewTool("search_conversations",
			mcp.WithDescription("Search a user's past cooking conversations by text, tags, cuisine, or dietary restrictions."),
			mcp.WithString("user_id", mcp.Description("User whose conversations to search"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Free-text query")),
			mcp.WithArray("tags", mcp.Description("Tags the conversation must carry")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchConversations(deps),
	)

	s.AddTool(
		mcp.NewTool("list_saved_recipes",
			mcp.WithDescription("List the recipes a user has saved, most recently updated first."),
			mcp.WithString("user_id", mcp.Description("User whose saved recipes to list"), mcp.Required()),
		),
		mcpListSavedRecipes(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"storage://stats",
			"Storage Statistics",
			mcp.WithResourceDescription("Conversation and backup storage usage as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpSearchRecipes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		q := recipe.Query{
			Text:               query,
			MaxPrepTimeMinutes: req.GetInt("max_prep_time_minutes", 0),
		}
		if raw := req.GetString("cuisine", ""); raw != "" {
			c, ok := recipe.ParseCuisine(raw)
			if !ok {
				return mcpError(fmt.Sprintf("unknown cuisine %q", raw)), nil
			}
			q.Cuisine = c
		}
		for _, raw := range req.GetStringSlice("dietary_restrictions", nil) {
			d, ok := recipe.ParseDietaryRestriction(raw)
			if !ok {
				return mcpError(fmt.Sprintf("unknown dietary restriction %q", raw)), nil
			}
			q.DietaryRestrictions = append(q.DietaryRestrictions, d)
		}

		recipes, text, err := deps.Recipes.Search(ctx, q)
		if err != nil {
			return mcpError(fmt.Sprintf("recipe search failed: %v", err)), nil
		}
		return mcpRecipesResult(recipes, text)
	}
}

func mcpSuggestRecipes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ingredients := req.GetStringSlice("ingredients", nil)
		if len(ingredients) == 0 {
			return mcpError("ingredients are required"), nil
		}
		exclude := req.GetStringSlice("exclude_ingredients", nil)

		recipes, text, err := deps.Recipes.SuggestByIngredients(ctx, ingredients, exclude)
		if err != nil {
			return mcpError(fmt.Sprintf("recipe suggestion failed: %v", err)), nil
		}
		return mcpRecipesResult(recipes, text)
	}
}

func mcpRecipesResult(recipes []*recipe.Recipe, text string) (*mcp.CallToolResult, error) {
	if len(recipes) == 0 {
		return mcpText(text), nil
	}
	b, err := json.MarshalIndent(map[string]any{"recipes": recipes}, "", "  ")
	if err != nil {
		return mcpError(fmt.Sprintf("failed to encode recipes: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpSearchConversations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		results, err := deps.Conversations.Search(conversation.SearchQuery{
			OwnerID: userID,
			Query:   req.GetString("query", ""),
			Tags:    req.GetStringSlice("tags", nil),
			Limit:   req.GetInt("limit", 10),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("conversation search failed: %v", err)), nil
		}

		type hit struct {
			ConversationID string   `json:"conversation_id"`
			Title          string   `json:"title,omitempty"`
			Score          float64  `json:"relevance_score"`
			Matches        []string `json:"matching_messages,omitempty"`
		}
		hits := make([]hit, 0, len(results))
		for _, r := range results {
			hits = append(hits, hit{
				ConversationID: r.Conversation.ID,
				Title:          r.Conversation.Metadata.Title,
				Score:          r.RelevanceScore,
				Matches:        r.MatchingMessages,
			})
		}
		b, err := json.MarshalIndent(map[string]any{"results": hits}, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListSavedRecipes(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		recipes, err := deps.Saved.ListByUser(userID)
		if err != nil {
			return mcpError(fmt.Sprintf("listing saved recipes failed: %v", err)), nil
		}
		b, err := json.MarshalIndent(map[string]any{"recipes": recipes}, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode recipes: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.MarshalIndent(deps.Conversations.Stats(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding stats: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
