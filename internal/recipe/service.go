package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/makemyrecipe/makemyrecipe/internal/anthropic"
	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
)

// Responder is the assistant capability the recipe service drives.
type Responder interface {
	Respond(ctx context.Context, messages []anthropic.Message, systemPrompt string, enableSearch bool) (string, []assistant.Citation)
}

// Service answers structured recipe requests by prompting the assistant
// and extracting recipes from its response.
type Service struct {
	responder Responder
	extractor *Extractor
}

// NewService creates a Service over the given responder.
func NewService(responder Responder) *Service {
	return &Service{
		responder: responder,
		extractor: NewExtractor(),
	}
}

// Search asks the assistant for recipes matching the query and extracts
// structured recipes from the answer. It returns both the recipes and the
// raw response text, since the extraction is heuristic and the text may
// contain detail the structure missed. Each recipe records the optimized
// query that produced it.
func (s *Service) Search(ctx context.Context, q Query) ([]*Recipe, string, error) {
	if q.Text == "" && len(q.Ingredients) == 0 && q.Cuisine == "" {
		return nil, "", fmt.Errorf("empty recipe query")
	}

	optimized := OptimizeQuery(searchText(q))
	prompt := BuildPrompt(q)

	text, citations := s.responder.Respond(ctx,
		[]anthropic.Message{{Role: "user", Content: prompt}},
		assistant.RecipeSystemPrompt(), true)

	recipes := s.extractor.Parse(text, citations)
	for _, r := range recipes {
		r.SearchQuery = optimized
	}
	slog.Info("recipe search completed", "query", optimized, "recipes", len(recipes), "citations", len(citations))
	return recipes, text, nil
}

// SuggestByIngredients finds recipes that use the given ingredients.
func (s *Service) SuggestByIngredients(ctx context.Context, ingredients []string, exclude []string) ([]*Recipe, string, error) {
	if len(ingredients) == 0 {
		return nil, "", fmt.Errorf("no ingredients given")
	}
	return s.Search(ctx, Query{
		Text:               "recipes using " + strings.Join(ingredients, ", "),
		Ingredients:        ingredients,
		ExcludeIngredients: exclude,
	})
}

// ByCuisine finds recipes of one cuisine, optionally constrained by
// dietary restrictions.
func (s *Service) ByCuisine(ctx context.Context, cuisine Cuisine, dietary []DietaryRestriction) ([]*Recipe, string, error) {
	name := strings.ReplaceAll(string(cuisine), "_", " ")
	return s.Search(ctx, Query{
		Text:                name + " recipes",
		Cuisine:             cuisine,
		DietaryRestrictions: dietary,
	})
}

// searchText picks the best free-text seed for query optimization.
func searchText(q Query) string {
	if q.Text != "" {
		return q.Text
	}
	if len(q.Ingredients) > 0 {
		return strings.Join(q.Ingredients, " ")
	}
	return strings.ReplaceAll(string(q.Cuisine), "_", " ")
}
