package recipe

import (
	"fmt"
	"strings"
)

// trustedDomains are the recipe sites search queries are scoped to.
var trustedDomains = []string{
	"allrecipes.com",
	"foodnetwork.com",
	"seriouseats.com",
	"bonappetit.com",
	"epicurious.com",
	"tasteofhome.com",
	"delish.com",
	"food.com",
	"myrecipes.com",
	"cookinglight.com",
	"eatingwell.com",
	"simplyrecipes.com",
	"thekitchn.com",
	"recipetineats.com",
	"minimalistbaker.com",
	"budgetbytes.com",
	"skinnytaste.com",
	"kingarthurbaking.com",
	"americastestkitchen.com",
	"cooksillustrated.com",
}

// TrustedDomains returns the domains recipe searches are restricted to.
func TrustedDomains() []string {
	out := make([]string, len(trustedDomains))
	copy(out, trustedDomains)
	return out
}

// BuildSearchQuery scopes a search query to the trusted recipe sites:
// "(query) AND (site:a.com OR site:b.com OR ...)".
func BuildSearchQuery(query string) string {
	sites := make([]string, len(trustedDomains))
	for i, d := range trustedDomains {
		sites[i] = "site:" + d
	}
	return fmt.Sprintf("(%s) AND (%s)", query, strings.Join(sites, " OR "))
}

var stopWords = map[string]bool{
	"the": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "i": true, "want": true,
}

var recipeTerms = []string{"recipe", "recipes", "dish", "meal", "cooking"}

// OptimizeQuery strips stop words from a user query and appends "recipe"
// when the query does not already mention one.
func OptimizeQuery(query string) string {
	var kept []string
	hasRecipeTerm := false
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if stopWords[word] {
			continue
		}
		kept = append(kept, word)
		for _, t := range recipeTerms {
			if word == t {
				hasRecipeTerm = true
			}
		}
	}
	if !hasRecipeTerm {
		kept = append(kept, "recipe")
	}
	return strings.Join(kept, " ")
}

// BuildPrompt turns a structured query into the user-facing request sent
// to the model. Constraints the query does not set are omitted.
func BuildPrompt(q Query) string {
	var b strings.Builder
	if q.Text != "" {
		fmt.Fprintf(&b, "I'm looking for recipes: %s", q.Text)
	} else {
		b.WriteString("I'm looking for recipe suggestions")
	}

	if q.Cuisine != "" {
		fmt.Fprintf(&b, "\nCuisine: %s", strings.ReplaceAll(string(q.Cuisine), "_", " "))
	}
	if len(q.DietaryRestrictions) > 0 {
		names := make([]string, len(q.DietaryRestrictions))
		for i, d := range q.DietaryRestrictions {
			names[i] = strings.ReplaceAll(string(d), "_", " ")
		}
		fmt.Fprintf(&b, "\nDietary restrictions: %s", strings.Join(names, ", "))
	}
	if q.MaxPrepTimeMinutes > 0 {
		fmt.Fprintf(&b, "\nMaximum prep time: %d minutes", q.MaxPrepTimeMinutes)
	}
	if q.Difficulty != "" {
		fmt.Fprintf(&b, "\nDifficulty level: %s", q.Difficulty)
	}
	if len(q.Ingredients) > 0 {
		fmt.Fprintf(&b, "\nUsing these ingredients: %s", strings.Join(q.Ingredients, ", "))
	}
	if len(q.ExcludeIngredients) > 0 {
		fmt.Fprintf(&b, "\nAvoiding these ingredients: %s", strings.Join(q.ExcludeIngredients, ", "))
	}

	b.WriteString("\n\nPlease provide complete recipes with ingredients, " +
		"step-by-step instructions, prep and cook times, servings, and " +
		"difficulty level.")
	return b.String()
}
