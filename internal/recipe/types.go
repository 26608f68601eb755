package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
)

// Difficulty buckets recipes by required skill.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Cuisine is a recognized cuisine style. Declaration order matters: the
// extractor picks the first cuisine whose name appears in the text.
type Cuisine string

const (
	CuisineItalian       Cuisine = "italian"
	CuisineChinese       Cuisine = "chinese"
	CuisineMexican       Cuisine = "mexican"
	CuisineIndian        Cuisine = "indian"
	CuisineFrench        Cuisine = "french"
	CuisineJapanese      Cuisine = "japanese"
	CuisineThai          Cuisine = "thai"
	CuisineMediterranean Cuisine = "mediterranean"
	CuisineAmerican      Cuisine = "american"
	CuisineMiddleEastern Cuisine = "middle_eastern"
	CuisineKorean        Cuisine = "korean"
	CuisineVietnamese    Cuisine = "vietnamese"
)

// Cuisines lists every recognized cuisine in match-priority order.
func Cuisines() []Cuisine {
	return []Cuisine{
		CuisineItalian, CuisineChinese, CuisineMexican, CuisineIndian,
		CuisineFrench, CuisineJapanese, CuisineThai, CuisineMediterranean,
		CuisineAmerican, CuisineMiddleEastern, CuisineKorean, CuisineVietnamese,
	}
}

// DietaryRestriction is a recognized dietary constraint.
type DietaryRestriction string

const (
	DietVegetarian DietaryRestriction = "vegetarian"
	DietVegan      DietaryRestriction = "vegan"
	DietGlutenFree DietaryRestriction = "gluten_free"
	DietDairyFree  DietaryRestriction = "dairy_free"
	DietKeto       DietaryRestriction = "keto"
	DietPaleo      DietaryRestriction = "paleo"
	DietLowCarb    DietaryRestriction = "low_carb"
	DietLowSodium  DietaryRestriction = "low_sodium"
	DietDiabetic   DietaryRestriction = "diabetic"
)

// DietaryRestrictions lists every recognized restriction.
func DietaryRestrictions() []DietaryRestriction {
	return []DietaryRestriction{
		DietVegetarian, DietVegan, DietGlutenFree, DietDairyFree,
		DietKeto, DietPaleo, DietLowCarb, DietLowSodium, DietDiabetic,
	}
}

// ParseDifficulty maps a free-form string onto a Difficulty, tolerating
// common synonyms. The boolean reports whether the input was recognized.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "easy", "simple":
		return DifficultyBeginner, true
	case "intermediate", "medium", "moderate":
		return DifficultyIntermediate, true
	case "advanced", "hard", "difficult", "expert":
		return DifficultyAdvanced, true
	}
	return "", false
}

// ParseCuisine recognizes a cuisine name, accepting spaces in place of
// underscores ("middle eastern").
func ParseCuisine(s string) (Cuisine, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	for _, c := range Cuisines() {
		if normalized == string(c) {
			return c, true
		}
	}
	return "", false
}

// ParseDietaryRestriction recognizes a dietary restriction, accepting
// spaces or hyphens in place of underscores.
func ParseDietaryRestriction(s string) (DietaryRestriction, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, d := range DietaryRestrictions() {
		if normalized == string(d) {
			return d, true
		}
	}
	return "", false
}

// Recipe is a fully extracted recipe with provenance. PrimarySource is the
// citation the recipe text was attributed to; AdditionalSources hold any
// further references.
type Recipe struct {
	ID                  string               `json:"recipe_id"`
	Title               string               `json:"title"`
	Description         string               `json:"description,omitempty"`
	Ingredients         []string             `json:"ingredients"`
	Instructions        []string             `json:"instructions"`
	PrepTimeMinutes     int                  `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes     int                  `json:"cook_time_minutes,omitempty"`
	TotalTimeMinutes    int                  `json:"total_time_minutes,omitempty"`
	Servings            int                  `json:"servings,omitempty"`
	Difficulty          Difficulty           `json:"difficulty,omitempty"`
	Cuisine             Cuisine              `json:"cuisine,omitempty"`
	DietaryRestrictions []DietaryRestriction `json:"dietary_restrictions,omitempty"`
	Calories            int                  `json:"calories,omitempty"`
	PrimarySource       *assistant.Citation  `json:"primary_source,omitempty"`
	AdditionalSources   []assistant.Citation `json:"additional_sources,omitempty"`
	SearchQuery         string               `json:"search_query,omitempty"`
	IsSaved             bool                 `json:"is_saved"`
	Rating              float64              `json:"rating,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// NewRecipe creates a Recipe with a fresh id and timestamps.
func NewRecipe(title string) *Recipe {
	now := time.Now().UTC()
	return &Recipe{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddCitation records an additional source, skipping exact duplicates of
// the primary source or an already recorded citation.
func (r *Recipe) AddCitation(c assistant.Citation) {
	if r.PrimarySource != nil && *r.PrimarySource == c {
		return
	}
	for _, existing := range r.AdditionalSources {
		if existing == c {
			return
		}
	}
	r.AdditionalSources = append(r.AdditionalSources, c)
	r.UpdatedAt = time.Now().UTC()
}

// AllCitations returns the primary source followed by the additional
// sources.
func (r *Recipe) AllCitations() []assistant.Citation {
	var out []assistant.Citation
	if r.PrimarySource != nil {
		out = append(out, *r.PrimarySource)
	}
	return append(out, r.AdditionalSources...)
}

// UpdateRating sets the rating, clamped to [1.0, 5.0], and bumps UpdatedAt.
func (r *Recipe) UpdateRating(rating float64) {
	if rating < 1.0 {
		rating = 1.0
	}
	if rating > 5.0 {
		rating = 5.0
	}
	r.Rating = rating
	r.UpdatedAt = time.Now().UTC()
}

// Query captures the structured search parameters a user can supply
// alongside free text.
type Query struct {
	Text                string               `json:"query"`
	Cuisine             Cuisine              `json:"cuisine,omitempty"`
	DietaryRestrictions []DietaryRestriction `json:"dietary_restrictions,omitempty"`
	MaxPrepTimeMinutes  int                  `json:"max_prep_time_minutes,omitempty"`
	Difficulty          Difficulty           `json:"difficulty,omitempty"`
	Ingredients         []string             `json:"ingredients,omitempty"`
	ExcludeIngredients  []string             `json:"exclude_ingredients,omitempty"`
}
