package recipe

import (
	"testing"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
)

func TestParseDifficulty(t *testing.T) {
	cases := map[string]Difficulty{
		"easy":     DifficultyBeginner,
		"Simple":   DifficultyBeginner,
		"beginner": DifficultyBeginner,
		"medium":   DifficultyIntermediate,
		"Moderate": DifficultyIntermediate,
		"hard":     DifficultyAdvanced,
		"expert":   DifficultyAdvanced,
		" easy ":   DifficultyBeginner,
	}
	for in, want := range cases {
		got, ok := ParseDifficulty(in)
		if !ok || got != want {
			t.Errorf("ParseDifficulty(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseDifficulty("impossible"); ok {
		t.Error("ParseDifficulty accepted unknown input")
	}
}

func TestParseCuisine(t *testing.T) {
	if got, ok := ParseCuisine("Middle Eastern"); !ok || got != CuisineMiddleEastern {
		t.Errorf("ParseCuisine = %q, %v", got, ok)
	}
	if got, ok := ParseCuisine("italian"); !ok || got != CuisineItalian {
		t.Errorf("ParseCuisine = %q, %v", got, ok)
	}
	if _, ok := ParseCuisine("martian"); ok {
		t.Error("ParseCuisine accepted unknown input")
	}
}

func TestParseDietaryRestriction(t *testing.T) {
	for _, in := range []string{"gluten-free", "gluten free", "GLUTEN_FREE"} {
		got, ok := ParseDietaryRestriction(in)
		if !ok || got != DietGlutenFree {
			t.Errorf("ParseDietaryRestriction(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseDietaryRestriction("carnivore"); ok {
		t.Error("ParseDietaryRestriction accepted unknown input")
	}
}

func TestAddCitationDedupe(t *testing.T) {
	primary := assistant.Citation{Title: "A", URL: "https://a.com"}
	r := NewRecipe("Test")
	r.PrimarySource = &primary

	r.AddCitation(primary)
	if len(r.AdditionalSources) != 0 {
		t.Errorf("primary duplicate recorded: %v", r.AdditionalSources)
	}

	other := assistant.Citation{Title: "B", URL: "https://b.com"}
	r.AddCitation(other)
	r.AddCitation(other)
	if len(r.AdditionalSources) != 1 {
		t.Errorf("AdditionalSources = %v, want one entry", r.AdditionalSources)
	}

	all := r.AllCitations()
	if len(all) != 2 || all[0] != primary || all[1] != other {
		t.Errorf("AllCitations = %v", all)
	}
}

func TestUpdateRatingClamps(t *testing.T) {
	r := NewRecipe("Test")
	r.UpdateRating(0.2)
	if r.Rating != 1.0 {
		t.Errorf("Rating = %v, want 1.0", r.Rating)
	}
	r.UpdateRating(9)
	if r.Rating != 5.0 {
		t.Errorf("Rating = %v, want 5.0", r.Rating)
	}
	r.UpdateRating(3.5)
	if r.Rating != 3.5 {
		t.Errorf("Rating = %v, want 3.5", r.Rating)
	}
}

func TestNewRecipeDefaults(t *testing.T) {
	r := NewRecipe("Soup")
	if r.ID == "" || r.Title != "Soup" {
		t.Errorf("recipe = %+v", r)
	}
	if r.CreatedAt.IsZero() || !r.CreatedAt.Equal(r.UpdatedAt) {
		t.Errorf("timestamps = %v, %v", r.CreatedAt, r.UpdatedAt)
	}
}
