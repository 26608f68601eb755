package recipestore

import (
	"errors"
	"testing"
	"time"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecipe() *recipe.Recipe {
	r := recipe.NewRecipe("Shakshuka")
	r.Description = "Eggs poached in spiced tomato sauce."
	r.Ingredients = []string{"eggs", "tomatoes", "paprika"}
	r.Instructions = []string{"Simmer the sauce.", "Poach the eggs."}
	r.PrepTimeMinutes = 10
	r.CookTimeMinutes = 20
	r.Servings = 2
	r.Difficulty = recipe.DifficultyBeginner
	r.Cuisine = recipe.CuisineMiddleEastern
	r.DietaryRestrictions = []recipe.DietaryRestriction{recipe.DietVegetarian}
	r.Calories = 380
	r.PrimarySource = &assistant.Citation{Title: "Shakshuka", URL: "https://seriouseats.com/shakshuka"}
	r.AddCitation(assistant.Citation{Title: "Variant", URL: "https://bonappetit.com/shakshuka"})
	r.SearchQuery = "shakshuka recipe"
	return r
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecipe()

	if err := s.Save("alice", r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.Title != r.Title || got.Description != r.Description {
		t.Errorf("got = %+v", got)
	}
	if len(got.Ingredients) != 3 || got.Ingredients[2] != "paprika" {
		t.Errorf("Ingredients = %v", got.Ingredients)
	}
	if len(got.Instructions) != 2 {
		t.Errorf("Instructions = %v", got.Instructions)
	}
	if got.Difficulty != recipe.DifficultyBeginner || got.Cuisine != recipe.CuisineMiddleEastern {
		t.Errorf("difficulty/cuisine = %q/%q", got.Difficulty, got.Cuisine)
	}
	if len(got.DietaryRestrictions) != 1 || got.DietaryRestrictions[0] != recipe.DietVegetarian {
		t.Errorf("DietaryRestrictions = %v", got.DietaryRestrictions)
	}
	if got.PrimarySource == nil || got.PrimarySource.URL != "https://seriouseats.com/shakshuka" {
		t.Errorf("PrimarySource = %+v", got.PrimarySource)
	}
	if len(got.AdditionalSources) != 1 || got.AdditionalSources[0].URL != "https://bonappetit.com/shakshuka" {
		t.Errorf("AdditionalSources = %+v", got.AdditionalSources)
	}
	if !got.IsSaved {
		t.Error("loaded recipe must be flagged as saved")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps = %v, %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecipe()
	if err := s.Save("alice", r); err != nil {
		t.Fatal(err)
	}

	r.Title = "Shakshuka v2"
	if err := s.Save("alice", r); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Shakshuka v2" {
		t.Errorf("Title = %q", got.Title)
	}
	list, err := s.ListByUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d, want 1 after replace", len(list))
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestListByUserOrder(t *testing.T) {
	s := newTestStore(t)

	older := sampleRecipe()
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	if err := s.Save("alice", older); err != nil {
		t.Fatal(err)
	}
	newer := sampleRecipe()
	newer.Title = "Fresh"
	if err := s.Save("alice", newer); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("bob", sampleRecipe()); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListByUser("alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d, want 2", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("order = %s, %s; want newest first", list[0].Title, list[1].Title)
	}
}

func TestUpdateRating(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecipe()
	if err := s.Save("alice", r); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateRating(r.ID, 7.5); err != nil {
		t.Fatalf("UpdateRating: %v", err)
	}
	got, err := s.Get(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rating != 5.0 {
		t.Errorf("Rating = %v, want clamped to 5.0", got.Rating)
	}

	if err := s.UpdateRating("nope", 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRating missing = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecipe()
	if err := s.Save("alice", r); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := s.Delete(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
