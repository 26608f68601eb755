package conversation

import (
	"testing"
	"time"
)

func seedTitled(t *testing.T, s *Store, owner, title string, tags []string, messages ...string) *Conversation {
	t.Helper()
	c := seedConversation(t, s, owner, messages...)
	c.Metadata.Title = title
	c.Metadata.Tags = tags
	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSearchScoresTitleHighest(t *testing.T) {
	s := newTestStore(t)
	titleHit := seedTitled(t, s, "alice", "Pasta night", nil, "let's cook")
	contentHit := seedTitled(t, s, "alice", "Dinner plans", nil, "maybe pasta?")

	results, err := s.Search(SearchQuery{OwnerID: "alice", Query: "pasta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Conversation.ID != titleHit.ID {
		t.Errorf("title match should rank first")
	}
	if results[0].RelevanceScore <= results[1].RelevanceScore {
		t.Errorf("scores = %v, %v", results[0].RelevanceScore, results[1].RelevanceScore)
	}
	if results[1].Conversation.ID != contentHit.ID {
		t.Errorf("content match missing")
	}
	if len(results[1].MatchingMessages) != 1 {
		t.Errorf("MatchingMessages = %v", results[1].MatchingMessages)
	}
}

func TestSearchTagWeight(t *testing.T) {
	s := newTestStore(t)
	tagged := seedTitled(t, s, "alice", "Untitled", []string{"vegan"}, "some chat")
	content := seedTitled(t, s, "alice", "Other", nil, "vegan options here")

	results, err := s.Search(SearchQuery{OwnerID: "alice", Query: "vegan"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Conversation.ID != tagged.ID {
		t.Error("tag match (1.5) should outrank content match (1.0)")
	}
	_ = content
}

func TestSearchRequiresPositiveScoreWithQuery(t *testing.T) {
	s := newTestStore(t)
	seedTitled(t, s, "alice", "Soup", nil, "tomato soup")

	results, err := s.Search(SearchQuery{OwnerID: "alice", Query: "sushi"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0 for non-matching query", len(results))
	}
}

func TestSearchNoQueryUniformScore(t *testing.T) {
	s := newTestStore(t)
	seedTitled(t, s, "alice", "A", nil, "x")
	seedTitled(t, s, "alice", "B", nil, "y")

	results, err := s.Search(SearchQuery{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.RelevanceScore != 1.0 {
			t.Errorf("score = %v, want 1.0 without a text query", r.RelevanceScore)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	s := newTestStore(t)
	match := seedTitled(t, s, "alice", "Curry", []string{"dinner"}, "curry chat")
	match.Metadata.CuisinePreferences = []string{"indian"}
	if err := s.Save(match); err != nil {
		t.Fatal(err)
	}
	other := seedTitled(t, s, "alice", "Curry two", []string{"lunch"}, "curry chat")
	other.Metadata.CuisinePreferences = []string{"thai"}
	if err := s.Save(other); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(SearchQuery{
		OwnerID:            "alice",
		Query:              "curry",
		Tags:               []string{"dinner"},
		CuisinePreferences: []string{"indian"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Conversation.ID != match.ID {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchDateRange(t *testing.T) {
	s := newTestStore(t)
	c := seedTitled(t, s, "alice", "Old", nil, "hello")

	future := time.Now().Add(24 * time.Hour)
	results, err := s.Search(SearchQuery{OwnerID: "alice", DateFrom: &future})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0 outside date range", len(results))
	}

	past := time.Now().Add(-24 * time.Hour)
	results, err = s.Search(SearchQuery{OwnerID: "alice", DateFrom: &past})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Conversation.ID != c.ID {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchOwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	seedTitled(t, s, "alice", "Pasta", nil, "x")
	seedTitled(t, s, "bob", "Pasta", nil, "x")

	results, err := s.Search(SearchQuery{OwnerID: "alice", Query: "pasta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1 (owner scoped)", len(results))
	}
}

func TestSearchPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedTitled(t, s, "alice", "Pasta", nil, "pasta talk")
	}

	page, err := s.Search(SearchQuery{OwnerID: "alice", Query: "pasta", Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	rest, err := s.Search(SearchQuery{OwnerID: "alice", Query: "pasta", Limit: 10, Offset: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("offset page size = %d, want 2", len(rest))
	}

	beyond, err := s.Search(SearchQuery{OwnerID: "alice", Query: "pasta", Offset: 99})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("beyond-end page = %d, want 0", len(beyond))
	}
}
