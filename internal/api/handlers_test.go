package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makemyrecipe/makemyrecipe/internal/anthropic"
	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/chat"
	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
	"github.com/makemyrecipe/makemyrecipe/internal/recipestore"
)

type stubResponder struct {
	text      string
	citations []assistant.Citation
}

func (s *stubResponder) Respond(ctx context.Context, messages []anthropic.Message, systemPrompt string, enableSearch bool) (string, []assistant.Citation) {
	return s.text, s.citations
}

func newTestHandler(t *testing.T, responder *stubResponder) (http.Handler, AppDeps) {
	t.Helper()

	store, err := conversation.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	saved, err := recipestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { saved.Close() })

	conversations := conversation.NewService(store)
	deps := AppDeps{
		Chat:          chat.NewService(conversations, responder, 0, true),
		Recipes:       recipe.NewService(responder),
		Conversations: conversations,
		Saved:         saved,
	}
	return NewAppHandler(deps), deps
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{})
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	h, deps := newTestHandler(t, &stubResponder{text: "Try pasta."})

	rec := doJSON(t, h, http.MethodPost, "/chat", map[string]string{
		"user_id": "alice",
		"message": "dinner ideas?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	reply := decode[chat.Reply](t, rec)
	if reply.Response != "Try pasta." || reply.ConversationID == "" {
		t.Errorf("reply = %+v", reply)
	}

	if _, err := deps.Conversations.Get(reply.ConversationID); err != nil {
		t.Errorf("conversation not persisted: %v", err)
	}
}

func TestChatValidation(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{})

	rec := doJSON(t, h, http.MethodPost, "/chat", map[string]string{"message": "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/chat", map[string]string{"user_id": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing message status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/chat", map[string]string{
		"user_id": "alice", "message": "hi", "conversation_id": "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown conversation status = %d", rec.Code)
	}
}

const recipeResponse = `**Tomato Pasta**
Ingredients:
- pasta
Instructions:
1. Cook.`

func TestRecipeSearchEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{
		text:      recipeResponse,
		citations: []assistant.Citation{{Title: "Pasta", URL: "https://allrecipes.com/p"}},
	})

	rec := doJSON(t, h, http.MethodPost, "/recipes/search", map[string]string{"query": "tomato pasta"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[recipeSearchResponse](t, rec)
	if len(resp.Recipes) != 1 || resp.Recipes[0].Title != "Tomato Pasta" {
		t.Errorf("recipes = %+v", resp.Recipes)
	}
	if resp.Text != recipeResponse {
		t.Errorf("text = %q", resp.Text)
	}

	rec = doJSON(t, h, http.MethodPost, "/recipes/search", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", rec.Code)
	}
}

func TestRecipeSuggestEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{text: recipeResponse})

	rec := doJSON(t, h, http.MethodPost, "/recipes/suggest", map[string]any{
		"ingredients": []string{"tomatoes", "pasta"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/recipes/suggest", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no ingredients status = %d", rec.Code)
	}
}

func TestSavedRecipeLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{})

	r := recipe.NewRecipe("Keeper")
	r.Ingredients = []string{"salt"}
	r.Instructions = []string{"Season."}

	rec := doJSON(t, h, http.MethodPost, "/recipes/saved", map[string]any{
		"user_id": "alice",
		"recipe":  r,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/recipes/saved?user_id=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[map[string][]*recipe.Recipe](t, rec)
	if len(list["recipes"]) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, h, http.MethodGet, "/recipes/saved/"+r.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[recipe.Recipe](t, rec)
	if got.Title != "Keeper" || !got.IsSaved {
		t.Errorf("got = %+v", got)
	}

	rec = doJSON(t, h, http.MethodPatch, "/recipes/saved/"+r.ID+"/rating", map[string]float64{"rating": 4.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("rate status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/recipes/saved/"+r.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/recipes/saved/"+r.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestSaveRecipeValidation(t *testing.T) {
	h, _ := newTestHandler(t, &stubResponder{})

	rec := doJSON(t, h, http.MethodPost, "/recipes/saved", map[string]any{
		"recipe": recipe.NewRecipe("No owner"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/recipes/saved", map[string]any{
		"user_id": "alice",
		"recipe":  map[string]string{"title": "no id"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing recipe id status = %d", rec.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	h, deps := newTestHandler(t, &stubResponder{})

	conv, err := deps.Conversations.Create("alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := deps.Conversations.AddMessage(conv.ID, conversation.RoleUser, "pasta ideas"); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/conversations?user_id=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[map[string][]*conversation.Conversation](t, rec)
	if len(list["conversations"]) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, h, http.MethodGet, "/conversations", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("list without user_id status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/conversations/search", map[string]string{
		"user_id": "alice",
		"query":   "pasta",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", rec.Code, rec.Body.String())
	}
	results := decode[map[string][]conversation.SearchResult](t, rec)
	if len(results["results"]) != 1 {
		t.Errorf("results = %+v", results)
	}

	rec = doJSON(t, h, http.MethodPatch, "/conversations/"+conv.ID+"/metadata", map[string]any{
		"title": "Pasta planning",
		"tags":  []string{"dinner"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[conversation.Conversation](t, rec)
	if got.Metadata.Title != "Pasta planning" {
		t.Errorf("metadata = %+v", got.Metadata)
	}

	rec = doJSON(t, h, http.MethodDelete, "/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestBackupEndpoints(t *testing.T) {
	h, deps := newTestHandler(t, &stubResponder{})

	// Nothing to back up yet.
	rec := doJSON(t, h, http.MethodPost, "/backups", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty backup status = %d", rec.Code)
	}

	conv, err := deps.Conversations.Create("alice", "")
	if err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, h, http.MethodPost, "/backups", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("backup status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]*conversation.Backup](t, rec)
	backup := created["backup"]
	if backup == nil || backup.ConversationCount != 1 {
		t.Fatalf("backup = %+v", backup)
	}

	if err := deps.Conversations.Delete(conv.ID); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/backups/%s/restore", backup.ID), map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body = %s", rec.Code, rec.Body.String())
	}
	restored := decode[map[string]int](t, rec)
	if restored["restored"] != 1 {
		t.Errorf("restored = %+v", restored)
	}

	rec = doJSON(t, h, http.MethodPost, "/backups/missing/restore", map[string]string{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("restore missing status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/backups/cleanup", map[string]int{"keep": 5})
	if rec.Code != http.StatusOK {
		t.Errorf("cleanup status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/backups/cleanup", map[string]int{"keep": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cleanup keep=0 status = %d", rec.Code)
	}
}

func TestStorageStats(t *testing.T) {
	h, deps := newTestHandler(t, &stubResponder{})
	if _, err := deps.Conversations.Create("alice", ""); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/storage/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[map[string]any](t, rec)
	if len(stats) == 0 {
		t.Error("stats payload empty")
	}
}
