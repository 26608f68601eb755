package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/makemyrecipe/makemyrecipe/internal/chat"
	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
	"github.com/makemyrecipe/makemyrecipe/internal/recipestore"
)

const maxBodySize = 1 << 20 // 1MB

// AppDeps holds the services the HTTP API exposes.
type AppDeps struct {
	Chat          *chat.Service
	Recipes       *recipe.Service
	Conversations *conversation.Service
	Saved         *recipestore.Store
}

// NewAppHandler builds the HTTP API router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Post("/chat", handleChat(deps))

	r.Post("/recipes/search", handleRecipeSearch(deps))
	r.Post("/recipes/suggest", handleRecipeSuggest(deps))
	r.Post("/recipes/saved", handleSaveRecipe(deps))
	r.Get("/recipes/saved", handleListSavedRecipes(deps))
	r.Get("/recipes/saved/{id}", handleGetSavedRecipe(deps))
	r.Patch("/recipes/saved/{id}/rating", handleRateRecipe(deps))
	r.Delete("/recipes/saved/{id}", handleDeleteSavedRecipe(deps))

	r.Get("/conversations", handleListConversations(deps))
	r.Post("/conversations/search", handleSearchConversations(deps))
	r.Get("/conversations/{id}", handleGetConversation(deps))
	r.Patch("/conversations/{id}/metadata", handlePatchMetadata(deps))
	r.Delete("/conversations/{id}", handleDeleteConversation(deps))

	r.Post("/backups", handleCreateBackup(deps))
	r.Post("/backups/{id}/restore", handleRestoreBackup(deps))
	r.Post("/backups/cleanup", handleCleanupBackups(deps))

	r.Get("/storage/stats", handleStorageStats(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

type chatRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		reply, err := deps.Chat.Send(r.Context(), req.UserID, req.ConversationID, req.Message)
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "chat failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

type recipeSearchResponse struct {
	Recipes []*recipe.Recipe `json:"recipes"`
	Text    string           `json:"text"`
}

func handleRecipeSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q recipe.Query
		if !decodeBody(w, r, &q) {
			return
		}

		recipes, text, err := deps.Recipes.Search(r.Context(), q)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, recipeSearchResponse{Recipes: recipes, Text: text})
	}
}

type suggestRequest struct {
	Ingredients []string `json:"ingredients"`
	Exclude     []string `json:"exclude_ingredients,omitempty"`
}

func handleRecipeSuggest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestRequest
		if !decodeBody(w, r, &req) {
			return
		}

		recipes, text, err := deps.Recipes.SuggestByIngredients(r.Context(), req.Ingredients, req.Exclude)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, recipeSearchResponse{Recipes: recipes, Text: text})
	}
}

type saveRecipeRequest struct {
	UserID string        `json:"user_id"`
	Recipe recipe.Recipe `json:"recipe"`
}

func handleSaveRecipe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRecipeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		if req.Recipe.ID == "" || req.Recipe.Title == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "recipe id and title are required")
			return
		}

		req.Recipe.IsSaved = true
		if err := deps.Saved.Save(req.UserID, &req.Recipe); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving recipe: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, req.Recipe)
	}
}

func handleListSavedRecipes(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		recipes, err := deps.Saved.ListByUser(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing recipes: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes})
	}
}

func handleGetSavedRecipe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Saved.Get(chi.URLParam(r, "id"))
		if errors.Is(err, recipestore.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "recipe not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading recipe: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleRateRecipe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rating float64 `json:"rating"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		err := deps.Saved.UpdateRating(chi.URLParam(r, "id"), req.Rating)
		if errors.Is(err, recipestore.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "recipe not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating rating: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleDeleteSavedRecipe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Saved.Delete(chi.URLParam(r, "id"))
		if errors.Is(err, recipestore.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "recipe not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting recipe: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit")
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conversations": deps.Conversations.ListByOwner(userID, limit),
		})
	}
}

func handleSearchConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q conversation.SearchQuery
		if !decodeBody(w, r, &q) {
			return
		}
		if q.OwnerID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		results, err := deps.Conversations.Search(q)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := deps.Conversations.Get(chi.URLParam(r, "id"))
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading conversation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handlePatchMetadata(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var meta conversation.Metadata
		if !decodeBody(w, r, &meta) {
			return
		}

		err := deps.Conversations.UpdateMetadata(chi.URLParam(r, "id"), meta)
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating metadata: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleDeleteConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Conversations.Delete(chi.URLParam(r, "id"))
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting conversation: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateBackup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id,omitempty"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		backup, err := deps.Conversations.Backup(req.UserID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "backup failed: %v", err)
			return
		}
		if backup == nil {
			writeJSON(w, http.StatusOK, map[string]any{"backup": nil, "message": "no conversations to back up"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"backup": backup})
	}
}

func handleRestoreBackup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id,omitempty"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		restored, err := deps.Conversations.Restore(r.Context(), chi.URLParam(r, "id"), req.UserID)
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "backup not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "restore failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"restored": restored})
	}
}

func handleCleanupBackups(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keep int `json:"keep"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Keep <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "keep must be positive")
			return
		}

		removed, err := deps.Conversations.CleanupBackups(req.Keep)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "cleanup failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	}
}

func handleStorageStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Conversations.Stats())
	}
}
