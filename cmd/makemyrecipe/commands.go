package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/config"
	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
)

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	tags := strings.Split(raw, ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	return tags
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a chat message to the cooking assistant",
	Long: `Send a chat message to the cooking assistant.

Examples:
  makemyrecipe chat --user alice "I want to make pasta carbonara"
  makemyrecipe chat --user alice --conversation 3f1c... "Can I use bacon instead?"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		conversationID, _ := cmd.Flags().GetString("conversation")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/chat", map[string]any{
			"user_id":         userID,
			"conversation_id": conversationID,
			"message":         args[0],
		})
		if err != nil {
			return err
		}

		var reply struct {
			ConversationID string               `json:"conversation_id"`
			Response       string               `json:"response"`
			Citations      []assistant.Citation `json:"citations"`
		}
		if err := decodeJSON(resp, &reply); err != nil {
			return err
		}

		fmt.Println(reply.Response)
		printStatus("Conversation", "%s", reply.ConversationID)
		if len(reply.Citations) > 0 {
			printStatus("Citations", "%d", len(reply.Citations))
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().String("user", "", "user id")
	chatCmd.Flags().String("conversation", "", "conversation id to continue (omit to start a new one)")
}

// --- recipes ---

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Search, suggest, and manage recipes",
}

var recipesSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the web for recipes",
	Long: `Search the web for recipes.

Examples:
  makemyrecipe recipes search "spicy chicken curry"
  makemyrecipe recipes search "weeknight dinner" --cuisine thai --dietary gluten_free`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuisine, _ := cmd.Flags().GetString("cuisine")
		dietary, _ := cmd.Flags().GetString("dietary")
		maxPrep, _ := cmd.Flags().GetInt("max-prep-time")

		req := map[string]any{"query": args[0]}
		if cuisine != "" {
			c, ok := recipe.ParseCuisine(cuisine)
			if !ok {
				return fmt.Errorf("unknown cuisine %q", cuisine)
			}
			req["cuisine"] = c
		}
		if dietary != "" {
			var restrictions []recipe.DietaryRestriction
			for _, raw := range splitTags(dietary) {
				d, ok := recipe.ParseDietaryRestriction(raw)
				if !ok {
					return fmt.Errorf("unknown dietary restriction %q", raw)
				}
				restrictions = append(restrictions, d)
			}
			req["dietary_restrictions"] = restrictions
		}
		if maxPrep > 0 {
			req["max_prep_time_minutes"] = maxPrep
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/recipes/search", req)
		if err != nil {
			return err
		}
		return printRecipeResults(resp)
	},
}

var recipesSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest recipes from ingredients you have",
	RunE: func(cmd *cobra.Command, args []string) error {
		ingredients, _ := cmd.Flags().GetString("ingredients")
		exclude, _ := cmd.Flags().GetString("exclude")
		if ingredients == "" {
			return fmt.Errorf("--ingredients is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/recipes/suggest", map[string]any{
			"ingredients":         splitTags(ingredients),
			"exclude_ingredients": splitTags(exclude),
		})
		if err != nil {
			return err
		}
		return printRecipeResults(resp)
	},
}

func printRecipeResults(resp *http.Response) error {
	var result struct {
		Recipes []recipe.Recipe `json:"recipes"`
		Text    string          `json:"text"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	fmt.Println(result.Text)
	if len(result.Recipes) > 0 {
		printSuccess("Extracted %d structured recipes", len(result.Recipes))
		for _, r := range result.Recipes {
			printStatus(r.ID[:8], "%s", r.Title)
		}
	}
	return nil
}

var recipesSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/recipes/saved?user_id="+userID)
		if err != nil {
			return err
		}

		var result struct {
			Recipes []recipe.Recipe `json:"recipes"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Recipes) == 0 {
			printWarning("no saved recipes")
			return nil
		}
		for _, r := range result.Recipes {
			line := r.Title
			if r.Rating > 0 {
				line += fmt.Sprintf(" (%.1f/5)", r.Rating)
			}
			printStatus(r.ID[:8], "%s", line)
		}
		return nil
	},
}

var recipesRateCmd = &cobra.Command{
	Use:   "rate [recipe-id]",
	Short: "Rate a saved recipe (1.0 to 5.0)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, _ := cmd.Flags().GetFloat64("rating")
		if rating == 0 {
			return fmt.Errorf("--rating is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/recipes/saved/"+args[0]+"/rating", map[string]any{
			"rating": rating,
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Rated recipe %s", args[0])
		return nil
	},
}

var recipesDeleteCmd = &cobra.Command{
	Use:   "delete [recipe-id]",
	Short: "Delete a saved recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/recipes/saved/"+args[0])
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}
		printSuccess("Deleted recipe %s", args[0])
		return nil
	},
}

func init() {
	recipesSearchCmd.Flags().String("cuisine", "", "cuisine style (e.g. italian, thai)")
	recipesSearchCmd.Flags().String("dietary", "", "comma-separated dietary restrictions")
	recipesSearchCmd.Flags().Int("max-prep-time", 0, "maximum prep time in minutes")
	recipesSuggestCmd.Flags().String("ingredients", "", "comma-separated ingredients to use")
	recipesSuggestCmd.Flags().String("exclude", "", "comma-separated ingredients to avoid")
	recipesSavedCmd.Flags().String("user", "", "user id")
	recipesRateCmd.Flags().Float64("rating", 0, "rating from 1.0 to 5.0")

	recipesCmd.AddCommand(recipesSearchCmd)
	recipesCmd.AddCommand(recipesSuggestCmd)
	recipesCmd.AddCommand(recipesSavedCmd)
	recipesCmd.AddCommand(recipesRateCmd)
	recipesCmd.AddCommand(recipesDeleteCmd)
}

// --- conversations ---

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Browse and search conversation history",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/conversations?user_id=%s&limit=%d", userID, limit))
		if err != nil {
			return err
		}

		var result struct {
			Conversations []conversation.Conversation `json:"conversations"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Conversations) == 0 {
			printWarning("no conversations")
			return nil
		}
		for _, c := range result.Conversations {
			title := c.Metadata.Title
			if title == "" {
				title = "(untitled)"
			}
			printStatus(c.ID[:8], "%s — %d messages, updated %s",
				title, len(c.Messages), c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var conversationsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search conversations by text, tags, or preferences",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		tags, _ := cmd.Flags().GetString("tags")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		req := map[string]any{"user_id": userID}
		if len(args) == 1 {
			req["query"] = args[0]
		}
		if tags != "" {
			req["tags"] = splitTags(tags)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/conversations/search", req)
		if err != nil {
			return err
		}

		var result struct {
			Results []conversation.SearchResult `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Results) == 0 {
			printWarning("no matches")
			return nil
		}
		for _, hit := range result.Results {
			title := hit.Conversation.Metadata.Title
			if title == "" {
				title = "(untitled)"
			}
			printStatus(hit.Conversation.ID[:8], "%s (score %.2f, %d matching messages)",
				title, hit.RelevanceScore, len(hit.MatchingMessages))
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/conversations/"+args[0])
		if err != nil {
			return err
		}

		var c conversation.Conversation
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}
		for _, m := range c.Messages {
			fmt.Printf("[%s] %s\n%s\n\n", m.Timestamp.Format("15:04"), m.Role, m.Content)
		}
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/conversations/"+args[0])
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}
		printSuccess("Deleted conversation %s", args[0])
		return nil
	},
}

func init() {
	conversationsListCmd.Flags().String("user", "", "user id")
	conversationsListCmd.Flags().Int("limit", 0, "maximum number of conversations (0 for all)")
	conversationsSearchCmd.Flags().String("user", "", "user id")
	conversationsSearchCmd.Flags().String("tags", "", "comma-separated tags to filter by")

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsSearchCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}

// --- backup ---

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, restore, and prune conversation backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup archive of conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/backups", map[string]any{"user_id": userID})
		if err != nil {
			return err
		}

		var result struct {
			Backup  *conversation.Backup `json:"backup"`
			Message string               `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if result.Backup == nil {
			printWarning("%s", result.Message)
			return nil
		}
		printSuccess("Created backup %s (%d conversations)", result.Backup.ID, result.Backup.ConversationCount)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Restore conversations from a backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/backups/"+args[0]+"/restore", map[string]any{"user_id": userID})
		if err != nil {
			return err
		}

		var result struct {
			Restored int `json:"restored"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Restored %d conversations", result.Restored)
		return nil
	},
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old backup archives, keeping the most recent N",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/backups/cleanup", map[string]any{"keep": keep})
		if err != nil {
			return err
		}

		var result struct {
			Removed int `json:"removed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Removed %d old backups", result.Removed)
		return nil
	},
}

func init() {
	backupCreateCmd.Flags().String("user", "", "back up only this user's conversations")
	backupRestoreCmd.Flags().String("user", "", "restore only this user's conversations")
	backupCleanupCmd.Flags().Int("keep", 10, "number of backups to keep")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupCleanupCmd)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/storage/stats")
		if err != nil {
			return err
		}

		var stats conversation.StorageStats
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}
		printStatus("Conversations", "%d", stats.TotalConversations)
		printStatus("Messages", "%d", stats.TotalMessages)
		printStatus("Storage size", "%d bytes", stats.TotalSize)
		printStatus("Backups", "%d (%d bytes)", stats.BackupCount, stats.BackupSize)
		if stats.CorruptedFiles > 0 {
			printWarning("%d corrupted files", stats.CorruptedFiles)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and set configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s (env %s)", info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Set a configuration key.

Valid keys:
  ` + strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
