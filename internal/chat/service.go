package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/makemyrecipe/makemyrecipe/internal/anthropic"
	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
)

// Responder is the assistant capability the chat service drives.
type Responder interface {
	Respond(ctx context.Context, messages []anthropic.Message, systemPrompt string, enableSearch bool) (string, []assistant.Citation)
}

// Service ties conversations to the assistant: it persists each user turn,
// prompts the model with the recent history, and persists the reply.
type Service struct {
	conversations *conversation.Service
	responder     Responder
	maxHistory    int
	enableSearch  bool
}

// NewService creates a chat Service. maxHistory bounds how many past turns
// are sent to the model per request.
func NewService(conversations *conversation.Service, responder Responder, maxHistory int, enableSearch bool) *Service {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &Service{
		conversations: conversations,
		responder:     responder,
		maxHistory:    maxHistory,
		enableSearch:  enableSearch,
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	ConversationID string               `json:"conversation_id"`
	MessageID      string               `json:"message_id"`
	Response       string               `json:"response"`
	Citations      []assistant.Citation `json:"citations,omitempty"`
}

// Send records the user's message, asks the assistant for a reply with the
// conversation history as context, records the reply, and returns it. An
// empty conversationID starts a new conversation for the user.
func (s *Service) Send(ctx context.Context, userID, conversationID, text string) (*Reply, error) {
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	var conv *conversation.Conversation
	var err error
	if conversationID == "" {
		conv, err = s.conversations.Create(userID, assistant.RecipeSystemPrompt())
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
	} else {
		conv, err = s.conversations.Get(conversationID)
		if err != nil {
			return nil, err
		}
		if conv.OwnerID != userID {
			return nil, conversation.ErrNotFound
		}
	}

	if _, err := s.conversations.AddMessage(conv.ID, conversation.RoleUser, text); err != nil {
		return nil, err
	}

	// The service hands out snapshots, so refresh to pick up the turn that
	// was just persisted before building the history window.
	conv, err = s.conversations.Get(conv.ID)
	if err != nil {
		return nil, err
	}

	response, citations := s.responder.Respond(ctx, s.history(conv), conv.SystemPrompt, s.enableSearch)

	msg, err := s.conversations.AddMessage(conv.ID, conversation.RoleAssistant, response)
	if err != nil {
		// The reply was generated but could not be persisted; surface the
		// persistence failure rather than silently losing a turn.
		return nil, fmt.Errorf("persisting reply: %w", err)
	}

	slog.Info("chat turn completed",
		"conversation", conv.ID, "user", userID, "citations", len(citations))
	return &Reply{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Response:       response,
		Citations:      citations,
	}, nil
}

// history converts the most recent turns into model messages, skipping
// system entries since the system prompt travels separately.
func (s *Service) history(conv *conversation.Conversation) []anthropic.Message {
	msgs := conv.Messages
	if len(msgs) > s.maxHistory {
		msgs = msgs[len(msgs)-s.maxHistory:]
	}
	out := make([]anthropic.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == conversation.RoleSystem {
			continue
		}
		out = append(out, anthropic.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
