package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested conversation does not exist or
// is corrupted beyond recovery.
var ErrNotFound = errors.New("not found")

// Message roles form a closed set; anything else is a caller bug and is
// rejected at construction time.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single chat turn. Immutable once created.
type Message struct {
	ID        string         `json:"message_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	ParentID  string         `json:"parent_message_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with a fresh id and timestamp. An invalid
// role fails immediately rather than being persisted and rejected later.
func NewMessage(role, content string) (Message, error) {
	if !ValidRole(role) {
		return Message{}, fmt.Errorf("invalid role %q", role)
	}
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Metadata holds free-form conversation facets used for search filtering.
type Metadata struct {
	Title               string   `json:"title,omitempty"`
	Tags                []string `json:"tags"`
	Language            string   `json:"language"`
	CuisinePreferences  []string `json:"cuisine_preferences"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
}

// Conversation owns an ordered message sequence; insertion order is
// conversation order. UpdatedAt is bumped on every append.
type Conversation struct {
	ID           string    `json:"conversation_id"`
	OwnerID      string    `json:"user_id"`
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
	Checksum     string    `json:"checksum,omitempty"`
}

// New creates an empty conversation for the given owner.
func New(ownerID, systemPrompt string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		SystemPrompt: systemPrompt,
		Metadata:     Metadata{Language: "en"},
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// AddMessage appends a turn and bumps UpdatedAt. Fails fast on an invalid
// role.
func (c *Conversation) AddMessage(role, content string) (Message, error) {
	msg, err := NewMessage(role, content)
	if err != nil {
		return Message{}, err
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now().UTC()
	return msg, nil
}

// clone returns a copy whose message slice and metadata slices are
// independent of the receiver, so holders of a clone never observe
// concurrent appends to the cached original.
func (c *Conversation) clone() *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	for i := range out.Messages {
		if meta := c.Messages[i].Metadata; meta != nil {
			m := make(map[string]any, len(meta))
			for k, v := range meta {
				m[k] = v
			}
			out.Messages[i].Metadata = m
		}
	}
	out.Metadata.Tags = cloneStrings(c.Metadata.Tags)
	out.Metadata.CuisinePreferences = cloneStrings(c.Metadata.CuisinePreferences)
	out.Metadata.DietaryRestrictions = cloneStrings(c.Metadata.DietaryRestrictions)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// MessageByID returns the message with the given id, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// SizeEstimate returns the serialized size of the conversation in bytes.
func (c *Conversation) SizeEstimate() int {
	b, err := json.Marshal(c)
	if err != nil {
		return 0
	}
	return len(b)
}

// SearchQuery selects and ranks conversations for one owner.
type SearchQuery struct {
	OwnerID             string     `json:"user_id"`
	Query               string     `json:"query,omitempty"`
	Tags                []string   `json:"tags,omitempty"`
	DateFrom            *time.Time `json:"date_from,omitempty"`
	DateTo              *time.Time `json:"date_to,omitempty"`
	CuisinePreferences  []string   `json:"cuisine_preferences,omitempty"`
	DietaryRestrictions []string   `json:"dietary_restrictions,omitempty"`
	Limit               int        `json:"limit,omitempty"`
	Offset              int        `json:"offset,omitempty"`
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Conversation     *Conversation `json:"conversation"`
	RelevanceScore   float64       `json:"relevance_score"`
	MatchingMessages []string      `json:"matching_messages"`
}

// Backup describes one compressed backup archive.
type Backup struct {
	ID                string    `json:"backup_id"`
	CreatedAt         time.Time `json:"created_at"`
	ConversationCount int       `json:"conversation_count"`
	TotalSize         int64     `json:"total_size"`
	Checksum          string    `json:"checksum"`
	Compression       string    `json:"compression"`
}

// StorageStats summarizes the on-disk state of the store.
type StorageStats struct {
	TotalConversations int   `json:"total_conversations"`
	TotalSize          int64 `json:"total_size"`
	TotalMessages      int   `json:"total_messages"`
	BackupCount        int   `json:"backup_count"`
	BackupSize         int64 `json:"backup_size"`
	CorruptedFiles     int   `json:"corrupted_files"`
}
