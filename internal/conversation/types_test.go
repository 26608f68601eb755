package conversation

import (
	"testing"
)

func TestNewMessageValidation(t *testing.T) {
	for _, role := range []string{RoleUser, RoleAssistant, RoleSystem} {
		msg, err := NewMessage(role, "x")
		if err != nil {
			t.Errorf("NewMessage(%q): %v", role, err)
		}
		if msg.ID == "" || msg.Timestamp.IsZero() {
			t.Errorf("NewMessage(%q) = %+v", role, msg)
		}
	}

	if _, err := NewMessage("moderator", "x"); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := NewMessage("User", "x"); err == nil {
		t.Error("role matching must be case sensitive")
	}
}

func TestAddMessageBumpsUpdatedAt(t *testing.T) {
	c := New("alice", "")
	before := c.UpdatedAt

	if _, err := c.AddMessage(RoleUser, "hi"); err != nil {
		t.Fatal(err)
	}
	if !c.UpdatedAt.After(before) && !c.UpdatedAt.Equal(before) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", before, c.UpdatedAt)
	}
	if len(c.Messages) != 1 {
		t.Fatalf("messages = %d", len(c.Messages))
	}
}

func TestMessageByID(t *testing.T) {
	c := New("alice", "")
	msg, _ := c.AddMessage(RoleUser, "find me")

	if got := c.MessageByID(msg.ID); got == nil || got.Content != "find me" {
		t.Errorf("MessageByID = %+v", got)
	}
	if got := c.MessageByID("nope"); got != nil {
		t.Errorf("MessageByID(nope) = %+v, want nil", got)
	}
}

func TestNewConversationDefaults(t *testing.T) {
	c := New("alice", "prompt")
	if c.ID == "" || c.Version != 1 {
		t.Errorf("conversation = %+v", c)
	}
	if c.Metadata.Language != "en" {
		t.Errorf("default language = %q", c.Metadata.Language)
	}
	if c.SizeEstimate() == 0 {
		t.Error("SizeEstimate returned 0")
	}
}
