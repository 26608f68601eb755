package conversation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func seedConversation(t *testing.T, s *Store, ownerID string, messages ...string) *Conversation {
	t.Helper()
	c := New(ownerID, "You are a cooking assistant.")
	for i, m := range messages {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if _, err := c.AddMessage(role, m); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
	if err := s.Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	c := seedConversation(t, s, "alice", "I want carbonara", "Here's how to make it")

	loaded, err := s.Load(c.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != c.ID || loaded.OwnerID != "alice" {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != RoleUser || loaded.Messages[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q", loaded.Messages[0].Role, loaded.Messages[1].Role)
	}
	if loaded.Checksum == "" {
		t.Error("checksum not persisted")
	}
}

func TestChecksumStableAcrossRoundTrip(t *testing.T) {
	s := newTestStore(t)
	c := seedConversation(t, s, "alice", "hello")

	loaded, err := s.Load(c.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sum, err := ChecksumOf(loaded)
	if err != nil {
		t.Fatalf("ChecksumOf: %v", err)
	}
	if sum != loaded.Checksum {
		t.Errorf("recomputed checksum %s != stored %s", sum[:8], loaded.Checksum[:8])
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load = %v, want ErrNotFound", err)
	}
}

func TestLoadTamperedWithoutBackup(t *testing.T) {
	s := newTestStore(t)
	c := seedConversation(t, s, "alice", "hello")

	path := filepath.Join(s.dir, c.ID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "hello", "HELLO", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load tampered = %v, want ErrNotFound", err)
	}
}

func TestLoadTamperedRecoversFromBackup(t *testing.T) {
	s := newTestStore(t)
	c := seedConversation(t, s, "alice", "hello")

	if _, err := s.CreateBackup(""); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	path := filepath.Join(s.dir, c.ID+".json")
	if err := os.WriteFile(path, []byte("{broken json"), 0o644); err != nil {
		t.Fatal(err)
	}

	recovered, err := s.Load(c.ID)
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if recovered.ID != c.ID || len(recovered.Messages) != 1 {
		t.Errorf("recovered = %+v", recovered)
	}
}

func TestSaveRejectsInvalidRole(t *testing.T) {
	s := newTestStore(t)
	c := New("alice", "")
	c.Messages = append(c.Messages, Message{ID: "m1", Role: "moderator", Content: "x"})

	if err := s.Save(c); err == nil {
		t.Fatal("expected validation error for invalid role")
	}

	// A failed save must not leave a record behind.
	if _, err := s.Load(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after failed save = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	c := seedConversation(t, s, "alice", "x")

	if err := s.Delete(c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v", err)
	}
	if err := s.Delete(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestValidateData(t *testing.T) {
	valid := map[string]any{
		"conversation_id": "c1",
		"user_id":         "u1",
		"messages": []any{
			map[string]any{"role": "user", "content": "hi", "timestamp": "2025-01-01T00:00:00Z"},
		},
		"created_at": "2025-01-01T00:00:00Z",
		"updated_at": "2025-01-01T00:00:00Z",
		"version":    float64(1),
	}
	if errs := validateData(valid); len(errs) != 0 {
		t.Errorf("valid record reported errors: %v", errs)
	}

	missing := map[string]any{"conversation_id": "c1"}
	if errs := validateData(missing); len(errs) == 0 {
		t.Error("expected errors for missing fields")
	}

	badRole := map[string]any{
		"conversation_id": "c1", "user_id": "u1",
		"messages": []any{
			map[string]any{"role": "wizard", "content": "hi", "timestamp": "t"},
		},
		"created_at": "t", "updated_at": "t",
	}
	errs := validateData(badRole)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "invalid role") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected invalid role error, got %v", errs)
	}

	badVersion := map[string]any{
		"conversation_id": "c1", "user_id": "u1", "messages": []any{},
		"created_at": "t", "updated_at": "t", "version": 1.5,
	}
	if errs := validateData(badVersion); len(errs) == 0 {
		t.Error("expected error for fractional version")
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	seedConversation(t, s, "alice", "one", "two")
	seedConversation(t, s, "bob", "three")
	if _, err := s.CreateBackup(""); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	stats := s.Stats()
	if stats.TotalConversations != 2 {
		t.Errorf("TotalConversations = %d, want 2", stats.TotalConversations)
	}
	if stats.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", stats.TotalMessages)
	}
	if stats.BackupCount != 1 {
		t.Errorf("BackupCount = %d, want 1", stats.BackupCount)
	}
	if stats.TotalSize == 0 || stats.BackupSize == 0 {
		t.Errorf("sizes = %d/%d, want non-zero", stats.TotalSize, stats.BackupSize)
	}
}
