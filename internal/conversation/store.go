package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Store persists one JSON file per conversation under dir, with gzip
// backup archives in a backups/ subdirectory. Writes are atomic
// (temp file + rename), reads are checksum-verified, and corrupted
// records are recovered from the most recent backup when possible.
type Store struct {
	dir       string
	backupDir string
	tempDir   string
}

// NewStore opens (or creates) the storage directories under dir.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		backupDir: filepath.Join(dir, "backups"),
		tempDir:   filepath.Join(dir, "temp"),
	}
	for _, d := range []string{s.dir, s.backupDir, s.tempDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	return s, nil
}

// checksum returns the hex SHA-256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON serializes v with sorted keys and compact separators so the
// checksum is stable regardless of struct field order.
func canonicalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// ChecksumOf computes the integrity checksum of a conversation: the hash of
// its canonical serialization with the checksum field cleared.
func ChecksumOf(c *Conversation) (string, error) {
	clone := *c
	clone.Checksum = ""
	data, err := canonicalJSON(&clone)
	if err != nil {
		return "", err
	}
	return checksum(data), nil
}

// validateData checks the structural invariants of a decoded conversation
// record: required fields present, every message carries a role from the
// closed set, and version is an integer.
func validateData(data map[string]any) []string {
	var errs []string

	for _, field := range []string{"conversation_id", "user_id", "messages", "created_at", "updated_at"} {
		if _, ok := data[field]; !ok {
			errs = append(errs, "missing required field: "+field)
		}
	}

	if msgs, ok := data["messages"].([]any); ok {
		for i, m := range msgs {
			msg, ok := m.(map[string]any)
			if !ok {
				errs = append(errs, fmt.Sprintf("message %d is not an object", i))
				continue
			}
			for _, field := range []string{"role", "content", "timestamp"} {
				if _, ok := msg[field]; !ok {
					errs = append(errs, fmt.Sprintf("message %d missing field: %s", i, field))
				}
			}
			if role, ok := msg["role"].(string); ok && !ValidRole(role) {
				errs = append(errs, fmt.Sprintf("message %d has invalid role: %s", i, role))
			}
		}
	}

	if v, ok := data["version"]; ok {
		f, isNum := v.(float64)
		if !isNum || f != math.Trunc(f) || f < 0 {
			errs = append(errs, "version must be a non-negative integer")
		}
	}

	return errs
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save recomputes the conversation checksum, validates the record, writes
// it to a temporary file, and renames it into place. On any failure the
// previously persisted record is left untouched.
func (s *Store) Save(c *Conversation) error {
	sum, err := ChecksumOf(c)
	if err != nil {
		return fmt.Errorf("computing checksum: %w", err)
	}
	c.Checksum = sum

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing conversation: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("reparsing conversation: %w", err)
	}
	if errs := validateData(decoded); len(errs) > 0 {
		return fmt.Errorf("conversation validation failed: %s", strings.Join(errs, "; "))
	}

	tempFile := filepath.Join(s.tempDir, c.ID+".json.tmp")
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempFile, s.recordPath(c.ID)); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("moving conversation into place: %w", err)
	}

	slog.Debug("saved conversation", "id", c.ID, "checksum", sum[:8])
	return nil
}

// Load reads and validates a conversation. Structurally invalid records and
// checksum mismatches trigger a recovery attempt from the most recent
// backup containing the id; if that fails too, the record is reported as
// ErrNotFound, so callers cannot distinguish corruption from absence.
func (s *Store) Load(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		slog.Warn("conversation is not valid JSON, attempting recovery", "id", id, "error", err)
		return s.recoverFromBackup(id)
	}
	if errs := validateData(decoded); len(errs) > 0 {
		slog.Warn("conversation failed validation, attempting recovery", "id", id, "errors", errs)
		return s.recoverFromBackup(id)
	}

	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("conversation failed to decode, attempting recovery", "id", id, "error", err)
		return s.recoverFromBackup(id)
	}

	if c.Checksum != "" {
		expected := c.Checksum
		computed, err := ChecksumOf(&c)
		if err != nil {
			return nil, fmt.Errorf("recomputing checksum for %s: %w", id, err)
		}
		if computed != expected {
			slog.Warn("checksum mismatch, attempting recovery",
				"id", id, "expected", expected[:8], "got", computed[:8])
			return s.recoverFromBackup(id)
		}
	}

	return &c, nil
}

// Delete removes the persisted record. Deleting a missing id returns
// ErrNotFound.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.recordPath(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// IDs returns the ids of all persisted conversations.
func (s *Store) IDs() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if strings.HasPrefix(name, "backup_") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Stats summarizes storage usage. Unreadable records count as corrupted
// rather than failing the whole scan.
func (s *Store) Stats() StorageStats {
	var stats StorageStats

	ids, err := s.IDs()
	if err != nil {
		slog.Error("listing conversations for stats", "error", err)
		return stats
	}
	for _, id := range ids {
		info, err := os.Stat(s.recordPath(id))
		if err != nil {
			stats.CorruptedFiles++
			continue
		}
		data, err := os.ReadFile(s.recordPath(id))
		if err != nil {
			stats.CorruptedFiles++
			continue
		}
		var decoded struct {
			Messages []json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			stats.CorruptedFiles++
			continue
		}
		stats.TotalConversations++
		stats.TotalSize += info.Size()
		stats.TotalMessages += len(decoded.Messages)
	}

	backups, err := filepath.Glob(filepath.Join(s.backupDir, "backup_*.json.gz"))
	if err == nil {
		for _, p := range backups {
			if info, err := os.Stat(p); err == nil {
				stats.BackupCount++
				stats.BackupSize += info.Size()
			}
		}
	}
	return stats
}
