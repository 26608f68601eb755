package conversation

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// backupPayload is the decompressed archive shape: all records batched
// under a conversations array.
type backupPayload struct {
	BackupID      string            `json:"backup_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Conversations []json.RawMessage `json:"conversations"`
	Metadata      backupMetadata    `json:"metadata"`
}

type backupMetadata struct {
	OwnerID           string `json:"user_id,omitempty"`
	ConversationCount int    `json:"conversation_count"`
	TotalSize         int64  `json:"total_size"`
}

// CreateBackup snapshots every conversation record (or only ownerID's, when
// non-empty) into one gzip archive. Returns (nil, nil) when there is
// nothing to back up. Corrupted records are skipped, not fatal.
func (s *Store) CreateBackup(ownerID string) (*Backup, error) {
	now := time.Now().UTC()
	backupID := "backup_" + now.Format("20060102_150405")
	if ownerID != "" {
		backupID += "_" + ownerID
	}

	ids, err := s.IDs()
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	var records []json.RawMessage
	var totalSize int64
	for _, id := range ids {
		data, err := os.ReadFile(s.recordPath(id))
		if err != nil {
			slog.Warn("skipping unreadable record", "id", id, "error", err)
			continue
		}
		var decoded struct {
			OwnerID string `json:"user_id"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			slog.Warn("skipping corrupted record", "id", id, "error", err)
			continue
		}
		if ownerID != "" && decoded.OwnerID != ownerID {
			continue
		}
		records = append(records, json.RawMessage(data))
		totalSize += int64(len(data))
	}

	if len(records) == 0 {
		slog.Info("no conversations to back up")
		return nil, nil
	}

	payload, err := json.Marshal(backupPayload{
		BackupID:      backupID,
		CreatedAt:     now,
		Conversations: records,
		Metadata: backupMetadata{
			OwnerID:           ownerID,
			ConversationCount: len(records),
			TotalSize:         totalSize,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("serializing backup: %w", err)
	}
	sum := checksum(payload)

	path := filepath.Join(s.backupDir, backupID+".json.gz")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("finalizing backup: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing backup file: %w", err)
	}

	slog.Info("created backup", "id", backupID, "conversations", len(records))
	return &Backup{
		ID:                backupID,
		CreatedAt:         now,
		ConversationCount: len(records),
		TotalSize:         totalSize,
		Checksum:          sum,
		Compression:       "gzip",
	}, nil
}

// readBackup decompresses and decodes one backup archive.
func (s *Store) readBackup(path string) (*backupPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompressing backup: %w", err)
	}
	defer zr.Close()

	var payload backupPayload
	if err := json.NewDecoder(zr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return &payload, nil
}

// Restore re-persists conversations from a backup archive through the
// normal save path, revalidating each record independently and skipping
// invalid ones. It returns the number of records restored; restoring
// nothing from an existing archive is not an error by itself.
func (s *Store) Restore(backupID, ownerID string) (int, error) {
	path := filepath.Join(s.backupDir, backupID+".json.gz")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, fmt.Errorf("backup %s: %w", backupID, ErrNotFound)
	}

	payload, err := s.readBackup(path)
	if err != nil {
		return 0, err
	}
	if len(payload.Conversations) == 0 {
		return 0, fmt.Errorf("backup %s contains no conversations", backupID)
	}

	restored := 0
	for _, raw := range payload.Conversations {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			slog.Warn("skipping undecodable record in backup", "error", err)
			continue
		}
		if ownerID != "" {
			if owner, _ := decoded["user_id"].(string); owner != ownerID {
				continue
			}
		}
		if errs := validateData(decoded); len(errs) > 0 {
			slog.Warn("skipping invalid record in backup", "errors", errs)
			continue
		}
		var c Conversation
		if err := json.Unmarshal(raw, &c); err != nil {
			slog.Warn("skipping undecodable record in backup", "error", err)
			continue
		}
		if err := s.Save(&c); err != nil {
			slog.Warn("failed to restore conversation", "id", c.ID, "error", err)
			continue
		}
		restored++
	}

	slog.Info("restored conversations from backup", "backup", backupID, "count", restored)
	return restored, nil
}

// recoverFromBackup scans backups newest-first for a valid copy of the
// conversation. Reports ErrNotFound when no backup can produce one.
func (s *Store) recoverFromBackup(id string) (*Conversation, error) {
	paths, err := filepath.Glob(filepath.Join(s.backupDir, "backup_*.json.gz"))
	if err != nil {
		return nil, ErrNotFound
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	for _, path := range paths {
		payload, err := s.readBackup(path)
		if err != nil {
			slog.Warn("error reading backup during recovery", "path", path, "error", err)
			continue
		}
		for _, raw := range payload.Conversations {
			var decoded map[string]any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				continue
			}
			if recordID, _ := decoded["conversation_id"].(string); recordID != id {
				continue
			}
			if errs := validateData(decoded); len(errs) > 0 {
				continue
			}
			var c Conversation
			if err := json.Unmarshal(raw, &c); err != nil {
				continue
			}
			slog.Info("recovered conversation from backup", "id", id, "backup", filepath.Base(path))
			return &c, nil
		}
	}

	slog.Error("could not recover conversation from any backup", "id", id)
	return nil, ErrNotFound
}

// CleanupBackups retains the keep most recently modified backup archives
// and deletes the rest, returning the number removed.
func (s *Store) CleanupBackups(keep int) (int, error) {
	paths, err := filepath.Glob(filepath.Join(s.backupDir, "backup_*.json.gz"))
	if err != nil {
		return 0, err
	}
	if len(paths) <= keep {
		return 0, nil
	}

	type backupFile struct {
		path  string
		mtime time.Time
	}
	files := make([]backupFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: p, mtime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })

	removed := 0
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil {
			slog.Warn("error removing backup", "path", f.path, "error", err)
			continue
		}
		removed++
		slog.Debug("removed old backup", "path", filepath.Base(f.path))
	}
	slog.Info("cleaned up old backups", "removed", removed)
	return removed, nil
}
