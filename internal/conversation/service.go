package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Service fronts the Store with an in-memory cache of active
// conversations. All mutation goes through the service so the cache and
// the persisted state never diverge: a failed save rolls the in-memory
// copy back.
type Service struct {
	store *Store

	mu     sync.RWMutex
	active map[string]*Conversation
}

// NewService creates a Service over the given store. Call Preload to warm
// the cache from disk.
func NewService(store *Store) *Service {
	return &Service{
		store:  store,
		active: make(map[string]*Conversation),
	}
}

// Preload loads all persisted conversations into the cache with bounded
// concurrency. Corrupted records are skipped and logged, not fatal.
func (s *Service) Preload(ctx context.Context) error {
	ids, err := s.store.IDs()
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := s.store.Load(id)
			if err != nil {
				slog.Warn("skipping conversation during preload", "id", id, "error", err)
				return nil
			}
			s.mu.Lock()
			s.active[c.ID] = c
			s.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.RLock()
	loaded := len(s.active)
	s.mu.RUnlock()
	slog.Info("preloaded conversations", "count", loaded)
	return nil
}

// Create starts a new conversation for the owner and persists it. The
// returned conversation is a snapshot; later appends go through AddMessage.
func (s *Service) Create(ownerID, systemPrompt string) (*Conversation, error) {
	c := New(ownerID, systemPrompt)
	if err := s.store.Save(c); err != nil {
		return nil, fmt.Errorf("saving new conversation: %w", err)
	}
	s.mu.Lock()
	s.active[c.ID] = c
	out := c.clone()
	s.mu.Unlock()
	slog.Info("created conversation", "id", c.ID, "owner", ownerID)
	return out, nil
}

// get returns the live cached conversation, loading it from the store on a
// cache miss. The pointer is shared with the cache; mutate it only while
// holding mu.
func (s *Service) get(id string) (*Conversation, error) {
	s.mu.RLock()
	c, ok := s.active[id]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.active[c.ID] = c
	s.mu.Unlock()
	return c, nil
}

// Get returns a snapshot of the conversation by id, loading it from the
// store on a cache miss. Mutations made after Get are not reflected in the
// returned copy.
func (s *Service) Get(id string) (*Conversation, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.clone(), nil
}

// ListByOwner returns snapshots of the owner's conversations sorted most
// recently updated first. limit <= 0 means no limit.
func (s *Service) ListByOwner(ownerID string, limit int) []*Conversation {
	s.mu.RLock()
	var out []*Conversation
	for _, c := range s.active {
		if c.OwnerID == ownerID {
			out = append(out, c.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AddMessage appends a turn to the conversation and persists the result.
// If the save fails, the appended message is popped so the cached copy
// matches what is on disk.
func (s *Service) AddMessage(id, role, content string) (Message, error) {
	c, err := s.get(id)
	if err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := c.AddMessage(role, content)
	if err != nil {
		return Message{}, err
	}
	if err := s.store.Save(c); err != nil {
		c.Messages = c.Messages[:len(c.Messages)-1]
		return Message{}, fmt.Errorf("persisting message: %w", err)
	}
	return msg, nil
}

// UpdateMetadata replaces the conversation's metadata and persists it.
func (s *Service) UpdateMetadata(id string, meta Metadata) error {
	c, err := s.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := c.Metadata
	c.Metadata = meta
	if err := s.store.Save(c); err != nil {
		c.Metadata = prev
		return fmt.Errorf("persisting metadata: %w", err)
	}
	return nil
}

// Delete removes the conversation from the cache and the store.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
	return s.store.Delete(id)
}

// Backup archives the owner's conversations (all conversations when
// ownerID is empty).
func (s *Service) Backup(ownerID string) (*Backup, error) {
	return s.store.CreateBackup(ownerID)
}

// Restore replays a backup archive into the store and refreshes the cache
// from disk so restored records become visible.
func (s *Service) Restore(ctx context.Context, backupID, ownerID string) (int, error) {
	restored, err := s.store.Restore(backupID, ownerID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.active = make(map[string]*Conversation)
	s.mu.Unlock()
	if err := s.Preload(ctx); err != nil {
		return restored, fmt.Errorf("reloading after restore: %w", err)
	}
	return restored, nil
}

// Search delegates to the store's ranked search.
func (s *Service) Search(q SearchQuery) ([]SearchResult, error) {
	return s.store.Search(q)
}

// Stats reports storage usage.
func (s *Service) Stats() StorageStats {
	return s.store.Stats()
}

// CleanupBackups removes all but the keep most recent backup archives.
func (s *Service) CleanupBackups(keep int) (int, error) {
	return s.store.CleanupBackups(keep)
}
