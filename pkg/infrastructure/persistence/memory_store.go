// Package persistence provides agent memory and the shared knowledge base.
package persistence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryType classifies a memory entry
type MemoryType string

const (
	MemoryShortTerm  MemoryType = "short_term"
	MemoryLongTerm   MemoryType = "long_term"
	MemoryEpisodic   MemoryType = "episodic"
	MemorySemantic   MemoryType = "semantic"
	MemoryProcedural MemoryType = "procedural"
)

// MemoryEntry is a single remembered item. Importance is in [0, 1].
type MemoryEntry struct {
	ID           string
	Content      string
	Type         MemoryType
	Tags         []string
	Source       string
	Context      map[string]any
	Importance   float64
	AccessCount  int
	CreatedAt    time.Time
	LastAccessed time.Time
	ExpiresAt    *time.Time
}

func (e *MemoryEntry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

func (e *MemoryEntry) access(now time.Time) {
	e.AccessCount++
	e.LastAccessed = now
}

// StoreOptions configure a memory write
type StoreOptions struct {
	Type       MemoryType
	Tags       []string
	Source     string
	Context    map[string]any
	Importance float64
}

// MemoryStore holds an agent's memories with a tag index. Short-term
// entries expire after the configured TTL; capacity limits evict the least
// important entries first.
type MemoryStore struct {
	mu           sync.Mutex
	owner        string
	maxShortTerm int
	maxLongTerm  int
	shortTermTTL time.Duration
	memories     map[string]*MemoryEntry
	tagIndex     map[string]map[string]struct{}
	now          func() time.Time
}

// NewMemoryStore creates a store owned by the given agent name
func NewMemoryStore(owner string) *MemoryStore {
	return &MemoryStore{
		owner:        owner,
		maxShortTerm: 100,
		maxLongTerm:  1000,
		shortTermTTL: 24 * time.Hour,
		memories:     make(map[string]*MemoryEntry),
		tagIndex:     make(map[string]map[string]struct{}),
		now:          time.Now,
	}
}

// Store records a memory and returns its id. Short-term memories receive an
// expiry; limits are enforced after insertion.
func (s *MemoryStore) Store(content string, opts StoreOptions) string {
	if opts.Type == "" {
		opts.Type = MemoryShortTerm
	}
	if opts.Source == "" {
		opts.Source = s.owner
	}
	if opts.Context == nil {
		opts.Context = make(map[string]any)
	}
	if opts.Importance == 0 {
		opts.Importance = 0.5
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := &MemoryEntry{
		ID:           uuid.NewString(),
		Content:      content,
		Type:         opts.Type,
		Tags:         append([]string(nil), opts.Tags...),
		Source:       opts.Source,
		Context:      opts.Context,
		Importance:   opts.Importance,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if opts.Type == MemoryShortTerm {
		expires := now.Add(s.shortTermTTL)
		entry.ExpiresAt = &expires
	}

	s.memories[entry.ID] = entry
	for _, tag := range entry.Tags {
		if s.tagIndex[tag] == nil {
			s.tagIndex[tag] = make(map[string]struct{})
		}
		s.tagIndex[tag][entry.ID] = struct{}{}
	}

	s.enforceLimits()
	return entry.ID
}

// Retrieve returns the memory with the given id, recording the access.
// Expired memories are forgotten on contact.
func (s *MemoryStore) Retrieve(id string) (*MemoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.memories[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if entry.expired(now) {
		s.forget(id)
		return nil, false
	}
	entry.access(now)
	return entry, true
}

// SearchQuery filters a memory search
type SearchQuery struct {
	Text          string
	Tags          []string
	Type          MemoryType
	MinImportance float64
	Limit         int
}

// Search returns memories matching the query, most important and most
// recently accessed first.
func (s *MemoryStore) Search(q SearchQuery) []*MemoryEntry {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var candidates []*MemoryEntry
	if len(q.Tags) > 0 {
		seen := make(map[string]struct{})
		for _, tag := range q.Tags {
			for id := range s.tagIndex[tag] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				if entry, ok := s.memories[id]; ok {
					candidates = append(candidates, entry)
				}
			}
		}
	} else {
		for _, entry := range s.memories {
			candidates = append(candidates, entry)
		}
	}

	var results []*MemoryEntry
	needle := strings.ToLower(q.Text)
	for _, entry := range candidates {
		if entry.expired(now) {
			continue
		}
		if q.Type != "" && entry.Type != q.Type {
			continue
		}
		if entry.Importance < q.MinImportance {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}
		results = append(results, entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Importance != results[j].Importance {
			return results[i].Importance > results[j].Importance
		}
		return results[i].LastAccessed.After(results[j].LastAccessed)
	})

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	for _, entry := range results {
		entry.access(now)
	}
	return results
}

// Forget removes a memory
func (s *MemoryStore) Forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forget(id)
}

func (s *MemoryStore) forget(id string) bool {
	entry, ok := s.memories[id]
	if !ok {
		return false
	}
	for _, tag := range entry.Tags {
		delete(s.tagIndex[tag], id)
		if len(s.tagIndex[tag]) == 0 {
			delete(s.tagIndex, tag)
		}
	}
	delete(s.memories, id)
	return true
}

// PromoteToLongTerm converts a memory to long-term and clears its expiry
func (s *MemoryStore) PromoteToLongTerm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.memories[id]
	if !ok || entry.Type == MemoryLongTerm {
		return false
	}
	entry.Type = MemoryLongTerm
	entry.ExpiresAt = nil
	return true
}

// Consolidate drops expired memories and returns how many were removed
func (s *MemoryStore) Consolidate() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for id, entry := range s.memories {
		if entry.expired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.forget(id)
	}
	return len(expired)
}

// Recent returns the most recently accessed memories
func (s *MemoryStore) Recent(count int) []*MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.all()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastAccessed.After(all[j].LastAccessed)
	})
	if len(all) > count {
		all = all[:count]
	}
	return all
}

// Important returns the highest-importance memories
func (s *MemoryStore) Important(count int) []*MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.all()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Importance > all[j].Importance
	})
	if len(all) > count {
		all = all[:count]
	}
	return all
}

func (s *MemoryStore) all() []*MemoryEntry {
	out := make([]*MemoryEntry, 0, len(s.memories))
	for _, entry := range s.memories {
		out = append(out, entry)
	}
	return out
}

// enforceLimits evicts excess entries, least important first
func (s *MemoryStore) enforceLimits() {
	var shortTerm, longTerm []*MemoryEntry
	for _, entry := range s.memories {
		switch entry.Type {
		case MemoryShortTerm:
			shortTerm = append(shortTerm, entry)
		case MemoryLongTerm:
			longTerm = append(longTerm, entry)
		}
	}

	if excess := len(shortTerm) - s.maxShortTerm; excess > 0 {
		sort.SliceStable(shortTerm, func(i, j int) bool {
			if shortTerm[i].Importance != shortTerm[j].Importance {
				return shortTerm[i].Importance < shortTerm[j].Importance
			}
			return shortTerm[i].LastAccessed.Before(shortTerm[j].LastAccessed)
		})
		for _, entry := range shortTerm[:excess] {
			s.forget(entry.ID)
		}
	}

	if excess := len(longTerm) - s.maxLongTerm; excess > 0 {
		sort.SliceStable(longTerm, func(i, j int) bool {
			if longTerm[i].Importance != longTerm[j].Importance {
				return longTerm[i].Importance < longTerm[j].Importance
			}
			return longTerm[i].AccessCount < longTerm[j].AccessCount
		})
		for _, entry := range longTerm[:excess] {
			s.forget(entry.ID)
		}
	}
}

// Stats summarizes the store contents
func (s *MemoryStore) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]int)
	for _, entry := range s.memories {
		byType[string(entry.Type)]++
	}
	return map[string]any{
		"total_memories": len(s.memories),
		"by_type":        byType,
		"tags_count":     len(s.tagIndex),
		"owner":          s.owner,
	}
}

// Clear removes every memory
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = make(map[string]*MemoryEntry)
	s.tagIndex = make(map[string]map[string]struct{})
}
