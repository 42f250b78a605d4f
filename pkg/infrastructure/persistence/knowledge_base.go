package persistence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KnowledgeCategory classifies a knowledge entry
type KnowledgeCategory string

const (
	KnowledgeTechnical     KnowledgeCategory = "technical"
	KnowledgeDomain        KnowledgeCategory = "domain"
	KnowledgeProcess       KnowledgeCategory = "process"
	KnowledgeBestPractice  KnowledgeCategory = "best_practice"
	KnowledgePattern       KnowledgeCategory = "pattern"
	KnowledgeConvention    KnowledgeCategory = "convention"
	KnowledgeLessonLearned KnowledgeCategory = "lesson_learned"
	KnowledgeReference     KnowledgeCategory = "reference"
)

// KnowledgeEntry is a versioned piece of shared knowledge. Confidence is in
// [0, 1]; content updates bump the version.
type KnowledgeEntry struct {
	ID          string
	Title       string
	Content     string
	Category    KnowledgeCategory
	Tags        []string
	Source      string
	Author      string
	References  []string
	Confidence  float64
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	AccessCount int
	Metadata    map[string]any
}

// KnowledgeBase is a shared repository of structured knowledge with
// category and tag indexes.
type KnowledgeBase struct {
	mu            sync.Mutex
	name          string
	entries       map[string]*KnowledgeEntry
	categoryIndex map[KnowledgeCategory]map[string]struct{}
	tagIndex      map[string]map[string]struct{}
}

// NewKnowledgeBase creates an empty knowledge base
func NewKnowledgeBase(name string) *KnowledgeBase {
	if name == "" {
		name = "default"
	}
	return &KnowledgeBase{
		name:          name,
		entries:       make(map[string]*KnowledgeEntry),
		categoryIndex: make(map[KnowledgeCategory]map[string]struct{}),
		tagIndex:      make(map[string]map[string]struct{}),
	}
}

// Name returns the knowledge base name
func (kb *KnowledgeBase) Name() string { return kb.name }

// AddOptions configure a knowledge entry
type AddOptions struct {
	Tags       []string
	Source     string
	Author     string
	References []string
	Confidence float64
}

// Add stores a new entry and returns its id
func (kb *KnowledgeBase) Add(title, content string, category KnowledgeCategory, opts AddOptions) string {
	if opts.Confidence == 0 {
		opts.Confidence = 1.0
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	now := time.Now()
	entry := &KnowledgeEntry{
		ID:         uuid.NewString(),
		Title:      title,
		Content:    content,
		Category:   category,
		Tags:       append([]string(nil), opts.Tags...),
		Source:     opts.Source,
		Author:     opts.Author,
		References: append([]string(nil), opts.References...),
		Confidence: opts.Confidence,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   make(map[string]any),
	}

	kb.entries[entry.ID] = entry
	kb.index(entry)
	return entry.ID
}

func (kb *KnowledgeBase) index(entry *KnowledgeEntry) {
	if kb.categoryIndex[entry.Category] == nil {
		kb.categoryIndex[entry.Category] = make(map[string]struct{})
	}
	kb.categoryIndex[entry.Category][entry.ID] = struct{}{}
	for _, tag := range entry.Tags {
		if kb.tagIndex[tag] == nil {
			kb.tagIndex[tag] = make(map[string]struct{})
		}
		kb.tagIndex[tag][entry.ID] = struct{}{}
	}
}

// Get returns the entry with the given id, recording the access
func (kb *KnowledgeBase) Get(id string) (*KnowledgeEntry, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	entry, ok := kb.entries[id]
	if !ok {
		return nil, false
	}
	entry.AccessCount++
	return entry, true
}

// KnowledgeQuery filters a knowledge search
type KnowledgeQuery struct {
	Text          string
	Category      KnowledgeCategory
	Tags          []string
	MinConfidence float64
	Limit         int
}

// Search returns entries matching the query, highest confidence and most
// accessed first. Category narrows the candidate set before tags.
func (kb *KnowledgeBase) Search(q KnowledgeQuery) []*KnowledgeEntry {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	var candidates []*KnowledgeEntry
	switch {
	case q.Category != "":
		for id := range kb.categoryIndex[q.Category] {
			if entry, ok := kb.entries[id]; ok {
				candidates = append(candidates, entry)
			}
		}
	case len(q.Tags) > 0:
		seen := make(map[string]struct{})
		for _, tag := range q.Tags {
			for id := range kb.tagIndex[tag] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				if entry, ok := kb.entries[id]; ok {
					candidates = append(candidates, entry)
				}
			}
		}
	default:
		for _, entry := range kb.entries {
			candidates = append(candidates, entry)
		}
	}

	needle := strings.ToLower(q.Text)
	var results []*KnowledgeEntry
	for _, entry := range candidates {
		if entry.Confidence < q.MinConfidence {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(entry.Title), needle) &&
			!strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}
		if len(q.Tags) > 0 && q.Category != "" && !hasAnyTag(entry, q.Tags) {
			continue
		}
		results = append(results, entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].AccessCount > results[j].AccessCount
	})

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	for _, entry := range results {
		entry.AccessCount++
	}
	return results
}

func hasAnyTag(entry *KnowledgeEntry, tags []string) bool {
	for _, want := range tags {
		for _, have := range entry.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// UpdateOptions selects which entry fields to change
type UpdateOptions struct {
	Content    string
	Tags       []string
	HasTags    bool
	Confidence *float64
	Author     string
}

// Update changes an entry. New content bumps the version; HasTags replaces
// the tag set (an empty slice clears it).
func (kb *KnowledgeBase) Update(id string, opts UpdateOptions) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	entry, ok := kb.entries[id]
	if !ok {
		return false
	}

	if opts.Content != "" {
		entry.Content = opts.Content
		entry.Version++
		if opts.Author != "" {
			entry.Author = opts.Author
		}
	}
	if opts.HasTags {
		for _, tag := range entry.Tags {
			delete(kb.tagIndex[tag], id)
			if len(kb.tagIndex[tag]) == 0 {
				delete(kb.tagIndex, tag)
			}
		}
		entry.Tags = append([]string(nil), opts.Tags...)
		for _, tag := range entry.Tags {
			if kb.tagIndex[tag] == nil {
				kb.tagIndex[tag] = make(map[string]struct{})
			}
			kb.tagIndex[tag][id] = struct{}{}
		}
	}
	if opts.Confidence != nil {
		entry.Confidence = *opts.Confidence
	}
	entry.UpdatedAt = time.Now()
	return true
}

// Delete removes an entry and its index records
func (kb *KnowledgeBase) Delete(id string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	entry, ok := kb.entries[id]
	if !ok {
		return false
	}
	delete(kb.categoryIndex[entry.Category], id)
	if len(kb.categoryIndex[entry.Category]) == 0 {
		delete(kb.categoryIndex, entry.Category)
	}
	for _, tag := range entry.Tags {
		delete(kb.tagIndex[tag], id)
		if len(kb.tagIndex[tag]) == 0 {
			delete(kb.tagIndex, tag)
		}
	}
	delete(kb.entries, id)
	return true
}

// ByCategory returns all entries in a category
func (kb *KnowledgeBase) ByCategory(category KnowledgeCategory) []*KnowledgeEntry {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	var out []*KnowledgeEntry
	for id := range kb.categoryIndex[category] {
		if entry, ok := kb.entries[id]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// Len returns the number of entries
func (kb *KnowledgeBase) Len() int {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return len(kb.entries)
}
