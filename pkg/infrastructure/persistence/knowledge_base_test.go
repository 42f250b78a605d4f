package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeBaseAddGet(t *testing.T) {
	t.Run("entries start at version one with full confidence", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		id := kb.Add("Error wrapping", "wrap errors with context at package boundaries",
			KnowledgeBestPractice, AddOptions{Tags: []string{"errors"}, Author: "DevAgent"})

		entry, ok := kb.Get(id)
		require.True(t, ok)
		assert.Equal(t, 1, entry.Version)
		assert.Equal(t, 1.0, entry.Confidence)
		assert.Equal(t, "DevAgent", entry.Author)
		assert.Equal(t, 1, entry.AccessCount)
		assert.Equal(t, 1, kb.Len())
	})

	t.Run("empty name falls back to default", func(t *testing.T) {
		kb := NewKnowledgeBase("")
		assert.Equal(t, "default", kb.Name())
	})

	t.Run("unknown id misses", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		_, ok := kb.Get("nope")
		assert.False(t, ok)
	})
}

func TestKnowledgeBaseSearch(t *testing.T) {
	newPopulated := func() *KnowledgeBase {
		kb := NewKnowledgeBase("team")
		kb.Add("Retry policy", "use exponential backoff for transient failures",
			KnowledgeBestPractice, AddOptions{Tags: []string{"retry"}, Confidence: 0.9})
		kb.Add("Queue ordering", "tasks pop by priority then age",
			KnowledgeTechnical, AddOptions{Tags: []string{"queue"}, Confidence: 0.7})
		kb.Add("Stale tip", "this might be outdated",
			KnowledgeTechnical, AddOptions{Confidence: 0.2})
		return kb
	}

	t.Run("category narrows the candidates", func(t *testing.T) {
		kb := newPopulated()
		results := kb.Search(KnowledgeQuery{Category: KnowledgeTechnical})
		require.Len(t, results, 2)
		assert.Equal(t, "Queue ordering", results[0].Title)
	})

	t.Run("tags select without a category", func(t *testing.T) {
		kb := newPopulated()
		results := kb.Search(KnowledgeQuery{Tags: []string{"retry"}})
		require.Len(t, results, 1)
		assert.Equal(t, "Retry policy", results[0].Title)
	})

	t.Run("text matches title or content", func(t *testing.T) {
		kb := newPopulated()
		assert.Len(t, kb.Search(KnowledgeQuery{Text: "backoff"}), 1)
		assert.Len(t, kb.Search(KnowledgeQuery{Text: "ordering"}), 1)
	})

	t.Run("confidence floor filters weak entries", func(t *testing.T) {
		kb := newPopulated()
		results := kb.Search(KnowledgeQuery{MinConfidence: 0.5})
		require.Len(t, results, 2)
		assert.Equal(t, 0.9, results[0].Confidence)
	})
}

func TestKnowledgeBaseUpdate(t *testing.T) {
	t.Run("content updates bump the version", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		id := kb.Add("Retry policy", "initial text", KnowledgeBestPractice, AddOptions{})

		require.True(t, kb.Update(id, UpdateOptions{Content: "revised text", Author: "QAAgent"}))

		entry, _ := kb.Get(id)
		assert.Equal(t, "revised text", entry.Content)
		assert.Equal(t, 2, entry.Version)
		assert.Equal(t, "QAAgent", entry.Author)
	})

	t.Run("tag replacement reindexes", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		id := kb.Add("Tip", "text", KnowledgePattern, AddOptions{Tags: []string{"old"}})

		require.True(t, kb.Update(id, UpdateOptions{Tags: []string{"new"}, HasTags: true}))
		assert.Empty(t, kb.Search(KnowledgeQuery{Tags: []string{"old"}}))
		assert.Len(t, kb.Search(KnowledgeQuery{Tags: []string{"new"}}), 1)
	})

	t.Run("confidence pointer distinguishes zero from unset", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		id := kb.Add("Tip", "text", KnowledgePattern, AddOptions{Confidence: 0.8})

		require.True(t, kb.Update(id, UpdateOptions{}))
		entry, _ := kb.Get(id)
		assert.Equal(t, 0.8, entry.Confidence)
		assert.Equal(t, 1, entry.Version)

		zero := 0.0
		require.True(t, kb.Update(id, UpdateOptions{Confidence: &zero}))
		entry, _ = kb.Get(id)
		assert.Equal(t, 0.0, entry.Confidence)
	})

	t.Run("unknown id fails", func(t *testing.T) {
		kb := NewKnowledgeBase("team")
		assert.False(t, kb.Update("nope", UpdateOptions{Content: "x"}))
	})
}

func TestKnowledgeBaseDelete(t *testing.T) {
	kb := NewKnowledgeBase("team")
	id := kb.Add("Tip", "text", KnowledgePattern, AddOptions{Tags: []string{"tagged"}})

	require.True(t, kb.Delete(id))
	assert.False(t, kb.Delete(id))
	assert.Equal(t, 0, kb.Len())
	assert.Empty(t, kb.ByCategory(KnowledgePattern))
	assert.Empty(t, kb.Search(KnowledgeQuery{Tags: []string{"tagged"}}))
}
