package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockwork-labs/orchestrator/pkg/agents"
	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/correction"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
	"github.com/clockwork-labs/orchestrator/pkg/orchestrator"
)

func newTestServer(t *testing.T, agentNames ...string) (*APIServer, *orchestrator.Orchestrator) {
	t.Helper()
	logger := zerolog.Nop()
	registry := agent.NewRegistry(logger)
	queue := task.NewQueue()
	conversations := conversation.NewManager(registry, logger)
	corrections := correction.NewDefaultLoop(logger)
	engine := workflow.NewEngine(logger, workflow.WithConversationManager(conversations))
	orch := orchestrator.New(orchestrator.DefaultConfig(), registry, queue, conversations, corrections, engine, logger)

	for _, name := range agentNames {
		require.NoError(t, orch.RegisterAgent(context.Background(), agents.NewFuncAgent(name, nil, nil, logger)))
	}

	return NewAPIServer(orch, APIServerConfig{ListenAddr: ":0"}, logger), orch
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndStatus(t *testing.T) {
	s, _ := newTestServer(t, "DevAgent")

	t.Run("health", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decode(t, rec)["status"])
	})

	t.Run("status reflects the orchestrator", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "MetaOrchestrator", body["name"])
		assert.Equal(t, float64(1), body["agents_count"])
	})
}

func TestTaskEndpoints(t *testing.T) {
	s, orch := newTestServer(t)

	t.Run("submit then fetch", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/tasks", map[string]any{
			"title":    "implement parser",
			"type":     "development",
			"priority": "high",
		})
		require.Equal(t, http.StatusAccepted, rec.Code)
		id, _ := decode(t, rec)["task_id"].(string)
		require.NotEmpty(t, id)

		rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/tasks/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "implement parser", body["title"])
		assert.Equal(t, "high", body["priority"])
		assert.Equal(t, "pending", body["status"])
	})

	t.Run("missing title is rejected", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/tasks", map[string]any{"description": "no title"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown task is not found", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/tasks/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cancel a pending task", func(t *testing.T) {
		tk := task.New("doomed", "")
		_, err := orch.SubmitTask(tk)
		require.NoError(t, err)

		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/tasks/"+tk.ID+"/cancel", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cancelled", decode(t, rec)["status"])

		rec = doJSON(t, s.Router(), http.MethodPost, "/api/v1/tasks/"+tk.ID+"/cancel", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestConversationEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "DevAgent", "QAAgent")

	t.Run("create, message, list, end", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/conversations", map[string]any{
			"topic":        "triage",
			"participants": []string{"DevAgent", "QAAgent", "GhostAgent"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		convID, _ := body["conversation_id"].(string)
		require.NotEmpty(t, convID)
		assert.Equal(t, []any{"DevAgent", "QAAgent"}, body["participants"])

		rec = doJSON(t, s.Router(), http.MethodPost, "/api/v1/conversations/"+convID+"/messages", map[string]any{
			"sender":    "DevAgent",
			"recipient": "QAAgent",
			"content":   "please verify",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, s.Router(), http.MethodPost, "/api/v1/conversations/"+convID+"/messages", map[string]any{
			"sender":  "DevAgent",
			"content": "broadcasting",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		responses, _ := decode(t, rec)["responses"].([]any)
		assert.Len(t, responses, 1)

		rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/conversations", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		active, _ := decode(t, rec)["conversations"].([]any)
		assert.Len(t, active, 1)

		rec = doJSON(t, s.Router(), http.MethodPost, "/api/v1/conversations/"+convID+"/end", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/conversations", nil)
		active, _ = decode(t, rec)["conversations"].([]any)
		assert.Empty(t, active)
	})

	t.Run("message into an ended conversation conflicts", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/conversations/unknown/messages", map[string]any{
			"sender":    "DevAgent",
			"recipient": "QAAgent",
			"content":   "hello?",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestWorkflowEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "PMAgent", "ArchitectAgent", "DevAgent", "QAAgent", "SecurityAgent", "DocsAgent")

	t.Run("execute a template then fetch status and result", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/workflows/execute", map[string]any{
			"template": "feature_development",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["Success"])
		wfID, _ := body["WorkflowID"].(string)
		require.NotEmpty(t, wfID)

		rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/workflows/"+wfID+"/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "completed", decode(t, rec)["status"])

		rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/workflows/"+wfID+"/result", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("execute an inline definition", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/workflows/execute", map[string]any{
			"workflow": map[string]any{
				"name": "inline",
				"steps": []any{
					map[string]any{"id": "one", "name": "one", "step_type": "task",
						"config": map[string]any{"agent": "DevAgent"}},
				},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["Success"])
	})

	t.Run("unknown template is rejected", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/workflows/execute", map[string]any{
			"template": "world_domination",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "unknown workflow template")
	})

	t.Run("neither template nor definition is rejected", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/workflows/execute", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("status of an unknown workflow is not found", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/workflows/nope/status", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cancel of a finished workflow conflicts", func(t *testing.T) {
		rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/workflows/nope/cancel", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
