// Package transport exposes the orchestrator over HTTP.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/conversation"
	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
	"github.com/clockwork-labs/orchestrator/pkg/orchestrator"
)

const httpTimeout = 60 * time.Second

// APIServer is the HTTP adapter over the orchestrator facade
type APIServer struct {
	orch    *orchestrator.Orchestrator
	router  chi.Router
	server  *http.Server
	addr    string
	metrics http.Handler
	logger  zerolog.Logger
}

// APIServerConfig configures the HTTP adapter
type APIServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
	// MetricsHandler, when set, is mounted at /metrics
	MetricsHandler http.Handler
}

// NewAPIServer builds the server and its routes
func NewAPIServer(orch *orchestrator.Orchestrator, cfg APIServerConfig, logger zerolog.Logger) *APIServer {
	s := &APIServer{
		orch:    orch,
		addr:    cfg.ListenAddr,
		metrics: cfg.MetricsHandler,
		logger:  logger.With().Str("component", "api_server").Logger(),
	}
	s.setupRouter(cfg.CORSOrigins)
	return s
}

func (s *APIServer) setupRouter(corsOrigins []string) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware(corsOrigins))
	r.Use(middleware.Timeout(httpTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Post("/tasks", s.handleSubmitTask)
		r.Get("/tasks/{taskID}", s.handleGetTask)
		r.Post("/tasks/{taskID}/cancel", s.handleCancelTask)

		r.Get("/conversations", s.handleActiveConversations)
		r.Post("/conversations", s.handleCreateConversation)
		r.Post("/conversations/{conversationID}/messages", s.handleSendMessage)
		r.Post("/conversations/{conversationID}/end", s.handleEndConversation)

		r.Post("/workflows/execute", s.handleExecuteWorkflow)
		r.Get("/workflows/{workflowID}/status", s.handleWorkflowStatus)
		r.Get("/workflows/{workflowID}/result", s.handleWorkflowResult)
		r.Post("/workflows/{workflowID}/cancel", s.handleCancelWorkflow)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	s.router = r
}

func (s *APIServer) corsMiddleware(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.Handler(opts)
}

// Serve runs the HTTP server until the context is cancelled
func (s *APIServer) Serve(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: httpTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("api server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Router exposes the handler for tests
func (s *APIServer) Router() http.Handler { return s.router }

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func (s *APIServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status())
}

type submitTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

func (s *APIServer) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	t := task.New(req.Title, req.Description)
	if req.Type != "" {
		t.Type = task.Type(req.Type)
	}
	if req.Priority != "" {
		t.Priority = task.Priority(req.Priority)
	}

	id, err := s.orch.SubmitTask(t)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task_id": id})
}

func (s *APIServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	t := s.orch.Queue().Get(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t.ToMap())
}

func (s *APIServer) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if !s.orch.Queue().Cancel(id) {
		writeError(w, http.StatusConflict, "task cannot be cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id, "status": string(task.StatusCancelled)})
}

type createConversationRequest struct {
	Topic        string   `json:"topic"`
	Participants []string `json:"participants"`
	Mode         string   `json:"mode"`
	TaskID       string   `json:"task_id"`
}

func (s *APIServer) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode := conversation.ModeDynamic
	if req.Mode != "" {
		mode = conversation.Mode(req.Mode)
	}
	conv := s.orch.CreateConversation(req.Topic, req.Participants, mode, req.TaskID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"conversation_id": conv.ID,
		"topic":           conv.Topic,
		"participants":    conv.Participants,
	})
}

type sendMessageRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

// handleSendMessage routes a message; an empty recipient broadcasts to all
// participants.
func (s *APIServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Recipient == "" {
		responses, err := s.orch.BroadcastMessage(r.Context(), id, req.Sender, req.Content)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
		return
	}

	resp, err := s.orch.SendMessage(r.Context(), id, req.Sender, req.Recipient, req.Content)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if resp == nil {
		writeError(w, http.StatusConflict, "conversation inactive or recipient unknown")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": resp})
}

func (s *APIServer) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	s.orch.EndConversation(id)
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "status": string(conversation.StatusCompleted)})
}

func (s *APIServer) handleActiveConversations(w http.ResponseWriter, _ *http.Request) {
	active := s.orch.Conversations().Active()
	out := make([]map[string]any, 0, len(active))
	for _, conv := range active {
		out = append(out, map[string]any{
			"conversation_id": conv.ID,
			"topic":           conv.Topic,
			"participants":    conv.Participants,
			"turns":           len(conv.Turns),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

type executeWorkflowRequest struct {
	Template string         `json:"template"`
	Workflow map[string]any `json:"workflow"`
	Inputs   map[string]any `json:"inputs"`
}

// handleExecuteWorkflow runs a workflow synchronously. The body names a
// built-in template or carries a full definition.
func (s *APIServer) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req executeWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		wf  *workflow.Workflow
		err error
	)
	switch {
	case req.Template != "":
		wf, err = templateByName(req.Template)
	case req.Workflow != nil:
		wf, err = workflow.FromMap(req.Workflow)
	default:
		writeError(w, http.StatusBadRequest, "template or workflow is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orch.ExecuteWorkflow(r.Context(), wf, req.Inputs)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func templateByName(name string) (*workflow.Workflow, error) {
	switch name {
	case "feature_development":
		return workflow.FeatureDevelopment(), nil
	case "bug_fix":
		return workflow.BugFix(), nil
	case "code_review":
		return workflow.CodeReview(), nil
	}
	return nil, errors.Newf(errors.CodeTemplateUnknown, "workflow",
		"unknown workflow template %q", name)
}

func (s *APIServer) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	status, ok := s.orch.Engine().GetStatus(id)
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflow_id": id, "status": string(status)})
}

func (s *APIServer) handleWorkflowResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	result, ok := s.orch.Engine().GetResult(id)
	if !ok {
		writeError(w, http.StatusNotFound, "workflow result not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	if !s.orch.Engine().Cancel(id) {
		writeError(w, http.StatusConflict, "workflow is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflow_id": id, "status": string(workflow.StatusCancelled)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
