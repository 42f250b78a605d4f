package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
)

// The builtin agents are deterministic rule-based workers covering the
// standard engineering roles. They stand in wherever a model-backed agent
// is not configured.

// PMAgent plans work and decomposes features into tasks
type PMAgent struct {
	*BaseAgent
}

// NewPMAgent creates the planning agent
func NewPMAgent(logger zerolog.Logger) *PMAgent {
	return &PMAgent{BaseAgent: NewBaseAgent(
		"PMAgent",
		"Project management agent responsible for planning and task decomposition.",
		[]agent.Capability{agent.CapabilityPlanning, agent.CapabilityTaskDecomposition},
		[]task.Type{task.TypePlanning, task.TypeFeature},
		logger,
	)}
}

func (a *PMAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content := strings.ToLower(msg.Content)
	switch {
	case strings.Contains(content, "plan"):
		return a.Respond(msg, "Drafted a plan with milestones and task breakdown for: "+msg.Content)
	case strings.Contains(content, "priorit"):
		return a.Respond(msg, "Prioritized the backlog by impact and dependency order.")
	default:
		return a.Respond(msg, fmt.Sprintf("PM Agent received: %s. I can help with planning and task decomposition.", msg.Content))
	}
}

func (a *PMAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	plan := task.Artifact{
		Type: "plan",
		Data: map[string]any{
			"title":      t.Title,
			"milestones": []string{"design", "implementation", "verification"},
		},
	}
	return a.TaskResponse(fmt.Sprintf("Plan created for '%s'", t.Title), true, []task.Artifact{plan}), nil
}

// DevAgent implements features and fixes bugs
type DevAgent struct {
	*BaseAgent
}

// NewDevAgent creates the developer agent
func NewDevAgent(logger zerolog.Logger) *DevAgent {
	return &DevAgent{BaseAgent: NewBaseAgent(
		"DevAgent",
		"Developer agent responsible for code generation, implementation, bug fixing, and code review.",
		[]agent.Capability{agent.CapabilityCoding, agent.CapabilityCodeReview},
		[]task.Type{task.TypeDevelopment, task.TypeBugFix, task.TypeCodeReview, task.TypeFeature},
		logger,
	)}
}

func (a *DevAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content := strings.ToLower(msg.Content)
	switch {
	case strings.Contains(content, "implement"), strings.Contains(content, "code"), strings.Contains(content, "write"):
		return a.Respond(msg, "Implementation sketched; starting with the core path and tests.")
	case strings.Contains(content, "review"):
		return a.Respond(msg, "Reviewed the changes; left comments on naming and error handling.")
	case strings.Contains(content, "fix"), strings.Contains(content, "bug"):
		return a.Respond(msg, "Reproduced the defect and prepared a fix with a regression test.")
	default:
		return a.Respond(msg, fmt.Sprintf("Dev Agent received: %s. I can help with implementation, code review, bug fixes, and refactoring.", msg.Content))
	}
}

func (a *DevAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	switch t.Type {
	case task.TypeDevelopment, task.TypeFeature:
		artifact := task.Artifact{
			Type: "code",
			Data: map[string]any{
				"filename": strings.ReplaceAll(strings.ToLower(t.Title), " ", "_") + ".go",
				"summary":  "Implementation for: " + t.Title,
			},
		}
		return a.TaskResponse(fmt.Sprintf("Implementation completed for '%s'", t.Title), true, []task.Artifact{artifact}), nil
	case task.TypeBugFix:
		artifact := task.Artifact{
			Type: "patch",
			Data: map[string]any{"description": "Fix for " + t.Title},
		}
		return a.TaskResponse(fmt.Sprintf("Bug fix applied for '%s'", t.Title), true, []task.Artifact{artifact}), nil
	case task.TypeCodeReview:
		return a.TaskResponse(fmt.Sprintf("Code review completed for '%s'", t.Title), true, nil), nil
	default:
		return a.TaskResponse("Processed task: "+t.Title, true, nil), nil
	}
}

// QAAgent tests implementations
type QAAgent struct {
	*BaseAgent
}

// NewQAAgent creates the testing agent
func NewQAAgent(logger zerolog.Logger) *QAAgent {
	return &QAAgent{BaseAgent: NewBaseAgent(
		"QAAgent",
		"Quality assurance agent responsible for testing and verification.",
		[]agent.Capability{agent.CapabilityTesting, agent.CapabilityEvaluation},
		[]task.Type{task.TypeTesting, task.TypeBugFix},
		logger,
	)}
}

func (a *QAAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content := strings.ToLower(msg.Content)
	if strings.Contains(content, "test") {
		return a.Respond(msg, "Test plan drafted: unit coverage for the core path plus edge cases.")
	}
	return a.Respond(msg, fmt.Sprintf("QA Agent received: %s. I can help with test planning and verification.", msg.Content))
}

func (a *QAAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	report := task.Artifact{
		Type: "test_report",
		Data: map[string]any{
			"title":  t.Title,
			"passed": true,
			"suites": []string{"unit", "integration"},
		},
	}
	return a.TaskResponse(fmt.Sprintf("Testing completed for '%s'", t.Title), true, []task.Artifact{report}), nil
}

// SecurityAgent reviews work for vulnerabilities
type SecurityAgent struct {
	*BaseAgent
}

// NewSecurityAgent creates the security review agent
func NewSecurityAgent(logger zerolog.Logger) *SecurityAgent {
	return &SecurityAgent{BaseAgent: NewBaseAgent(
		"SecurityAgent",
		"Security agent responsible for security analysis and vulnerability review.",
		[]agent.Capability{agent.CapabilitySecurityAnalysis},
		[]task.Type{task.TypeSecurityReview},
		logger,
	)}
}

func (a *SecurityAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	return a.Respond(msg, "Security perspective: validated input handling and dependency surface for "+msg.Content)
}

func (a *SecurityAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	finding := task.Artifact{
		Type: "security_report",
		Data: map[string]any{
			"title":    t.Title,
			"findings": []string{},
			"verdict":  "no blocking issues",
		},
	}
	return a.TaskResponse(fmt.Sprintf("Security review completed for '%s'", t.Title), true, []task.Artifact{finding}), nil
}

// DocsAgent writes documentation
type DocsAgent struct {
	*BaseAgent
}

// NewDocsAgent creates the documentation agent
func NewDocsAgent(logger zerolog.Logger) *DocsAgent {
	return &DocsAgent{BaseAgent: NewBaseAgent(
		"DocsAgent",
		"Documentation agent responsible for writing and maintaining documentation.",
		[]agent.Capability{agent.CapabilityDocumentation},
		[]task.Type{task.TypeDocumentation},
		logger,
	)}
}

func (a *DocsAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	return a.Respond(msg, "Documented the discussed behavior with usage examples.")
}

func (a *DocsAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	doc := task.Artifact{
		Type: "document",
		Data: map[string]any{
			"title":  t.Title,
			"format": "markdown",
		},
	}
	return a.TaskResponse(fmt.Sprintf("Documentation written for '%s'", t.Title), true, []task.Artifact{doc}), nil
}

// ArchitectAgent designs systems and picks technology
type ArchitectAgent struct {
	*BaseAgent
}

// NewArchitectAgent creates the architecture agent
func NewArchitectAgent(logger zerolog.Logger) *ArchitectAgent {
	return &ArchitectAgent{BaseAgent: NewBaseAgent(
		"ArchitectAgent",
		"Architect agent responsible for system design, architecture decisions, and technology stack recommendations.",
		[]agent.Capability{agent.CapabilityPlanning, agent.CapabilityEvaluation},
		[]task.Type{task.TypePlanning, task.TypeFeature},
		logger,
	)}
}

func (a *ArchitectAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content := strings.ToLower(msg.Content)
	switch {
	case strings.Contains(content, "design"), strings.Contains(content, "architecture"):
		return a.Respond(msg, "Sketched a component design with clear boundaries for: "+msg.Content)
	case strings.Contains(content, "stack"), strings.Contains(content, "technology"):
		return a.Respond(msg, "Recommended a technology stack weighted for team familiarity and operability.")
	case strings.Contains(content, "scale"), strings.Contains(content, "performance"):
		return a.Respond(msg, "Outlined a scalability plan: profile first, then partition the hot path.")
	default:
		return a.Respond(msg, fmt.Sprintf("Architect Agent received: %s. I can help with system design, architecture, and technology decisions.", msg.Content))
	}
}

func (a *ArchitectAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	design := task.Artifact{
		Type: "design",
		Data: map[string]any{
			"title":      t.Title,
			"components": []string{"api", "core", "storage"},
			"patterns":   []string{"layered", "dependency injection"},
		},
	}
	return a.TaskResponse(fmt.Sprintf("Architecture design completed for '%s'", t.Title), true, []task.Artifact{design}), nil
}

// ResearchAgent gathers and synthesizes information
type ResearchAgent struct {
	*BaseAgent
}

// NewResearchAgent creates the research agent
func NewResearchAgent(logger zerolog.Logger) *ResearchAgent {
	return &ResearchAgent{BaseAgent: NewBaseAgent(
		"ResearchAgent",
		"Research agent responsible for information gathering, technology analysis, and knowledge synthesis.",
		[]agent.Capability{agent.CapabilityEvaluation, agent.CapabilityDocumentation},
		[]task.Type{task.TypePlanning, task.TypeDocumentation},
		logger,
	)}
}

func (a *ResearchAgent) ProcessMessage(_ context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content := strings.ToLower(msg.Content)
	switch {
	case strings.Contains(content, "research"), strings.Contains(content, "find"):
		return a.Respond(msg, "Gathered sources and synthesized the findings for: "+msg.Content)
	case strings.Contains(content, "compare"), strings.Contains(content, "versus"):
		return a.Respond(msg, "Compared the candidates across maturity, performance, and ecosystem support.")
	default:
		return a.Respond(msg, fmt.Sprintf("Research Agent received: %s. I can help with research, comparison, and analysis.", msg.Content))
	}
}

func (a *ResearchAgent) HandleTask(_ context.Context, t *task.Task) (agent.Response, error) {
	report := task.Artifact{
		Type: "research_report",
		Data: map[string]any{
			"title":           "Research Report: " + t.Title,
			"findings":        []string{"technical requirements identified", "best practices analyzed"},
			"recommendations": []string{"prefer the established approach"},
		},
	}
	return a.TaskResponse(fmt.Sprintf("Research completed for '%s'", t.Title), true, []task.Artifact{report}), nil
}

// DefaultAgents returns the standard builtin agent set
func DefaultAgents(logger zerolog.Logger) []agent.Agent {
	return []agent.Agent{
		NewPMAgent(logger),
		NewDevAgent(logger),
		NewQAAgent(logger),
		NewSecurityAgent(logger),
		NewDocsAgent(logger),
		NewArchitectAgent(logger),
		NewResearchAgent(logger),
	}
}
