package workflow

// Pre-built workflows for common engineering scenarios. Agent names follow
// the builtin agent set; callers substitute their own via step config.

// FeatureDevelopment builds the standard feature workflow: planning and
// architecture in sequence, development, then testing and security review in
// parallel, then documentation.
func FeatureDevelopment() *Workflow {
	w := New("Feature Development", "Standard workflow for developing a new feature")

	planning := NewStep("planning", StepTypeTask, map[string]any{
		"task_type":   "planning",
		"agent":       "PMAgent",
		"description": "Plan and decompose the feature into tasks",
	})
	w.AddStep(planning)

	architecture := NewStep("architecture", StepTypeTask, map[string]any{
		"task_type":   "planning",
		"agent":       "ArchitectAgent",
		"description": "Design the architecture for the feature",
	}).DependsOn(planning.ID)
	w.AddStep(architecture)

	development := NewStep("development", StepTypeTask, map[string]any{
		"task_type":   "development",
		"agent":       "DevAgent",
		"description": "Implement the feature",
	}).DependsOn(architecture.ID)
	w.AddStep(development)

	testing := NewStep("testing", StepTypeTask, map[string]any{
		"task_type":   "testing",
		"agent":       "QAAgent",
		"description": "Test the implementation",
	}).DependsOn(development.ID)
	w.AddStep(testing)

	security := NewStep("security_review", StepTypeTask, map[string]any{
		"task_type":   "security_review",
		"agent":       "SecurityAgent",
		"description": "Security review of the implementation",
	}).DependsOn(development.ID)
	w.AddStep(security)

	documentation := NewStep("documentation", StepTypeTask, map[string]any{
		"task_type":   "documentation",
		"agent":       "DocsAgent",
		"description": "Document the feature",
	}).DependsOn(testing.ID, security.ID)
	w.AddStep(documentation)

	return w
}

// BugFix builds the research, fix, test workflow
func BugFix() *Workflow {
	w := New("Bug Fix", "Standard workflow for fixing a bug")

	research := NewStep("research", StepTypeTask, map[string]any{
		"task_type":   "planning",
		"agent":       "ResearchAgent",
		"description": "Research the bug and identify root cause",
	})
	w.AddStep(research)

	fix := NewStep("fix", StepTypeTask, map[string]any{
		"task_type":   "bug_fix",
		"agent":       "DevAgent",
		"description": "Implement the fix",
	}).DependsOn(research.ID)
	w.AddStep(fix)

	test := NewStep("test", StepTypeTask, map[string]any{
		"task_type":   "testing",
		"agent":       "QAAgent",
		"description": "Test the fix",
	}).DependsOn(fix.ID)
	w.AddStep(test)

	return w
}

// CodeReview builds a review discussion followed by a security check
func CodeReview() *Workflow {
	w := New("Code Review", "Standard workflow for code review")

	discussion := NewStep("review_discussion", StepTypeConversation, map[string]any{
		"participants": []string{"DevAgent", "QAAgent", "SecurityAgent"},
		"topic":        "Code Review Discussion",
		"mode":         "dynamic",
	})
	w.AddStep(discussion)

	security := NewStep("security_check", StepTypeTask, map[string]any{
		"task_type":   "security_review",
		"agent":       "SecurityAgent",
		"description": "Security analysis of the code",
	}).DependsOn(discussion.ID)
	w.AddStep(security)

	return w
}
