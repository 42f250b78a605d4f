package errors

// Code represents an error code
type Code string

// Error codes grouped by the orchestrator's failure taxonomy
const (
	CodeUnknown              Code = "UNKNOWN"               // Unknown error occurred
	CodeInternalError        Code = "INTERNAL_ERROR"        // Internal system error
	CodeInvalidParameter     Code = "INVALID_PARAMETER"     // Invalid parameter provided
	CodeMissingParameter     Code = "MISSING_PARAMETER"     // Required parameter missing
	CodeInvalidState         Code = "INVALID_STATE"         // Invalid state
	CodeNotFound             Code = "NOT_FOUND"             // Not found
	CodeAlreadyExists        Code = "ALREADY_EXISTS"        // Already exists
	CodeConfigurationInvalid Code = "CONFIGURATION_INVALID" // Configuration invalid
	CodeOperationFailed      Code = "OPERATION_FAILED"      // Operation failed

	// Routing errors
	CodeNoSuitableAgent Code = "NO_SUITABLE_AGENT" // No agent can handle the task type
	CodeAgentNotFound   Code = "AGENT_NOT_FOUND"   // Referenced agent is not registered

	// Agent and task errors
	CodeAgentFailed         Code = "AGENT_FAILED"         // Agent handler indicated failure
	CodeTaskFailed          Code = "TASK_FAILED"          // Task reached terminal failure
	CodeCorrectionExhausted Code = "CORRECTION_EXHAUSTED" // Correction loop hit max iterations

	// Timeout and cancellation
	CodeTimeoutError Code = "TIMEOUT_ERROR" // A step or task exceeded its bound
	CodeCancelled    Code = "CANCELLED"     // User-initiated stop

	// Workflow errors
	CodeWorkflowFailed    Code = "WORKFLOW_FAILED"    // Workflow execution failed
	CodeWorkflowBlocked   Code = "WORKFLOW_BLOCKED"   // Steps blocked by failed dependencies
	CodeDependencyCycle   Code = "DEPENDENCY_CYCLE"   // Dependency graph contains a cycle
	CodeDependencyMissing Code = "DEPENDENCY_MISSING" // Dependency references an unknown node

	// Template errors
	CodeTemplateUnknown Code = "TEMPLATE_UNKNOWN" // Template name not registered
)
