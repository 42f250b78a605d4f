package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clockwork-labs/orchestrator/pkg/domain/workflow"
)

// Metrics collects orchestration counters on a private registry. It
// implements workflow.MetricsCollector.
type Metrics struct {
	registry *prometheus.Registry

	tasksSubmitted    prometheus.Counter
	tasksProcessed    *prometheus.CounterVec
	taskRetries       prometheus.Counter
	workflowsStarted  *prometheus.CounterVec
	workflowsFinished *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec
	stepsExecuted     *prometheus.CounterVec
	stepDuration      *prometheus.HistogramVec
}

// NewMetrics creates the metrics collector with its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_tasks_submitted_total",
			Help: "Total number of tasks submitted to the queue",
		}),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_tasks_processed_total",
			Help: "Total number of tasks processed, by terminal status",
		}, []string{"status"}),
		taskRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_task_retries_total",
			Help: "Total number of task retry attempts scheduled",
		}),
		workflowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_workflows_started_total",
			Help: "Total number of workflow executions started",
		}, []string{"workflow"}),
		workflowsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_workflows_finished_total",
			Help: "Total number of workflow executions finished, by status",
		}, []string{"workflow", "status"}),
		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_workflow_duration_seconds",
			Help:    "Duration of workflow executions in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		}, []string{"workflow"}),
		stepsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_workflow_steps_total",
			Help: "Total number of workflow steps executed, by type and outcome",
		}, []string{"step_type", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_workflow_step_duration_seconds",
			Help:    "Duration of workflow steps in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 60.0},
		}, []string{"step_type"}),
	}

	registry.MustRegister(
		m.tasksSubmitted,
		m.tasksProcessed,
		m.taskRetries,
		m.workflowsStarted,
		m.workflowsFinished,
		m.workflowDuration,
		m.stepsExecuted,
		m.stepDuration,
	)
	return m
}

// TaskSubmitted counts a queue submission
func (m *Metrics) TaskSubmitted() {
	m.tasksSubmitted.Inc()
}

// TaskProcessed counts a task reaching a terminal status
func (m *Metrics) TaskProcessed(status string) {
	m.tasksProcessed.WithLabelValues(status).Inc()
}

// TaskRetryScheduled counts a scheduled retry attempt
func (m *Metrics) TaskRetryScheduled() {
	m.taskRetries.Inc()
}

// WorkflowStarted implements workflow.MetricsCollector
func (m *Metrics) WorkflowStarted(name string) {
	m.workflowsStarted.WithLabelValues(name).Inc()
}

// WorkflowFinished implements workflow.MetricsCollector
func (m *Metrics) WorkflowFinished(name string, status workflow.Status, duration time.Duration) {
	m.workflowsFinished.WithLabelValues(name, string(status)).Inc()
	m.workflowDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// StepExecuted implements workflow.MetricsCollector
func (m *Metrics) StepExecuted(stepType workflow.StepType, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.stepsExecuted.WithLabelValues(string(stepType), outcome).Inc()
	m.stepDuration.WithLabelValues(string(stepType)).Observe(duration.Seconds())
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
