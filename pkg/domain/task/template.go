package task

import (
	"regexp"
	"sync"

	"github.com/clockwork-labs/orchestrator/pkg/domain/errors"
)

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitute replaces ${var} placeholders with values from vars. Unknown
// placeholders are left untouched.
func substitute(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}

// Template is an immutable pattern for creating tasks. Description and
// string-valued metadata may contain ${var} placeholders.
type Template struct {
	Name        string
	Description string
	TaskType    Type
	Priority    Priority
	Defaults    map[string]string
	Retry       *RetryConfig
	Metadata    map[string]any
	Tags        []string
}

// TemplateOption overrides fields on a task created from a template
type TemplateOption func(*Task)

// WithPriority overrides the template's default priority
func WithPriority(p Priority) TemplateOption {
	return func(t *Task) { t.Priority = p }
}

// WithType overrides the template's default task type
func WithType(tt Type) TemplateOption {
	return func(t *Task) { t.Type = tt }
}

// WithDependencies sets the created task's dependency list
func WithDependencies(ids ...string) TemplateOption {
	return func(t *Task) { t.Dependencies = append([]string(nil), ids...) }
}

// WithMaxCorrections overrides the correction cap
func WithMaxCorrections(n int) TemplateOption {
	return func(t *Task) { t.MaxCorrections = n }
}

// CreateTask instantiates a task from the template. Variables passed in win
// over template defaults; the substituted variable set and the template name
// are recorded in the task metadata.
func (tpl *Template) CreateTask(title string, vars map[string]string, opts ...TemplateOption) *Task {
	merged := make(map[string]string, len(tpl.Defaults)+len(vars))
	for k, v := range tpl.Defaults {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	t := New(title, substitute(tpl.Description, merged))
	if tpl.TaskType != "" {
		t.Type = tpl.TaskType
	}
	if tpl.Priority != "" {
		t.Priority = tpl.Priority
	}
	if tpl.Retry != nil {
		t.Retry = *tpl.Retry
	}

	for k, v := range tpl.Metadata {
		if s, ok := v.(string); ok {
			t.Metadata[k] = substitute(s, merged)
		} else {
			t.Metadata[k] = v
		}
	}
	t.Metadata["template_name"] = tpl.Name
	t.Metadata["template_variables"] = merged

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ToMap converts the template to a serializable representation
func (tpl *Template) ToMap() map[string]any {
	m := map[string]any{
		"name":        tpl.Name,
		"description": tpl.Description,
		"task_type":   string(tpl.TaskType),
		"priority":    string(tpl.Priority),
		"defaults":    tpl.Defaults,
		"metadata":    tpl.Metadata,
		"tags":        append([]string(nil), tpl.Tags...),
	}
	if tpl.Retry != nil {
		m["retry"] = map[string]any{
			"strategy":        string(tpl.Retry.Strategy),
			"max_retries":     tpl.Retry.MaxRetries,
			"base_delay":      tpl.Retry.BaseDelay.Seconds(),
			"max_delay":       tpl.Retry.MaxDelay.Seconds(),
			"retry_on_errors": tpl.Retry.RetryOnErrors,
		}
	}
	return m
}

// TemplateLibrary is a name-keyed collection of task templates
type TemplateLibrary struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateLibrary creates an empty template library
func NewTemplateLibrary() *TemplateLibrary {
	return &TemplateLibrary{templates: make(map[string]*Template)}
}

// Register adds a template; a duplicate name is an error
func (l *TemplateLibrary) Register(tpl *Template) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.templates[tpl.Name]; exists {
		return errors.Newf(errors.CodeAlreadyExists, "template",
			"template %q already registered", tpl.Name)
	}
	l.templates[tpl.Name] = tpl
	return nil
}

// Get returns the named template; an unknown name is a configuration error
func (l *TemplateLibrary) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tpl, ok := l.templates[name]
	if !ok {
		return nil, errors.Newf(errors.CodeTemplateUnknown, "template",
			"unknown template %q", name)
	}
	return tpl, nil
}

// List returns all registered templates
func (l *TemplateLibrary) List() []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Template, 0, len(l.templates))
	for _, tpl := range l.templates {
		out = append(out, tpl)
	}
	return out
}

// FilterByTag returns templates carrying the given tag
func (l *TemplateLibrary) FilterByTag(tag string) []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Template
	for _, tpl := range l.templates {
		for _, t := range tpl.Tags {
			if t == tag {
				out = append(out, tpl)
				break
			}
		}
	}
	return out
}
