package logging

// MeshLogger decorates a Logger with sticky contextual attributes for the
// common coordination dimensions (workflow, task, agent). It is cheap to
// copy via the With* methods; the embedded Logger is shared.
type MeshLogger struct {
	logger Logger
	attrs  []any
}

// NewMeshLogger wraps the given logger (NoOpLogger when nil).
func NewMeshLogger(l Logger) *MeshLogger {
	if l == nil {
		l = NoOpLogger{}
	}
	return &MeshLogger{logger: l}
}

func (l *MeshLogger) with(args ...any) *MeshLogger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &MeshLogger{logger: l.logger, attrs: attrs}
}

// WithWorkflow attaches a workflow id to every log entry.
func (l *MeshLogger) WithWorkflow(id string) *MeshLogger { return l.with("workflow_id", id) }

// WithTask attaches a task id to every log entry.
func (l *MeshLogger) WithTask(id string) *MeshLogger { return l.with("task_id", id) }

// WithAgent attaches an agent id to every log entry.
func (l *MeshLogger) WithAgent(id string) *MeshLogger { return l.with("agent_id", id) }

// WithComponent attaches the logical component (bus, blackboard, orchestrator, agent).
func (l *MeshLogger) WithComponent(c string) *MeshLogger { return l.with("component", c) }

// Debug logs at debug level with the sticky attributes appended.
func (l *MeshLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, append(append([]any{}, l.attrs...), args...)...)
}

// Info logs at info level with the sticky attributes appended.
func (l *MeshLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, append(append([]any{}, l.attrs...), args...)...)
}

// Warn logs at warn level with the sticky attributes appended.
func (l *MeshLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, append(append([]any{}, l.attrs...), args...)...)
}

// Error logs at error level with the sticky attributes appended.
func (l *MeshLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, append(append([]any{}, l.attrs...), args...)...)
}
