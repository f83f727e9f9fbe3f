package logtrace

// Fields is a type alias for structured log fields
type Fields map[string]interface{}

// WithFields returns a copy of base with extra fields merged in.
func WithFields(base Fields, extra Fields) Fields {
	fields := Fields{}
	for key, value := range base {
		fields[key] = value
	}
	for key, value := range extra {
		fields[key] = value
	}
	return fields
}

const (
	FieldCorrelationID  = "correlation_id"
	FieldOrigin         = "origin"
	FieldMethod         = "method"
	FieldModule         = "module"
	FieldError          = "error"
	FieldStatus         = "status"
	FieldDecision       = "decision"
	FieldSessionID      = "session_id"
	FieldAttempt        = "attempt"
	FieldMaxAttempts    = "max_attempts"
	FieldBackoff        = "backoff"
	FieldRuntimeVersion = "runtime_version"
	FieldProvider       = "provider"
	FieldDevice         = "device"
	FieldTaskID         = "task_id"
)
