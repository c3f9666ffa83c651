package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the detection job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldDetector is the detection provider name
	FieldDetector = "detector"

	// FieldFrame is the source frame index being processed
	FieldFrame = "frame"
)

// Standard metric fields, attached at the log call site for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldProgress is the job progress percentage
	FieldProgress = "progress"

	// FieldStatus is the operation or job status
	FieldStatus = "status"

	// FieldSize is the response body size in bytes
	FieldSize = "size"
)
