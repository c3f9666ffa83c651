package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of a detection job.
// Transitions only move forward: pending -> processing -> {completed, failed, cancelled}.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is a final state with no outgoing edges.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ProcessingMode controls the per-frame pacing delay of the pipeline.
type ProcessingMode string

const (
	ModeFast     ProcessingMode = "fast"
	ModeBalanced ProcessingMode = "balanced"
	ModeAccurate ProcessingMode = "accurate"
)

// Delay returns the pacing delay applied after each processed frame.
func (m ProcessingMode) Delay() time.Duration {
	switch m {
	case ModeFast:
		return 20 * time.Millisecond
	case ModeAccurate:
		return 100 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

// DetectionConfig is the immutable configuration snapshot a job is created with.
type DetectionConfig struct {
	VideoURL            string         `json:"videoUrl"`
	FrameRate           int            `json:"frameRate"`
	ConfidenceThreshold float64        `json:"confidenceThreshold"`
	TrackPlayers        bool           `json:"trackPlayers"`
	TrackBall           bool           `json:"trackBall"`
	ProcessingMode      ProcessingMode `json:"processingMode"`
	ModelType           string         `json:"modelType"`
	UseRealDetector     bool           `json:"useRealDetector"`
}

// Normalize fills zero-valued fields with service defaults.
func (c *DetectionConfig) Normalize() {
	if c.FrameRate == 0 {
		c.FrameRate = 5
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.5
	}
	if c.ProcessingMode == "" {
		c.ProcessingMode = ModeBalanced
	}
	if c.ModelType == "" {
		c.ModelType = "yolo11n"
	}
}

// Validate checks field ranges. It returns a *ValidationError describing the
// first offending field, or nil.
func (c *DetectionConfig) Validate() error {
	if c.VideoURL == "" {
		return &ValidationError{Field: "videoUrl", Reason: "must not be empty"}
	}
	if c.FrameRate < 1 || c.FrameRate > 30 {
		return &ValidationError{Field: "frameRate", Reason: "must be between 1 and 30"}
	}
	if c.ConfidenceThreshold < 0.1 || c.ConfidenceThreshold > 1.0 {
		return &ValidationError{Field: "confidenceThreshold", Reason: "must be between 0.1 and 1.0"}
	}
	switch c.ProcessingMode {
	case ModeFast, ModeBalanced, ModeAccurate:
	default:
		return &ValidationError{Field: "processingMode", Reason: "must be fast, balanced or accurate"}
	}
	return nil
}

// Value implements the driver.Valuer interface for database serialization.
func (c DetectionConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *DetectionConfig) Scan(value interface{}) error {
	if value == nil {
		*c = DetectionConfig{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan DetectionConfig")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// DetectionJob represents one end-to-end video analysis request. While the
// job is active it is owned exclusively by its orchestrator goroutine;
// external callers only read copies of it.
type DetectionJob struct {
	ID           string          `gorm:"type:text;primaryKey" json:"job_id"`
	Status       JobStatus       `gorm:"type:text;index:idx_jobs_status;default:pending" json:"status"`
	Config       DetectionConfig `gorm:"type:text" json:"config"`
	Progress     float64         `gorm:"default:0" json:"progress"`
	Results      FrameResults    `gorm:"type:text" json:"results,omitempty"`
	Events       EventList       `gorm:"type:text" json:"events,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	DetectorUsed string          `json:"detector_used,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// TableName returns the database table name for DetectionJob.
func (DetectionJob) TableName() string {
	return "detection_jobs"
}

// JobMetrics holds the aggregate statistics computed when a job completes.
type JobMetrics struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID           string    `gorm:"type:text;not null;uniqueIndex" json:"job_id"`
	ProcessingTime  float64   `json:"processing_time"`
	FramesProcessed int       `json:"frames_processed"`
	PlayersDetected int       `json:"players_detected"`
	BallsDetected   int       `json:"balls_detected"`
	ShotsDetected   int       `json:"shots_detected"`
	AvgConfidence   float64   `json:"avg_confidence"`
	DetectorName    string    `json:"detector_name"`
	AcceleratorUsed bool      `json:"accelerator_used"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the database table name for JobMetrics.
func (JobMetrics) TableName() string {
	return "job_metrics"
}
