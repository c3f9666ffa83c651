package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Team labels assigned to player detections.
const (
	TeamHome = "home"
	TeamAway = "away"
)

// Position is a 2D point in frame pixel coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Velocity is a per-frame displacement vector.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned box with its origin at the top-left corner.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlayerDetection is a single detected player within one frame.
type PlayerDetection struct {
	ID           string       `json:"id"`
	Position     Position     `json:"position"`
	Confidence   float64      `json:"confidence"`
	Team         string       `json:"team,omitempty"`
	JerseyNumber *int         `json:"jersey_number,omitempty"`
	BoundingBox  *BoundingBox `json:"bounding_box,omitempty"`
	Velocity     *Velocity    `json:"velocity,omitempty"`
	TrackID      *int         `json:"track_id,omitempty"`
}

// BallDetection is the at-most-one ball detected within a frame. The tracker
// assigns the reserved singleton track id and, given enough history, a short
// linear trajectory prediction.
type BallDetection struct {
	Position             Position     `json:"position"`
	Confidence           float64      `json:"confidence"`
	BoundingBox          *BoundingBox `json:"bounding_box,omitempty"`
	Velocity             *Velocity    `json:"velocity,omitempty"`
	TrackID              *int         `json:"track_id,omitempty"`
	TrajectoryPrediction []Position   `json:"trajectory_prediction,omitempty"`
}

// FrameResult is the tracked output of one sampled frame. Results are
// appended in strictly increasing frame-index order and never mutated.
type FrameResult struct {
	FrameIndex      int               `json:"frameIndex"`
	Timestamp       float64           `json:"timestamp"`
	Players         []PlayerDetection `json:"players"`
	Ball            *BallDetection    `json:"ball,omitempty"`
	ProcessingTime  float64           `json:"processing_time"`
	DetectorUsed    string            `json:"detector_used"`
	AcceleratorUsed bool              `json:"accelerator_used"`
}

// FrameResults is stored as a JSON column on the job record.
type FrameResults []FrameResult

// Value implements the driver.Valuer interface for database serialization.
func (r FrameResults) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *FrameResults) Scan(value interface{}) error {
	if value == nil {
		*r = FrameResults{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FrameResults")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// EventType identifies a detected match event.
type EventType string

// EventShot is recorded when the ball is detected inside either goal area.
const EventShot EventType = "shot"

// Event is a notable moment derived from detections during processing.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  float64   `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Position   Position  `json:"position"`
}

// EventList is stored as a JSON column on the job record.
type EventList []Event

// Value implements the driver.Valuer interface for database serialization.
func (l EventList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (l *EventList) Scan(value interface{}) error {
	if value == nil {
		*l = EventList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan EventList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}
