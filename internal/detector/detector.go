// Package detector provides object detection providers for football video
// frames: a remote inference service client and a synthetic generator used
// as its fallback.
package detector

import (
	"context"

	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/video"
)

// Result is the raw per-frame detection output before tracking.
type Result struct {
	Players         []domain.PlayerDetection
	Ball            *domain.BallDetection
	ProcessingTime  float64
	DetectorUsed    string
	AcceleratorUsed bool
}

// Provider detects players and the ball within a single frame.
type Provider interface {
	// Detect runs detection on one frame. The config controls which entity
	// classes are kept and the minimum confidence.
	Detect(ctx context.Context, frame *video.Frame, cfg *domain.DetectionConfig) (*Result, error)

	// Name identifies the provider in results and metrics.
	Name() string

	// Available reports whether the provider can currently serve requests.
	Available() bool
}
