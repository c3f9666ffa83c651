package detector

import (
	"context"

	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/video"
)

// Fallback wraps a primary provider with a fallback one. A frame is never
// lost to a detector outage: when the primary is unavailable or errors, the
// fallback serves the frame and the degradation is logged once per switch.
type Fallback struct {
	primary  Provider
	fallback Provider
}

// NewFallback creates a Fallback provider chain.
func NewFallback(primary, fallback Provider) *Fallback {
	return &Fallback{primary: primary, fallback: fallback}
}

// Name implements Provider. It reports the provider currently serving.
func (f *Fallback) Name() string {
	if f.primary.Available() {
		return f.primary.Name()
	}
	return f.fallback.Name()
}

// Available implements Provider.
func (f *Fallback) Available() bool {
	return f.primary.Available() || f.fallback.Available()
}

// Detect implements Provider.
func (f *Fallback) Detect(ctx context.Context, frame *video.Frame, cfg *domain.DetectionConfig) (*Result, error) {
	if f.primary.Available() {
		result, err := f.primary.Detect(ctx, frame, cfg)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.CtxWarn(ctx, "Detector %s failed, degrading to %s: %v",
			f.primary.Name(), f.fallback.Name(), err)
	}
	return f.fallback.Detect(ctx, frame, cfg)
}
