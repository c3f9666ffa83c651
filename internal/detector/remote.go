package detector

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/video"
)

// RemoteConfig holds configuration for the inference service client.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Remote calls a YOLO inference sidecar over HTTP. Availability is probed at
// construction and after failures, so a dead sidecar degrades to the
// fallback provider instead of failing jobs.
type Remote struct {
	client    *resty.Client
	model     string
	available atomic.Bool
}

// NewRemote creates a Remote provider and probes the inference service once.
// Parameters:
//   - cfg: inference service configuration.
// Returns:
//   - *Remote: initialized client wrapper; Available reflects the probe.
func NewRemote(cfg *RemoteConfig) *Remote {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	r := &Remote{
		client: client,
		model:  cfg.Model,
	}
	r.probe(context.Background())
	return r
}

// Name implements Provider.
func (r *Remote) Name() string {
	return "yolo-remote"
}

// Available implements Provider.
func (r *Remote) Available() bool {
	return r.available.Load()
}

// probe checks the inference service health endpoint.
func (r *Remote) probe(ctx context.Context) {
	resp, err := r.client.R().SetContext(ctx).Get("/health")
	ok := err == nil && resp.IsSuccess()
	r.available.Store(ok)
	if !ok {
		logger.CtxWarn(ctx, "Inference service unavailable at %s", r.client.BaseURL)
	}
}

// Inference service request/response structures
type inferRequest struct {
	Image      string  `json:"image"` // base64-encoded JPEG
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
}

type inferResponse struct {
	Detections []struct {
		ClassName  string    `json:"class_name"`
		Confidence float64   `json:"confidence"`
		BBox       []float64 `json:"bbox"` // [x, y, width, height]
	} `json:"detections"`
	ProcessingTime float64 `json:"processing_time"`
	Accelerator    bool    `json:"accelerator"`
	Error          string  `json:"error,omitempty"`
}

// Detect implements Provider. Raw class detections from the model are mapped
// to match entities here: persons become players, the highest-priority sports
// ball becomes the ball. Classes excluded by the config are dropped.
func (r *Remote) Detect(ctx context.Context, frame *video.Frame, cfg *domain.DetectionConfig) (*Result, error) {
	req := inferRequest{
		Image:      base64.StdEncoding.EncodeToString(frame.Data),
		Model:      r.model,
		Confidence: cfg.ConfidenceThreshold,
	}

	var out inferResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/detect")
	if err != nil {
		r.available.Store(false)
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	if resp.IsError() {
		r.available.Store(false)
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inference error: %s", out.Error)
	}

	width := float64(frame.Width)
	result := &Result{
		DetectorUsed:    r.Name(),
		ProcessingTime:  out.ProcessingTime,
		AcceleratorUsed: out.Accelerator,
	}

	for _, det := range out.Detections {
		if det.Confidence < cfg.ConfidenceThreshold || len(det.BBox) < 4 {
			continue
		}
		box := domain.BoundingBox{
			X:      det.BBox[0],
			Y:      det.BBox[1],
			Width:  det.BBox[2],
			Height: det.BBox[3],
		}
		center := domain.Position{
			X: box.X + box.Width/2,
			Y: box.Y + box.Height/2,
		}

		switch det.ClassName {
		case "person":
			if !cfg.TrackPlayers {
				continue
			}
			team := domain.TeamAway
			if center.X < width/2 {
				team = domain.TeamHome
			}
			boxCopy := box
			result.Players = append(result.Players, domain.PlayerDetection{
				ID:          uuid.NewString(),
				Position:    center,
				Confidence:  det.Confidence,
				Team:        team,
				BoundingBox: &boxCopy,
			})
		case "sports ball":
			// First match wins, later balls in the same frame are ignored
			if !cfg.TrackBall || result.Ball != nil {
				continue
			}
			boxCopy := box
			result.Ball = &domain.BallDetection{
				Position:    center,
				Confidence:  det.Confidence,
				BoundingBox: &boxCopy,
			}
		}
	}

	return result, nil
}
