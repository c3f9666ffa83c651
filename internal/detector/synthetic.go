package detector

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/video"
)

const (
	// playerMeanCount is the Poisson mean for players per frame.
	playerMeanCount = 8.0
	// maxPlayers caps how many players a single frame can contain.
	maxPlayers = 12
	// ballPresenceProb is the chance a frame contains a visible ball.
	ballPresenceProb = 0.6

	playerBoxWidth  = 30.0
	playerBoxHeight = 50.0
	ballBoxSize     = 16.0
)

// Synthetic generates plausible detections without a model. It serves as the
// fallback when the inference service is unreachable and as the default in
// development environments.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a Synthetic provider with the given seed. A fixed seed
// makes output reproducible in tests.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewSource(seed))}
}

// Name implements Provider.
func (s *Synthetic) Name() string {
	return "synthetic"
}

// Available implements Provider. The generator has no external dependencies.
func (s *Synthetic) Available() bool {
	return true
}

// Detect implements Provider. Players cluster around their team's half and
// the ball, when present, appears near a random player.
func (s *Synthetic) Detect(ctx context.Context, frame *video.Frame, cfg *domain.DetectionConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	width := float64(frame.Width)
	height := float64(frame.Height)
	if width == 0 || height == 0 {
		width, height = 1920, 1080
	}

	result := &Result{
		DetectorUsed:   s.Name(),
		ProcessingTime: 0.01 + s.rng.Float64()*0.04,
	}

	if cfg.TrackPlayers {
		count := s.poisson(playerMeanCount)
		if count > maxPlayers {
			count = maxPlayers
		}
		for i := 0; i < count; i++ {
			// Teams cluster around their own half
			centerX := width * 0.25
			if i%2 == 1 {
				centerX = width * 0.75
			}
			pos := domain.Position{
				X: clamp(centerX+s.rng.NormFloat64()*width*0.15, 0, width),
				Y: clamp(height*0.5+s.rng.NormFloat64()*height*0.25, 0, height),
			}
			confidence := 0.6 + s.rng.Float64()*0.35
			if confidence < cfg.ConfidenceThreshold {
				continue
			}

			team := domain.TeamAway
			if pos.X < width/2 {
				team = domain.TeamHome
			}
			player := domain.PlayerDetection{
				ID:         uuid.NewString(),
				Position:   pos,
				Confidence: confidence,
				Team:       team,
				BoundingBox: &domain.BoundingBox{
					X:      pos.X - playerBoxWidth/2,
					Y:      pos.Y - playerBoxHeight/2,
					Width:  playerBoxWidth,
					Height: playerBoxHeight,
				},
			}
			if s.rng.Float64() < 0.3 {
				jersey := 1 + s.rng.Intn(23)
				player.JerseyNumber = &jersey
			}
			result.Players = append(result.Players, player)
		}
	}

	if cfg.TrackBall && s.rng.Float64() < ballPresenceProb {
		var pos domain.Position
		if len(result.Players) > 0 {
			// Ball travels with play, so spawn it near a random player
			anchor := result.Players[s.rng.Intn(len(result.Players))].Position
			pos = domain.Position{
				X: clamp(anchor.X+s.rng.NormFloat64()*50, 0, width),
				Y: clamp(anchor.Y+s.rng.NormFloat64()*50, 0, height),
			}
		} else {
			pos = domain.Position{
				X: s.rng.Float64() * width,
				Y: s.rng.Float64() * height,
			}
		}
		confidence := 0.6 + s.rng.Float64()*0.35
		if confidence >= cfg.ConfidenceThreshold {
			result.Ball = &domain.BallDetection{
				Position:   pos,
				Confidence: confidence,
				BoundingBox: &domain.BoundingBox{
					X:      pos.X - ballBoxSize/2,
					Y:      pos.Y - ballBoxSize/2,
					Width:  ballBoxSize,
					Height: ballBoxSize,
				},
			}
		}
	}

	return result, nil
}

// poisson draws a Poisson-distributed count using Knuth's method. The mean
// here is small enough that the multiplicative loop stays cheap.
func (s *Synthetic) poisson(mean float64) int {
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
