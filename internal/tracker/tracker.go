// Package tracker maintains object identity across sampled frames using
// nearest-neighbor assignment on detection centers.
package tracker

import (
	"math"

	"github.com/timmy/pitchtrack/internal/domain"
)

const (
	// proximityThreshold is the maximum center distance, in pixels, for a
	// detection to continue an existing track.
	proximityThreshold = 100.0

	// BallTrackID is the reserved singleton track id for the ball. Player
	// track ids start above it.
	BallTrackID = 0

	// historyLimit bounds the ball position history used for trajectory
	// prediction.
	historyLimit = 10

	// predictionSteps is how many future positions to extrapolate.
	predictionSteps = 3
)

// trackState is the last known state of one tracked object.
type trackState struct {
	id      int
	last    domain.Position
	prev    domain.Position
	hasPrev bool
	history []domain.Position
}

// Tracker assigns stable track ids to detections across frames. It is owned
// by a single job goroutine and is not safe for concurrent use.
type Tracker struct {
	players map[int]*trackState
	ball    *trackState
	nextID  int
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		players: make(map[int]*trackState),
		nextID:  BallTrackID + 1,
	}
}

// UpdatePlayers matches detections to existing tracks by nearest neighbor
// and mutates them in place with track ids and velocities. Each track is
// claimed by at most one detection per frame; unmatched detections open new
// tracks with zero velocity.
func (t *Tracker) UpdatePlayers(players []domain.PlayerDetection) {
	claimed := make(map[int]bool, len(t.players))

	for i := range players {
		det := &players[i]

		best := -1
		bestDist := proximityThreshold
		for id, track := range t.players {
			if claimed[id] {
				continue
			}
			d := distance(det.Position, track.last)
			if d < bestDist {
				best = id
				bestDist = d
			}
		}

		if best >= 0 {
			track := t.players[best]
			claimed[best] = true
			vel := &domain.Velocity{
				X: det.Position.X - track.last.X,
				Y: det.Position.Y - track.last.Y,
			}
			track.prev = track.last
			track.hasPrev = true
			track.last = det.Position

			id := track.id
			det.TrackID = &id
			det.Velocity = vel
			continue
		}

		// New track
		id := t.nextID
		t.nextID++
		t.players[id] = &trackState{id: id, last: det.Position}
		det.TrackID = &id
		det.Velocity = &domain.Velocity{}
	}
}

// UpdateBall assigns the singleton ball track, computes velocity against the
// previous observation, and extrapolates a short trajectory once enough
// history has accumulated. A nil ball leaves the track state untouched so a
// brief occlusion does not reset the history.
func (t *Tracker) UpdateBall(ball *domain.BallDetection) {
	if ball == nil {
		return
	}

	if t.ball == nil {
		t.ball = &trackState{id: BallTrackID}
	} else {
		ball.Velocity = &domain.Velocity{
			X: ball.Position.X - t.ball.last.X,
			Y: ball.Position.Y - t.ball.last.Y,
		}
		t.ball.prev = t.ball.last
		t.ball.hasPrev = true
	}
	t.ball.last = ball.Position

	t.ball.history = append(t.ball.history, ball.Position)
	if len(t.ball.history) > historyLimit {
		t.ball.history = t.ball.history[len(t.ball.history)-historyLimit:]
	}

	id := BallTrackID
	ball.TrackID = &id
	ball.TrajectoryPrediction = t.predictTrajectory()
}

// predictTrajectory extrapolates future ball positions from the average
// per-step displacement over the recorded history. It needs at least three
// samples to smooth out single-frame noise.
func (t *Tracker) predictTrajectory() []domain.Position {
	h := t.ball.history
	if len(h) < 3 {
		return nil
	}

	steps := float64(len(h) - 1)
	avgDX := (h[len(h)-1].X - h[0].X) / steps
	avgDY := (h[len(h)-1].Y - h[0].Y) / steps

	predictions := make([]domain.Position, 0, predictionSteps)
	cur := h[len(h)-1]
	for i := 0; i < predictionSteps; i++ {
		cur = domain.Position{X: cur.X + avgDX, Y: cur.Y + avgDY}
		predictions = append(predictions, cur)
	}
	return predictions
}

func distance(a, b domain.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
