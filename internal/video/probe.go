package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Metadata holds the stream properties needed to plan a detection job.
type Metadata struct {
	Duration   time.Duration
	FPS        float64
	FrameCount int
	Width      int
	Height     int
}

// Prober extracts metadata from a video target (local path or URL).
type Prober interface {
	Probe(ctx context.Context, target string) (*Metadata, error)
}

// FFProbe implements Prober by shelling out to ffprobe. ffprobe reads both
// local files and HTTP URLs, so remote videos can be validated before they
// are downloaded.
type FFProbe struct {
	// BinPath overrides the ffprobe binary location; empty uses PATH.
	BinPath string
}

// NewFFProbe creates an FFProbe prober.
func NewFFProbe() *FFProbe {
	return &FFProbe{}
}

type ffprobeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe against the target and parses the first video stream.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - target: local file path or URL readable by ffprobe.
// Returns:
//   - *Metadata: parsed stream metadata.
//   - error: non-nil if ffprobe fails or the output has no video stream.
func (p *FFProbe) Probe(ctx context.Context, target string) (*Metadata, error) {
	bin := p.BinPath
	if bin == "" {
		bin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		target,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", target, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in %s", target)
	}

	stream := parsed.Streams[0]

	fps, err := parseFrameRate(stream.RFrameRate)
	if err != nil {
		return nil, err
	}

	durationSec, _ := strconv.ParseFloat(parsed.Format.Duration, 64)

	frameCount := 0
	if stream.NbFrames != "" {
		frameCount, _ = strconv.Atoi(stream.NbFrames)
	}
	if frameCount == 0 && durationSec > 0 {
		// Some containers omit nb_frames, estimate from duration
		frameCount = int(durationSec * fps)
	}

	return &Metadata{
		Duration:   time.Duration(durationSec * float64(time.Second)),
		FPS:        fps,
		FrameCount: frameCount,
		Width:      stream.Width,
		Height:     stream.Height,
	}, nil
}

// parseFrameRate parses an ffprobe rational frame rate such as "30000/1001".
func parseFrameRate(rate string) (float64, error) {
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	return num / den, nil
}
