package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Frame is a single decoded-enough video frame: raw encoded bytes plus the
// dimensions detectors need for coordinate mapping.
type Frame struct {
	// Index is the frame's position in the source video, not the sampled
	// ordinal.
	Index  int
	Width  int
	Height int
	Data   []byte // JPEG-encoded frame
}

// Source yields sampled frames from an opened video.
type Source interface {
	Metadata() *Metadata
	// ReadFrame returns the i-th sampled frame (0-based ordinal).
	ReadFrame(ctx context.Context, i int) (*Frame, error)
	Close() error
}

// Opener opens a local video file for sampled frame reading.
type Opener interface {
	Open(ctx context.Context, path string, interval int) (Source, error)
}

// FFmpegOpener extracts sampled frames with a single ffmpeg pass into the
// job's scratch space, then serves them from disk.
type FFmpegOpener struct {
	BinPath string // ffmpeg binary; empty uses PATH
	prober  Prober
}

// NewFFmpegOpener creates an FFmpegOpener backed by the given prober.
func NewFFmpegOpener(prober Prober) *FFmpegOpener {
	return &FFmpegOpener{prober: prober}
}

// Open probes the video and extracts every interval-th frame as JPEG.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: local video file path.
//   - interval: sampling interval in source frames, at least 1.
// Returns:
//   - Source: frame source reading from the extracted files.
//   - error: non-nil if probing or extraction fails.
func (o *FFmpegOpener) Open(ctx context.Context, path string, interval int) (Source, error) {
	if interval < 1 {
		interval = 1
	}

	meta, err := o.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	frameDir := filepath.Join(filepath.Dir(path), "frames")
	if err := os.MkdirAll(frameDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	bin := o.BinPath
	if bin == "" {
		bin = "ffmpeg"
	}

	// select picks every interval-th frame; vsync vfr keeps output frames
	// aligned with selected input frames.
	filter := fmt.Sprintf("select=not(mod(n\\,%d))", interval)
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-i", path,
		"-vf", filter,
		"-vsync", "vfr",
		"-q:v", "3",
		filepath.Join(frameDir, "frame_%06d.jpg"),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, bytes.TrimSpace(out))
	}

	files, err := filepath.Glob(filepath.Join(frameDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", path)
	}

	return &fileSource{
		meta:     meta,
		files:    files,
		interval: interval,
		dir:      frameDir,
	}, nil
}

type fileSource struct {
	meta     *Metadata
	files    []string
	interval int
	dir      string
}

func (s *fileSource) Metadata() *Metadata {
	return s.meta
}

func (s *fileSource) ReadFrame(ctx context.Context, i int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.files) {
		return nil, fmt.Errorf("sampled frame %d out of range [0,%d)", i, len(s.files))
	}

	data, err := os.ReadFile(s.files[i])
	if err != nil {
		return nil, fmt.Errorf("failed to read frame file: %w", err)
	}

	width, height := s.meta.Width, s.meta.Height
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	return &Frame{
		Index:  i * s.interval,
		Width:  width,
		Height: height,
		Data:   data,
	}, nil
}

func (s *fileSource) Close() error {
	return os.RemoveAll(s.dir)
}

// SampledFrames returns how many sampled frames the source will yield.
func (s *fileSource) SampledFrames() int {
	return len(s.files)
}
