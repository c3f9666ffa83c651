package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/storage"
)

// Fetcher resolves video locators into local files under a scratch directory.
type Fetcher interface {
	// Fetch materializes the locator as a local file for the given job.
	// The returned path lives under the job's scratch directory.
	Fetch(ctx context.Context, jobID string, loc *Locator) (string, error)

	// ProbeTarget returns a target string ffprobe can read without a full
	// download: the URL for remote locators, the path for local ones.
	ProbeTarget(loc *Locator) string

	// Cleanup removes the job's scratch directory.
	Cleanup(jobID string)
}

// ScratchFetcher downloads remote videos to a scratch directory and passes
// local paths through. storage:// locators resolve against object storage.
type ScratchFetcher struct {
	scratchDir string
	client     *resty.Client
	store      storage.ObjectStorage // nil disables storage:// locators
}

// NewScratchFetcher creates a ScratchFetcher.
// Parameters:
//   - scratchDir: base directory for per-job working files.
//   - client: resty client used for HTTP downloads.
//   - store: object storage for storage:// locators; may be nil.
// Returns:
//   - *ScratchFetcher: fetcher instance.
func NewScratchFetcher(scratchDir string, client *resty.Client, store storage.ObjectStorage) *ScratchFetcher {
	return &ScratchFetcher{
		scratchDir: scratchDir,
		client:     client,
		store:      store,
	}
}

func (f *ScratchFetcher) jobDir(jobID string) string {
	return filepath.Join(f.scratchDir, jobID)
}

// Fetch materializes the locator as a local file.
func (f *ScratchFetcher) Fetch(ctx context.Context, jobID string, loc *Locator) (string, error) {
	switch loc.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		return f.fetchHTTP(ctx, jobID, loc)
	case SchemeStorage:
		return f.fetchStorage(ctx, jobID, loc)
	case SchemeFile:
		if _, err := os.Stat(loc.Target); err != nil {
			return "", &domain.SourceError{Locator: loc.Raw, Err: err}
		}
		return loc.Target, nil
	default:
		return "", &domain.ValidationError{Field: "video_url", Reason: "unsupported scheme"}
	}
}

func (f *ScratchFetcher) fetchHTTP(ctx context.Context, jobID string, loc *Locator) (string, error) {
	dir := f.jobDir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	dest := filepath.Join(dir, "input"+filepath.Ext(loc.Target))

	logger.CtxInfo(ctx, "Downloading video from %s", loc.Target)

	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(loc.Target)
	if err != nil {
		return "", &domain.SourceError{Locator: loc.Raw, Err: err}
	}
	if resp.IsError() {
		return "", &domain.SourceError{
			Locator: loc.Raw,
			Err:     fmt.Errorf("download returned status %d", resp.StatusCode()),
		}
	}

	return dest, nil
}

func (f *ScratchFetcher) fetchStorage(ctx context.Context, jobID string, loc *Locator) (string, error) {
	if f.store == nil {
		return "", &domain.ValidationError{Field: "video_url", Reason: "storage locators are not configured"}
	}

	dir := f.jobDir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	dest := filepath.Join(dir, "input"+filepath.Ext(loc.Target))

	logger.CtxInfo(ctx, "Downloading video object %s", loc.Target)

	body, err := f.store.Download(ctx, loc.Target)
	if err != nil {
		return "", &domain.SourceError{Locator: loc.Raw, Err: err}
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", &domain.SourceError{Locator: loc.Raw, Err: err}
	}

	return dest, nil
}

// ProbeTarget resolves the locator to something ffprobe can read directly.
func (f *ScratchFetcher) ProbeTarget(loc *Locator) string {
	if loc.Scheme == SchemeStorage && f.store != nil {
		return f.store.GetURL(loc.Target)
	}
	return loc.Target
}

// Cleanup removes the job's scratch directory. Failures are logged, not
// returned; leftover scratch files never fail a job.
func (f *ScratchFetcher) Cleanup(jobID string) {
	dir := f.jobDir(jobID)
	if err := os.RemoveAll(dir); err != nil {
		logger.CtxWarn(context.Background(), "Failed to remove scratch directory %s: %v", dir, err)
	}
}
