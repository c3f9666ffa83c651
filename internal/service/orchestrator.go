package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/pitchtrack/internal/detector"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/tracker"
	"github.com/timmy/pitchtrack/internal/video"
)

// shotZoneFraction is the normalized x band at either end of the pitch that
// counts as a goal area for shot events.
const shotZoneFraction = 0.05

// JobStore persists jobs and their metrics.
type JobStore interface {
	Save(ctx context.Context, job *domain.DetectionJob) error
	GetByID(ctx context.Context, id string) (*domain.DetectionJob, error)
	SaveMetrics(ctx context.Context, metrics *domain.JobMetrics) error
	GetMetrics(ctx context.Context, jobID string) (*domain.JobMetrics, error)
}

// OrchestratorConfig bounds the orchestrator's resource usage.
type OrchestratorConfig struct {
	MaxConcurrent      int
	MaxVideoDuration   time.Duration
	CheckpointInterval int
}

// jobHandle is the in-memory state of an active job. The run goroutine owns
// the job record; mu guards the snapshot reads other goroutines perform.
type jobHandle struct {
	mu        sync.Mutex
	job       *domain.DetectionJob
	cancelled bool
	ctx       context.Context
	stop      context.CancelFunc
}

func (h *jobHandle) snapshot() domain.DetectionJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.job
}

func (h *jobHandle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Orchestrator runs detection jobs with bounded concurrency. Each job moves
// through pending -> processing -> {completed, failed, cancelled}; every
// transition and periodic checkpoint is persisted so results survive a
// restart.
type Orchestrator struct {
	store   JobStore
	fetcher video.Fetcher
	prober  video.Prober
	opener  video.Opener
	det     detector.Provider
	cfg     OrchestratorConfig

	mu       sync.RWMutex
	registry map[string]*jobHandle

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
// Parameters:
//   - store: job persistence layer.
//   - fetcher: resolves video locators to local files.
//   - prober: extracts video metadata for admission checks.
//   - opener: opens local videos for sampled frame reads.
//   - det: detection provider, usually a fallback chain.
//   - cfg: concurrency and admission limits.
// Returns:
//   - *Orchestrator: orchestrator instance ready to accept jobs.
func NewOrchestrator(store JobStore, fetcher video.Fetcher, prober video.Prober, opener video.Opener, det detector.Provider, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 10
	}
	return &Orchestrator{
		store:    store,
		fetcher:  fetcher,
		prober:   prober,
		opener:   opener,
		det:      det,
		cfg:      cfg,
		registry: make(map[string]*jobHandle),
		slots:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Active returns the number of jobs currently holding a processing slot.
func (o *Orchestrator) Active() int {
	return len(o.slots)
}

// Capacity returns the maximum number of concurrent jobs.
func (o *Orchestrator) Capacity() int {
	return o.cfg.MaxConcurrent
}

// Detector exposes the detection provider for health reporting.
func (o *Orchestrator) Detector() detector.Provider {
	return o.det
}

// Submit validates the request, admits it against capacity and duration
// limits, persists the pending job and starts processing in the background.
// Parameters:
//   - ctx: context for the admission phase only; processing uses the job's
//     own context.
//   - cfg: detection configuration from the request.
// Returns:
//   - *domain.DetectionJob: the created pending job.
//   - error: *domain.ValidationError, *domain.CapacityError, or a probe error.
func (o *Orchestrator) Submit(ctx context.Context, cfg domain.DetectionConfig) (*domain.DetectionJob, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := video.ParseLocator(cfg.VideoURL)
	if err != nil {
		return nil, err
	}

	// Admission happens before any job state exists, so an unreachable
	// source rejects the request rather than failing a job
	meta, err := o.prober.Probe(ctx, o.fetcher.ProbeTarget(loc))
	if err != nil {
		return nil, &domain.ValidationError{
			Field:  "videoUrl",
			Reason: fmt.Sprintf("source not reachable: %v", err),
		}
	}
	if o.cfg.MaxVideoDuration > 0 && meta.Duration > o.cfg.MaxVideoDuration {
		return nil, &domain.ValidationError{
			Field: "videoUrl",
			Reason: fmt.Sprintf("video duration %.0fs exceeds the %.0fs limit",
				meta.Duration.Seconds(), o.cfg.MaxVideoDuration.Seconds()),
		}
	}

	select {
	case o.slots <- struct{}{}:
	default:
		return nil, &domain.CapacityError{Limit: o.cfg.MaxConcurrent}
	}

	job := &domain.DetectionJob{
		ID:     uuid.NewString(),
		Status: domain.JobStatusPending,
		Config: cfg,
	}
	if err := o.store.Save(ctx, job); err != nil {
		<-o.slots
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	o.start(job, loc)

	logger.CtxInfo(ctx, "Job %s accepted (%d/%d slots in use)", job.ID, o.Active(), o.Capacity())
	return job, nil
}

// Resume adopts a pending job record, typically one found by the worker after
// a restart, and processes it under this orchestrator's limits.
// Parameters:
//   - ctx: context for the admission phase.
//   - job: pending job loaded from the store.
// Returns:
//   - error: *domain.CapacityError when no slot is free, domain.ErrJobFinished
//     for jobs that already finished.
func (o *Orchestrator) Resume(ctx context.Context, job *domain.DetectionJob) error {
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}

	o.mu.RLock()
	_, active := o.registry[job.ID]
	o.mu.RUnlock()
	if active {
		return fmt.Errorf("job %s is already running", job.ID)
	}

	loc, err := video.ParseLocator(job.Config.VideoURL)
	if err != nil {
		return err
	}

	select {
	case o.slots <- struct{}{}:
	default:
		return &domain.CapacityError{Limit: o.cfg.MaxConcurrent}
	}

	// Resumed jobs start over; partial results from a previous process are
	// superseded by the first checkpoint.
	job.Results = nil
	job.Events = nil
	job.Progress = 0

	o.start(job, loc)
	logger.CtxInfo(ctx, "Resumed job %s", job.ID)
	return nil
}

// start registers a handle for the job and launches its run goroutine. The
// caller must already hold a slot.
func (o *Orchestrator) start(job *domain.DetectionJob, loc *video.Locator) {
	jobCtx, stop := context.WithCancel(context.Background())
	handle := &jobHandle{job: job, ctx: jobCtx, stop: stop}

	o.mu.Lock()
	o.registry[job.ID] = handle
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() { <-o.slots }()
		defer stop()
		o.run(handle, loc)
	}()
}

// run executes the full pipeline for one job: fetch, open, per-frame
// detect/track loop, finalization. It owns all writes to the job record.
func (o *Orchestrator) run(h *jobHandle, loc *video.Locator) {
	job := h.job
	ctx := logger.SetJobID(h.ctx, job.ID)
	started := time.Now()

	defer func() {
		o.mu.Lock()
		delete(o.registry, job.ID)
		o.mu.Unlock()
		o.fetcher.Cleanup(job.ID)
	}()

	// Cancellation requested while the job was still pending
	if h.isCancelled() {
		o.finalize(ctx, h, domain.JobStatusCancelled, "")
		return
	}

	o.setStatus(ctx, h, domain.JobStatusProcessing)

	path, err := o.fetcher.Fetch(ctx, job.ID, loc)
	if err != nil {
		o.finalize(ctx, h, domain.JobStatusFailed, err.Error())
		return
	}

	interval := 1
	if meta, err := o.prober.Probe(ctx, path); err == nil {
		interval = video.SamplingInterval(meta.FPS, job.Config.FrameRate)
	}

	src, err := o.opener.Open(ctx, path, interval)
	if err != nil {
		o.finalize(ctx, h, domain.JobStatusFailed, err.Error())
		return
	}
	defer src.Close()

	meta := src.Metadata()
	sampled := video.SampledFrameCount(meta.FrameCount, interval)
	track := tracker.New()
	delay := job.Config.ProcessingMode.Delay()
	processed := 0

	logger.With(logger.Fields{
		logger.FieldCount:    sampled,
		logger.FieldDetector: o.det.Name(),
	}).Info(ctx, "Processing %d sampled frames at interval %d", sampled, interval)

	for i := 0; i < sampled; i++ {
		if h.isCancelled() || ctx.Err() != nil {
			o.finalize(ctx, h, domain.JobStatusCancelled, "")
			return
		}

		frame, err := src.ReadFrame(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				o.finalize(ctx, h, domain.JobStatusCancelled, "")
				return
			}
			logger.CtxWarn(ctx, "Skipping unreadable frame %d: %v", i, err)
			continue
		}

		result, err := o.det.Detect(ctx, frame, &job.Config)
		if err != nil {
			if ctx.Err() != nil {
				o.finalize(ctx, h, domain.JobStatusCancelled, "")
				return
			}
			// A single bad frame never fails the job
			logger.CtxWarn(ctx, "Detection failed on frame %d: %v", frame.Index, err)
			continue
		}

		track.UpdatePlayers(result.Players)
		track.UpdateBall(result.Ball)

		timestamp := 0.0
		if meta.FPS > 0 {
			timestamp = float64(frame.Index) / meta.FPS
		}
		fr := domain.FrameResult{
			FrameIndex:      frame.Index,
			Timestamp:       timestamp,
			Players:         result.Players,
			Ball:            result.Ball,
			ProcessingTime:  result.ProcessingTime,
			DetectorUsed:    result.DetectorUsed,
			AcceleratorUsed: result.AcceleratorUsed,
		}

		progress := 0.0
		if meta.FrameCount > 0 {
			progress = float64(frame.Index) / float64(meta.FrameCount) * 100
			if progress > 95 {
				progress = 95
			}
		}

		h.mu.Lock()
		job.Results = append(job.Results, fr)
		if ev := shotEvent(&fr, float64(frame.Width)); ev != nil {
			job.Events = append(job.Events, *ev)
		}
		job.Progress = progress
		job.DetectorUsed = result.DetectorUsed
		h.mu.Unlock()

		processed++
		if processed%o.cfg.CheckpointInterval == 0 {
			o.checkpoint(ctx, h)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			o.finalize(ctx, h, domain.JobStatusCancelled, "")
			return
		}
	}

	h.mu.Lock()
	job.Progress = 100
	h.mu.Unlock()

	// Metrics land before the completed status becomes visible
	o.saveMetrics(ctx, h, time.Since(started))
	o.finalize(ctx, h, domain.JobStatusCompleted, "")
}

// setStatus transitions the job and persists the change.
func (o *Orchestrator) setStatus(ctx context.Context, h *jobHandle, status domain.JobStatus) {
	h.mu.Lock()
	h.job.Status = status
	h.mu.Unlock()
	o.checkpoint(ctx, h)
}

// checkpoint persists the current job snapshot. Persistence failures are
// logged, not fatal: the next checkpoint retries.
func (o *Orchestrator) checkpoint(ctx context.Context, h *jobHandle) {
	snap := h.snapshot()
	if err := o.store.Save(context.WithoutCancel(ctx), &snap); err != nil {
		logger.CtxError(ctx, "Checkpoint failed: %v", err)
	}
}

// finalize moves the job to a terminal state and persists it.
func (o *Orchestrator) finalize(ctx context.Context, h *jobHandle, status domain.JobStatus, errMsg string) {
	now := time.Now()
	h.mu.Lock()
	h.job.Status = status
	h.job.ErrorMessage = errMsg
	h.job.CompletedAt = &now
	h.mu.Unlock()
	o.checkpoint(ctx, h)

	logger.With(logger.Fields{
		logger.FieldStatus:   string(status),
		logger.FieldProgress: h.snapshot().Progress,
	}).Info(ctx, "Job %s finished: %s", h.job.ID, status)
}

// saveMetrics computes and persists aggregate metrics for a completed job.
func (o *Orchestrator) saveMetrics(ctx context.Context, h *jobHandle, elapsed time.Duration) {
	snap := h.snapshot()

	var players, balls int
	var confSum float64
	var confCount int
	accelerator := false
	for _, fr := range snap.Results {
		players += len(fr.Players)
		for _, p := range fr.Players {
			confSum += p.Confidence
			confCount++
		}
		if fr.Ball != nil {
			balls++
			confSum += fr.Ball.Confidence
			confCount++
		}
		if fr.AcceleratorUsed {
			accelerator = true
		}
	}
	avgConf := 0.0
	if confCount > 0 {
		avgConf = confSum / float64(confCount)
	}

	metrics := &domain.JobMetrics{
		JobID:           snap.ID,
		ProcessingTime:  elapsed.Seconds(),
		FramesProcessed: len(snap.Results),
		PlayersDetected: players,
		BallsDetected:   balls,
		ShotsDetected:   len(snap.Events),
		AvgConfidence:   avgConf,
		DetectorName:    snap.DetectorUsed,
		AcceleratorUsed: accelerator,
	}
	if err := o.store.SaveMetrics(context.WithoutCancel(ctx), metrics); err != nil {
		logger.CtxError(ctx, "Failed to save metrics: %v", err)
	}
}

// shotEvent returns a shot event when the ball sits inside either goal area.
func shotEvent(fr *domain.FrameResult, frameWidth float64) *domain.Event {
	if fr.Ball == nil || frameWidth <= 0 {
		return nil
	}
	normX := fr.Ball.Position.X / frameWidth
	if normX >= shotZoneFraction && normX <= 1-shotZoneFraction {
		return nil
	}
	return &domain.Event{
		Type:       domain.EventShot,
		Timestamp:  fr.Timestamp,
		Confidence: fr.Ball.Confidence,
		Position:   fr.Ball.Position,
	}
}

// Cancel requests cooperative cancellation of a job.
// Parameters:
//   - ctx: context for store lookups.
//   - id: job ID.
// Returns:
//   - error: domain.ErrJobNotFound for unknown jobs, domain.ErrJobFinished
//     for jobs already in a terminal state.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	o.mu.RLock()
	handle, ok := o.registry[id]
	o.mu.RUnlock()

	if ok {
		// The handle lingers briefly after finalization; a terminal job is
		// already finished even while still registered
		if handle.snapshot().Status.Terminal() {
			return domain.ErrJobFinished
		}
		handle.mu.Lock()
		handle.cancelled = true
		handle.mu.Unlock()
		handle.stop()
		return nil
	}

	job, err := o.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}

	// A pending record with no running goroutine, from a previous process.
	// Mark it cancelled directly so the worker never picks it up.
	now := time.Now()
	job.Status = domain.JobStatusCancelled
	job.CompletedAt = &now
	return o.store.Save(ctx, job)
}

// Status returns the current snapshot of a job, preferring in-memory state
// for active jobs.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.DetectionJob, error) {
	o.mu.RLock()
	handle, ok := o.registry[id]
	o.mu.RUnlock()

	if ok {
		snap := handle.snapshot()
		return &snap, nil
	}
	return o.store.GetByID(ctx, id)
}

// Results returns the full results of a completed job.
// Returns domain.ErrJobNotCompleted while the job is still running or when
// it finished unsuccessfully.
func (o *Orchestrator) Results(ctx context.Context, id string) (*domain.DetectionJob, error) {
	job, err := o.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}
	return job, nil
}

// Metrics returns the aggregate metrics persisted for a job, or
// domain.ErrJobNotFound when none were recorded.
func (o *Orchestrator) Metrics(ctx context.Context, id string) (*domain.JobMetrics, error) {
	return o.store.GetMetrics(ctx, id)
}

// Shutdown cancels all active jobs and waits for their final checkpoints,
// bounded by the context deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.RLock()
	for _, handle := range o.registry {
		handle.mu.Lock()
		handle.cancelled = true
		handle.mu.Unlock()
		handle.stop()
	}
	o.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("shutdown timed out waiting for active jobs")
	}
}
