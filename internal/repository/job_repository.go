package repository

import (
	"context"
	"errors"

	"github.com/timmy/pitchtrack/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository handles detection job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Save creates or updates a job record keyed by ID. The orchestrator calls
// this on every checkpoint, so it must be safe to call repeatedly.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: job record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *JobRepository) Save(ctx context.Context, job *domain.DetectionJob) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.DetectionJob: job record if found.
//   - error: domain.ErrJobNotFound if no record exists, or the query error.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.DetectionJob, error) {
	var job domain.DetectionJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListByStatus retrieves jobs by status with pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: job status to filter by.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.DetectionJob: matching job records.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.DetectionJob, error) {
	var jobs []domain.DetectionJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// OldestPending retrieves the pending job that has waited the longest.
// Used by the worker poll loop.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.DetectionJob: oldest pending job, or nil if none exist.
//   - error: non-nil if the query fails.
func (r *JobRepository) OldestPending(ctx context.Context) (*domain.DetectionJob, error) {
	var job domain.DetectionJob
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// CountByStatus counts jobs by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: job status to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *JobRepository) CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.DetectionJob{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveMetrics persists aggregate metrics for a completed job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - metrics: metrics record to persist.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *JobRepository) SaveMetrics(ctx context.Context, metrics *domain.JobMetrics) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(metrics).Error
}

// GetMetrics retrieves metrics for a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job ID.
// Returns:
//   - *domain.JobMetrics: metrics record if found.
//   - error: domain.ErrJobNotFound if no record exists, or the query error.
func (r *JobRepository) GetMetrics(ctx context.Context, jobID string) (*domain.JobMetrics, error) {
	var m domain.JobMetrics
	if err := r.db.WithContext(ctx).First(&m, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return &m, nil
}
