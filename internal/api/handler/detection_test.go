package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/pitchtrack/internal/domain"
)

// memJobIndex is an in-memory JobIndex.
type memJobIndex struct {
	jobs []domain.DetectionJob
}

func (idx *memJobIndex) ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.DetectionJob, error) {
	var out []domain.DetectionJob
	for _, job := range idx.jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (idx *memJobIndex) CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error) {
	var n int64
	for _, job := range idx.jobs {
		if job.Status == status {
			n++
		}
	}
	return n, nil
}

func setupListRouter(idx JobIndex) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDetectionHandler(nil, idx)
	r.GET("/api/detect/jobs", h.List)
	return r
}

func TestDetectionHandler_List(t *testing.T) {
	now := time.Now()
	idx := &memJobIndex{jobs: []domain.DetectionJob{
		{ID: "a", Status: domain.JobStatusCompleted, Progress: 100, CreatedAt: now},
		{ID: "b", Status: domain.JobStatusCompleted, Progress: 100, CreatedAt: now},
		{ID: "c", Status: domain.JobStatusFailed, CreatedAt: now},
	}}
	router := setupListRouter(idx)

	req := httptest.NewRequest(http.MethodGet, "/api/detect/jobs?status=completed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Jobs []struct {
			JobID string `json:"job_id"`
		} `json:"jobs"`
		Total  int64 `json:"total"`
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("got %d jobs, want 2", len(resp.Jobs))
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	if resp.Limit != 20 {
		t.Errorf("limit = %d, want default 20", resp.Limit)
	}
}

func TestDetectionHandler_ListPagination(t *testing.T) {
	now := time.Now()
	idx := &memJobIndex{jobs: []domain.DetectionJob{
		{ID: "a", Status: domain.JobStatusCompleted, CreatedAt: now},
		{ID: "b", Status: domain.JobStatusCompleted, CreatedAt: now},
		{ID: "c", Status: domain.JobStatusCompleted, CreatedAt: now},
	}}
	router := setupListRouter(idx)

	req := httptest.NewRequest(http.MethodGet, "/api/detect/jobs?status=completed&limit=2&offset=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Jobs  []json.RawMessage `json:"jobs"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Errorf("got %d jobs, want 1", len(resp.Jobs))
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
}

func TestDetectionHandler_ListRejectsUnknownStatus(t *testing.T) {
	router := setupListRouter(&memJobIndex{})

	req := httptest.NewRequest(http.MethodGet, "/api/detect/jobs?status=exploded", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestWriteJobError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &domain.ValidationError{Field: "videoUrl", Reason: "required"}, want: http.StatusBadRequest},
		{name: "capacity", err: &domain.CapacityError{Limit: 3}, want: http.StatusTooManyRequests},
		{name: "source", err: &domain.SourceError{Locator: "x", Err: errors.New("boom")}, want: http.StatusBadRequest},
		{name: "not found", err: domain.ErrJobNotFound, want: http.StatusNotFound},
		{name: "not completed", err: domain.ErrJobNotCompleted, want: http.StatusBadRequest},
		{name: "finished", err: domain.ErrJobFinished, want: http.StatusConflict},
		{name: "internal", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeJobError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
