package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// memObjectStorage is an in-memory ObjectStorage.
type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: make(map[string][]byte)}
}

func (s *memObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (s *memObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(bytes.NewReader(s.objects[key])), nil
}

func (s *memObjectStorage) GetURL(key string) string {
	return "http://storage.local/videos/" + key
}

func (s *memObjectStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func setupVideoRouter(store *memObjectStorage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewVideoHandler(store)
	r.POST("/api/videos", h.Upload)
	r.DELETE("/api/videos/*key", h.Delete)
	return r
}

func multipartVideo(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file failed: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestVideoHandler_Upload(t *testing.T) {
	store := newMemObjectStorage()
	router := setupVideoRouter(store)

	body, contentType := multipartVideo(t, "match.mp4", []byte("fake video bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Key     string `json:"key"`
		Locator string `json:"locator"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !strings.HasPrefix(resp.Key, "videos/") || !strings.HasSuffix(resp.Key, ".mp4") {
		t.Errorf("key = %q, want videos/<id>.mp4", resp.Key)
	}
	if resp.Locator != "storage://"+resp.Key {
		t.Errorf("locator = %q, want storage://%s", resp.Locator, resp.Key)
	}
	if resp.URL == "" {
		t.Error("response missing url")
	}

	exists, err := store.Exists(context.Background(), resp.Key)
	if err != nil || !exists {
		t.Errorf("uploaded object missing from storage (exists=%v, err=%v)", exists, err)
	}
}

func TestVideoHandler_UploadRejectsUnsupportedFormat(t *testing.T) {
	router := setupVideoRouter(newMemObjectStorage())

	body, contentType := multipartVideo(t, "notes.txt", []byte("not a video"))
	req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVideoHandler_UploadRequiresFile(t *testing.T) {
	router := setupVideoRouter(newMemObjectStorage())

	req := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVideoHandler_Delete(t *testing.T) {
	store := newMemObjectStorage()
	router := setupVideoRouter(store)

	key := "videos/abc.mp4"
	if err := store.Upload(context.Background(), key, bytes.NewReader([]byte("x")), 1, "video/mp4"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/videos/"+key, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	exists, _ := store.Exists(context.Background(), key)
	if exists {
		t.Error("object still present after delete")
	}
}

func TestVideoHandler_DeleteMissingObject(t *testing.T) {
	router := setupVideoRouter(newMemObjectStorage())

	req := httptest.NewRequest(http.MethodDelete, "/api/videos/videos/nope.mp4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
