package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/queue"
	"github.com/nexusdata/nexusdata/internal/service"
	"github.com/nexusdata/nexusdata/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	handler *TaskHandler
	store   *store.MemoryTaskStore
	queue   *queue.AdmissionQueue
	router  chi.Router
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	logger := testLogger()
	taskStore := store.NewMemoryTaskStore()
	q := queue.New(capacity, logger)
	handler := NewTaskHandler(service.NewTaskService(taskStore, q, logger), logger)

	r := chi.NewRouter()
	r.Post("/api/v1/mask/", handler.SubmitMask)
	r.Get("/api/v1/mask/{taskID}", handler.GetMask)
	r.Post("/api/v1/embedding/", handler.SubmitEmbedding)
	r.Get("/api/v1/embedding/{taskID}", handler.GetEmbedding)
	r.Post("/api/v1/rerank/", handler.SubmitRerank)
	r.Get("/api/v1/rerank/{taskID}", handler.GetRerank)
	r.Get("/api/v1/queue/status", handler.QueueStatus)

	return &fixture{handler: handler, store: taskStore, queue: q, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(blob)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitMaskAdmitsTask(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodPost, "/api/v1/mask/", MaskTaskRequest{
		Text:     "联系电话13812345678",
		Strategy: "asterisk",
		Schema:   []string{"手机号"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "pending", resp.Status)

	stored, err := f.store.Get(context.Background(), resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeMask, stored.Type)
	assert.Equal(t, 1, f.queue.Status().Waiting)
}

func TestSubmitMaskRejectsMissingFields(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodPost, "/api/v1/mask/", map[string]any{"text": "no strategy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/mask/", map[string]any{"strategy": "md5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRejectsInvalidHandle(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodPost, "/api/v1/embedding/", map[string]any{
		"text":   "embed me",
		"handle": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitQueueFullReturnsServiceUnavailable(t *testing.T) {
	f := newFixture(t, 1)

	rec := f.do(t, http.MethodPost, "/api/v1/embedding/", EmbeddingTaskRequest{Text: "first"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/embedding/", EmbeddingTaskRequest{Text: "second"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "queue is full")
}

type errorBody struct {
	Error string `json:"error"`
}

func TestGetTaskReturnsFlatRecord(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodPost, "/api/v1/rerank/", RerankTaskRequest{
		Query: "best match",
		Texts: []string{"a", "b"},
		TopK:  1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = f.do(t, http.MethodGet, "/api/v1/rerank/"+resp.TaskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, resp.TaskID, body["task_id"])
	assert.Equal(t, "rerank", body["type"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "best match", body["query"])
}

func TestGetTaskUnknownIDReturnsNotFound(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodGet, "/api/v1/mask/"+domain.NewTaskID(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskWrongTypePathReturnsNotFound(t *testing.T) {
	f := newFixture(t, 8)

	rec := f.do(t, http.MethodPost, "/api/v1/embedding/", EmbeddingTaskRequest{Text: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = f.do(t, http.MethodGet, "/api/v1/mask/"+resp.TaskID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueStatusReportsCounts(t *testing.T) {
	f := newFixture(t, 8)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/embedding/", EmbeddingTaskRequest{Text: "x"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	_, ok := f.queue.Dequeue()
	require.True(t, ok)

	rec := f.do(t, http.MethodGet, "/api/v1/queue/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status queue.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Waiting)
	assert.Equal(t, 1, status.Processing)
	assert.Len(t, status.InFlight, 1)
}

type stubRecognizer struct {
	text string
	err  error
}

func (s *stubRecognizer) RecognizeText(_ context.Context, _ string, _ []byte) (string, error) {
	return s.text, s.err
}

func TestRecognizeImage(t *testing.T) {
	handler := NewOCRHandler(&stubRecognizer{text: "识别结果"}, testLogger())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "scan.png")
	require.NoError(t, err)
	// Minimal PNG header so content-type sniffing sees an image.
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n00000000"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ocr/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.RecognizeImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OCRResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "识别结果", resp.Text)
}

func TestRecognizeImageRejectsNonImage(t *testing.T) {
	handler := NewOCRHandler(&stubRecognizer{text: "x"}, testLogger())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text, not an image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ocr/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.RecognizeImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecognizeImageMissingFile(t *testing.T) {
	handler := NewOCRHandler(&stubRecognizer{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ocr/image", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rec := httptest.NewRecorder()
	handler.RecognizeImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
