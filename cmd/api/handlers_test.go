package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/middleware"
	"github.com/therealutkarshpriyadarshi/aiva/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/aiva/internal/voice"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// MockAnalyzer is a mock implementation of Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, path string) []models.Suggestion {
	args := m.Called(ctx, path)
	return args.Get(0).([]models.Suggestion)
}

func (m *MockAnalyzer) Stats(ctx context.Context, path string) models.MediaStats {
	args := m.Called(ctx, path)
	return args.Get(0).(models.MediaStats)
}

func (m *MockAnalyzer) DetectScenes(ctx context.Context, path string) ([]models.Scene, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Scene), args.Error(1)
}

// MockTransformer is a mock implementation of Transformer
type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Apply(ctx context.Context, req models.TransformRequest) models.TransformResult {
	args := m.Called(ctx, req)
	return args.Get(0).(models.TransformResult)
}

func (m *MockTransformer) Actions() []string {
	return m.Called().Get(0).([]string)
}

// MockVoice is a mock implementation of VoiceHandler
type MockVoice struct {
	mock.Mock
}

func (m *MockVoice) HandleVoice(ctx context.Context, req voice.VoiceRequest) voice.VoiceResponse {
	args := m.Called(ctx, req)
	return args.Get(0).(voice.VoiceResponse)
}

// MockTranscriber is a mock implementation of FileTranscriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) TranscribeFile(ctx context.Context, path string) (*models.Transcript, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transcript), args.Error(1)
}

// MockJobStore is a mock implementation of JobStore
type MockJobStore struct {
	mock.Mock
}

func (m *MockJobStore) Create(ctx context.Context, req models.TransformRequest, priority int, callbackURL string) (*models.TransformJob, error) {
	args := m.Called(ctx, req, priority, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransformJob), args.Error(1)
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*models.TransformJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransformJob), args.Error(1)
}

func (m *MockJobStore) Save(ctx context.Context, job *models.TransformJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPublisher is a mock implementation of JobPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJob(ctx context.Context, job *models.TransformJob) error {
	return m.Called(ctx, job).Error(0)
}

// stubStatus is a fixed StatusReporter
type stubStatus struct {
	metrics monitoring.Metrics
	workers []monitoring.WorkerHealth
	health  string
	alerts  []string
}

func (s *stubStatus) GetMetrics() monitoring.Metrics              { return s.metrics }
func (s *stubStatus) GetWorkerHealth() []monitoring.WorkerHealth { return s.workers }
func (s *stubStatus) GetSystemHealth() string                    { return s.health }
func (s *stubStatus) GetAlerts() []string                        { return s.alerts }

type testAPI struct {
	api         *API
	analyzer    *MockAnalyzer
	transformer *MockTransformer
	voice       *MockVoice
	transcriber *MockTranscriber
	jobs        *MockJobStore
	publisher   *MockPublisher
	router      *gin.Engine
}

func setupTestAPI(t *testing.T, withJobs bool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ta := &testAPI{
		analyzer:    new(MockAnalyzer),
		transformer: new(MockTransformer),
		voice:       new(MockVoice),
		transcriber: new(MockTranscriber),
		jobs:        new(MockJobStore),
		publisher:   new(MockPublisher),
	}
	ta.api = &API{
		analyzer:    ta.analyzer,
		transformer: ta.transformer,
		voice:       ta.voice,
		transcriber: ta.transcriber,
		logger:      zerolog.Nop(),
	}
	if withJobs {
		ta.api.jobs = ta.jobs
		ta.api.publisher = ta.publisher
	}

	ta.router = setupRouter(ta.api, config.Default(), middleware.NewRateLimiter(1000, 1000))
	return ta
}

func (ta *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func tempMedia(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0o644))
	return path
}

func TestRootAndHealth(t *testing.T) {
	ta := setupTestAPI(t, false)

	w := ta.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AIVA backend running", decode(t, w)["status"])

	w = ta.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestHealthReportsJobStoreFailure(t *testing.T) {
	ta := setupTestAPI(t, true)
	ta.jobs.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	w := ta.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "connection refused", body["error"])
}

func TestAnalyze(t *testing.T) {
	ta := setupTestAPI(t, false)
	path := tempMedia(t, "clip.mp4")
	suggestions := []models.Suggestion{
		{ID: models.SuggestionBrighten, Title: "Brighten Video", Action: "color_boost"},
	}
	ta.analyzer.On("Analyze", mock.Anything, path).Return(suggestions)

	w := ta.do(t, http.MethodPost, "/api/v1/analyze", gin.H{"file_path": path})

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, suggestions, body.Suggestions)
	ta.analyzer.AssertExpectations(t)
}

func TestAnalyzeMissingFile(t *testing.T) {
	ta := setupTestAPI(t, false)

	w := ta.do(t, http.MethodPost, "/api/v1/analyze", gin.H{"file_path": "/no/such/file.mp4"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["suggestions"])
	assert.Equal(t, "File not found", body["error"])
	ta.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestStats(t *testing.T) {
	ta := setupTestAPI(t, false)
	path := tempMedia(t, "voice.wav")
	level := -32.5
	ta.analyzer.On("Stats", mock.Anything, path).Return(models.MediaStats{
		Path:         path,
		Kind:         models.MediaKindAudio,
		AudioLevelDB: &level,
	})

	w := ta.do(t, http.MethodPost, "/api/v1/stats", gin.H{"file_path": path})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "audio", body["kind"])
	assert.Equal(t, -32.5, body["audio_level_db"])
	assert.NotContains(t, body, "mean_brightness")
}

func TestApply(t *testing.T) {
	ta := setupTestAPI(t, false)
	req := models.TransformRequest{
		Action:     models.ActionColorGrade,
		InputPath:  "/media/clip.mp4",
		Parameters: models.Parameters{"contrast": 1.3},
	}
	ta.transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionColorGrade, "/media/clip_graded.mp4", "Color grade applied"))

	w := ta.do(t, http.MethodPost, "/api/v1/apply", req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "/media/clip_graded.mp4", body["output_file"])
	assert.Equal(t, "color_grade", body["action_taken"])
	ta.transformer.AssertExpectations(t)
}

func TestActions(t *testing.T) {
	ta := setupTestAPI(t, false)
	ta.transformer.On("Actions").Return([]string{"color_grade", "passthrough", "stabilize_video"})

	w := ta.do(t, http.MethodGet, "/api/v1/actions", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	actions := decode(t, w)["actions"].([]interface{})
	assert.Equal(t, []interface{}{"color_grade", "passthrough", "stabilize_video"}, actions)
}

func TestApplyInvalidBody(t *testing.T) {
	ta := setupTestAPI(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/apply", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		body       gin.H
		intent     string
		confidence float64
	}{
		{
			name:       "transport intent",
			body:       gin.H{"text": "Cut here"},
			intent:     "CUT",
			confidence: 0.85,
		},
		{
			name:       "silence without signals",
			body:       gin.H{"text": "remove silence please"},
			intent:     "REMOVE_SILENCE",
			confidence: 0.7,
		},
		{
			name:       "silence with signals",
			body:       gin.H{"text": "remove silence", "signals": gin.H{"silence_ratio": 0.9}},
			intent:     "REMOVE_SILENCE",
			confidence: 0.95,
		},
		{
			name:       "unknown",
			body:       gin.H{"text": "hello there"},
			intent:     "UNKNOWN",
			confidence: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupTestAPI(t, false)

			w := ta.do(t, http.MethodPost, "/api/v1/classify", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.intent, body["intent"])
			assert.InDelta(t, tt.confidence, body["confidence"], 1e-9)
		})
	}
}

func TestVoice(t *testing.T) {
	ta := setupTestAPI(t, false)
	ratio := 0.5
	req := voice.VoiceRequest{
		Audio:        []float64{0.1, -0.1, 0.2},
		SampleRate:   48000,
		WakeWord:     "jarvis",
		SilenceRatio: &ratio,
	}
	ta.voice.On("HandleVoice", mock.Anything, req).Return(voice.VoiceResponse{
		Text:       "jarvis cut",
		Intent:     models.IntentCut,
		Confidence: 0.85,
		Reason:     voice.ReasonSuccess,
	})

	w := ta.do(t, http.MethodPost, "/api/v1/voice", req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "CUT", body["intent"])
	assert.Equal(t, "Success", body["reason"])
	assert.NotContains(t, body, "error")
	ta.voice.AssertExpectations(t)
}

func TestTranscribe(t *testing.T) {
	ta := setupTestAPI(t, false)
	path := tempMedia(t, "talk.mp4")
	ta.transcriber.On("TranscribeFile", mock.Anything, path).Return(&models.Transcript{Text: "hello world"}, nil)

	w := ta.do(t, http.MethodPost, "/api/v1/transcribe", gin.H{"file_path": path})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "hello world", body["transcription"])
}

func TestTranscribeFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ta := setupTestAPI(t, false)
		w := ta.do(t, http.MethodPost, "/api/v1/transcribe", gin.H{"file_path": "/no/such.wav"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "File not found", decode(t, w)["message"])
	})

	t.Run("transcriber error", func(t *testing.T) {
		ta := setupTestAPI(t, false)
		path := tempMedia(t, "talk.wav")
		ta.transcriber.On("TranscribeFile", mock.Anything, path).Return(nil, errors.New("model missing"))

		w := ta.do(t, http.MethodPost, "/api/v1/transcribe", gin.H{"file_path": path})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "model missing", body["message"])
	})

	t.Run("not configured", func(t *testing.T) {
		ta := setupTestAPI(t, false)
		ta.api.transcriber = nil
		path := tempMedia(t, "talk.wav")

		w := ta.do(t, http.MethodPost, "/api/v1/transcribe", gin.H{"file_path": path})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestScenes(t *testing.T) {
	ta := setupTestAPI(t, false)
	path := tempMedia(t, "clip.mp4")
	ta.analyzer.On("DetectScenes", mock.Anything, path).Return([]models.Scene{
		{Time: 2.5, Frame: 75},
		{Time: 8, Frame: 240},
	}, nil)

	w := ta.do(t, http.MethodPost, "/api/v1/scenes", gin.H{"file_path": path})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["scenes"], 2)
	assert.NotContains(t, body, "message")
}

func TestScenesNoChanges(t *testing.T) {
	ta := setupTestAPI(t, false)
	path := tempMedia(t, "static.mp4")
	ta.analyzer.On("DetectScenes", mock.Anything, path).Return(nil, nil)

	w := ta.do(t, http.MethodPost, "/api/v1/scenes", gin.H{"file_path": path})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["scenes"])
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, "No scene changes detected", body["message"])
}

func TestCreateJob(t *testing.T) {
	ta := setupTestAPI(t, true)
	path := tempMedia(t, "clip.mp4")
	req := models.TransformRequest{Action: models.ActionSmartCrop, InputPath: path}
	job := &models.TransformJob{ID: "job-1", Request: req, Status: models.JobStatusQueued, Priority: models.JobPriorityHigh}

	ta.jobs.On("Create", mock.Anything, req, models.JobPriorityHigh, "https://example.com/hooks").Return(job, nil)
	ta.publisher.On("PublishJob", mock.Anything, job).Return(nil)

	w := ta.do(t, http.MethodPost, "/api/v1/jobs", gin.H{
		"action":    models.ActionSmartCrop,
		"file_path": path,
		"priority":     models.JobPriorityHigh,
		"callback_url": "https://example.com/hooks",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "job-1", body["id"])
	assert.Equal(t, "queued", body["status"])
	ta.jobs.AssertExpectations(t)
	ta.publisher.AssertExpectations(t)
}

func TestCreateJobDefaultsPriority(t *testing.T) {
	ta := setupTestAPI(t, true)
	path := tempMedia(t, "voice.wav")
	req := models.TransformRequest{Action: models.ActionNormalizeAudio, InputPath: path}
	job := &models.TransformJob{ID: "job-2", Request: req, Status: models.JobStatusQueued}

	ta.jobs.On("Create", mock.Anything, req, models.JobPriorityNormal, "").Return(job, nil)
	ta.publisher.On("PublishJob", mock.Anything, job).Return(nil)

	w := ta.do(t, http.MethodPost, "/api/v1/jobs", gin.H{"action": models.ActionNormalizeAudio, "file_path": path})

	assert.Equal(t, http.StatusAccepted, w.Code)
	ta.jobs.AssertExpectations(t)
}

func TestCreateJobPublishFailure(t *testing.T) {
	ta := setupTestAPI(t, true)
	path := tempMedia(t, "clip.mp4")
	req := models.TransformRequest{Action: models.ActionUpscaleAI, InputPath: path}
	job := &models.TransformJob{ID: "job-3", Request: req, Status: models.JobStatusQueued}

	ta.jobs.On("Create", mock.Anything, req, models.JobPriorityNormal, "").Return(job, nil)
	ta.publisher.On("PublishJob", mock.Anything, job).Return(errors.New("channel closed"))
	ta.jobs.On("Save", mock.Anything, mock.MatchedBy(func(j *models.TransformJob) bool {
		return j.Status == models.JobStatusFailed && j.ErrorMsg == "channel closed"
	})).Return(nil)

	w := ta.do(t, http.MethodPost, "/api/v1/jobs", gin.H{"action": models.ActionUpscaleAI, "file_path": path})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "channel closed")
	ta.jobs.AssertExpectations(t)
}

func TestCreateJobValidation(t *testing.T) {
	path := tempMedia(t, "clip.mp4")

	tests := []struct {
		name     string
		withJobs bool
		body     gin.H
		status   int
	}{
		{"queue disabled", false, gin.H{"action": "cut_clip", "file_path": path}, http.StatusServiceUnavailable},
		{"missing action", true, gin.H{"file_path": path}, http.StatusBadRequest},
		{"missing file", true, gin.H{"action": "cut_clip", "file_path": "/no/such.mp4"}, http.StatusNotFound},
		{"bad callback", true, gin.H{"action": "cut_clip", "file_path": path, "callback_url": "ftp://example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupTestAPI(t, tt.withJobs)
			w := ta.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.status, w.Code)
			ta.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetJob(t *testing.T) {
	ta := setupTestAPI(t, true)
	result := models.SuccessResult(models.ActionSmartCrop, "/media/clip_cropped.mp4", "done")
	ta.jobs.On("Get", mock.Anything, "job-1").Return(&models.TransformJob{
		ID:     "job-1",
		Status: models.JobStatusCompleted,
		Result: &result,
	}, nil)
	ta.jobs.On("Get", mock.Anything, "missing").Return(nil, jobs.ErrJobNotFound)

	w := ta.do(t, http.MethodGet, "/api/v1/jobs/job-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "/media/clip_cropped.mp4", body["result"].(map[string]interface{})["output_file"])

	w = ta.do(t, http.MethodGet, "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job not found", decode(t, w)["error"])
}

func TestAuthEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Auth.Enabled = true

	api := &API{analyzer: new(MockAnalyzer), logger: zerolog.Nop()}
	router := setupRouter(api, cfg, middleware.NewRateLimiter(10, 10))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemStatus(t *testing.T) {
	ta := setupTestAPI(t, true)

	w := ta.do(t, http.MethodGet, "/api/v1/system/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ta.api.status = &stubStatus{
		metrics: monitoring.Metrics{QueueDepth: 3, TotalJobs: 10, CompletedJobs: 7, WorkerCount: 1, HealthyWorkers: 1},
		workers: []monitoring.WorkerHealth{{WorkerID: "worker-a", Status: monitoring.StatusHealthy}},
		health:  monitoring.StatusHealthy,
		alerts:  []string{},
	}

	w = ta.do(t, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["health"])
	assert.Equal(t, float64(3), body["metrics"].(map[string]interface{})["queue_depth"])
	assert.Equal(t, float64(10), body["metrics"].(map[string]interface{})["total_jobs"])
	workers := body["workers"].([]interface{})
	require.Len(t, workers, 1)
	assert.Equal(t, "worker-a", workers[0].(map[string]interface{})["worker_id"])
	assert.Empty(t, body["alerts"])
}
