package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// MockTransformer is a mock implementation of Transformer
type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Apply(ctx context.Context, req models.TransformRequest) models.TransformResult {
	return m.Called(ctx, req).Get(0).(models.TransformResult)
}

// MockArchiver is a mock implementation of Archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) UploadFile(ctx context.Context, objectName, filePath string, metadata map[string]string) error {
	return m.Called(ctx, objectName, filePath, metadata).Error(0)
}

func (m *MockArchiver) GetURL(ctx context.Context, objectName string) (string, error) {
	args := m.Called(ctx, objectName)
	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyJob(ctx context.Context, job *models.TransformJob) error {
	return m.Called(ctx, job).Error(0)
}

func setupStore(t *testing.T) (*jobs.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := jobs.NewStore(config.RedisConfig{Host: mr.Host(), Port: mr.Server().Addr().Port, JobTTL: time.Hour})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		mr.Close()
	})
	return store, mr
}

func TestProcessorCompletesJob(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionColorBoost, InputPath: "/media/clip.mp4"}
	job, err := store.Create(ctx, req, models.JobPriorityNormal, "")
	require.NoError(t, err)

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionColorBoost, "/media/clip_color_boost.mp4", "Color boost applied"))

	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, "worker-1", stored.WorkerID)
	require.NotNil(t, stored.Result)
	assert.Equal(t, "/media/clip_color_boost.mp4", stored.Result.OutputPath)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)
	assert.Empty(t, stored.ObjectKey)

	// Lock is released once the job is done
	acquired, err := store.AcquireLock(ctx, job.ID, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, int64(0), proc.inProgress.Load())
	transformer.AssertExpectations(t)
}

func TestProcessorRecordsTransformFailure(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionCutClip, InputPath: "/media/clip.mp4"}
	job, err := store.Create(ctx, req, models.JobPriorityNormal, "")
	require.NoError(t, err)

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.ErrorResult(models.ActionCutClip, errors.New("File not found")))

	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	// Transform failures are final and never retried
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	assert.Equal(t, "File not found", stored.ErrorMsg)

	failed, err := store.Stat(ctx, "jobs_failed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)
}

func TestProcessorArchivesOutput(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionNormalizeAudio, InputPath: "/media/voice.wav"}
	job, err := store.Create(ctx, req, models.JobPriorityHigh, "")
	require.NoError(t, err)

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionNormalizeAudio, "/media/voice_norm.wav", "Audio normalized"))

	key := "derived/" + job.ID + "/voice_norm.wav"
	archiver := new(MockArchiver)
	archiver.On("UploadFile", mock.Anything, key, "/media/voice_norm.wav", map[string]string{
		"job-id": job.ID,
		"action": models.ActionNormalizeAudio,
	}).Return(nil)
	archiver.On("GetURL", mock.Anything, key).Return("https://minio.local/"+key, nil)

	proc := newProcessor(store, transformer, archiver, nil, "worker-2", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, key, stored.ObjectKey)
	assert.Equal(t, "https://minio.local/"+key, stored.ObjectURL)
	archiver.AssertExpectations(t)
}

func TestProcessorArchiveFailureKeepsJobCompleted(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionSmartCrop, InputPath: "/media/clip.mp4"}
	job, err := store.Create(ctx, req, models.JobPriorityNormal, "")
	require.NoError(t, err)

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionSmartCrop, "/media/clip_smart_crop.mp4", "Smart crop applied"))

	archiver := new(MockArchiver)
	archiver.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket missing"))

	proc := newProcessor(store, transformer, archiver, nil, "worker-1", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Empty(t, stored.ObjectKey)
	archiver.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything)
}

func TestProcessorSkipsLockedJob(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, models.TransformRequest{Action: models.ActionUpscaleAI, InputPath: "/media/clip.mp4"}, models.JobPriorityNormal, "")
	require.NoError(t, err)

	acquired, err := store.AcquireLock(ctx, job.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	transformer := new(MockTransformer)
	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 1))

	transformer.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, stored.Status)
}

func TestProcessorSkipsFinishedJob(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, models.TransformRequest{Action: models.ActionUpscaleAI, InputPath: "/media/clip.mp4"}, models.JobPriorityNormal, "")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, job, models.SuccessResult(models.ActionUpscaleAI, "/media/clip_upscaled.mp4", "done")))

	transformer := new(MockTransformer)
	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 0))

	transformer.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestProcessorUsesMessageWhenRecordExpired(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionPassthrough, InputPath: "/media/clip.mp4"}
	job := &models.TransformJob{ID: "expired-job", Request: req, Status: models.JobStatusQueued}

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionPassthrough, "/media/clip_processed.mp4", "Processed"))

	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, "expired-job")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
}

func TestProcessorStoreUnavailable(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	job := &models.TransformJob{ID: "job-x", Request: models.TransformRequest{Action: models.ActionCutClip}}
	mr.Close()

	transformer := new(MockTransformer)
	proc := newProcessor(store, transformer, nil, nil, "worker-1", zerolog.Nop())
	err := proc.handle(ctx, job, 0)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to lock job")
	transformer.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestProcessorNotifiesCallback(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	req := models.TransformRequest{Action: models.ActionSceneCut, InputPath: "/media/clip.mp4"}
	job, err := store.Create(ctx, req, models.JobPriorityNormal, "https://example.com/hooks")
	require.NoError(t, err)

	transformer := new(MockTransformer)
	transformer.On("Apply", mock.Anything, req).Return(
		models.SuccessResult(models.ActionSceneCut, "", "Detected 1 scene cuts: 2.00s"))

	notifier := new(MockNotifier)
	notifier.On("NotifyJob", mock.Anything, mock.MatchedBy(func(j *models.TransformJob) bool {
		return j.ID == job.ID && j.Status == models.JobStatusCompleted && j.CallbackURL == "https://example.com/hooks"
	})).Return(errors.New("callback returned 500"))

	proc := newProcessor(store, transformer, nil, notifier, "worker-1", zerolog.Nop())
	// A failing callback does not fail the job
	require.NoError(t, proc.handle(ctx, job, 0))

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	notifier.AssertExpectations(t)
}
