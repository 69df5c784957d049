package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/intent"
	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/aiva/internal/voice"
	"github.com/therealutkarshpriyadarshi/aiva/internal/webhook"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Analyzer derives suggestions, statistics and scene cuts from a file
type Analyzer interface {
	Analyze(ctx context.Context, path string) []models.Suggestion
	Stats(ctx context.Context, path string) models.MediaStats
	DetectScenes(ctx context.Context, path string) ([]models.Scene, error)
}

// Transformer applies an action to a file
type Transformer interface {
	Apply(ctx context.Context, req models.TransformRequest) models.TransformResult
	Actions() []string
}

// VoiceHandler classifies a captured voice command
type VoiceHandler interface {
	HandleVoice(ctx context.Context, req voice.VoiceRequest) voice.VoiceResponse
}

// FileTranscriber transcribes the audio track of a file
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (*models.Transcript, error)
}

// JobStore persists asynchronous transform jobs
type JobStore interface {
	Create(ctx context.Context, req models.TransformRequest, priority int, callbackURL string) (*models.TransformJob, error)
	Get(ctx context.Context, id string) (*models.TransformJob, error)
	Save(ctx context.Context, job *models.TransformJob) error
	Ping(ctx context.Context) error
}

// JobPublisher hands jobs to the worker queue
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.TransformJob) error
}

// StatusReporter summarizes the job pipeline
type StatusReporter interface {
	GetMetrics() monitoring.Metrics
	GetWorkerHealth() []monitoring.WorkerHealth
	GetSystemHealth() string
	GetAlerts() []string
}

// API holds the collaborators behind the HTTP handlers
type API struct {
	analyzer    Analyzer
	transformer Transformer
	voice       VoiceHandler
	transcriber FileTranscriber
	jobs        JobStore
	publisher   JobPublisher
	status      StatusReporter
	logger      zerolog.Logger
}

type fileRequest struct {
	FilePath string `json:"file_path"`
}

type classifyRequest struct {
	Text    string          `json:"text"`
	Signals *intent.Signals `json:"signals"`
}

type jobRequest struct {
	models.TransformRequest
	Priority    *int   `json:"priority"`
	CallbackURL string `json:"callback_url"`
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func errorResponse(message string) gin.H {
	return gin.H{"status": models.TransformStatusError, "message": message}
}

// root reports that the service is running
func (api *API) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "AIVA backend running"})
}

// healthCheck reports the state of the optional job store
func (api *API) healthCheck(c *gin.Context) {
	if api.jobs != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := api.jobs.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// analyze returns the suggestion list for a file
func (api *API) analyze(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"suggestions": []models.Suggestion{}, "error": err.Error()})
		return
	}

	if !fileExists(req.FilePath) {
		c.JSON(http.StatusNotFound, gin.H{"suggestions": []models.Suggestion{}, "error": models.ErrNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": api.analyzer.Analyze(c.Request.Context(), req.FilePath)})
}

// stats returns the raw signal statistics for a file
func (api *API) stats(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !fileExists(req.FilePath) {
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, api.analyzer.Stats(c.Request.Context(), req.FilePath))
}

// apply runs a transform synchronously
func (api *API) apply(c *gin.Context) {
	var req models.TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// The transform outlives a dropped client; its output is still written
	result := api.transformer.Apply(context.WithoutCancel(c.Request.Context()), req)
	c.JSON(http.StatusOK, result)
}

// actions lists the transform actions with a registered strategy
func (api *API) actions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": api.transformer.Actions()})
}

// classify maps text to an intent
func (api *API) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"intent": models.IntentUnknown, "error": err.Error()})
		return
	}

	signals := intent.Signals{SilenceRatio: intent.DefaultSilenceRatio}
	if req.Signals != nil {
		signals = *req.Signals
	}

	result := intent.Classify(req.Text)
	metrics.RecordIntent(string(result))
	c.JSON(http.StatusOK, gin.H{
		"intent":     result,
		"confidence": intent.Round2(intent.ConfidenceScore(result, signals)),
	})
}

// handleVoice transcribes and classifies a voice command
func (api *API) handleVoice(c *gin.Context) {
	var req voice.VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, voice.VoiceResponse{Intent: models.IntentUnknown, Reason: err.Error(), Error: true})
		return
	}

	c.JSON(http.StatusOK, api.voice.HandleVoice(c.Request.Context(), req))
}

// transcribe returns the transcript text of a file
func (api *API) transcribe(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if !fileExists(req.FilePath) {
		c.JSON(http.StatusNotFound, errorResponse(models.ErrNotFound.Error()))
		return
	}

	if api.transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("transcription service not configured"))
		return
	}

	transcript, err := api.transcriber.TranscribeFile(c.Request.Context(), req.FilePath)
	if err != nil {
		api.logger.Error().Err(err).Str("path", req.FilePath).Msg("Transcription failed")
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        models.TransformStatusSuccess,
		"transcription": transcript.Text,
	})
}

// scenes lists the scene changes of a video
func (api *API) scenes(c *gin.Context) {
	var req fileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if !fileExists(req.FilePath) {
		c.JSON(http.StatusNotFound, errorResponse(models.ErrNotFound.Error()))
		return
	}

	scenes, err := api.analyzer.DetectScenes(c.Request.Context(), req.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}
	if scenes == nil {
		scenes = []models.Scene{}
	}

	resp := gin.H{
		"status": models.TransformStatusSuccess,
		"scenes": scenes,
		"count":  len(scenes),
	}
	if len(scenes) == 0 {
		resp["message"] = "No scene changes detected"
	}
	c.JSON(http.StatusOK, resp)
}

// createJob queues a transform for a worker
func (api *API) createJob(c *gin.Context) {
	if api.jobs == nil || api.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}
	if req.CallbackURL != "" {
		if err := webhook.ValidateURL(req.CallbackURL); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if !fileExists(req.InputPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrNotFound.Error()})
		return
	}

	priority := models.JobPriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}

	ctx := c.Request.Context()
	job, err := api.jobs.Create(ctx, req.TransformRequest, priority, req.CallbackURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job: " + err.Error()})
		return
	}

	if err := api.publisher.PublishJob(ctx, job); err != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMsg = err.Error()
		if saveErr := api.jobs.Save(ctx, job); saveErr != nil {
			api.logger.Error().Err(saveErr).Str("job_id", job.ID).Msg("Failed to record publish failure")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue job: " + err.Error()})
		return
	}

	metrics.RecordJobCreated(req.Action)
	api.logger.Info().
		Str("job_id", job.ID).
		Str("action", req.Action).
		Int("priority", priority).
		Msg("Job queued")

	c.JSON(http.StatusAccepted, job)
}

// getJob returns a queued job and its result
func (api *API) getJob(c *gin.Context) {
	if api.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
		return
	}

	job, err := api.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

// systemStatus reports queue depths, job counters and worker health
func (api *API) systemStatus(c *gin.Context) {
	if api.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"health":  api.status.GetSystemHealth(),
		"metrics": api.status.GetMetrics(),
		"workers": api.status.GetWorkerHealth(),
		"alerts":  api.status.GetAlerts(),
	})
}
