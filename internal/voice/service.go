package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/intent"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Voice response reasons
const (
	ReasonNoAudio = "No audio data"
	ReasonSuccess = "Success"
)

// VoiceRequest is a captured voice command
type VoiceRequest struct {
	Audio        []float64 `json:"audio"`
	SampleRate   int       `json:"sr"`
	WakeWord     string    `json:"wake_word"`
	SilenceRatio *float64  `json:"silence_ratio"`
}

// VoiceResponse is the classified command
type VoiceResponse struct {
	Text       string        `json:"text"`
	Intent     models.Intent `json:"intent"`
	Confidence float64       `json:"confidence,omitempty"`
	Reason     string        `json:"reason"`
	Error      bool          `json:"error,omitempty"`
}

// Service turns raw voice audio into an intent
type Service struct {
	transcriber Transcriber
	resampler   *dsp.Resampler
	cfg         config.VoiceConfig
	logger      zerolog.Logger
}

// NewService creates a voice service
func NewService(transcriber Transcriber, resampler *dsp.Resampler, cfg config.VoiceConfig, logger zerolog.Logger) *Service {
	if cfg.TargetSampleRate <= 0 {
		cfg.TargetSampleRate = WhisperSampleRate
	}
	if resampler == nil {
		resampler = dsp.NewResampler(nil, logger)
	}
	return &Service{
		transcriber: transcriber,
		resampler:   resampler,
		cfg:         cfg,
		logger:      logger.With().Str("component", "voice").Logger(),
	}
}

// HandleVoice transcribes req, checks the wake word and classifies the
// command. It never returns an error; failures become UNKNOWN responses.
func (s *Service) HandleVoice(ctx context.Context, req VoiceRequest) (resp VoiceResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Voice handling panicked")
			resp = VoiceResponse{Intent: models.IntentUnknown, Reason: fmt.Sprint(r), Error: true}
		}
	}()

	if len(req.Audio) == 0 {
		return VoiceResponse{Intent: models.IntentUnknown, Reason: ReasonNoAudio}
	}

	sr := req.SampleRate
	if sr <= 0 {
		sr = WhisperSampleRate
	}
	resampled := s.resampler.Resample(ctx, req.Audio, sr, s.cfg.TargetSampleRate)
	samples := make([]float32, len(resampled))
	for i, v := range resampled {
		samples[i] = float32(v)
	}

	text := ""
	if s.transcriber != nil {
		t, err := s.transcriber.Transcribe(ctx, samples, s.cfg.TargetSampleRate)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Transcription failed")
		} else {
			text = t
		}
	}
	clean := strings.ToLower(strings.TrimSpace(text))

	wake := strings.ToLower(strings.TrimSpace(req.WakeWord))
	if wake == "" {
		wake = strings.ToLower(strings.TrimSpace(s.cfg.WakeWord))
	}
	if wake != "" && !strings.Contains(clean, wake) {
		return VoiceResponse{
			Text:   text,
			Intent: models.IntentUnknown,
			Reason: fmt.Sprintf("Wake word '%s' not detected", wake),
		}
	}

	ratio := dsp.SilenceRatio(req.Audio, dsp.DefaultSilenceThreshold)
	if req.SilenceRatio != nil {
		ratio = *req.SilenceRatio
	}

	in := intent.Classify(text)
	confidence := intent.Round2(intent.ConfidenceScore(in, intent.Signals{SilenceRatio: ratio}))
	metrics.RecordIntent(string(in))
	s.logger.Info().
		Str("text", text).
		Str("intent", string(in)).
		Float64("confidence", confidence).
		Msg("Voice command")

	return VoiceResponse{
		Text:       text,
		Intent:     in,
		Confidence: confidence,
		Reason:     ReasonSuccess,
	}
}
