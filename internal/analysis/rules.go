package analysis

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Heuristic thresholds
const (
	LowAudioDB       = -40.0
	ClipAudioDB      = -5.0
	MinHDWidth       = 1280
	BrightnessCutoff = 60.0
)

// Suggest maps gathered statistics to the ordered, de-duplicated
// suggestion list. The result is never empty.
func Suggest(stats models.MediaStats) []models.Suggestion {
	var out []models.Suggestion

	out = append(out, audioSuggestions(stats)...)
	if stats.Kind == models.MediaKindVideo {
		out = append(out, videoSuggestions(stats)...)
	}
	out = append(out, baselineSuggestions(stats.Kind)...)

	out = models.DedupeSuggestions(out)
	if len(out) == 0 {
		out = append(out, models.Suggestion{
			ID:          models.SuggestionSmartEnhance,
			Title:       "Smart Enhance",
			Description: "AI auto-optimization",
			Action:      models.ActionSmartEnhance,
		})
	}
	return out
}

func audioSuggestions(stats models.MediaStats) []models.Suggestion {
	if stats.AudioLevelDB == nil {
		return nil
	}
	db := *stats.AudioLevelDB

	switch {
	case db < LowAudioDB:
		return []models.Suggestion{{
			ID:          models.SuggestionLowAudio,
			Title:       "Fix Low Volume",
			Description: fmt.Sprintf("Audio levels constitute silence (%.1fdB)", db),
			Action:      models.ActionNormalizeAudio,
		}}
	case db > ClipAudioDB:
		return []models.Suggestion{{
			ID:          models.SuggestionClipAudio,
			Title:       "Fix Clipping",
			Description: "Audio is peaking too high",
			Action:      models.ActionReduceGain,
		}}
	}
	return nil
}

func videoSuggestions(stats models.MediaStats) []models.Suggestion {
	var out []models.Suggestion

	if stats.Width != nil && *stats.Width < MinHDWidth {
		height := 0
		if stats.Height != nil {
			height = *stats.Height
		}
		out = append(out, models.Suggestion{
			ID:          models.SuggestionUpscale,
			Title:       "Upscale Video",
			Description: fmt.Sprintf("Low resolution (%dx%d) detected", *stats.Width, height),
			Action:      models.ActionUpscaleAI,
		})
	}

	if stats.MeanBrightness != nil {
		// exactly BrightnessCutoff emits neither suggestion
		switch b := *stats.MeanBrightness; {
		case b < BrightnessCutoff:
			out = append(out, models.Suggestion{
				ID:          models.SuggestionBrighten,
				Title:       "Auto-Exposure",
				Description: "Optimize scene brightness",
				Action:      models.ActionColorBoost,
			})
		case b > BrightnessCutoff:
			out = append(out, models.Suggestion{
				ID:          models.SuggestionColorGrade,
				Title:       "Auto Grade",
				Description: "Apply cinematic look",
				Action:      models.ActionCinematicGrade,
			})
		}
	}

	return out
}

func baselineSuggestions(kind models.MediaKind) []models.Suggestion {
	var out []models.Suggestion
	if kind.HasAudioTrack() {
		out = append(out,
			models.Suggestion{
				ID:          models.SuggestionSilenceRemoval,
				Title:       "Remove Silence",
				Description: "Trim pauses > 500ms",
				Action:      models.ActionRemoveSilence,
			},
			models.Suggestion{
				ID:          models.SuggestionGenerateCaptions,
				Title:       "Auto Captions",
				Description: "Generate subtitles",
				Action:      models.ActionTranscribe,
			},
		)
	}
	if kind == models.MediaKindVideo {
		out = append(out,
			models.Suggestion{
				ID:          models.SuggestionStabilize,
				Title:       "Stabilize",
				Description: "Reduce camera shake",
				Action:      models.ActionStabilizeVideo,
			},
			models.Suggestion{
				ID:          models.SuggestionSmartCrop,
				Title:       "Smart Frame",
				Description: "Keep subject centered",
				Action:      models.ActionSmartCrop,
			},
		)
	}
	if kind.HasAudioTrack() {
		out = append(out, models.Suggestion{
			ID:          models.SuggestionVoiceIsolation,
			Title:       "Voice Isolation",
			Description: "Remove background noise",
			Action:      models.ActionEnhanceAudio,
		})
	}
	return out
}
