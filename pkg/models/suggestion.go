package models

// Suggestion is a recommended transform for a media file
type Suggestion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

// Suggestion IDs
const (
	SuggestionLowAudio         = "low_audio"
	SuggestionClipAudio        = "clip_audio"
	SuggestionUpscale          = "upscale"
	SuggestionBrighten         = "brighten"
	SuggestionColorGrade       = "color_grade"
	SuggestionSilenceRemoval   = "silence_removal"
	SuggestionGenerateCaptions = "generate_captions"
	SuggestionStabilize        = "stabilize"
	SuggestionSmartCrop        = "smart_crop"
	SuggestionVoiceIsolation   = "voice_isolation"
	SuggestionSmartEnhance     = "smart_enhance"
)

// DedupeSuggestions drops later suggestions that repeat an earlier ID,
// preserving the order of first occurrences.
func DedupeSuggestions(in []Suggestion) []Suggestion {
	seen := make(map[string]bool, len(in))
	out := make([]Suggestion, 0, len(in))
	for _, s := range in {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
