package models

import (
	"fmt"
	"strconv"
)

// Action identifiers understood by the transform dispatcher
const (
	ActionNormalizeAudio = "normalize_audio"
	ActionReduceGain     = "reduce_gain"
	ActionRemoveSilence  = "remove_silence"
	ActionEnhanceAudio   = "enhance_audio"
	ActionVoiceIsolation = "voice_isolation"
	ActionVoiceChanger   = "voice_changer"
	ActionTranscribe     = "transcribe"

	ActionStabilizeVideo = "stabilize_video"
	ActionSmartCrop      = "smart_crop"
	ActionColorBoost     = "color_boost"
	ActionSmartEnhance   = "smart_enhance"
	ActionCinematicGrade = "cinematic_grade"
	ActionUpscaleAI      = "upscale_ai"

	ActionColorGrade     = "color_grade"
	ActionMagicMask      = "magic_mask"
	ActionSuperScale     = "super_scale"
	ActionSmartRelight   = "smart_relight"
	ActionFaceRefinement = "face_refinement"
	ActionAIReframe      = "ai_reframe"
	ActionSceneCut       = "scene_cut"
	ActionCutClip        = "cut_clip"
	ActionExtendScene    = "extend_scene"

	ActionPassthrough = "passthrough"
)

// TransformStatus constants
const (
	TransformStatusSuccess = "success"
	TransformStatusError   = "error"
)

// Parameters holds free-form scalar parameters for a transform
type Parameters map[string]interface{}

// Float returns a numeric parameter or def when absent or not numeric
func (p Parameters) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// String returns a string parameter or def when absent
func (p Parameters) String(key string, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return def
		}
		return s
	default:
		return fmt.Sprint(s)
	}
}

// TransformRequest asks the dispatcher to apply an action to a file
type TransformRequest struct {
	Action     string     `json:"action"`
	InputPath  string     `json:"file_path"`
	Parameters Parameters `json:"parameters,omitempty"`
}

// TransformResult is the structured outcome of a transform
type TransformResult struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_file,omitempty"`
	Message    string `json:"message"`
	Action     string `json:"action_taken,omitempty"`
}

// Succeeded reports whether the transform finished without error
func (r TransformResult) Succeeded() bool {
	return r.Status == TransformStatusSuccess
}

// SuccessResult builds a success result
func SuccessResult(action, outputPath, message string) TransformResult {
	return TransformResult{
		Status:     TransformStatusSuccess,
		OutputPath: outputPath,
		Message:    message,
		Action:     action,
	}
}

// ErrorResult builds an error result
func ErrorResult(action string, err error) TransformResult {
	return TransformResult{
		Status:  TransformStatusError,
		Message: err.Error(),
		Action:  action,
	}
}
