package models

import (
	"path/filepath"
	"strings"
)

// MediaKind classifies an input file by its container extension
type MediaKind string

// MediaKind constants
const (
	MediaKindAudio   MediaKind = "audio"
	MediaKindVideo   MediaKind = "video"
	MediaKindUnknown MediaKind = "unknown"
)

var videoExtensions = map[string]bool{
	"mp4": true,
	"mov": true,
	"avi": true,
	"mkv": true,
}

var audioExtensions = map[string]bool{
	"mp3": true,
	"wav": true,
	"aac": true,
	"m4a": true,
}

// ClassifyKind returns the media kind for a path based on its extension.
// Anything outside the audio and video whitelists is unknown.
func ClassifyKind(path string) MediaKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case videoExtensions[ext]:
		return MediaKindVideo
	case audioExtensions[ext]:
		return MediaKindAudio
	default:
		return MediaKindUnknown
	}
}

// HasAudioTrack reports whether audio-or-video rules apply to the kind
func (k MediaKind) HasAudioTrack() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// MediaStats holds the signal statistics gathered for one analysis call.
// Nil fields were not measurable (decode failure or wrong media kind).
type MediaStats struct {
	Path           string    `json:"path"`
	Kind           MediaKind `json:"kind"`
	AudioLevelDB   *float64  `json:"audio_level_db,omitempty"`
	MeanBrightness *float64  `json:"mean_brightness,omitempty"`
	Width          *int      `json:"width,omitempty"`
	Height         *int      `json:"height,omitempty"`
	FrameRate      *float64  `json:"frame_rate,omitempty"`
}

// Scene marks a detected scene change
type Scene struct {
	Time  float64 `json:"time"`
	Frame int     `json:"frame"`
}
