package transform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

type captionStrategy struct {
	transcriber Transcriber
}

func (s *captionStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	if s.transcriber == nil {
		return models.TransformResult{}, errors.New("transcription service not configured")
	}

	transcript, err := s.transcriber.TranscribeFile(ctx, in.Path)
	if err != nil {
		return models.TransformResult{}, fmt.Errorf("transcription failed: %w", err)
	}

	out := OutputPathWithExt(in.Path, "_captions", ".srt")
	err = writeAtomic(out, func(tmp string) error {
		return os.WriteFile(tmp, []byte(FormatSRT(transcript)), 0o644)
	})
	if err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, fmt.Sprintf("Generated %d captions", len(transcript.Segments))), nil
}

// FormatSRT renders transcript segments as SubRip cues. A transcript with
// text but no timing becomes a single cue.
func FormatSRT(t *models.Transcript) string {
	if t == nil {
		return ""
	}
	segments := t.Segments
	if len(segments) == 0 && strings.TrimSpace(t.Text) != "" {
		segments = []models.Segment{{Start: 0, End: 0, Text: t.Text}}
	}

	var b strings.Builder
	cue := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cue++
		end := seg.End
		if end < seg.Start {
			end = seg.Start
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", cue, srtTimestamp(seg.Start), srtTimestamp(end), text)
	}
	return b.String()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	ms %= 3600000
	m := ms / 60000
	ms %= 60000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
