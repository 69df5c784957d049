package intent

import (
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Confidence values for classified intents
const (
	TransportConfidence  = 0.85
	DefaultConfidence    = 0.6
	SilenceBoost         = 0.3
	MaxSilenceConfidence = 0.95
)

// DefaultSilenceRatio is assumed when a caller sends no signals
const DefaultSilenceRatio = 0.4

// Rule maps a set of keywords to an intent
type Rule struct {
	Intent   models.Intent
	Keywords []string
}

// Rules is the ordered rule list; the first matching rule wins
var Rules = []Rule{
	{Intent: models.IntentPlay, Keywords: []string{"play", "resume"}},
	{Intent: models.IntentPause, Keywords: []string{"pause", "stop"}},
	{Intent: models.IntentCut, Keywords: []string{"cut", "split"}},
	{Intent: models.IntentUndo, Keywords: []string{"undo"}},
	{Intent: models.IntentRemoveSilence, Keywords: []string{"remove silence", "silence"}},
	{Intent: models.IntentCaption, Keywords: []string{"caption", "subtitle"}},
	{Intent: models.IntentAddTransition, Keywords: []string{"transition", "fade"}},
	{Intent: models.IntentAddEffect, Keywords: []string{"effect", "filter"}},
	{Intent: models.IntentApplySuggestion, Keywords: []string{"apply suggestion", "suggestion"}},
}

// Signals carries measurements that adjust the confidence of an intent
type Signals struct {
	SilenceRatio float64 `json:"silence_ratio"`
}

// Classify maps free text to an intent. A keyword matches anywhere in the
// lowercased text, so "crossfade" is a transition and "unpause" a pause.
func Classify(text string) models.Intent {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return models.IntentUnknown
	}
	for _, rule := range Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(t, kw) {
				return rule.Intent
			}
		}
	}
	return models.IntentUnknown
}

// ConfidenceScore returns the advisory confidence for an intent
func ConfidenceScore(intent models.Intent, signals Signals) float64 {
	switch intent {
	case models.IntentRemoveSilence:
		return math.Min(MaxSilenceConfidence, signals.SilenceRatio+SilenceBoost)
	case models.IntentCut, models.IntentPlay, models.IntentPause:
		return TransportConfidence
	default:
		return DefaultConfidence
	}
}

// Round2 rounds a confidence to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
