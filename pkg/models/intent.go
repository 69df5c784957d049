package models

// Intent is a voice command class
type Intent string

// Intent constants, in classification priority order
const (
	IntentPlay            Intent = "PLAY"
	IntentPause           Intent = "PAUSE"
	IntentCut             Intent = "CUT"
	IntentUndo            Intent = "UNDO"
	IntentRemoveSilence   Intent = "REMOVE_SILENCE"
	IntentCaption         Intent = "CAPTION"
	IntentAddTransition   Intent = "ADD_TRANSITION"
	IntentAddEffect       Intent = "ADD_EFFECT"
	IntentApplySuggestion Intent = "APPLY_SUGGESTION"
	IntentUnknown         Intent = "UNKNOWN"
)

// Transcript is the output of the transcription service
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Segment is a timed piece of a transcript
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
