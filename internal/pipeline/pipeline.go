// Package pipeline sequences the four stages of one avatar request:
// recognize -> respond -> synthesize -> animate. Failure policy for every
// collaborator lives here and nowhere else.
package pipeline

import (
	"fmt"
	"time"

	"github.com/normanking/avatarpipeline/internal/chat"
	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/tts"
)

// State is the per-request pipeline state.
type State int

const (
	StateReceived State = iota
	StateRecognizing
	StateResponding
	StateSynthesizing
	StateAnimating
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRecognizing:
		return "recognizing"
	case StateResponding:
		return "responding"
	case StateSynthesizing:
		return "synthesizing"
	case StateAnimating:
		return "animating"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects the request input path.
type Mode string

const (
	ModeText  Mode = "text"
	ModeAudio Mode = "audio"
)

// Request is one pipeline request: either raw text or raw audio plus a
// language selector.
type Request struct {
	Mode       Mode   `json:"mode"`
	Text       string `json:"text,omitempty"`
	Audio      []byte `json:"-"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Envelope is the complete result of a successful run. It is fully owned
// by the caller once returned; no partial envelope is ever produced.
type Envelope struct {
	RequestID     string            `json:"request_id"`
	Transcript    string            `json:"transcript,omitempty"`
	ResponseText  string            `json:"response_text"`
	Emotion       chat.Emotion      `json:"emotion"`
	Audio         tts.AudioClip     `json:"audio"`
	Timeline      timeline.Timeline `json:"viseme_timeline"`
	TotalDuration float64           `json:"total_duration_seconds"`
	Degraded      bool              `json:"degraded,omitempty"`
}

// FailureReason names why a stage terminated the request.
type FailureReason string

const (
	ReasonEmptyTranscript FailureReason = "empty_transcript"
	ReasonNoAudio         FailureReason = "no_audio"
	ReasonTimeout         FailureReason = "timeout"
	ReasonMalformedInput  FailureReason = "malformed_input"
	ReasonUnavailable     FailureReason = "unavailable"
	ReasonCancelled       FailureReason = "cancelled"
)

// Failure is the structured terminal-failure envelope, naming the failing
// stage and reason.
type Failure struct {
	Stage  string        `json:"stage"`
	Reason FailureReason `json:"reason"`
	Err    error         `json:"-"`
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("pipeline failed at %s: %s: %v", f.Stage, f.Reason, f.Err)
	}
	return fmt.Sprintf("pipeline failed at %s: %s", f.Stage, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Timeouts holds the independent per-stage deadlines.
type Timeouts struct {
	Recognition time.Duration
	Response    time.Duration
	Synthesis   time.Duration
}

// DefaultTimeouts returns the default stage deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Recognition: 8 * time.Second,
		Response:    2 * time.Second,
		Synthesis:   10 * time.Second,
	}
}

// Config tunes orchestrator policy.
type Config struct {
	Timeouts Timeouts
	// FallbackText replaces the response when the responder fails; a
	// response failure never aborts a request with valid input.
	FallbackText string
	// MinConfidence below which a transcript counts as unusable.
	MinConfidence float64
}

// DefaultConfig returns the default orchestrator policy.
func DefaultConfig() Config {
	return Config{
		Timeouts:      DefaultTimeouts(),
		FallbackText:  "I'm sorry, I didn't quite catch that. Could you say it again?",
		MinConfidence: 0.2,
	}
}
