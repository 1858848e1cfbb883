// Package timeline converts phoneme timing data from speech synthesis into
// a smoothed, renderer-agnostic viseme keyframe timeline.
package timeline

import (
	"github.com/normanking/avatarpipeline/internal/viseme"
)

// PhonemeEvent is one timed phoneme from a speech synthesizer.
// Onsets are expected to be non-decreasing; true overlaps are tolerated
// by clamping during timeline synthesis, never rejected.
type PhonemeEvent struct {
	Symbol   string  `json:"symbol"`
	Onset    float64 `json:"onset"`    // seconds from audio start
	Duration float64 `json:"duration"` // seconds, > 0
}

// End returns the event end time in seconds.
func (e PhonemeEvent) End() float64 { return e.Onset + e.Duration }

// Keyframe is one viseme segment of the animation timeline. Immutable once
// created; renderers consume it, never mutate it.
type Keyframe struct {
	Time          float64           `json:"time"`
	Viseme        viseme.Category   `json:"viseme"`
	Duration      float64           `json:"duration"`
	Parameters    viseme.Parameters `json:"parameters"`
	SourcePhoneme string            `json:"source_phoneme,omitempty"`
}

// End returns the keyframe end time in seconds.
func (k Keyframe) End() float64 { return k.Time + k.Duration }

// Timeline is an ordered keyframe sequence covering [0, TotalDuration]
// with no gaps and no overlaps: each keyframe ends exactly where the next
// begins, and the first keyframe starts at 0.
type Timeline struct {
	Keyframes     []Keyframe `json:"keyframes"`
	TotalDuration float64    `json:"total_duration"`
}

// End returns the end time of the last keyframe, or 0 for an empty timeline.
func (t Timeline) End() float64 {
	if len(t.Keyframes) == 0 {
		return 0
	}
	return t.Keyframes[len(t.Keyframes)-1].End()
}
