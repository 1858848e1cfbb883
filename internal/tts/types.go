// Package tts defines the speech synthesizer adapter boundary and a
// self-contained estimating synthesizer used as the fallback path when the
// primary synthesis collaborator fails.
package tts

import (
	"context"
	"errors"

	"github.com/normanking/avatarpipeline/internal/timeline"
)

// StageName identifies this adapter in classified stage errors.
const StageName = "synthesis"

// ErrTextEmpty is returned for requests with nothing to synthesize.
var ErrTextEmpty = errors.New("text is empty")

// Synthesizer converts response text into audio plus a phoneme timeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error) {
	return f(ctx, req)
}

// SynthesizeRequest carries response text plus a language hint.
type SynthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// AudioClip is raw PCM audio with its descriptor.
type AudioClip struct {
	PCM        []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Seconds returns the clip length for 16-bit PCM.
func (c AudioClip) Seconds() float64 {
	if c.SampleRate <= 0 || c.Channels <= 0 || len(c.PCM) == 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(2*c.Channels*c.SampleRate)
}

// SynthesizeResult pairs synthesized audio with the phoneme timeline that
// drives lip-sync. Phoneme onsets are non-decreasing from well-behaved
// providers; downstream timeline synthesis clamps violations.
type SynthesizeResult struct {
	Audio    AudioClip               `json:"audio"`
	Phonemes []timeline.PhonemeEvent `json:"phonemes"`
	Duration float64                 `json:"duration"` // seconds
}
