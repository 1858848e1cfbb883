// Package stt defines the speech recognizer adapter boundary. The actual
// recognition engine lives outside this module; everything here is the
// narrow typed surface the pipeline calls through.
package stt

import (
	"context"
	"errors"
)

// StageName identifies this adapter in classified stage errors.
const StageName = "recognition"

// Common errors
var (
	ErrAudioEmpty   = errors.New("audio payload is empty")
	ErrNoTranscript = errors.New("no usable transcript")
)

// Recognizer converts audio into a transcript. Implementations perform no
// retries; retry and fallback policy belongs to the orchestrator.
type Recognizer interface {
	Recognize(ctx context.Context, req *RecognizeRequest) (*RecognizeResult, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, req *RecognizeRequest) (*RecognizeResult, error)

func (f RecognizerFunc) Recognize(ctx context.Context, req *RecognizeRequest) (*RecognizeResult, error) {
	return f(ctx, req)
}

// RecognizeRequest carries raw audio plus its descriptor.
type RecognizeRequest struct {
	Audio      []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding,omitempty"` // pcm16, wav
	Language   string `json:"language,omitempty"` // en, hi, ...
}

// RecognizeResult is the recognizer output. Text may be empty; deciding
// whether an empty transcript is terminal is the orchestrator's call.
type RecognizeResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-1
	Language   string  `json:"language,omitempty"`
}
