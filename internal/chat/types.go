// Package chat defines the response generator adapter boundary, plus a
// built-in rule-based responder usable without any external model.
package chat

import (
	"context"
	"errors"
)

// StageName identifies this adapter in classified stage errors.
const StageName = "response"

// ErrEmptyInput is returned when there is no text to respond to.
var ErrEmptyInput = errors.New("empty input text")

// Emotion tags a response for avatar expression control.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
)

// Responder generates a reply for a transcript or typed text.
type Responder interface {
	Respond(ctx context.Context, req *RespondRequest) (*RespondResult, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, req *RespondRequest) (*RespondResult, error)

func (f ResponderFunc) Respond(ctx context.Context, req *RespondRequest) (*RespondResult, error) {
	return f(ctx, req)
}

// RespondRequest carries user text plus a language hint.
type RespondRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// RespondResult is the generated reply and its emotion tag.
type RespondResult struct {
	Text     string  `json:"text"`
	Emotion  Emotion `json:"emotion"`
	Language string  `json:"language,omitempty"`
}
