package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/avatarpipeline/internal/chat"
	"github.com/normanking/avatarpipeline/internal/stage"
	"github.com/normanking/avatarpipeline/internal/stt"
	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/tts"
)

// Orchestrator runs one request through the pipeline state machine.
// Collaborators are injected, never ambient; a nil recognizer simply makes
// audio-mode requests fail at the recognition stage.
type Orchestrator struct {
	logger      zerolog.Logger
	recognizer  stt.Recognizer
	responder   chat.Responder
	synthesizer tts.Synthesizer
	fallback    tts.Synthesizer
	filter      *stt.Filter
	animator    *timeline.Synthesizer
	cfg         Config
}

// New creates an Orchestrator. animator must be non-nil; filter may be nil
// to skip transcript cleanup; fallback may be nil to disable the secondary
// synthesis path.
func New(
	logger zerolog.Logger,
	recognizer stt.Recognizer,
	responder chat.Responder,
	synthesizer tts.Synthesizer,
	fallback tts.Synthesizer,
	filter *stt.Filter,
	animator *timeline.Synthesizer,
	cfg Config,
) *Orchestrator {
	if cfg.Timeouts.Recognition <= 0 {
		cfg.Timeouts.Recognition = DefaultTimeouts().Recognition
	}
	if cfg.Timeouts.Response <= 0 {
		cfg.Timeouts.Response = DefaultTimeouts().Response
	}
	if cfg.Timeouts.Synthesis <= 0 {
		cfg.Timeouts.Synthesis = DefaultTimeouts().Synthesis
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultConfig().FallbackText
	}
	return &Orchestrator{
		logger:      logger.With().Str("component", "orchestrator").Logger(),
		recognizer:  recognizer,
		responder:   responder,
		synthesizer: synthesizer,
		fallback:    fallback,
		filter:      filter,
		animator:    animator,
		cfg:         cfg,
	}
}

// Run executes the full pipeline for one request. Exactly one of the
// returns is non-nil: a complete envelope or a structured failure. Success
// is all-or-nothing from the Complete state.
func (o *Orchestrator) Run(ctx context.Context, requestID string, req *Request) (*Envelope, *Failure) {
	log := o.logger.With().Str("request_id", requestID).Logger()
	started := time.Now()

	if fail := validate(req); fail != nil {
		log.Warn().Str("stage", fail.Stage).Str("reason", string(fail.Reason)).Msg("Request rejected")
		return nil, fail
	}
	log.Debug().Str("mode", string(req.Mode)).Str("state", StateReceived.String()).Msg("Pipeline started")

	var (
		transcript string
		language   = req.Language
		degraded   bool
	)

	// Recognizing: audio path only. An unusable transcript is terminal;
	// the orchestrator never fabricates one.
	if req.Mode == ModeAudio {
		text, lang, fail := o.recognize(ctx, log, req)
		if fail != nil {
			return nil, fail
		}
		transcript = text
		if language == "" {
			language = lang
		}
	} else {
		transcript = req.Text
	}

	// Responding: failure degrades to the neutral fallback, never aborts.
	responseText, emotion, ok := o.respond(ctx, log, transcript, language)
	if !ok {
		responseText = o.cfg.FallbackText
		emotion = chat.EmotionNeutral
		degraded = true
	}

	if fail := cancelled(ctx, "response"); fail != nil {
		return nil, fail
	}

	// Synthesizing: one fallback attempt; no audio means no request.
	synth, fail := o.synthesize(ctx, log, responseText, language)
	if fail != nil {
		return nil, fail
	}

	if fail := cancelled(ctx, "synthesis"); fail != nil {
		return nil, fail
	}

	// Animating: never fails, degrades to silence instead.
	animStart := time.Now()
	duration := synth.Duration
	if duration <= 0 {
		duration = synth.Audio.Seconds()
	}
	tl := o.animator.Synthesize(synth.Phonemes, duration)
	log.Debug().
		Str("stage", StateAnimating.String()).
		Dur("duration", time.Since(animStart)).
		Int("keyframes", len(tl.Keyframes)).
		Msg("Timeline synthesized")

	env := &Envelope{
		RequestID:     requestID,
		ResponseText:  responseText,
		Emotion:       emotion,
		Audio:         synth.Audio,
		Timeline:      tl,
		TotalDuration: tl.TotalDuration,
		Degraded:      degraded,
	}
	if req.Mode == ModeAudio {
		env.Transcript = transcript
	}

	log.Info().
		Str("state", StateComplete.String()).
		Dur("total", time.Since(started)).
		Bool("degraded", degraded).
		Msg("Pipeline complete")
	return env, nil
}

func validate(req *Request) *Failure {
	switch req.Mode {
	case ModeText:
		if req.Text == "" {
			return &Failure{Stage: "input", Reason: ReasonMalformedInput, Err: chat.ErrEmptyInput}
		}
	case ModeAudio:
		if len(req.Audio) == 0 {
			return &Failure{Stage: "input", Reason: ReasonMalformedInput, Err: stt.ErrAudioEmpty}
		}
	default:
		return &Failure{Stage: "input", Reason: ReasonMalformedInput}
	}
	return nil
}

func cancelled(ctx context.Context, stageName string) *Failure {
	if err := ctx.Err(); err != nil {
		return &Failure{Stage: stageName, Reason: ReasonCancelled, Err: err}
	}
	return nil
}

func (o *Orchestrator) recognize(ctx context.Context, log zerolog.Logger, req *Request) (string, string, *Failure) {
	started := time.Now()

	if o.recognizer == nil {
		return "", "", &Failure{Stage: stt.StageName, Reason: ReasonUnavailable, Err: stage.ErrUnavailable}
	}

	sctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Recognition)
	defer cancel()

	result, err := o.recognizer.Recognize(sctx, &stt.RecognizeRequest{
		Audio:      req.Audio,
		SampleRate: req.SampleRate,
		Encoding:   req.Encoding,
		Language:   req.Language,
	})
	log.Debug().Str("stage", StateRecognizing.String()).Dur("duration", time.Since(started)).Msg("Recognition finished")

	if err != nil {
		if isTimeout(sctx, err) {
			return "", "", &Failure{Stage: stt.StageName, Reason: ReasonTimeout, Err: err}
		}
		if fail := cancelled(ctx, stt.StageName); fail != nil {
			return "", "", fail
		}
		return "", "", &Failure{Stage: stt.StageName, Reason: ReasonEmptyTranscript, Err: err}
	}

	text := result.Text
	if o.filter != nil {
		var usable bool
		if text, usable = o.filter.Clean(text); !usable {
			return "", "", &Failure{Stage: stt.StageName, Reason: ReasonEmptyTranscript, Err: stt.ErrNoTranscript}
		}
	}
	if text == "" || result.Confidence < o.cfg.MinConfidence {
		return "", "", &Failure{Stage: stt.StageName, Reason: ReasonEmptyTranscript, Err: stt.ErrNoTranscript}
	}
	return text, result.Language, nil
}

// respond returns ok=false on any responder failure, including timeout;
// the caller substitutes the neutral fallback.
func (o *Orchestrator) respond(ctx context.Context, log zerolog.Logger, text, language string) (string, chat.Emotion, bool) {
	started := time.Now()

	if o.responder == nil {
		log.Warn().Str("stage", StateResponding.String()).Msg("No responder configured, using fallback")
		return "", chat.EmotionNeutral, false
	}

	sctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Response)
	defer cancel()

	result, err := o.responder.Respond(sctx, &chat.RespondRequest{Text: text, Language: language})
	log.Debug().Str("stage", StateResponding.String()).Dur("duration", time.Since(started)).Msg("Response finished")

	if err != nil || result == nil || result.Text == "" {
		log.Warn().Err(err).Str("stage", StateResponding.String()).Msg("Responder failed, degrading to fallback")
		return "", chat.EmotionNeutral, false
	}
	return result.Text, result.Emotion, true
}

func (o *Orchestrator) synthesize(ctx context.Context, log zerolog.Logger, text, language string) (*tts.SynthesizeResult, *Failure) {
	started := time.Now()

	sctx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Synthesis)
	defer cancel()

	req := &tts.SynthesizeRequest{Text: text, Language: language}

	var primaryErr error
	if o.synthesizer != nil {
		result, err := o.synthesizer.Synthesize(sctx, req)
		if err == nil && result != nil && len(result.Audio.PCM) > 0 {
			log.Debug().Str("stage", StateSynthesizing.String()).Dur("duration", time.Since(started)).Msg("Synthesis finished")
			return result, nil
		}
		primaryErr = err
		if isTimeout(sctx, err) {
			return nil, &Failure{Stage: tts.StageName, Reason: ReasonTimeout, Err: err}
		}
		if fail := cancelled(ctx, tts.StageName); fail != nil {
			return nil, fail
		}
	} else {
		primaryErr = stage.NewError(stage.Unavailable, tts.StageName, nil)
	}

	if o.fallback == nil {
		return nil, &Failure{Stage: tts.StageName, Reason: ReasonNoAudio, Err: primaryErr}
	}

	log.Warn().Err(primaryErr).Str("stage", StateSynthesizing.String()).Msg("Primary synthesizer failed, trying fallback")

	result, err := o.fallback.Synthesize(sctx, req)
	log.Debug().Str("stage", StateSynthesizing.String()).Dur("duration", time.Since(started)).Msg("Synthesis finished")

	if err != nil || result == nil || len(result.Audio.PCM) == 0 {
		if isTimeout(sctx, err) {
			return nil, &Failure{Stage: tts.StageName, Reason: ReasonTimeout, Err: err}
		}
		if err == nil {
			err = primaryErr
		}
		return nil, &Failure{Stage: tts.StageName, Reason: ReasonNoAudio, Err: err}
	}
	return result, nil
}

// isTimeout reports whether err reflects the stage deadline expiring, as
// opposed to the parent request being cancelled.
func isTimeout(sctx context.Context, err error) bool {
	if errors.Is(err, stage.ErrTimeout) {
		return true
	}
	return errors.Is(sctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)
}
