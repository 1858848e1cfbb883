package tts

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"github.com/normanking/avatarpipeline/internal/stage"
	"github.com/normanking/avatarpipeline/internal/timeline"
)

// Per-class phoneme durations in seconds, tuned against natural speech
// pacing of roughly 15 characters per second.
const (
	vowelDuration     = 0.100
	fricativeDuration = 0.080
	defaultDuration   = 0.060
	wordGap           = 0.080
	clauseGap         = 0.100
	sentenceGap       = 0.150
	leadIn            = 0.050
	tailOut           = 0.100
)

// EstimatingSynthesizer produces speech timing by walking the text's
// graphemes with per-class durations, and renders a quiet placeholder tone
// as audio. It has no model and cannot be unavailable, which makes it the
// natural secondary synthesis path: the avatar keeps moving even when the
// real synthesizer is down.
type EstimatingSynthesizer struct {
	SampleRate int     // default 22050
	ToneHz     float64 // default 220
	Gain       float64 // default 0.1
}

// NewEstimatingSynthesizer returns an estimator with default audio settings.
func NewEstimatingSynthesizer() *EstimatingSynthesizer {
	return &EstimatingSynthesizer{SampleRate: 22050, ToneHz: 220, Gain: 0.1}
}

// Synthesize estimates a phoneme timeline for text and renders matching
// placeholder audio. The last phoneme always ends before the audio does.
func (s *EstimatingSynthesizer) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, stage.NewError(stage.Rejected, StageName, ErrTextEmpty)
	}

	events := estimatePhonemes(text)

	total := tailOut
	if n := len(events); n > 0 {
		total = events[n-1].End() + tailOut
	}

	clip := s.renderTone(events, total)

	return &SynthesizeResult{
		Audio:    clip,
		Phonemes: events,
		Duration: total,
	}, nil
}

// estimatePhonemes walks text grapheme by grapheme, detecting the th/ch/sh
// digraphs, assigning per-class durations and advancing past pauses for
// whitespace and punctuation. Pauses produce no event; gap filling in the
// timeline synthesizer turns them into silence keyframes.
func estimatePhonemes(text string) []timeline.PhonemeEvent {
	chars := []byte(strings.ToLower(text))
	events := make([]timeline.PhonemeEvent, 0, len(chars))
	cursor := leadIn

	for i := 0; i < len(chars); i++ {
		ch := chars[i]

		switch {
		case ch == ' ' || ch == '\n' || ch == '\t':
			cursor += wordGap
			continue
		case ch == '.' || ch == '!' || ch == '?':
			cursor += sentenceGap
			continue
		case ch == ',' || ch == ';' || ch == ':':
			cursor += clauseGap
			continue
		case ch < 'a' || ch > 'z':
			continue
		}

		symbol := string(ch)
		if i+1 < len(chars) {
			switch digraph := string(chars[i : i+2]); digraph {
			case "th", "ch", "sh":
				symbol = digraph
				i++
			}
		}

		dur := defaultDuration
		switch {
		case isVowel(ch):
			dur = vowelDuration
		case ch == 's' || ch == 'z' || ch == 'f' || ch == 'v':
			dur = fricativeDuration
		}

		events = append(events, timeline.PhonemeEvent{
			Symbol:   symbol,
			Onset:    cursor,
			Duration: dur,
		})
		cursor += dur
	}

	return events
}

func isVowel(ch byte) bool {
	switch ch {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// renderTone writes 16-bit mono PCM: a quiet sine tone during phoneme
// segments, silence elsewhere.
func (s *EstimatingSynthesizer) renderTone(events []timeline.PhonemeEvent, total float64) AudioClip {
	rate := s.SampleRate
	if rate <= 0 {
		rate = 22050
	}
	tone := s.ToneHz
	if tone <= 0 {
		tone = 220
	}
	gain := s.Gain
	if gain <= 0 || gain > 1 {
		gain = 0.1
	}

	samples := int(math.Ceil(total * float64(rate)))
	pcm := make([]byte, samples*2)

	for _, ev := range events {
		start := int(ev.Onset * float64(rate))
		end := int(ev.End() * float64(rate))
		if end > samples {
			end = samples
		}
		for i := start; i < end; i++ {
			v := gain * math.Sin(2*math.Pi*tone*float64(i)/float64(rate))
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*math.MaxInt16)))
		}
	}

	return AudioClip{PCM: pcm, SampleRate: rate, Channels: 1}
}
