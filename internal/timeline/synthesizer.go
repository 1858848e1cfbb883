package timeline

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/avatarpipeline/internal/viseme"
)

// minKeyframeDuration is the smallest keyframe the synthesizer will emit.
// Keeps durations strictly positive even for degenerate input.
const minKeyframeDuration = 0.001

// SmoothingConfig holds the timeline smoothing thresholds, all in seconds.
type SmoothingConfig struct {
	// GapEpsilon is the largest inter-phoneme gap closed by pulling the
	// following keyframe back instead of becoming explicit silence.
	GapEpsilon float64
	// MergeThreshold is the duration below which adjacent same-category
	// keyframes are merged to avoid renderer jitter.
	MergeThreshold float64
	// BlendWindow is the length of the interpolated transition keyframe
	// inserted at category boundaries. Zero disables blending.
	BlendWindow float64
}

// DefaultSmoothingConfig returns the default thresholds.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		GapEpsilon:     0.020,
		MergeThreshold: 0.060,
		BlendWindow:    0.040,
	}
}

// Synthesizer turns phoneme timelines into viseme keyframe timelines.
// It is pure and deterministic: the same input and configuration always
// produce the same output, and malformed input degrades to the safest
// representable timeline instead of failing.
type Synthesizer struct {
	table *viseme.Table
	cfg   SmoothingConfig
}

// NewSynthesizer creates a Synthesizer over the given mapping table.
// A nil table uses the default table; non-positive thresholds fall back
// to their defaults, except BlendWindow where zero means disabled.
func NewSynthesizer(table *viseme.Table, cfg SmoothingConfig) *Synthesizer {
	if table == nil {
		table = viseme.NewTable()
	}
	def := DefaultSmoothingConfig()
	if cfg.GapEpsilon <= 0 {
		cfg.GapEpsilon = def.GapEpsilon
	}
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = def.MergeThreshold
	}
	if cfg.BlendWindow < 0 {
		cfg.BlendWindow = 0
	}
	return &Synthesizer{table: table, cfg: cfg}
}

// Synthesize produces the final keyframe timeline for a phoneme timeline.
// totalDuration is the synthesized audio duration; the timeline always
// covers [0, totalDuration] with trailing silence if the phonemes end early.
func (s *Synthesizer) Synthesize(events []PhonemeEvent, totalDuration float64) Timeline {
	raw := s.mapRaw(events)
	filled := s.fillGaps(raw, totalDuration)
	smoothed := s.smooth(filled)

	total := totalDuration
	if end := smoothed[len(smoothed)-1].End(); end > total {
		total = end
	}
	return Timeline{Keyframes: smoothed, TotalDuration: total}
}

// mapRaw converts each phoneme event into one keyframe via table lookup.
// Output length equals input length and ordering is preserved; timing is
// carried over unchanged apart from clamping negative onsets to zero.
func (s *Synthesizer) mapRaw(events []PhonemeEvent) []Keyframe {
	frames := make([]Keyframe, 0, len(events))
	for _, ev := range events {
		cat, params := s.table.Lookup(ev.Symbol)
		onset := ev.Onset
		if onset < 0 {
			onset = 0
		}
		frames = append(frames, Keyframe{
			Time:          onset,
			Viseme:        cat,
			Duration:      ev.Duration,
			Parameters:    params,
			SourcePhoneme: ev.Symbol,
		})
	}
	return frames
}

// fillGaps produces a contiguous timeline starting at 0: silence keyframes
// for gaps above GapEpsilon, smaller gaps absorbed, overlaps clamped, and
// trailing silence out to totalDuration. Always returns at least one frame.
func (s *Synthesizer) fillGaps(frames []Keyframe, totalDuration float64) []Keyframe {
	silenceParams := s.table.ParametersFor(viseme.Silence)

	if len(frames) == 0 {
		dur := totalDuration
		if dur < minKeyframeDuration {
			dur = minKeyframeDuration
		}
		return []Keyframe{{
			Time:       0,
			Viseme:     viseme.Silence,
			Duration:   dur,
			Parameters: silenceParams,
		}}
	}

	sorted := make([]Keyframe, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	out := make([]Keyframe, 0, len(sorted)+2)
	cursor := 0.0

	for _, kf := range sorted {
		start, end := kf.Time, kf.End()

		// Clamp overlap with the previous keyframe. An event fully
		// swallowed by its predecessor is dropped.
		if start < cursor {
			start = cursor
		}
		if end-start < minKeyframeDuration {
			continue
		}

		if gap := start - cursor; gap > s.cfg.GapEpsilon {
			out = append(out, Keyframe{
				Time:       cursor,
				Viseme:     viseme.Silence,
				Duration:   gap,
				Parameters: silenceParams,
			})
		} else if gap > 0 {
			// Sub-epsilon gap: pull the keyframe back to close it.
			start = cursor
		}

		kf.Time = start
		kf.Duration = end - start
		out = append(out, kf)
		cursor = end
	}

	if len(out) == 0 {
		return s.fillGaps(nil, totalDuration)
	}

	if remaining := totalDuration - cursor; remaining > s.cfg.GapEpsilon {
		out = append(out, Keyframe{
			Time:       cursor,
			Viseme:     viseme.Silence,
			Duration:   remaining,
			Parameters: silenceParams,
		})
	} else if remaining > 0 {
		out[len(out)-1].Duration += remaining
	}

	return out
}

// smooth merges jittery same-category neighbors and inserts blended
// transition keyframes at category boundaries.
func (s *Synthesizer) smooth(frames []Keyframe) []Keyframe {
	merged := s.mergeShort(frames)
	return s.blendBoundaries(merged)
}

// mergeShort combines consecutive keyframes of the same category when both
// are below MergeThreshold. The longer keyframe keeps the category and
// source phoneme; on equal durations the earlier one wins.
func (s *Synthesizer) mergeShort(frames []Keyframe) []Keyframe {
	if len(frames) < 2 {
		return frames
	}

	out := make([]Keyframe, 0, len(frames))
	out = append(out, frames[0])

	for _, next := range frames[1:] {
		prev := &out[len(out)-1]
		if prev.Viseme == next.Viseme &&
			prev.Duration < s.cfg.MergeThreshold &&
			next.Duration < s.cfg.MergeThreshold {
			winner := *prev
			if next.Duration > prev.Duration {
				winner = next
			}
			prev.Duration += next.Duration
			prev.Parameters = winner.Parameters
			prev.SourcePhoneme = winner.SourcePhoneme
			continue
		}
		out = append(out, next)
	}
	return out
}

// blendBoundaries inserts a transition keyframe of BlendWindow length
// centered on each category boundary where both neighbors strictly exceed
// the window, linearly interpolating the parameter vectors so the exported
// curve is continuous rather than stepped.
func (s *Synthesizer) blendBoundaries(frames []Keyframe) []Keyframe {
	bw := s.cfg.BlendWindow
	if bw <= 0 || len(frames) < 2 {
		return frames
	}

	out := make([]Keyframe, 0, len(frames)*2-1)
	out = append(out, frames[0])

	for _, next := range frames[1:] {
		prev := &out[len(out)-1]
		if prev.Viseme == next.Viseme || prev.Duration <= bw || next.Duration <= bw {
			out = append(out, next)
			continue
		}

		half := bw / 2
		prev.Duration -= half

		transition := Keyframe{
			Time:          prev.End(),
			Viseme:        next.Viseme,
			Duration:      bw,
			Parameters:    lerpParameters(prev.Parameters, next.Parameters, 0.5),
			SourcePhoneme: next.SourcePhoneme,
		}

		next.Time += half
		next.Duration -= half
		out = append(out, transition, next)
	}
	return out
}

// lerpParameters interpolates two parameter vectors, clamping each axis
// back into [0,1].
func lerpParameters(a, b viseme.Parameters, t float64) viseme.Parameters {
	lerp := func(x, y float64) float64 {
		return mgl64.Clamp(x+(y-x)*t, 0, 1)
	}
	return viseme.Parameters{
		MouthOpen:  lerp(a.MouthOpen, b.MouthOpen),
		MouthWidth: lerp(a.MouthWidth, b.MouthWidth),
		LipPucker:  lerp(a.LipPucker, b.LipPucker),
		JawDrop:    lerp(a.JawDrop, b.JawDrop),
	}
}
