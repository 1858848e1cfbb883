package timeline

import (
	"math"
	"reflect"
	"testing"

	"github.com/normanking/avatarpipeline/internal/viseme"
)

const timeEps = 1e-9

func newTestSynthesizer(cfg SmoothingConfig) *Synthesizer {
	return NewSynthesizer(viseme.NewTable(), cfg)
}

// assertContiguous checks the core timeline invariant: starts at 0, no
// gaps, no overlaps, strictly positive durations.
func assertContiguous(t *testing.T, tl Timeline) {
	t.Helper()

	if len(tl.Keyframes) == 0 {
		t.Fatal("timeline has no keyframes")
	}
	if tl.Keyframes[0].Time != 0 {
		t.Errorf("first keyframe starts at %v, want 0", tl.Keyframes[0].Time)
	}
	for i, kf := range tl.Keyframes {
		if kf.Duration <= 0 {
			t.Errorf("keyframe %d has non-positive duration %v", i, kf.Duration)
		}
		if i > 0 {
			prev := tl.Keyframes[i-1]
			if math.Abs(prev.End()-kf.Time) > timeEps {
				t.Errorf("keyframe %d starts at %v, previous ends at %v", i, kf.Time, prev.End())
			}
		}
	}
	if end := tl.End(); end < tl.TotalDuration-timeEps {
		t.Errorf("timeline ends at %v, want coverage to %v", end, tl.TotalDuration)
	}
}

func TestSynthesize_CoverageNoGapsNoOverlaps(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	events := []PhonemeEvent{
		{Symbol: "h", Onset: 0.0, Duration: 0.1},
		{Symbol: "ə", Onset: 0.1, Duration: 0.1},
		{Symbol: "l", Onset: 0.2, Duration: 0.1},
		{Symbol: "oʊ", Onset: 0.35, Duration: 0.2}, // 50ms gap
		{Symbol: "w", Onset: 0.6, Duration: 0.1},
		{Symbol: "d", Onset: 0.7, Duration: 0.1},
	}

	tl := s.Synthesize(events, 1.0)
	assertContiguous(t, tl)

	if tl.TotalDuration != 1.0 {
		t.Errorf("total duration = %v, want 1.0", tl.TotalDuration)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.08},
		{Symbol: "m", Onset: 0.08, Duration: 0.05},
		{Symbol: "b", Onset: 0.13, Duration: 0.05},
		{Symbol: "s", Onset: 0.25, Duration: 0.12},
	}

	s := newTestSynthesizer(DefaultSmoothingConfig())
	first := s.Synthesize(events, 0.5)
	for i := 0; i < 10; i++ {
		again := s.Synthesize(events, 0.5)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestSynthesize_EmptyTimelineYieldsSingleSilence(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	tl := s.Synthesize(nil, 2.5)

	if len(tl.Keyframes) != 1 {
		t.Fatalf("got %d keyframes, want 1", len(tl.Keyframes))
	}
	kf := tl.Keyframes[0]
	if kf.Viseme != viseme.Silence {
		t.Errorf("viseme = %v, want silence", kf.Viseme)
	}
	if kf.Time != 0 || kf.Duration != 2.5 {
		t.Errorf("keyframe spans [%v, %v], want [0, 2.5]", kf.Time, kf.End())
	}
}

func TestSynthesize_EmptyTimelineZeroDuration(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	tl := s.Synthesize(nil, 0)

	if len(tl.Keyframes) != 1 {
		t.Fatalf("got %d keyframes, want 1", len(tl.Keyframes))
	}
	if tl.Keyframes[0].Duration <= 0 {
		t.Errorf("duration %v not strictly positive", tl.Keyframes[0].Duration)
	}
}

func TestSynthesize_UnknownPhonemeUsesDefaultCategory(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.1},
		{Symbol: "ʘ", Onset: 0.1, Duration: 0.1}, // click, not in table
		{Symbol: "m", Onset: 0.2, Duration: 0.1},
	}

	tl := s.Synthesize(events, 0.3)
	assertContiguous(t, tl)

	found := false
	for _, kf := range tl.Keyframes {
		if kf.SourcePhoneme == "ʘ" {
			found = true
			if kf.Viseme != viseme.DefaultCategory {
				t.Errorf("unknown phoneme mapped to %v, want %v", kf.Viseme, viseme.DefaultCategory)
			}
		}
	}
	if !found {
		t.Error("unknown phoneme keyframe missing from timeline")
	}
}

func TestSynthesize_GapAboveEpsilonBecomesSilence(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060})

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.1},
		{Symbol: "m", Onset: 0.2, Duration: 0.1}, // 100ms gap
	}

	tl := s.Synthesize(events, 0.3)
	assertContiguous(t, tl)

	if len(tl.Keyframes) != 3 {
		t.Fatalf("got %d keyframes, want 3 (viseme, silence, viseme)", len(tl.Keyframes))
	}
	mid := tl.Keyframes[1]
	if mid.Viseme != viseme.Silence {
		t.Errorf("gap keyframe viseme = %v, want silence", mid.Viseme)
	}
	if math.Abs(mid.Time-0.1) > timeEps || math.Abs(mid.Duration-0.1) > timeEps {
		t.Errorf("silence spans [%v, %v], want [0.1, 0.2]", mid.Time, mid.End())
	}
}

func TestSynthesize_SmallGapAbsorbed(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060})

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.1},
		{Symbol: "m", Onset: 0.11, Duration: 0.1}, // 10ms gap, below epsilon
	}

	tl := s.Synthesize(events, 0.21)
	assertContiguous(t, tl)

	for _, kf := range tl.Keyframes {
		if kf.Viseme == viseme.Silence {
			t.Errorf("sub-epsilon gap produced a silence keyframe at %v", kf.Time)
		}
	}
}

func TestSynthesize_OverlapClamped(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060})

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.15},
		{Symbol: "m", Onset: 0.10, Duration: 0.15}, // overlaps by 50ms
	}

	tl := s.Synthesize(events, 0.25)
	assertContiguous(t, tl)
}

func TestSynthesize_SwallowedEventDropped(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060})

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.2},
		{Symbol: "m", Onset: 0.05, Duration: 0.05}, // entirely inside previous
		{Symbol: "s", Onset: 0.2, Duration: 0.1},
	}

	tl := s.Synthesize(events, 0.3)
	assertContiguous(t, tl)

	for _, kf := range tl.Keyframes {
		if kf.SourcePhoneme == "m" {
			t.Error("fully-overlapped event should have been dropped")
		}
	}
}

func TestMergeShort_SumsDurationsLongerWins(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0})

	// Both below the 60ms merge threshold, same category (t and d).
	events := []PhonemeEvent{
		{Symbol: "t", Onset: 0.0, Duration: 0.03},
		{Symbol: "d", Onset: 0.03, Duration: 0.04},
	}

	tl := s.Synthesize(events, 0.07)

	if len(tl.Keyframes) != 1 {
		t.Fatalf("got %d keyframes, want 1 merged", len(tl.Keyframes))
	}
	kf := tl.Keyframes[0]
	if math.Abs(kf.Duration-0.07) > timeEps {
		t.Errorf("merged duration = %v, want 0.07", kf.Duration)
	}
	// d is longer, so it supplies the source phoneme.
	if kf.SourcePhoneme != "d" {
		t.Errorf("merged source phoneme = %q, want %q (longer wins)", kf.SourcePhoneme, "d")
	}
}

func TestMergeShort_TieEarlierWins(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0})

	events := []PhonemeEvent{
		{Symbol: "t", Onset: 0.0, Duration: 0.04},
		{Symbol: "d", Onset: 0.04, Duration: 0.04},
	}

	tl := s.Synthesize(events, 0.08)

	if len(tl.Keyframes) != 1 {
		t.Fatalf("got %d keyframes, want 1 merged", len(tl.Keyframes))
	}
	if got := tl.Keyframes[0].SourcePhoneme; got != "t" {
		t.Errorf("merged source phoneme = %q, want %q (tie goes to earlier)", got, "t")
	}
}

func TestMergeShort_LongNeighborsNotMerged(t *testing.T) {
	s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0})

	events := []PhonemeEvent{
		{Symbol: "t", Onset: 0.0, Duration: 0.1},
		{Symbol: "d", Onset: 0.1, Duration: 0.1},
	}

	tl := s.Synthesize(events, 0.2)

	if len(tl.Keyframes) != 2 {
		t.Fatalf("got %d keyframes, want 2 unmerged", len(tl.Keyframes))
	}
}

func TestEndToEnd_TwoPhonemeExample(t *testing.T) {
	// AA -> open vowel, M -> bilabial, adjacent with no gap.
	events := []PhonemeEvent{
		{Symbol: "AA", Onset: 0.0, Duration: 0.12},
		{Symbol: "M", Onset: 0.12, Duration: 0.08},
	}

	t.Run("no blend window", func(t *testing.T) {
		s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0})
		tl := s.Synthesize(events, 0.20)
		assertContiguous(t, tl)

		if len(tl.Keyframes) != 2 {
			t.Fatalf("got %d keyframes, want 2", len(tl.Keyframes))
		}
		first, second := tl.Keyframes[0], tl.Keyframes[1]
		if first.Viseme != viseme.Open || math.Abs(first.Duration-0.12) > timeEps {
			t.Errorf("first = (%v, %v), want (open, 0.12)", first.Viseme, first.Duration)
		}
		if second.Viseme != viseme.Bilabial || math.Abs(second.Time-0.12) > timeEps || math.Abs(second.Duration-0.08) > timeEps {
			t.Errorf("second = (%v, %v, %v), want (bilabial, 0.12, 0.08)", second.Viseme, second.Time, second.Duration)
		}
	})

	t.Run("with blend window", func(t *testing.T) {
		s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0.040})
		tl := s.Synthesize(events, 0.20)
		assertContiguous(t, tl)

		// Both segments exceed the window, so a transition is inserted.
		if len(tl.Keyframes) != 3 {
			t.Fatalf("got %d keyframes, want 3 (open, transition, bilabial)", len(tl.Keyframes))
		}
		transition := tl.Keyframes[1]
		if math.Abs(transition.Duration-0.040) > timeEps {
			t.Errorf("transition duration = %v, want 0.040", transition.Duration)
		}
		if math.Abs(transition.Time-0.10) > timeEps {
			t.Errorf("transition starts at %v, want 0.10 (centered on boundary)", transition.Time)
		}

		open := viseme.NewTable()
		_, aaParams := open.Lookup("AA")
		_, mParams := open.Lookup("M")
		wantOpen := (aaParams.MouthOpen + mParams.MouthOpen) / 2
		if math.Abs(transition.Parameters.MouthOpen-wantOpen) > timeEps {
			t.Errorf("transition mouth_open = %v, want midpoint %v", transition.Parameters.MouthOpen, wantOpen)
		}
	})

	t.Run("segment shorter than blend window", func(t *testing.T) {
		s := newTestSynthesizer(SmoothingConfig{GapEpsilon: 0.020, MergeThreshold: 0.060, BlendWindow: 0.1})
		tl := s.Synthesize(events, 0.20)
		assertContiguous(t, tl)

		// Second segment (80ms) does not exceed the 100ms window.
		if len(tl.Keyframes) != 2 {
			t.Fatalf("got %d keyframes, want 2 without transition", len(tl.Keyframes))
		}
	})
}

func TestSynthesize_TrailingSilencePadsToAudioDuration(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.0, Duration: 0.1},
	}

	tl := s.Synthesize(events, 1.0)
	assertContiguous(t, tl)

	last := tl.Keyframes[len(tl.Keyframes)-1]
	if last.Viseme != viseme.Silence {
		t.Errorf("trailing keyframe viseme = %v, want silence", last.Viseme)
	}
	if math.Abs(tl.End()-1.0) > timeEps {
		t.Errorf("timeline ends at %v, want 1.0", tl.End())
	}
}

func TestSynthesize_LeadingSilenceBeforeFirstPhoneme(t *testing.T) {
	s := newTestSynthesizer(DefaultSmoothingConfig())

	events := []PhonemeEvent{
		{Symbol: "a", Onset: 0.5, Duration: 0.1},
	}

	tl := s.Synthesize(events, 0.6)
	assertContiguous(t, tl)

	first := tl.Keyframes[0]
	if first.Viseme != viseme.Silence || first.Time != 0 {
		t.Errorf("first keyframe = (%v at %v), want leading silence at 0", first.Viseme, first.Time)
	}
}
