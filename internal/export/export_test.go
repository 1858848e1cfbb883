package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/viseme"
)

func sampleTimeline() timeline.Timeline {
	table := viseme.NewTable()
	open := table.ParametersFor(viseme.Open)
	bilabial := table.ParametersFor(viseme.Bilabial)
	silence := table.ParametersFor(viseme.Silence)

	return timeline.Timeline{
		Keyframes: []timeline.Keyframe{
			{Time: 0.0, Viseme: viseme.Open, Duration: 0.12, Parameters: open, SourcePhoneme: "aa"},
			{Time: 0.12, Viseme: viseme.Bilabial, Duration: 0.08, Parameters: bilabial, SourcePhoneme: "m"},
			{Time: 0.20, Viseme: viseme.Silence, Duration: 0.10, Parameters: silence},
		},
		TotalDuration: 0.30,
	}
}

func TestTracks(t *testing.T) {
	tl := sampleTimeline()
	set := Tracks(tl)

	assert.Equal(t, tl.TotalDuration, set.Duration)
	require.Len(t, set.Tracks, len(viseme.Axes))

	for i, track := range set.Tracks {
		assert.Equal(t, "facial."+viseme.Axes[i], track.Name)
		require.Len(t, track.Times, len(tl.Keyframes))
		require.Len(t, track.Values, len(tl.Keyframes))
		for j, at := range track.Times {
			assert.Equal(t, tl.Keyframes[j].Time, at)
		}
	}

	// mouth_open follows the keyframe parameters.
	table := viseme.NewTable()
	assert.Equal(t, table.ParametersFor(viseme.Open).MouthOpen, set.Tracks[0].Values[0])
	assert.Equal(t, table.ParametersFor(viseme.Silence).MouthOpen, set.Tracks[0].Values[2])

	require.Len(t, set.Visemes.Values, len(tl.Keyframes))
	assert.Equal(t, []string{"open", "bilabial", "silence"}, set.Visemes.Values)
}

func TestTracks_JSONRoundTrip(t *testing.T) {
	data, err := Tracks(sampleTimeline()).JSON()
	require.NoError(t, err)

	var decoded TrackSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "lip_sync", decoded.Name)
	assert.Len(t, decoded.Tracks, len(viseme.Axes))
}

func TestNewClip(t *testing.T) {
	tl := sampleTimeline()
	clip := NewClip(tl)

	assert.Equal(t, tl.TotalDuration, clip.Length)
	require.Len(t, clip.Curves, len(viseme.Axes))
	for i, curve := range clip.Curves {
		assert.Equal(t, "facial_"+viseme.Axes[i], curve.Path)
		require.Len(t, curve.Keyframes, len(tl.Keyframes))
	}

	require.Len(t, clip.Events, len(tl.Keyframes))
	for i, ev := range clip.Events {
		assert.Equal(t, "OnVisemeChange", ev.Function)
		assert.Equal(t, string(tl.Keyframes[i].Viseme), ev.Viseme)
		assert.Equal(t, tl.Keyframes[i].Duration, ev.Duration)
	}
}

func TestGLTF(t *testing.T) {
	tl := sampleTimeline()
	doc := GLTF(tl)

	numTargets := len(viseme.Axes)
	// One sample per keyframe plus the final hold sample.
	wantSamples := len(tl.Keyframes) + 1

	require.Len(t, doc.Animations, 1)
	anim := doc.Animations[0]
	require.Len(t, anim.Samplers, 1)
	require.Len(t, anim.Channels, 1)

	times := doc.Accessors[anim.Samplers[0].Input]
	weights := doc.Accessors[anim.Samplers[0].Output]
	assert.Equal(t, wantSamples, times.Count)
	assert.Equal(t, wantSamples*numTargets, weights.Count,
		"one weight per morph target per sample")

	assert.Equal(t, []float64{0}, times.Min)
	require.Len(t, times.Max, 1)
	assert.InDelta(t, tl.End(), times.Max[0], 1e-6)

	require.Len(t, doc.Meshes, 1)
	mesh := doc.Meshes[0]
	require.Len(t, mesh.Primitives, 1)
	assert.Len(t, mesh.Primitives[0].Targets, numTargets)
	assert.Len(t, mesh.Weights, numTargets)

	// Buffer holds everything the views promise.
	require.Len(t, doc.Buffers, 1)
	var total int
	for _, view := range doc.BufferViews {
		if end := view.ByteOffset + view.ByteLength; end > total {
			total = end
		}
	}
	assert.Equal(t, total, doc.Buffers[0].ByteLength)
	assert.Len(t, doc.Buffers[0].Data, doc.Buffers[0].ByteLength)
}

func TestGLTF_EmptyTimeline(t *testing.T) {
	doc := GLTF(timeline.Timeline{})

	require.Len(t, doc.Animations, 1)
	assert.Equal(t, 0, doc.Accessors[0].Count)
}
