package export

import (
	"encoding/binary"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/viseme"
)

// GLTF exports the timeline as a glTF document holding a morph-target
// weight animation: one morph target per facial parameter axis, sampled at
// every keyframe boundary. The mesh is a placeholder triangle; consumers
// retarget the weight channels onto their own avatar mesh.
func GLTF(t timeline.Timeline) *gltf.Document {
	numTargets := len(viseme.Axes)

	times := make([]float32, 0, len(t.Keyframes)+1)
	weights := make([]float32, 0, (len(t.Keyframes)+1)*numTargets)

	appendSample := func(at float64, p viseme.Parameters) {
		times = append(times, float32(at))
		for _, axis := range viseme.Axes {
			weights = append(weights, float32(p.Axis(axis)))
		}
	}
	for _, kf := range t.Keyframes {
		appendSample(kf.Time, kf.Parameters)
	}
	if n := len(t.Keyframes); n > 0 {
		// Hold the final shape through the end of the audio.
		appendSample(t.Keyframes[n-1].End(), t.Keyframes[n-1].Parameters)
	}

	buf := newBinaryBuffer()
	timesView := buf.addFloats(times)
	weightsView := buf.addFloats(weights)

	positions := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	posView := buf.addFloats(positions)
	// Zero displacement; real displacements come from the target mesh.
	dispView := buf.addFloats(make([]float32, len(positions)))

	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: "avatarpipeline"},
		Buffers: []*gltf.Buffer{{
			ByteLength: len(buf.data),
			Data:       buf.data,
		}},
		BufferViews: buf.views,
		Accessors: []*gltf.Accessor{
			{
				BufferView:    gltf.Index(timesView),
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorScalar,
				Count:         len(times),
				Min:           []float64{float64(minOf(times))},
				Max:           []float64{float64(maxOf(times))},
			},
			{
				BufferView:    gltf.Index(weightsView),
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorScalar,
				Count:         len(weights),
			},
			{
				BufferView:    gltf.Index(posView),
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorVec3,
				Count:         3,
				Min:           []float64{0, 0, 0},
				Max:           []float64{1, 1, 0},
			},
			{
				BufferView:    gltf.Index(dispView),
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorVec3,
				Count:         3,
			},
		},
		Meshes: []*gltf.Mesh{{
			Name: "face",
			Primitives: []*gltf.Primitive{{
				Attributes: gltf.PrimitiveAttributes{gltf.POSITION: 2},
				Targets:    morphTargets(numTargets),
			}},
			Weights: make([]float64, numTargets),
		}},
		Nodes: []*gltf.Node{{
			Name: "avatar-face",
			Mesh: gltf.Index(0),
		}},
		Scene:  gltf.Index(0),
		Scenes: []*gltf.Scene{{Name: "lip_sync", Nodes: []int{0}}},
		Animations: []*gltf.Animation{{
			Name: "lip_sync",
			Samplers: []*gltf.AnimationSampler{{
				Input:         0,
				Output:        1,
				Interpolation: gltf.InterpolationLinear,
			}},
			Channels: []*gltf.AnimationChannel{{
				Sampler: 0,
				Target: gltf.AnimationChannelTarget{
					Node: gltf.Index(0),
					Path: gltf.TRSWeights,
				},
			}},
		}},
	}

	return doc
}

// morphTargets builds n targets all pointing at the zero-displacement
// accessor.
func morphTargets(n int) []gltf.PrimitiveAttributes {
	targets := make([]gltf.PrimitiveAttributes, n)
	for i := range targets {
		targets[i] = gltf.PrimitiveAttributes{gltf.POSITION: 3}
	}
	return targets
}

type binaryBuffer struct {
	data  []byte
	views []*gltf.BufferView
}

func newBinaryBuffer() *binaryBuffer {
	return &binaryBuffer{}
}

// addFloats appends little-endian float32 data as a new buffer view and
// returns the view index.
func (b *binaryBuffer) addFloats(values []float32) int {
	offset := len(b.data)
	for _, v := range values {
		var raw [4]byte
		binary.LittleEndian.PutUint32(raw[:], math.Float32bits(v))
		b.data = append(b.data, raw[:]...)
	}
	b.views = append(b.views, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: len(values) * 4,
	})
	return len(b.views) - 1
}

func minOf(vs []float32) float32 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float32) float32 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
