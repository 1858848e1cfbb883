package export

import (
	"encoding/json"

	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/viseme"
)

// CurveKey is one keyframe of an animation curve with flat tangents.
type CurveKey struct {
	Time       float64 `json:"time"`
	Value      float64 `json:"value"`
	InTangent  float64 `json:"in_tangent"`
	OutTangent float64 `json:"out_tangent"`
}

// Curve is one parameter axis as a keyed animation curve.
type Curve struct {
	Path      string     `json:"path"`
	Keyframes []CurveKey `json:"keyframes"`
}

// ClipEvent fires when the viseme category changes during playback.
type ClipEvent struct {
	Time     float64 `json:"time"`
	Function string  `json:"function_name"`
	Viseme   string  `json:"string_parameter"`
	Duration float64 `json:"float_parameter"`
}

// Clip is the clip-based export: curves per axis plus viseme-change events.
type Clip struct {
	Name   string      `json:"clip_name"`
	Length float64     `json:"length"`
	Curves []Curve     `json:"curves"`
	Events []ClipEvent `json:"events"`
}

// NewClip exports the timeline as an animation clip.
func NewClip(t timeline.Timeline) *Clip {
	clip := &Clip{
		Name:   "LipSyncClip",
		Length: t.TotalDuration,
		Curves: make([]Curve, 0, len(viseme.Axes)),
	}

	for _, axis := range viseme.Axes {
		curve := Curve{
			Path:      "facial_" + axis,
			Keyframes: make([]CurveKey, 0, len(t.Keyframes)),
		}
		for _, kf := range t.Keyframes {
			curve.Keyframes = append(curve.Keyframes, CurveKey{
				Time:  kf.Time,
				Value: kf.Parameters.Axis(axis),
			})
		}
		clip.Curves = append(clip.Curves, curve)
	}

	for _, kf := range t.Keyframes {
		clip.Events = append(clip.Events, ClipEvent{
			Time:     kf.Time,
			Function: "OnVisemeChange",
			Viseme:   string(kf.Viseme),
			Duration: kf.Duration,
		})
	}

	return clip
}

// JSON renders the clip as indented JSON.
func (c *Clip) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
