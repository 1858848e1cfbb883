// Package export converts viseme timelines into renderer-facing animation
// formats: per-axis track sets, animation clips, and glTF morph-weight
// animations. Parameter values are addressed by semantic axis name, never
// by a specific engine's blend-shape convention.
package export

import (
	"encoding/json"

	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/viseme"
)

// Track is one scalar animation curve: parallel times and values.
type Track struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// NameTrack carries the viseme category per keyframe for debugging and
// event hooks.
type NameTrack struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Times  []float64 `json:"times"`
	Values []string  `json:"values"`
}

// TrackSet is the track-based export: one curve per facial parameter axis
// plus the viseme name track.
type TrackSet struct {
	Name     string    `json:"name"`
	Duration float64   `json:"duration"`
	Tracks   []Track   `json:"tracks"`
	Visemes  NameTrack `json:"viseme_track"`
}

// Tracks exports the timeline as a TrackSet.
func Tracks(t timeline.Timeline) *TrackSet {
	set := &TrackSet{
		Name:     "lip_sync",
		Duration: t.TotalDuration,
		Tracks:   make([]Track, 0, len(viseme.Axes)),
	}

	for _, axis := range viseme.Axes {
		track := Track{
			Name:   "facial." + axis,
			Type:   "number",
			Times:  make([]float64, 0, len(t.Keyframes)),
			Values: make([]float64, 0, len(t.Keyframes)),
		}
		for _, kf := range t.Keyframes {
			track.Times = append(track.Times, kf.Time)
			track.Values = append(track.Values, kf.Parameters.Axis(axis))
		}
		set.Tracks = append(set.Tracks, track)
	}

	set.Visemes = NameTrack{
		Name:  "viseme_names",
		Type:  "string",
		Times: make([]float64, 0, len(t.Keyframes)),
	}
	for _, kf := range t.Keyframes {
		set.Visemes.Times = append(set.Visemes.Times, kf.Time)
		set.Visemes.Values = append(set.Visemes.Values, string(kf.Viseme))
	}

	return set
}

// JSON renders the track set as indented JSON.
func (s *TrackSet) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
