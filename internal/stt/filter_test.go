package stt

import "testing"

func TestFilter_Clean(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain text untouched", "turn on the lights", "turn on the lights", true},
		{"leading filler", "um turn on the lights", "turn on the lights", true},
		{"mixed case filler", "Uh, what time is it", ", what time is it", true},
		{"multi-word filler", "you know it is basically done", "it is done", true},
		{"collapses whitespace", "hello   there   um   friend", "hello there friend", true},
		{"only fillers", "um uh hmm", "", false},
		{"fillers and punctuation", "um, uh...", "", false},
		{"empty input", "", "", false},
		{"filler inside word kept", "drummer gathers", "drummer gathers", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Clean(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Clean(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFilter_CustomWords(t *testing.T) {
	f := NewFilter([]string{"like"})

	got, ok := f.Clean("it was like really good")
	if !ok || got != "it was really good" {
		t.Errorf("Clean = (%q, %v), want (%q, true)", got, ok, "it was really good")
	}

	// Default fillers pass through a custom filter.
	got, ok = f.Clean("um hello")
	if !ok || got != "um hello" {
		t.Errorf("Clean = (%q, %v), want (%q, true)", got, ok, "um hello")
	}
}

func TestFilter_EmptyListDisablesFiltering(t *testing.T) {
	f := NewFilter([]string{})

	got, ok := f.Clean("um hello um")
	if !ok || got != "um hello um" {
		t.Errorf("Clean = (%q, %v), want input unchanged", got, ok)
	}
}
