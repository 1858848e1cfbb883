package chat

import (
	"context"
	"errors"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello there", "en"},
		{"नमस्ते", "hi"},
		{"नमस्ते दोस्त", "hi"},
		{"hello नमस्ते friend of mine", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.text); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectEmotion(t *testing.T) {
	tests := []struct {
		text string
		want Emotion
	}{
		{"that is awesome", EmotionHappy},
		{"I feel so sad today", EmotionSad},
		{"I hate this", EmotionAngry},
		{"wow incredible", EmotionSurprised},
		{"the door is open", EmotionNeutral},
		{"धन्यवाद", EmotionHappy},
	}
	for _, tt := range tests {
		if got := DetectEmotion(tt.text); got != tt.want {
			t.Errorf("DetectEmotion(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestRuleResponder_GreetingIntent(t *testing.T) {
	r := NewRuleResponder(nil)

	res, err := r.Respond(context.Background(), &RespondRequest{Text: "hello friend"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Language != "en" {
		t.Errorf("language = %q, want en", res.Language)
	}
	if res.Emotion != EmotionHappy {
		t.Errorf("emotion = %q, want happy", res.Emotion)
	}
	if res.Text == "" {
		t.Error("empty reply for greeting")
	}
}

func TestRuleResponder_HindiGreeting(t *testing.T) {
	r := NewRuleResponder(nil)

	res, err := r.Respond(context.Background(), &RespondRequest{Text: "नमस्ते"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Language != "hi" {
		t.Errorf("language = %q, want hi", res.Language)
	}
	if res.Text != "नमस्ते! आज मैं आपकी कैसे सहायता कर सकता हूँ?" {
		t.Errorf("unexpected reply %q", res.Text)
	}
}

func TestRuleResponder_LanguageHintOverridesDetection(t *testing.T) {
	r := NewRuleResponder(nil)

	// English keywords still match via the "en" keyword fallback, but the
	// reply comes from the requested language.
	res, err := r.Respond(context.Background(), &RespondRequest{Text: "hello", Language: "hi"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Language != "hi" {
		t.Errorf("language = %q, want hi", res.Language)
	}
}

func TestRuleResponder_CyclesTemplatesDeterministically(t *testing.T) {
	first := NewRuleResponder(nil)
	second := NewRuleResponder(nil)

	var a, b []string
	for i := 0; i < 5; i++ {
		ra, err := first.Respond(context.Background(), &RespondRequest{Text: "hello"})
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
		rb, err := second.Respond(context.Background(), &RespondRequest{Text: "hello"})
		if err != nil {
			t.Fatalf("Respond: %v", err)
		}
		a = append(a, ra.Text)
		b = append(b, rb.Text)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run diverged at request %d: %q vs %q", i, a[i], b[i])
		}
	}
	if a[0] == a[1] {
		t.Error("consecutive greetings did not cycle templates")
	}
}

func TestRuleResponder_EmptyInputRejected(t *testing.T) {
	r := NewRuleResponder(nil)

	if _, err := r.Respond(context.Background(), &RespondRequest{Text: "   "}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Respond(blank) = %v, want ErrEmptyInput", err)
	}
}

func TestRuleResponder_FollowUpUsesHistory(t *testing.T) {
	r := NewRuleResponder(NewHistory(HistoryConfig{}))

	if _, err := r.Respond(context.Background(), &RespondRequest{Text: "my dog plays piano"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	res, err := r.Respond(context.Background(), &RespondRequest{Text: "and she composes too"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Text != followUpTemplates["en"][0] {
		t.Errorf("follow-up reply = %q, want %q", res.Text, followUpTemplates["en"][0])
	}
}

func TestRuleResponder_CancelledContext(t *testing.T) {
	r := NewRuleResponder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Respond(ctx, &RespondRequest{Text: "hello"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Respond(cancelled) = %v, want context.Canceled", err)
	}
}

func TestRuleResponder_UnmatchedFallsBack(t *testing.T) {
	r := NewRuleResponder(nil)

	res, err := r.Respond(context.Background(), &RespondRequest{Text: "quantum chromodynamics"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Text != defaultFallback()["en"][0] {
		t.Errorf("fallback reply = %q, want %q", res.Text, defaultFallback()["en"][0])
	}
}
