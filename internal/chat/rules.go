package chat

import (
	"context"
	"strings"
	"sync"
)

// intent groups keyword triggers with per-language response templates.
type intent struct {
	name      string
	keywords  map[string][]string // language -> trigger keywords
	responses map[string][]string // language -> response templates
	emotion   Emotion
}

// RuleResponder is a keyword-driven multilingual responder covering English
// and Hindi. Response selection cycles deterministically through templates
// per intent so repeated runs are reproducible.
type RuleResponder struct {
	intents  []intent
	fallback map[string][]string
	history  *History

	mu       sync.Mutex
	counters map[string]int
}

// NewRuleResponder builds the rule engine. history may be nil to disable
// follow-up awareness.
func NewRuleResponder(history *History) *RuleResponder {
	return &RuleResponder{
		intents:  defaultIntents(),
		fallback: defaultFallback(),
		history:  history,
		counters: make(map[string]int),
	}
}

// Respond matches the input against intent keywords and returns the next
// template for the matched intent in the detected language.
func (r *RuleResponder) Respond(ctx context.Context, req *RespondRequest) (*RespondResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	lang := req.Language
	if lang == "" {
		lang = DetectLanguage(text)
	}
	if lang != "hi" {
		lang = "en"
	}

	lower := strings.ToLower(text)

	var reply string
	emotion := DetectEmotion(text)

	matched := false
	for _, in := range r.intents {
		if matchesIntent(lower, in.keywords[lang]) || matchesIntent(lower, in.keywords["en"]) {
			reply = r.pick(in.name+"/"+lang, in.responses[lang])
			if emotion == EmotionNeutral {
				emotion = in.emotion
			}
			matched = true
			break
		}
	}
	if !matched {
		key := "default/" + lang
		templates := r.fallback[lang]
		if r.history != nil && r.history.IsFollowUp(text) {
			key = "followup/" + lang
			templates = followUpTemplates[lang]
		}
		reply = r.pick(key, templates)
	}

	if r.history != nil {
		r.history.Add(text, reply)
	}

	return &RespondResult{Text: reply, Emotion: emotion, Language: lang}, nil
}

// pick cycles through templates for a key, deterministic across runs that
// issue the same request sequence.
func (r *RuleResponder) pick(key string, templates []string) string {
	if len(templates) == 0 {
		return ""
	}
	r.mu.Lock()
	i := r.counters[key] % len(templates)
	r.counters[key]++
	r.mu.Unlock()
	return templates[i]
}

func matchesIntent(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectLanguage returns "hi" for text dominated by Devanagari characters,
// otherwise "en".
func DetectLanguage(text string) string {
	var devanagari, letters int
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x097F:
			devanagari++
			letters++
		case r > ' ':
			letters++
		}
	}
	if letters > 0 && devanagari*2 > letters {
		return "hi"
	}
	return "en"
}

var emotionKeywords = map[Emotion][]string{
	EmotionHappy:     {"great", "awesome", "wonderful", "love", "thank", "happy", "खुश", "धन्यवाद", "शुक्रिया"},
	EmotionSad:       {"sad", "sorry", "miss", "lonely", "cry", "दुख", "उदास"},
	EmotionAngry:     {"angry", "hate", "annoyed", "furious", "गुस्सा", "नाराज"},
	EmotionSurprised: {"wow", "really", "amazing", "incredible", "अरे", "वाह"},
}

// DetectEmotion scans for emotion keywords; first match in a fixed order
// wins so detection is deterministic.
func DetectEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	for _, emo := range []Emotion{EmotionHappy, EmotionSad, EmotionAngry, EmotionSurprised} {
		for _, kw := range emotionKeywords[emo] {
			if strings.Contains(lower, kw) {
				return emo
			}
		}
	}
	return EmotionNeutral
}

func defaultIntents() []intent {
	return []intent{
		{
			name: "greeting",
			keywords: map[string][]string{
				"en": {"hello", "hi ", "hey", "good morning", "good evening"},
				"hi": {"नमस्ते", "नमस्कार", "हैलो"},
			},
			responses: map[string][]string{
				"en": {
					"Hello! How can I help you today?",
					"Hi there! What would you like to talk about?",
					"Greetings! I'm here to chat with you.",
				},
				"hi": {
					"नमस्ते! आज मैं आपकी कैसे सहायता कर सकता हूँ?",
					"हैलो! आप किस बारे में बात करना चाहते हैं?",
				},
			},
			emotion: EmotionHappy,
		},
		{
			name: "how_are_you",
			keywords: map[string][]string{
				"en": {"how are you", "how's it going", "how do you do"},
				"hi": {"कैसे हो", "कैसे हैं", "क्या हाल"},
			},
			responses: map[string][]string{
				"en": {
					"I'm doing great, thank you for asking! How are you?",
					"I'm wonderful! Thanks for asking. How about you?",
				},
				"hi": {
					"मैं बहुत अच्छा हूँ, पूछने के लिए धन्यवाद! आप कैसे हैं?",
				},
			},
			emotion: EmotionHappy,
		},
		{
			name: "goodbye",
			keywords: map[string][]string{
				"en": {"bye", "goodbye", "see you", "farewell"},
				"hi": {"अलविदा", "फिर मिलेंगे"},
			},
			responses: map[string][]string{
				"en": {
					"Goodbye! It was nice talking to you!",
					"See you later! Take care!",
				},
				"hi": {
					"अलविदा! आपसे बात करके अच्छा लगा!",
				},
			},
			emotion: EmotionNeutral,
		},
		{
			name: "thanks",
			keywords: map[string][]string{
				"en": {"thank", "thanks", "appreciate"},
				"hi": {"धन्यवाद", "शुक्रिया"},
			},
			responses: map[string][]string{
				"en": {
					"You're very welcome!",
					"Happy to help!",
				},
				"hi": {
					"आपका स्वागत है!",
				},
			},
			emotion: EmotionHappy,
		},
		{
			name: "help",
			keywords: map[string][]string{
				"en": {"help", "what can you do"},
				"hi": {"मदद", "सहायता"},
			},
			responses: map[string][]string{
				"en": {
					"I can chat with you in English and Hindi. Ask me anything!",
				},
				"hi": {
					"मैं अंग्रेजी और हिंदी में बातचीत कर सकता हूँ। कुछ भी पूछें!",
				},
			},
			emotion: EmotionNeutral,
		},
		{
			name: "weather",
			keywords: map[string][]string{
				"en": {"weather", "rain", "sunny", "temperature"},
				"hi": {"मौसम", "बारिश"},
			},
			responses: map[string][]string{
				"en": {
					"I can't check the weather right now, but I hope it's nice where you are!",
				},
				"hi": {
					"मैं अभी मौसम की जाँच नहीं कर सकता, लेकिन उम्मीद है आपके यहाँ अच्छा मौसम हो!",
				},
			},
			emotion: EmotionNeutral,
		},
	}
}

func defaultFallback() map[string][]string {
	return map[string][]string{
		"en": {
			"That's interesting! Tell me more about it.",
			"I see! What else would you like to discuss?",
			"Fascinating! Can you elaborate on that?",
		},
		"hi": {
			"यह दिलचस्प है! इसके बारे में और बताएं।",
			"मैं समझ गया! आप और किस बारे में चर्चा करना चाहेंगे?",
		},
	}
}

var followUpTemplates = map[string][]string{
	"en": {
		"Building on what we just discussed - go on, I'm listening.",
		"Right, continuing from before. What else would you like to know?",
	},
	"hi": {
		"हाँ, हम उसी बारे में बात कर रहे थे। आगे बताइए।",
	},
}
