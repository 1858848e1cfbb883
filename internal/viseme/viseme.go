// Package viseme defines the viseme category set and the phoneme-to-viseme
// mapping table used to drive avatar facial animation.
package viseme

import "strings"

// Category identifies a visually distinguishable mouth shape.
type Category string

const (
	Silence     Category = "silence"     // mouth closed, neutral
	Open        Category = "open"        // "ah" - father
	Mid         Category = "mid"         // "eh" - bed
	Close       Category = "close"       // "ee" - see
	Back        Category = "back"        // "oh" - go
	Round       Category = "round"       // "oo" - food
	Bilabial    Category = "bilabial"    // p, b, m - lips together
	Labiodental Category = "labiodental" // f, v - lip on teeth
	TongueTip   Category = "tongue-tip"  // t, d, n
	Sibilant    Category = "sibilant"    // s, z, sh
	Lateral     Category = "lateral"     // l
	Rhotic      Category = "rhotic"      // r
	Velar       Category = "velar"       // k, g, ng
	Approximant Category = "approximant" // w - rounded lips
)

// DefaultCategory is used for phoneme symbols outside the mapping table.
// Speech synthesizers emit stress markers and language-specific allophones;
// an open neutral shape degrades better than a hard failure.
const DefaultCategory = Open

// Categories returns every category in a fixed order.
func Categories() []Category {
	return []Category{
		Silence, Open, Mid, Close, Back, Round,
		Bilabial, Labiodental, TongueTip, Sibilant,
		Lateral, Rhotic, Velar, Approximant,
	}
}

// Parameters is a facial parameter vector. Each axis is a semantic weight
// in [0,1], independent of any one engine's blend-shape naming.
type Parameters struct {
	MouthOpen  float64 `json:"mouth_open"`
	MouthWidth float64 `json:"mouth_width"`
	LipPucker  float64 `json:"lip_pucker"`
	JawDrop    float64 `json:"jaw_drop"`
}

// Axes lists the parameter axis names in export order.
var Axes = []string{"mouth_open", "mouth_width", "lip_pucker", "jaw_drop"}

// Axis returns the named axis value.
func (p Parameters) Axis(name string) float64 {
	switch name {
	case "mouth_open":
		return p.MouthOpen
	case "mouth_width":
		return p.MouthWidth
	case "lip_pucker":
		return p.LipPucker
	case "jaw_drop":
		return p.JawDrop
	default:
		return 0
	}
}

var defaultParameters = map[Category]Parameters{
	Silence:     {MouthOpen: 0.0, MouthWidth: 0.5, LipPucker: 0.0, JawDrop: 0.0},
	Open:        {MouthOpen: 0.8, MouthWidth: 0.6, LipPucker: 0.0, JawDrop: 0.6},
	Mid:         {MouthOpen: 0.4, MouthWidth: 0.7, LipPucker: 0.0, JawDrop: 0.3},
	Close:       {MouthOpen: 0.2, MouthWidth: 0.8, LipPucker: 0.0, JawDrop: 0.1},
	Back:        {MouthOpen: 0.5, MouthWidth: 0.4, LipPucker: 0.3, JawDrop: 0.4},
	Round:       {MouthOpen: 0.3, MouthWidth: 0.3, LipPucker: 0.6, JawDrop: 0.2},
	Bilabial:    {MouthOpen: 0.0, MouthWidth: 0.5, LipPucker: 0.0, JawDrop: 0.0},
	Labiodental: {MouthOpen: 0.1, MouthWidth: 0.6, LipPucker: 0.0, JawDrop: 0.1},
	TongueTip:   {MouthOpen: 0.2, MouthWidth: 0.6, LipPucker: 0.0, JawDrop: 0.15},
	Sibilant:    {MouthOpen: 0.1, MouthWidth: 0.7, LipPucker: 0.0, JawDrop: 0.1},
	Lateral:     {MouthOpen: 0.3, MouthWidth: 0.6, LipPucker: 0.0, JawDrop: 0.2},
	Rhotic:      {MouthOpen: 0.3, MouthWidth: 0.5, LipPucker: 0.2, JawDrop: 0.2},
	Velar:       {MouthOpen: 0.2, MouthWidth: 0.5, LipPucker: 0.0, JawDrop: 0.2},
	Approximant: {MouthOpen: 0.2, MouthWidth: 0.3, LipPucker: 0.5, JawDrop: 0.15},
}

// defaultMapping maps normalized phoneme symbols to viseme categories.
// Covers IPA, lowercase ARPABET, and plain grapheme symbols so the table
// works with whichever alphabet the active synthesizer emits.
var defaultMapping = map[string]Category{
	// Silence markers
	"":    Silence,
	"sil": Silence,
	"sp":  Silence,
	"pau": Silence,

	// Open vowels
	"a": Open, "ɑ": Open, "æ": Open, "ʌ": Open, "ə": Open, "ɜ": Open,
	"aa": Open, "ae": Open, "ah": Open, "ax": Open, "er": Open,
	"aɪ": Open, "aʊ": Open, "ay": Open, "aw": Open,

	// Mid front vowels
	"e": Mid, "ɛ": Mid, "eh": Mid, "eɪ": Mid, "ey": Mid,

	// Close front vowels
	"i": Close, "ɪ": Close, "iy": Close, "ih": Close,
	"j": Close, "y": Close,

	// Back vowels
	"o": Back, "ɔ": Back, "ao": Back, "ow": Back, "oʊ": Back, "ɔɪ": Back, "oy": Back,

	// Close back vowels
	"u": Round, "ʊ": Round, "uw": Round, "uh": Round,

	// Bilabials
	"p": Bilabial, "b": Bilabial, "m": Bilabial,

	// Labiodentals
	"f": Labiodental, "v": Labiodental,

	// Tongue tip
	"t": TongueTip, "d": TongueTip, "n": TongueTip,
	"θ": TongueTip, "ð": TongueTip, "th": TongueTip, "dh": TongueTip,

	// Sibilants
	"s": Sibilant, "z": Sibilant,
	"ʃ": Sibilant, "ʒ": Sibilant, "sh": Sibilant, "zh": Sibilant,
	"tʃ": Sibilant, "dʒ": Sibilant, "ch": Sibilant, "jh": Sibilant,

	// Lateral
	"l": Lateral,

	// Rhotic
	"r": Rhotic, "ɹ": Rhotic,

	// Velars
	"k": Velar, "g": Velar, "ŋ": Velar, "ng": Velar, "c": Velar, "q": Velar, "x": Velar,

	// Glottal, open mouth
	"h": Open, "hh": Open,

	// Approximant
	"w": Approximant,
}

// Table is the immutable phoneme-to-viseme mapping. It is built once at
// startup and safe for concurrent lookup without locking.
type Table struct {
	mapping    map[string]Category
	parameters map[Category]Parameters
}

// Override replaces or adds a single symbol mapping at construction time.
type Override struct {
	Symbol   string
	Category Category
}

// NewTable builds the default mapping table, applying any overrides.
// Overrides naming an unknown category are ignored.
func NewTable(overrides ...Override) *Table {
	mapping := make(map[string]Category, len(defaultMapping))
	for k, v := range defaultMapping {
		mapping[k] = v
	}
	for _, o := range overrides {
		if _, ok := defaultParameters[o.Category]; !ok {
			continue
		}
		mapping[Normalize(o.Symbol)] = o.Category
	}

	return &Table{
		mapping:    mapping,
		parameters: defaultParameters,
	}
}

// Lookup resolves a phoneme symbol to its viseme category and parameter
// vector. Unknown symbols resolve to DefaultCategory; this never fails.
func (t *Table) Lookup(symbol string) (Category, Parameters) {
	cat, ok := t.mapping[Normalize(symbol)]
	if !ok {
		cat = DefaultCategory
	}
	return cat, t.parameters[cat]
}

// ParametersFor returns the default parameter vector for a category.
func (t *Table) ParametersFor(cat Category) Parameters {
	p, ok := t.parameters[cat]
	if !ok {
		return t.parameters[DefaultCategory]
	}
	return p
}

// Normalize folds a phoneme symbol to its table key: lowercase, trailing
// stress digits stripped (ARPABET "AA1" -> "aa"), IPA stress and length
// diacritics removed. "AA1", "aa" and "AA" all resolve identically.
func Normalize(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	for len(s) > 0 && s[len(s)-1] >= '0' && s[len(s)-1] <= '9' {
		s = s[:len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'ː', 'ˈ', 'ˌ', '\'':
			return -1
		}
		return r
	}, s)
	return s
}
