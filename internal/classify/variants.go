package classify

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// phoneticThreshold is the minimum Jaro-Winkler score an attempt must reach,
// on top of a Double Metaphone code overlap, to count as a pronunciation
// variant of the target.
const phoneticThreshold = 0.84

// variantPacks holds the built-in lexical variant tables, keyed by pack name.
// Each pack maps a canonical word to transcript spellings that recognisers
// commonly produce for an accepted pronunciation of it.
var variantPacks = map[string]map[string][]string{
	// Indian English pronunciation variants as they surface in en-IN ASR
	// output.
	"indian_english_pron_variants": {
		"ask":     {"aks", "aask"},
		"school":  {"iskool", "sakool"},
		"three":   {"tree", "thuree"},
		"the":     {"da", "dha"},
		"very":    {"wery"},
		"vine":    {"wine"},
		"west":    {"vest"},
		"zoo":     {"joo"},
		"measure": {"mejar"},
		"snake":   {"snek", "sanake"},
	},
	// Standard Hindi variants: schwa deletion and nukta-less spellings that
	// hi-IN recognisers emit interchangeably.
	"standard_hindi_variants": {
		"खरगोश": {"ख़रगोश"},
		"जंगल":  {"जङ्गल"},
		"फल":    {"फ़ल"},
		"पानी":  {"पानि"},
		"ज़रा":   {"जरा"},
	},
}

// Matcher decides whether a transcript counts as a read of a target word,
// applying the lexical variant packs configured for one language plus a
// phonetic-equivalence fallback. A Matcher is read-only after construction
// and safe for concurrent use.
type Matcher struct {
	packs    []map[string][]string
	phonetic bool
}

// NewMatcher creates a Matcher for the given variant pack names. Unknown
// pack names are ignored so that a config can reference packs shipped in a
// later release.
//
// usePhonetic enables the Double Metaphone fallback; it only helps for
// Latin-script languages and should be disabled for Devanagari, where the
// encoder produces no codes.
func NewMatcher(packNames []string, usePhonetic bool) *Matcher {
	m := &Matcher{phonetic: usePhonetic}
	for _, name := range packNames {
		if pack, ok := variantPacks[name]; ok {
			m.packs = append(m.packs, pack)
		}
	}
	return m
}

// Matches reports whether transcript is an accepted read of target.
//
// Matching proceeds in three stages, cheapest first: exact (case-folded,
// trimmed) equality, the lexical variant packs, then phonetic equivalence
// (Double Metaphone overlap ranked by Jaro-Winkler).
func (m *Matcher) Matches(target, transcript string) bool {
	t := normalize(target)
	h := normalize(transcript)
	if t == "" || h == "" {
		return false
	}
	if t == h {
		return true
	}

	for _, pack := range m.packs {
		for _, v := range pack[t] {
			if normalize(v) == h {
				return true
			}
		}
	}

	if m.phonetic {
		return phoneticEqual(t, h)
	}
	return false
}

// phoneticEqual reports whether two words share a Double Metaphone code and
// are close enough under Jaro-Winkler to be the same spoken word.
func phoneticEqual(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	if ap == "" && as == "" {
		return false
	}
	overlap := (ap != "" && (ap == bp || ap == bs)) ||
		(as != "" && (as == bp || as == bs))
	if !overlap {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= phoneticThreshold
}

// normalize lower-cases and trims a word, stripping trailing punctuation the
// recogniser may attach.
func normalize(w string) string {
	w = strings.ToLower(strings.TrimSpace(w))
	return strings.TrimRight(w, ".,!?;:'\"")
}
