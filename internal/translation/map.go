// Package translation holds the content-addressed translation map, the
// per-run diff against it, and the mechanical URL locale tagging.
package translation

import (
	"sort"

	"github.com/transitops/alerts-translator/internal/feed"
)

// Map is a content-addressed translation cache: English text to its known
// per-language translations. Keys are exact strings; record identity plays
// no part, which is what lets identical text be reused across alerts.
type Map map[string]map[string]string

// NewMap builds a map from the text fields of a previously published feed.
// When the same English text occurs in several fields the per-language
// entries are unioned, last writer winning on a conflicting language.
func NewMap(fields []feed.TextField) Map {
	m := make(Map)
	for _, f := range fields {
		for lang, text := range f.Existing {
			m.Add(f.English, lang, text)
		}
	}
	return m
}

// Add records one translation. Empty English keys are never stored. An
// empty translated value is stored as-is: "present but empty" is a valid
// translation, distinct from a missing one.
func (m Map) Add(english, lang, text string) {
	if english == "" {
		return
	}
	inner, ok := m[english]
	if !ok {
		inner = make(map[string]string)
		m[english] = inner
	}
	inner[lang] = text
}

// Lookup returns the translation of english into lang, if known.
func (m Map) Lookup(english, lang string) (string, bool) {
	inner, ok := m[english]
	if !ok {
		return "", false
	}
	text, ok := inner[lang]
	return text, ok
}

// Merge copies every entry of other into m, overwriting on conflict.
func (m Map) Merge(other Map) {
	for english, inner := range other {
		for lang, text := range inner {
			m.Add(english, lang, text)
		}
	}
}

// Pair is one unit of remote work: one English text into one language.
type Pair struct {
	Text     string
	Language string
}

// WorkSet maps each distinct English text of the incoming feed to the
// target languages configured for the run, preserving their order.
type WorkSet struct {
	languages []string
	texts     map[string]struct{}
}

// NewWorkSet collects the distinct English texts of the new feed's fields
// against the run's target languages.
func NewWorkSet(fields []feed.TextField, languages []string) WorkSet {
	ws := WorkSet{
		languages: languages,
		texts:     make(map[string]struct{}),
	}
	for _, f := range fields {
		if f.English != "" {
			ws.texts[f.English] = struct{}{}
		}
	}
	return ws
}

// Size returns the total number of (text, language) pairs in the set.
func (ws WorkSet) Size() int {
	return len(ws.texts) * len(ws.languages)
}

// Missing returns the pairs in the work set that m has no translation for,
// ordered by text and then by configured language order so that identical
// inputs always produce the identical set. With force set, every pair is
// returned regardless of what m already holds.
func (ws WorkSet) Missing(m Map, force bool) []Pair {
	texts := make([]string, 0, len(ws.texts))
	for text := range ws.texts {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	var missing []Pair
	for _, text := range texts {
		for _, lang := range ws.languages {
			if !force {
				if _, ok := m.Lookup(text, lang); ok {
					continue
				}
			}
			missing = append(missing, Pair{Text: text, Language: lang})
		}
	}
	return missing
}
