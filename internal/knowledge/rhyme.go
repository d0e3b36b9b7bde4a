package knowledge

import (
	"strings"

	"github.com/arabicverse/qasida/internal/poem"
)

// arabicLetters is the full consonantal alphabet usable as a rowi, in
// presentation order. ء (bare hamza) is included since every hamza
// carrier collapses onto it.
var arabicLetters = strings.Split(
	"ا ب ت ث ج ح خ د ذ ر ز س ش ص ض ط ظ ع غ ف ق ك ل م ن ه و ي ء", " ")

var validLetterSet = func() map[string]bool {
	m := make(map[string]bool, len(arabicLetters))
	for _, l := range arabicLetters {
		m[l] = true
	}
	return m
}()

// baseForm collapses the rowi's orthographic variants onto their base
// consonant (spec §4.3): hamza carriers onto bare hamza, alif variants
// onto bare alif, ta marbuta onto ha.
var baseForm = map[string]string{
	"أ": "ء", "إ": "ء", "ؤ": "ء", "ئ": "ء",
	"آ": "ا", "ى": "ا",
	"ة": "ه",
}

// RhymeBook is a static implementation of ports.RhymeKnowledgeBase.
type RhymeBook struct{}

// NewRhymeBook returns a RhymeBook.
func NewRhymeBook() *RhymeBook { return &RhymeBook{} }

// NormalizeLetter validates and trims a rowi letter, returning a
// RhymeError listing nearby candidates when it isn't a valid Arabic
// consonant.
func (b *RhymeBook) NormalizeLetter(letter string) (string, error) {
	l := strings.TrimSpace(letter)
	if base, ok := baseForm[l]; ok {
		l = base
	}
	if validLetterSet[l] {
		return l, nil
	}
	return "", &poem.RhymeError{
		Message:    "unrecognized rhyme letter " + letter,
		Candidates: b.SuggestLetters(letter),
	}
}

// SuggestLetters returns candidate letters near the requested one. Since
// the alphabet is small and flat, this returns the full set minus an
// exact duplicate, capped to a short list so a parse-error prompt stays
// readable.
func (b *RhymeBook) SuggestLetters(letter string) []string {
	const maxSuggestions = 5
	var out []string
	for _, l := range arabicLetters {
		if l == letter {
			continue
		}
		out = append(out, l)
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out
}

// ValidType reports whether t is one of the taxonomy's recognized rhyme
// types.
func (b *RhymeBook) ValidType(t poem.RhymeType) bool {
	switch t {
	case poem.RhymeMutawatir, poem.RhymeMutarakib, poem.RhymeMutadarik, poem.RhymeMutaqarib, poem.RhymeMutakawis:
		return true
	default:
		return false
	}
}
