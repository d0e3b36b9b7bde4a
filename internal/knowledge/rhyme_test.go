package knowledge

import (
	"testing"

	"github.com/arabicverse/qasida/internal/poem"
)

func TestRhymeBookNormalizeLetterPlain(t *testing.T) {
	b := NewRhymeBook()
	got, err := b.NormalizeLetter("ق")
	if err != nil {
		t.Fatalf("NormalizeLetter returned error: %v", err)
	}
	if got != "ق" {
		t.Fatalf("NormalizeLetter(ق) = %q, want ق", got)
	}
}

func TestRhymeBookNormalizeLetterHamzaCarriers(t *testing.T) {
	b := NewRhymeBook()
	for _, carrier := range []string{"أ", "إ", "ؤ", "ئ"} {
		got, err := b.NormalizeLetter(carrier)
		if err != nil {
			t.Fatalf("NormalizeLetter(%q) returned error: %v", carrier, err)
		}
		if got != "ء" {
			t.Fatalf("NormalizeLetter(%q) = %q, want bare hamza ء", carrier, got)
		}
	}
}

func TestRhymeBookNormalizeLetterAlifVariants(t *testing.T) {
	b := NewRhymeBook()
	for _, variant := range []string{"آ", "ى"} {
		got, err := b.NormalizeLetter(variant)
		if err != nil {
			t.Fatalf("NormalizeLetter(%q) returned error: %v", variant, err)
		}
		if got != "ا" {
			t.Fatalf("NormalizeLetter(%q) = %q, want bare alif ا", variant, got)
		}
	}
}

func TestRhymeBookNormalizeLetterTaMarbuta(t *testing.T) {
	b := NewRhymeBook()
	got, err := b.NormalizeLetter("ة")
	if err != nil {
		t.Fatalf("NormalizeLetter(ة) returned error: %v", err)
	}
	if got != "ه" {
		t.Fatalf("NormalizeLetter(ة) = %q, want ه", got)
	}
}

func TestRhymeBookNormalizeLetterInvalid(t *testing.T) {
	b := NewRhymeBook()
	_, err := b.NormalizeLetter("z")
	if err == nil {
		t.Fatalf("expected an error for a non-Arabic letter")
	}
	var rhymeErr *poem.RhymeError
	if _, ok := err.(*poem.RhymeError); !ok {
		t.Fatalf("expected a *poem.RhymeError, got %T", err)
	}
	_ = rhymeErr
}

func TestRhymeBookValidType(t *testing.T) {
	b := NewRhymeBook()
	if !b.ValidType(poem.RhymeMutawatir) {
		t.Fatalf("expected mutawatir to be a valid rhyme type")
	}
	if b.ValidType(poem.RhymeType("not-a-type")) {
		t.Fatalf("expected an unrecognized rhyme type to be invalid")
	}
}
