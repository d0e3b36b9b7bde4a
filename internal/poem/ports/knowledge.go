package ports

import "github.com/arabicverse/qasida/internal/poem"

// MeterKnowledgeBase is the read-only classical-prosody lookup contract
// (spec §6). The core never writes to it; data is provisioned externally.
type MeterKnowledgeBase interface {
	Lookup(meterName string) (*poem.MeterDescriptor, bool)
	Search(query string) []poem.MeterDescriptor
	ByTheme(theme string) []poem.MeterDescriptor
	ByDifficulty(level string) []poem.MeterDescriptor
	Canonicalize(name string) (string, error)
}

// RhymeKnowledgeBase resolves and validates qafiya components.
type RhymeKnowledgeBase interface {
	NormalizeLetter(letter string) (string, error)
	SuggestLetters(letter string) []string
	ValidType(rhymeType poem.RhymeType) bool
}
