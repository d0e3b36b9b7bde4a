package nodes

import (
	"context"
	"fmt"
	"sync"

	"github.com/arabicverse/qasida/internal/poem"
)

// fakeLLM returns queued responses in order, one per Generate call; it
// records every prompt it was asked to format for assertions. Safe for
// concurrent use since best_of_n fans generation out across goroutines.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	calls     []string
	err       error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeLLM: no more queued responses")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// fakeFormatter is a pass-through formatter: it ignores params and
// returns the template ID itself, which is all the node tests need to
// assert the right template was requested.
type fakeFormatter struct{}

func (fakeFormatter) Format(templateID string, params map[string]any) (string, error) {
	return templateID, nil
}

// fakeMeters is a minimal ports.MeterKnowledgeBase stub.
type fakeMeters struct {
	byName map[string]poem.MeterDescriptor
}

func newFakeMeters() *fakeMeters {
	return &fakeMeters{byName: map[string]poem.MeterDescriptor{
		"kamil": {Name: "kamil", DisplayName: "الكامل", Feet: []string{"متفاعلن", "متفاعلن", "متفاعلن"}, Difficulty: "easy", Themes: []string{"love"}},
	}}
}

func (f *fakeMeters) Lookup(name string) (*poem.MeterDescriptor, bool) {
	d, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return &d, true
}

func (f *fakeMeters) Search(query string) []poem.MeterDescriptor {
	var out []poem.MeterDescriptor
	for _, d := range f.byName {
		out = append(out, d)
	}
	return out
}

func (f *fakeMeters) ByTheme(theme string) []poem.MeterDescriptor {
	var out []poem.MeterDescriptor
	for _, d := range f.byName {
		for _, t := range d.Themes {
			if t == theme {
				out = append(out, d)
			}
		}
	}
	return out
}

func (f *fakeMeters) ByDifficulty(level string) []poem.MeterDescriptor {
	var out []poem.MeterDescriptor
	for _, d := range f.byName {
		if d.Difficulty == level {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeMeters) Canonicalize(name string) (string, error) {
	if _, ok := f.byName[name]; ok {
		return name, nil
	}
	return "", &poem.MeterError{Message: "unknown meter " + name}
}

// fakeRhymes is a minimal ports.RhymeKnowledgeBase stub.
type fakeRhymes struct{}

func (fakeRhymes) NormalizeLetter(letter string) (string, error) {
	if letter == "" {
		return "", &poem.RhymeError{Message: "empty rhyme letter"}
	}
	return letter, nil
}

func (fakeRhymes) SuggestLetters(letter string) []string { return nil }

func (fakeRhymes) ValidType(t poem.RhymeType) bool { return true }
