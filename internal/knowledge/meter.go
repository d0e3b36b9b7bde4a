// Package knowledge provides static, in-process lookup tables for the
// classical meter and rhyme taxonomies the pipeline validates against.
// The spec treats the full prosody knowledge base as externally
// provisioned; this package seeds a representative subset so the engine
// has something to resolve against without a network dependency.
package knowledge

import (
	"strings"

	"github.com/arabicverse/qasida/internal/poem"
)

// MeterBook is a static implementation of ports.MeterKnowledgeBase seeded
// with the sixteen classical bihar.
type MeterBook struct {
	byName map[string]poem.MeterDescriptor
	order  []string
}

// NewMeterBook returns a MeterBook seeded with the canonical bihar.
func NewMeterBook() *MeterBook {
	b := &MeterBook{byName: make(map[string]poem.MeterDescriptor)}
	for _, d := range seedMeters {
		b.byName[d.Name] = d
		b.order = append(b.order, d.Name)
	}
	return b
}

var seedMeters = []poem.MeterDescriptor{
	{
		Name: "tawil", DisplayName: "الطويل", Feet: []string{"فعولن", "مفاعيلن", "فعولن", "مفاعيلن"},
		AllowedZihafs: []string{"qabd"}, AllowedIlals: []string{"qasr"},
		Difficulty: "medium", Themes: []string{"panegyric", "elegy", "wisdom"},
	},
	{
		Name: "madid", DisplayName: "المديد", Feet: []string{"فاعلاتن", "فاعلن", "فاعلاتن"},
		AllowedZihafs: []string{"khabn"}, Difficulty: "hard", Themes: []string{"love"},
	},
	{
		Name: "basit", DisplayName: "البسيط", Feet: []string{"مستفعلن", "فاعلن", "مستفعلن", "فاعلن"},
		AllowedZihafs: []string{"khabn", "tayy"}, Difficulty: "medium", Themes: []string{"panegyric", "satire"},
	},
	{
		Name: "wafir", DisplayName: "الوافر", Feet: []string{"مفاعلتن", "مفاعلتن", "فعولن"},
		AllowedZihafs: []string{"asb"}, Difficulty: "medium", Themes: []string{"love", "elegy"},
	},
	{
		Name: "kamil", DisplayName: "الكامل", Feet: []string{"متفاعلن", "متفاعلن", "متفاعلن"},
		AllowedZihafs: []string{"idmar"}, Difficulty: "easy", Themes: []string{"panegyric", "war"},
	},
	{
		Name: "hazaj", DisplayName: "الهزج", Feet: []string{"مفاعيلن", "مفاعيلن"},
		Difficulty: "easy", Themes: []string{"love", "nasib"},
	},
	{
		Name: "rajaz", DisplayName: "الرجز", Feet: []string{"مستفعلن", "مستفعلن", "مستفعلن"},
		AllowedZihafs: []string{"khabn", "tayy"}, Difficulty: "easy", Themes: []string{"didactic", "war"},
	},
	{
		Name: "ramal", DisplayName: "الرمل", Feet: []string{"فاعلاتن", "فاعلاتن", "فاعلاتن"},
		AllowedZihafs: []string{"khabn"}, Difficulty: "medium", Themes: []string{"love", "nostalgia"},
	},
	{
		Name: "sari", DisplayName: "السريع", Feet: []string{"مستفعلن", "مستفعلن", "فاعلن"},
		Difficulty: "hard", Themes: []string{"narrative"},
	},
	{
		Name: "munsarih", DisplayName: "المنسرح", Feet: []string{"مستفعلن", "مفعولات", "مستفعلن"},
		Difficulty: "hard", Themes: []string{"wisdom"},
	},
	{
		Name: "khafif", DisplayName: "الخفيف", Feet: []string{"فاعلاتن", "مستفعلن", "فاعلاتن"},
		AllowedZihafs: []string{"khabn"}, Difficulty: "medium", Themes: []string{"love", "wisdom"},
	},
	{
		Name: "mudari", DisplayName: "المضارع", Feet: []string{"مفاعيلن", "فاعلاتن"},
		Difficulty: "hard", Themes: []string{"rare"},
	},
	{
		Name: "muqtadab", DisplayName: "المقتضب", Feet: []string{"مفعولات", "مستفعلن"},
		Difficulty: "hard", Themes: []string{"rare"},
	},
	{
		Name: "mujtathth", DisplayName: "المجتث", Feet: []string{"مستفعلن", "فاعلاتن"},
		Difficulty: "hard", Themes: []string{"rare"},
	},
	{
		Name: "mutaqarib", DisplayName: "المتقارب", Feet: []string{"فعولن", "فعولن", "فعولن", "فعولن"},
		AllowedZihafs: []string{"qabd"}, Difficulty: "easy", Themes: []string{"narrative", "epic"},
	},
	{
		Name: "mutadarik", DisplayName: "المتدارك", Feet: []string{"فاعلن", "فاعلن", "فاعلن", "فاعلن"},
		Difficulty: "medium", Themes: []string{"modern"},
	},
}

// Lookup returns the descriptor for the canonical meter name.
func (b *MeterBook) Lookup(meterName string) (*poem.MeterDescriptor, bool) {
	d, ok := b.byName[normalizeMeterName(meterName)]
	if !ok {
		return nil, false
	}
	cp := d
	return &cp, true
}

// Search returns every descriptor whose name or display name contains
// query (case-insensitive, in declaration order).
func (b *MeterBook) Search(query string) []poem.MeterDescriptor {
	q := strings.ToLower(query)
	var out []poem.MeterDescriptor
	for _, name := range b.order {
		d := b.byName[name]
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(d.DisplayName, query) {
			out = append(out, d)
		}
	}
	return out
}

// ByTheme returns every descriptor that lists theme among its Themes.
func (b *MeterBook) ByTheme(theme string) []poem.MeterDescriptor {
	theme = strings.ToLower(theme)
	var out []poem.MeterDescriptor
	for _, name := range b.order {
		d := b.byName[name]
		for _, t := range d.Themes {
			if strings.ToLower(t) == theme {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// ByDifficulty returns every descriptor at the given difficulty level.
func (b *MeterBook) ByDifficulty(level string) []poem.MeterDescriptor {
	level = strings.ToLower(level)
	var out []poem.MeterDescriptor
	for _, name := range b.order {
		d := b.byName[name]
		if strings.ToLower(d.Difficulty) == level {
			out = append(out, d)
		}
	}
	return out
}

// Canonicalize resolves a user- or LLM-supplied meter name (possibly
// Arabic display form, possibly mixed case) to its canonical lowercase
// key, returning a MeterError listing close candidates when it can't.
func (b *MeterBook) Canonicalize(name string) (string, error) {
	norm := normalizeMeterName(name)
	if _, ok := b.byName[norm]; ok {
		return norm, nil
	}
	for key, d := range b.byName {
		if d.DisplayName == name {
			return key, nil
		}
	}
	var candidates []string
	for _, n := range b.Search(name) {
		candidates = append(candidates, n.Name)
	}
	return "", &poem.MeterError{Message: "unknown meter " + name, Candidates: candidates}
}

func normalizeMeterName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
