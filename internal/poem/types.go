// Package poem holds the core domain model shared by every stage of the
// generation pipeline: constraints, candidate poems, and the quality
// record the evaluator attaches to them.
package poem

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateID creates a random ID with the given prefix, e.g. "exec-abc123".
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b))
}

// RhymeHarakah is the terminal vowel mark (or its absence) on the rowi.
type RhymeHarakah string

const (
	HarakahSukun RhymeHarakah = "sukun"
	HarakahFatha RhymeHarakah = "fatha"
	HarakahKasra RhymeHarakah = "kasra"
	HarakahDamma RhymeHarakah = "damma"
)

// RhymeType classifies the qafiya pattern per classical taxonomy.
type RhymeType string

const (
	RhymeMutawatir RhymeType = "mutawatir"
	RhymeMutarakib RhymeType = "mutarakib"
	RhymeMutadarik RhymeType = "mutadarik"
	RhymeMutaqarib RhymeType = "mutaqarib"
	RhymeMutakawis RhymeType = "mutakawis"
)

// Constraint carries every requirement a candidate poem must satisfy.
// It is replaced wholesale by each enricher rather than mutated in place,
// so a Constraint value is always a complete, self-consistent snapshot.
type Constraint struct {
	Meter        string   `json:"meter,omitempty"`
	MeterFeet    []string `json:"meter_feet,omitempty"`
	RhymeLetter  string   `json:"rhyme_letter,omitempty"`
	RhymeHarakah RhymeHarakah `json:"rhyme_harakah,omitempty"`
	RhymeType    RhymeType    `json:"rhyme_type,omitempty"`
	LineCount    int      `json:"line_count,omitempty"`

	Theme     string `json:"theme,omitempty"`
	Tone      string `json:"tone,omitempty"`
	Register  string `json:"register,omitempty"`
	Era       string `json:"era,omitempty"`
	PoetStyle string `json:"poet_style,omitempty"`

	Imagery  []string `json:"imagery,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Sections []string `json:"sections,omitempty"`

	Ambiguities []string `json:"ambiguities,omitempty"`

	OriginalPrompt string `json:"original_prompt"`
}

// Clone returns a deep-enough copy safe to hand to a concurrent candidate
// (Best-of-N) without sharing backing slices with the parent context.
func (c Constraint) Clone() Constraint {
	cp := c
	cp.MeterFeet = append([]string(nil), c.MeterFeet...)
	cp.Imagery = append([]string(nil), c.Imagery...)
	cp.Keywords = append([]string(nil), c.Keywords...)
	cp.Sections = append([]string(nil), c.Sections...)
	cp.Ambiguities = append([]string(nil), c.Ambiguities...)
	return cp
}

// TotalHemistichs returns line_count × 2, the number of verses a poem
// satisfying this constraint must contain.
func (c Constraint) TotalHemistichs() int {
	return c.LineCount * 2
}

// Poem is a candidate produced by the generator (or a refiner) and
// eventually scored by the evaluator.
type Poem struct {
	Verses             []string   `json:"verses"`
	Provider           string     `json:"provider"`
	Model              string     `json:"model"`
	ConstraintsSnapshot Constraint `json:"constraints_snapshot"`
	Quality            *Quality   `json:"quality,omitempty"`
}

// Baits returns the number of complete baits (opening + closing hemistich
// pairs) in the poem. Verses must be even for this to be exact; an odd
// trailing verse is ignored (it belongs to no complete bait).
func (p Poem) Baits() int {
	return len(p.Verses) / 2
}

// Bait returns the 1-indexed bait's opening and closing hemistichs.
func (p Poem) Bait(n int) (opening, closing string, ok bool) {
	i := (n - 1) * 2
	if n < 1 || i+1 >= len(p.Verses) {
		return "", "", false
	}
	return p.Verses[i], p.Verses[i+1], true
}

// DimensionResult is the per-dimension outcome of one evaluator validation.
type DimensionResult struct {
	IsValid        bool     `json:"is_valid"`
	PerBaitResults []bool   `json:"per_bait_results,omitempty"`
	Summary        string   `json:"summary"`
	Issues         []string `json:"issues,omitempty"`
}

// ValidRatio returns the fraction of per-bait results that are valid, or
// 1.0 if IsValid and there are no per-bait results (a whole-poem dimension
// such as line count).
func (d DimensionResult) ValidRatio() float64 {
	if len(d.PerBaitResults) == 0 {
		if d.IsValid {
			return 1
		}
		return 0
	}
	valid := 0
	for _, ok := range d.PerBaitResults {
		if ok {
			valid++
		}
	}
	return float64(valid) / float64(len(d.PerBaitResults))
}

// Quality is the evaluator's verdict on a Poem.
type Quality struct {
	OverallScore float64 `json:"overall_score"`

	Prosody    DimensionResult `json:"prosody"`
	Rhyme      DimensionResult `json:"rhyme"`
	LineCount  DimensionResult `json:"line_count"`
	Diacritics DimensionResult `json:"diacritics"`

	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	TotalBaits int `json:"total_baits"`

	IsAcceptable bool `json:"is_acceptable"`
}

// MeterDescriptor is a read-only row from the static prosody knowledge
// base describing one canonical meter (bahr).
type MeterDescriptor struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Feet           []string `json:"feet"`
	AllowedZihafs  []string `json:"allowed_zihafs,omitempty"`
	AllowedIlals   []string `json:"allowed_ilals,omitempty"`
	SubMeters      []string `json:"sub_meters,omitempty"`
	Difficulty     string   `json:"difficulty"` // easy, medium, hard
	Themes         []string `json:"themes,omitempty"`
}

// RefinementStep records one refiner's pass within one refiner-chain
// iteration (spec §4.6).
type RefinementStep struct {
	Iteration    int     `json:"iteration"`
	RefinerName  string  `json:"refiner_name"`
	QualityBefore float64 `json:"quality_before"`
	QualityAfter  float64 `json:"quality_after"`
	Delta         float64 `json:"delta"`
	NoChange      bool    `json:"no_change,omitempty"`
	Discarded     bool    `json:"discarded,omitempty"`
	Failed        bool    `json:"failed,omitempty"`
	Details       string  `json:"details,omitempty"`
}

// RefinementResult is the output of running the refiner chain to
// completion: the best poem seen, its history, and why it stopped.
type RefinementResult struct {
	Poem           Poem             `json:"poem"`
	History        []RefinementStep `json:"history"`
	Iterations     int              `json:"iterations"`
	RefinersRun    []string         `json:"refiners_run"`
	Stalled        bool             `json:"stalled,omitempty"`
	TargetReached  bool             `json:"target_reached,omitempty"`
}

// LLMCallMeta is attached to a CapturedCall when the call it wraps invoked
// an LLM provider.
type LLMCallMeta struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Tokens   int    `json:"tokens,omitempty"`
}

// CallType classifies a captured call by the type of the node that made
// it (spec §4.7).
type CallType string

const (
	CallParse    CallType = "parse"
	CallEnrich   CallType = "enrich"
	CallGenerate CallType = "generate"
	CallEvaluate CallType = "evaluate"
	CallRefine   CallType = "refine"
	CallProcess  CallType = "process"
)

// CapturedCall is an immutable record of one instrumented method
// invocation, appended in start-time order to an Execution.
type CapturedCall struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Component string       `json:"component"`
	Method    string       `json:"method"`
	Type      CallType     `json:"call_type"`
	Inputs    map[string]any `json:"inputs"`
	Outputs   any          `json:"outputs,omitempty"`
	Error     string       `json:"error,omitempty"`
	LLM       *LLMCallMeta `json:"llm,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Success   bool         `json:"success"`
}

// RunStatus is the lifecycle state of one RunRecord.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// NodeRunRecord tracks one node's execution status within a RunRecord,
// for callers that want node-level progress without reading the full
// captured Execution.
type NodeRunRecord struct {
	NodeID      string     `json:"node_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunRecord is one request to run the pipeline: a thin, queryable summary
// that outlives the detailed captured Execution's retention window and
// carries retry/scheduling metadata the capture subsystem doesn't track.
type RunRecord struct {
	ID           string          `json:"id"`
	PipelineName string          `json:"pipeline_name"`
	TriggerType  string          `json:"trigger_type"` // "manual", "scheduled", "retry"
	TriggerRef   string          `json:"trigger_ref,omitempty"`
	Status       RunStatus       `json:"status"`
	Inputs       map[string]any  `json:"inputs,omitempty"`
	ExecutionID  string          `json:"execution_id,omitempty"`
	Outputs      map[string]any  `json:"outputs,omitempty"`
	Error        *string         `json:"error,omitempty"`
	RetryAttempt int             `json:"retry_attempt,omitempty"`
	RetryOf      *string         `json:"retry_of,omitempty"`
	NodeRuns     []NodeRunRecord `json:"node_runs,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Execution is the aggregate record of one end-to-end pipeline run,
// produced by the capture subsystem (spec §4.7).
type Execution struct {
	ID               string         `json:"id"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      time.Time      `json:"completed_at,omitempty"`
	UserPrompt       string         `json:"user_prompt"`
	InitialConstraints Constraint   `json:"initial_constraints"`
	Calls            []CapturedCall `json:"calls"`
	FinalPoem        *Poem          `json:"final_poem,omitempty"`
	FinalQuality     *Quality       `json:"final_quality,omitempty"`
	TotalLLMCalls    int            `json:"total_llm_calls"`
	TotalTokens      int            `json:"total_tokens"`
	Status           string         `json:"status"` // running, completed, failed
}
