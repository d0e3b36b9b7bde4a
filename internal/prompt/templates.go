package prompt

// defaultTemplates seeds every template ID the pipeline's nodes reference.
// Bodies are intentionally plain text with {{}} placeholders rather than a
// templating DSL — prompt engineering is expected to happen by editing
// these strings or registering overrides, not by extending the resolver.
var defaultTemplates = map[string]string{
	"constraint_parsing": `You are a classical Arabic prosody expert. Read the user's request below and
extract a structured poem specification.

User request:
{{user_prompt}}

Return a single JSON object with keys: meter (string or null if unspecified),
rhyme_letter (string or null), rhyme_harakah (string or null), line_count
(integer, default 8 if unspecified), theme, tone, register, era, poet_style,
imagery (array of strings), keywords (array of strings), ambiguities (array
of strings describing anything you had to guess). Respond with JSON only.`,

	"meter_selection": `A user wants a poem on theme "{{constraint.Theme}}" with tone
"{{constraint.Tone}}" but did not specify a meter (bahr). Recommend the single
best-fitting classical meter from this list and explain briefly why:

{{meter_candidates}}

Respond with JSON: {"meter": "<name>", "reason": "<one sentence>"}.`,

	"rhyme_selection": `A user wants a poem but did not specify a rhyme letter (rowi). Given the
theme "{{constraint.Theme}}" and meter "{{constraint.Meter}}", recommend one
rhyme letter from classical Arabic and its harakah.

Respond with JSON: {"rhyme_letter": "<letter>", "rhyme_harakah": "<fatha|kasra|damma|sukun>"}.`,

	"poem_generation": `Compose a classical Arabic poem (qasida) satisfying the following
constraints exactly:

Meter (bahr): {{constraint.Meter}}
Feet: {{constraint.MeterFeet}}
Rhyme letter (rowi): {{constraint.RhymeLetter}}
Rhyme harakah: {{constraint.RhymeHarakah}}
Line count: {{constraint.LineCount}}
Theme: {{constraint.Theme}}
Tone: {{constraint.Tone}}
Keywords to weave in: {{constraint.Keywords}}

Write exactly {{constraint.LineCount}} baits (each bait is two hemistichs).
Return the hemistichs as plain text, one per line, in order (opening,
closing, opening, closing, ...), with no numbering, commentary, or
markdown.`,

	"prosody_validation": `You are a classical Arabic prosody (aroud) judge. For each bait below,
determine whether it scans correctly against the meter "{{meter}}" (feet:
{{meter_feet}}), allowing the zihafat/ilal: {{allowed_variants}}.

Baits:
{{baits}}

Return JSON: {"per_bait": [true, false, ...], "summary": "<one paragraph>",
"issues": ["<bait N: what's wrong>", ...]}.`,

	"rhyme_validation": `Check that every bait below ends its closing hemistich on the rowi letter
"{{rhyme_letter}}" with harakah "{{rhyme_harakah}}", consistent with rhyme
type "{{rhyme_type}}".

Baits:
{{baits}}

Return JSON: {"per_bait": [true, false, ...], "summary": "<one paragraph>",
"issues": ["<bait N: what's wrong>", ...]}.`,

	"line_count_validation": `The poem below was required to have exactly {{expected_line_count}} baits
({{expected_hemistichs}} hemistichs). It has {{actual_hemistichs}}
hemistichs. Confirm whether this matches and summarize any discrepancy.

Return JSON: {"is_valid": <bool>, "summary": "<one sentence>"}.`,

	"diacritics_validation": `Check whether the poem below carries full diacritical marks (tashkeel)
sufficient to disambiguate its prosodic reading, bait by bait.

Baits:
{{baits}}

Return JSON: {"per_bait": [true, false, ...], "summary": "<one paragraph>",
"issues": ["<bait N: what's missing>", ...]}.`,

	"prosody_refiner": `The following bait fails prosodic scansion against meter "{{meter}}":
issue: {{issue}}

Bait:
{{bait}}

Rewrite only this bait so it scans correctly while preserving its meaning
and rhyme. Return JSON: {"opening": "<text>", "closing": "<text>"}.`,

	"rhyme_refiner": `The following bait's closing hemistich does not end on rowi letter
"{{rhyme_letter}}" (harakah {{rhyme_harakah}}): issue: {{issue}}

Bait:
{{bait}}

Rewrite only the closing hemistich so the rhyme is satisfied, preserving
meter and meaning as closely as possible. Return JSON:
{"opening": "<text>", "closing": "<text>"}.`,

	"line_count_refiner": `The poem currently has {{actual_hemistichs}} hemistichs; it must have
exactly {{expected_hemistichs}}. Add or remove baits at the end to reach the
target while preserving theme "{{theme}}" and staying in meter
"{{meter}}" with rhyme letter "{{rhyme_letter}}".

Current poem:
{{poem}}

Return a JSON array of hemistich strings for the corrected full poem.`,

	"diacritics_refiner": `The following bait is missing diacritical marks (tashkeel): issue: {{issue}}

Bait:
{{bait}}

Rewrite it with full tashkeel applied, changing no wording. Return JSON:
{"opening": "<text>", "closing": "<text>"}.`,

	"generation_selection": `You are judging {{candidate_count}} candidate poems generated for the same
constraints. Pick the single best one considering meaning, imagery, and
faithfulness to the requested theme and tone.

{{candidates}}

Respond with only the 0-based index of the best candidate, e.g. "1".`,

	"prosody_refiner_selection": `You are judging {{candidate_count}} candidate rewrites of one bait, each
attempting to fix a prosodic scansion issue. Pick the rewrite that scans
correctly while staying closest to the original meaning.

{{candidates}}

Respond with only the 0-based index of the best candidate, e.g. "1".`,

	"rhyme_refiner_selection": `You are judging {{candidate_count}} candidate rewrites of one bait's closing
hemistich, each attempting to fix a rhyme issue. Pick the rewrite that
satisfies the rhyme while staying closest to the original meaning.

{{candidates}}

Respond with only the 0-based index of the best candidate, e.g. "1".`,

	"harmony_structured": `Compile the following pipeline execution into a single training trace with
channel-tagged messages (analysis, commentary, final).

User prompt: {{user_prompt}}
Initial constraints: {{initial_constraints}}
Captured calls (chronological): {{calls}}
Final poem: {{final_poem}}
Final quality: {{final_quality}}

Return JSON: {"messages": [{"channel": "analysis"|"commentary"|"final",
"content": "<text>"}, ...]}. Exactly one message must have channel "final",
and it must be the last element.`,
}
