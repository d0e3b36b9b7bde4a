// Package harmony compiles a captured pipeline Execution into a
// channel-tagged training trace document (spec §4.8). The hard guarantee
// — exactly one role=assistant, channel=final message, always present —
// is enforced in Go code after the LLM call rather than trusted to the
// model's output.
package harmony

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arabicverse/qasida/internal/capture"
	"github.com/arabicverse/qasida/internal/jsonutil"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// Channel names recognized by the compiler's output.
const (
	ChannelAnalysis   = "analysis"
	ChannelCommentary = "commentary"
	ChannelFinal       = "final"
)

// Message is one line of the compiled training trace.
type Message struct {
	Role      string `json:"role"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
	Recipient string `json:"recipient,omitempty"`
}

// Document is the structured conversation the compiler produces,
// matching spec §4.8's wire shape exactly.
type Document struct {
	SystemMessage    map[string]any `json:"system_message"`
	DeveloperMessage map[string]any `json:"developer_message"`
	Messages         []Message      `json:"messages"`
}

// Compiler synthesizes a harmony-formatted trace from an Execution.
type Compiler struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
}

type harmonyResponse struct {
	SystemMessage    map[string]any `json:"system_message"`
	DeveloperMessage map[string]any `json:"developer_message"`
	Messages         []Message      `json:"messages"`
}

// callSummary is the narrow, call-type-specific projection §4.8 step 1
// requires: only the fields relevant to that component, not the whole
// CapturedCall.
type callSummary struct {
	CallID   string `json:"call_id"`
	Call     string `json:"call"`
	CallType string `json:"call_type"`
	Success  bool   `json:"success"`
	Summary  any    `json:"summary"`
}

// Compile renders exec as a training trace. It never returns a document
// without a final message: if the LLM call or its response fails to
// parse, a fallback trace is synthesized directly from exec rather than
// leaving the trace without one.
func (c *Compiler) Compile(ctx context.Context, exec poem.Execution) (Document, error) {
	summaries := summarizeCalls(exec.Calls)

	prompt, err := c.Formatter.Format("harmony_structured", map[string]any{
		"user_prompt":         exec.UserPrompt,
		"initial_constraints": capture.Sanitize(exec.InitialConstraints),
		"calls":               summaries,
		"final_poem":          capture.Sanitize(exec.FinalPoem),
		"final_quality":       capture.Sanitize(exec.FinalQuality),
	})
	if err != nil {
		return fallbackDocument(exec, summaries, err), nil
	}

	raw, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return fallbackDocument(exec, summaries, err), nil
	}

	jsonText, err := jsonutil.Extract(raw)
	if err != nil {
		return fallbackDocument(exec, summaries, &poem.CompilerError{Message: "compiler response was not valid JSON", Raw: raw}), nil
	}

	var resp harmonyResponse
	if unmarshalErr := json.Unmarshal([]byte(jsonText), &resp); unmarshalErr != nil {
		return fallbackDocument(exec, summaries, &poem.CompilerError{Message: fmt.Sprintf("compiler response malformed: %v", unmarshalErr), Raw: raw}), nil
	}

	doc := Document{
		SystemMessage:    resp.SystemMessage,
		DeveloperMessage: resp.DeveloperMessage,
		Messages:         enforceSingleFinal(resp.Messages, exec),
	}
	if doc.SystemMessage == nil {
		doc.SystemMessage = defaultSystemMessage()
	}
	if doc.DeveloperMessage == nil {
		doc.DeveloperMessage = defaultDeveloperMessage(exec)
	}
	return doc, nil
}

// summarizeCalls projects each captured call down to the fields its call
// type actually needs (spec §4.8 step 1), instead of shipping the raw
// CapturedCall (which carries full serialized inputs/outputs) into the
// prompt.
func summarizeCalls(calls []poem.CapturedCall) []callSummary {
	out := make([]callSummary, 0, len(calls))
	for _, call := range calls {
		s := callSummary{CallID: call.ID, Call: call.Component, CallType: string(call.Type), Success: call.Success}
		switch call.Type {
		case poem.CallEvaluate:
			s.Summary = call.Outputs
		case poem.CallRefine:
			s.Summary = call.Outputs
		default:
			s.Summary = map[string]any{"inputs": call.Inputs, "outputs": call.Outputs}
		}
		out = append(out, s)
	}
	return out
}

// enforceSingleFinal guarantees the returned slice ends with exactly one
// role=assistant, channel=final message. Any extra final messages are
// demoted to commentary; if none are present, one is synthesized.
func enforceSingleFinal(messages []Message, exec poem.Execution) []Message {
	var out []Message
	var final *Message

	for i := range messages {
		m := messages[i]
		if m.Role == "" {
			m.Role = "assistant"
		}
		if m.Channel != ChannelAnalysis && m.Channel != ChannelCommentary && m.Channel != ChannelFinal {
			m.Channel = ChannelCommentary
		}
		if m.Channel == ChannelFinal && m.Role == "assistant" {
			if final == nil {
				final = &m
			} else {
				m.Channel = ChannelCommentary
				out = append(out, m)
			}
			continue
		}
		out = append(out, m)
	}

	if final == nil {
		f := synthesizeFinal(exec)
		final = &f
	}

	return append(out, *final)
}

func fallbackDocument(exec poem.Execution, summaries []callSummary, cause error) Document {
	messages := make([]Message, 0, len(summaries)+2)
	for _, s := range summaries {
		messages = append(messages, Message{
			Role:    "assistant",
			Channel: ChannelAnalysis,
			Content: fmt.Sprintf("%s (%s) success=%v", s.Call, s.CallType, s.Success),
		})
	}
	messages = append(messages, Message{
		Role:    "assistant",
		Channel: ChannelCommentary,
		Content: fmt.Sprintf("harmony compilation fell back to a direct summary: %v", cause),
	})
	messages = append(messages, synthesizeFinal(exec))
	return Document{
		SystemMessage:    defaultSystemMessage(),
		DeveloperMessage: defaultDeveloperMessage(exec),
		Messages:         messages,
	}
}

func synthesizeFinal(exec poem.Execution) Message {
	if exec.FinalPoem == nil {
		return Message{Role: "assistant", Channel: ChannelFinal, Content: "no poem was produced for this execution"}
	}
	content := ""
	for _, v := range exec.FinalPoem.Verses {
		content += v + "\n"
	}
	return Message{Role: "assistant", Channel: ChannelFinal, Content: content}
}

func defaultSystemMessage() map[string]any {
	return map[string]any{"role": "system", "content": "You are an Arabic-poetry composition assistant reasoning step by step."}
}

func defaultDeveloperMessage(exec poem.Execution) map[string]any {
	return map[string]any{"role": "developer", "content": fmt.Sprintf("execution %s", exec.ID)}
}
