package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
	"github.com/go-chi/chi/v5"
)

// qasidaA2AExecutor implements a2asrv.AgentExecutor, exposing the poem
// pipeline as a single A2A-callable "generate_poem" skill — collapsed
// from a dynamic per-workflow dispatch down to the one operation this
// pipeline performs.
type qasidaA2AExecutor struct {
	srv *Server
}

func (e *qasidaA2AExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	userPrompt, err := parseA2AMessage(reqCtx.Message)
	if err != nil {
		return writeFailEvent(ctx, reqCtx, queue, err)
	}

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted: %w", err)
		}
	}
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return fmt.Errorf("failed to write working: %w", err)
	}

	exec, runErr := e.srv.runner.Run(ctx, userPrompt)
	if runErr != nil {
		return writeFailEvent(ctx, reqCtx, queue, fmt.Errorf("pipeline run failed: %w", runErr))
	}

	if exec.FinalPoem != nil {
		text := ""
		for _, v := range exec.FinalPoem.Verses {
			text += v + "\n"
		}
		artEvent := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: text})
		if err := queue.Write(ctx, artEvent); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}

	doneEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	doneEvent.Final = true
	if err := queue.Write(ctx, doneEvent); err != nil {
		return fmt.Errorf("failed to write completed: %w", err)
	}
	return nil
}

func (e *qasidaA2AExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

// writeFailEvent sends a TaskStateFailed event carrying err's message.
func writeFailEvent(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, err error) error {
	msg := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: err.Error()})
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	event.Final = true
	if writeErr := queue.Write(ctx, event); writeErr != nil {
		return fmt.Errorf("failed to write failure event: %w (original: %v)", writeErr, err)
	}
	return nil
}

// parseA2AMessage extracts the user's poem prompt from an A2A message.
// Accepts either {"user_prompt": "..."} as JSON text, or plain text taken
// as the prompt itself.
func parseA2AMessage(msg *a2a.Message) (string, error) {
	if msg == nil || len(msg.Parts) == 0 {
		return "", fmt.Errorf("empty message")
	}

	var text string
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			text = tp.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in message")
	}

	var structured struct {
		UserPrompt string `json:"user_prompt"`
	}
	if err := json.Unmarshal([]byte(text), &structured); err == nil && structured.UserPrompt != "" {
		return structured.UserPrompt, nil
	}

	return text, nil
}

// buildAgentCard describes the pipeline's single skill.
func buildAgentCard(baseURL string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "qasida",
		Description:        "Generates classical Arabic poetry under explicit meter and rhyme constraints.",
		URL:                baseURL + "/a2a",
		Version:            "0.1.0",
		ProtocolVersion:    "0.2",
		DefaultInputModes:  []string{"application/json", "text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		Skills: []a2a.AgentSkill{
			{
				ID:          "generate_poem",
				Name:        "generate_poem",
				Description: "Compose an Arabic poem from a free-text prompt, enforcing meter, rhyme, line count, and diacritics constraints.",
				Tags:        []string{"poetry", "arabic", "qasida"},
				Examples:    []string{`{"user_prompt": "a poem about the sea in the tawil meter"}`},
			},
		},
	}
}

// setupA2ARoutes registers A2A protocol endpoints on the Chi router.
func (s *Server) setupA2ARoutes(r chi.Router) {
	executor := &qasidaA2AExecutor{srv: s}
	reqHandler := a2asrv.NewHandler(executor)

	cardProducer := a2asrv.AgentCardProducerFn(func(ctx context.Context) (*a2a.AgentCard, error) {
		return buildAgentCard(s.a2aBaseURL()), nil
	})
	r.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewAgentCardHandler(cardProducer))
	r.Handle("/a2a", a2asrv.NewJSONRPCHandler(reqHandler))
}

// a2aBaseURL returns the URL the agent card advertises. This is a fixed,
// configured value rather than derived per-request, since
// AgentCardProducerFn is not handed the originating request.
func (s *Server) a2aBaseURL() string {
	return s.baseURL
}
