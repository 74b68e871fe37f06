// Package transport exposes the pipeline over HTTP: websocket chat for the
// admin and user consoles, the payment and WhatsApp webhooks, and the
// dashboard read endpoints.
package transport

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hackgoldship/invoice-agent/internal/invoice"
	"github.com/hackgoldship/invoice-agent/internal/pipeline"
	"go.uber.org/zap"
)

// approveCommand prefixes a chat message that carries an approved draft
// back into the pipeline
const approveCommand = "approveAndSendInvoice:"

// PipelineAPI is the slice of the pipeline the chat surface drives
type PipelineAPI interface {
	Preview(ctx context.Context, intent string) (*invoice.Preview, error)
	ApproveAndSend(ctx context.Context, draft *invoice.Draft) (*pipeline.SendOutcome, error)
}

// Assistant handles one inbound chat message and returns the reply body
type Assistant interface {
	HandleMessage(ctx context.Context, sessionID, text string) string
}

// ChatAssistant routes chat messages into the pipeline. Plain text becomes a
// draft preview request; an approveAndSendInvoice: command resumes the
// pipeline with the embedded draft.
type ChatAssistant struct {
	pipeline PipelineAPI
	logger   *zap.Logger
}

// NewChatAssistant creates a pipeline-backed assistant
func NewChatAssistant(p PipelineAPI, logger *zap.Logger) *ChatAssistant {
	return &ChatAssistant{pipeline: p, logger: logger}
}

// HandleMessage implements Assistant
func (a *ChatAssistant) HandleMessage(ctx context.Context, sessionID, text string) string {
	trimmed := strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(trimmed, approveCommand); ok {
		return a.approve(ctx, sessionID, rest)
	}

	preview, err := a.pipeline.Preview(ctx, trimmed)
	if err != nil {
		return a.errorReply(sessionID, err)
	}
	return a.marshal(preview)
}

func (a *ChatAssistant) approve(ctx context.Context, sessionID, payload string) string {
	draft, err := invoice.ParsePreview([]byte(strings.TrimSpace(payload)))
	if err != nil {
		a.logger.Warn("Rejected malformed approval payload",
			zap.String("session", sessionID),
			zap.Error(err))
		return a.marshal(pipeline.ErrorPayload{Type: "error", Message: "Approval payload is not a valid invoice preview."})
	}

	outcome, err := a.pipeline.ApproveAndSend(ctx, draft)
	if err != nil {
		return a.errorReply(sessionID, err)
	}
	return a.marshal(outcome.ApprovedSent)
}

func (a *ChatAssistant) errorReply(sessionID string, err error) string {
	a.logger.Warn("Pipeline invocation failed",
		zap.String("session", sessionID),
		zap.Error(err))

	if f := pipeline.AsFailure(err); f != nil {
		return a.marshal(f.Payload())
	}
	return a.marshal(pipeline.ErrorPayload{Type: "error", Message: "Something went wrong while processing your request."})
}

func (a *ChatAssistant) marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to marshal reply", zap.Error(err))
		return `{"type": "error", "message": "internal error"}`
	}
	return string(data)
}
