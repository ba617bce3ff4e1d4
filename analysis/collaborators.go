// Package analysis defines the narrow interfaces to the external AI
// collaborators and provides an OpenAI-compatible HTTP adapter for them.
// The engine never depends on the concrete adapter; tests and embedders
// supply their own implementations.
package analysis

import (
	"context"

	"github.com/c360studio/briefwizard/brief"
	"github.com/c360studio/briefwizard/trigger"
)

// Message is one turn of conversation context sent to the collaborator.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AnalyzeRequest is the input to the analysis collaborator.
type AnalyzeRequest struct {
	// Message is the latest user message; empty for file-only re-analysis.
	Message string

	// History is the conversation so far, oldest first.
	History []Message

	// UploadedFiles is attachment context, already pipeline-approved.
	UploadedFiles []brief.UploadedFile

	// Previous is the cached analysis from the prior turn, if any.
	Previous *brief.ConversationAnalysis
}

// Analyzer turns a conversation turn into a structured analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*brief.ConversationAnalysis, error)
}

// RoadmapGenerator produces a phased roadmap from an analysis. Update and
// reorder of an existing roadmap are Brief Store operations; they involve
// no model call.
type RoadmapGenerator interface {
	Generate(ctx context.Context, a *brief.ConversationAnalysis, projectType string) (*brief.Roadmap, error)
}

// Commenter phrases a natural-language comment for a detected trigger.
type Commenter interface {
	Comment(ctx context.Context, t trigger.Trigger) (string, error)
}
