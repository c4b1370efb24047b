// Package upstream defines the backend streaming interface the live session
// consumes, plus the Gemini Live implementation of it. The session core only
// sees Stream and Event; connection setup and authentication live here.
package upstream

import "context"

// Event is one unit from the backend's asynchronous event sequence. Every
// field is optional; an absent field means "nothing to do for that aspect".
type Event struct {
	Content      *Content
	Partial      bool
	Interrupted  bool
	TurnComplete bool
	Resumption   *ResumptionUpdate
	ToolCalls    []ToolCall
}

// Content is an ordered sequence of parts attributed to a role
// ("user" or "model").
type Content struct {
	Role  string
	Parts []Part
}

// Part is either inline audio or text, never both.
type Part struct {
	Audio []byte
	Text  string
}

// ResumptionUpdate carries a new resumable session handle.
type ResumptionUpdate struct {
	Resumable bool
	NewHandle string
}

// ToolCall is a backend request to invoke a named function tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the session's reply to a ToolCall.
type ToolResult struct {
	ID     string
	Name   string
	Output string
}

// Stream is an already-connected bidirectional backend stream. SendAudio and
// SendVideo are fire-and-forget per item; a send error is session-fatal for
// the caller. Events is closed when the backend sequence ends, after which
// Err reports the terminal error, if any.
type Stream interface {
	SendAudio(ctx context.Context, data []byte, sampleRate int) error
	SendVideo(ctx context.Context, data []byte) error
	SendToolResponse(ctx context.Context, results []ToolResult) error
	Events() <-chan Event
	Err() error
	Close() error
}
