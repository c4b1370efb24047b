// Package uitools implements the display tools the live agent can call to
// show structured content on the client's screen while it speaks. Results
// are reported back to the model as plain confirmation strings; a failed
// display never fails the session.
package uitools

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/navigo-ai/navigo/pkg/gateway/live/protocol"
	"github.com/navigo-ai/navigo/pkg/gateway/live/sessions"
	"github.com/navigo-ai/navigo/pkg/gateway/upstream"
)

const (
	ToolDisplayContent = "display_content"
	ToolDisplayCard    = "display_card"
	ToolDisplayList    = "display_list"
)

// Declarations returns the function declarations advertised to the backend
// when a live connection is opened.
func Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        ToolDisplayContent,
			Description: "Displays text content to the user on their screen. Use this to show detailed information, explanations, or formatted text while you speak.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"content": {Type: genai.TypeString, Description: "The main text content to display"},
					"title":   {Type: genai.TypeString, Description: "Optional title for the content block"},
				},
				Required: []string{"content"},
			},
		},
		{
			Name:        ToolDisplayCard,
			Description: "Displays a structured card with a title, main content, and optional footer. Ideal for itineraries, summaries, or highlighted information.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":   {Type: genai.TypeString, Description: "The card title"},
					"content": {Type: genai.TypeString, Description: "The main card content"},
					"footer":  {Type: genai.TypeString, Description: "Optional footer text"},
				},
				Required: []string{"title", "content"},
			},
		},
		{
			Name:        ToolDisplayList,
			Description: "Displays a formatted list of items, such as travel destinations, recommendations, or step-by-step instructions.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"items": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "List of strings to display as list items"},
					"title": {Type: genai.TypeString, Description: "Optional title for the list"},
				},
				Required: []string{"items"},
			},
		},
	}
}

// Dispatcher executes display tool calls against the registry of connected
// sessions. It looks the calling session up by ID, so the backend can reach
// the client that triggered the tool without the tool signature carrying the
// connection.
type Dispatcher struct {
	registry *sessions.Registry
	logger   *slog.Logger
}

func NewDispatcher(registry *sessions.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, call upstream.ToolCall) upstream.ToolResult {
	_ = ctx
	result := upstream.ToolResult{ID: call.ID, Name: call.Name}
	switch call.Name {
	case ToolDisplayContent:
		result.Output = d.displayContent(sessionID, call.Args)
	case ToolDisplayCard:
		result.Output = d.displayCard(sessionID, call.Args)
	case ToolDisplayList:
		result.Output = d.displayList(sessionID, call.Args)
	default:
		d.logger.Warn("backend requested unknown tool", "tool", call.Name, "session_id", sessionID)
		result.Output = fmt.Sprintf("Error: Unknown tool '%s'.", call.Name)
	}
	return result
}

func (d *Dispatcher) displayContent(sessionID string, args map[string]any) string {
	out, ok := d.registry.Get(sessionID)
	if !ok {
		return "Error: Could not display content (No active connection)."
	}
	title := stringArg(args, "title", "Information")
	msg := protocol.ServerUI{
		Type: "ui_content",
		Data: protocol.UIContent{Title: title, Content: stringArg(args, "content", "")},
	}
	if err := out.Send(msg); err != nil {
		return fmt.Sprintf("Error displaying content: %v", err)
	}
	return fmt.Sprintf("Content '%s' has been displayed to the user.", title)
}

func (d *Dispatcher) displayCard(sessionID string, args map[string]any) string {
	out, ok := d.registry.Get(sessionID)
	if !ok {
		return "Error: Could not display card (No active connection)."
	}
	title := stringArg(args, "title", "")
	msg := protocol.ServerUI{
		Type: "ui_card",
		Data: protocol.UICard{
			Title:   title,
			Content: stringArg(args, "content", ""),
			Footer:  stringArg(args, "footer", ""),
		},
	}
	if err := out.Send(msg); err != nil {
		return fmt.Sprintf("Error displaying card: %v", err)
	}
	return fmt.Sprintf("Card '%s' has been displayed to the user.", title)
}

func (d *Dispatcher) displayList(sessionID string, args map[string]any) string {
	out, ok := d.registry.Get(sessionID)
	if !ok {
		return "Error: Could not display list (No active connection)."
	}
	items, err := stringSliceArg(args, "items")
	if err != nil {
		return "Error: items must be a list of strings."
	}
	title := stringArg(args, "title", "List")
	msg := protocol.ServerUI{
		Type: "ui_list",
		Data: protocol.UIList{Title: title, Items: items},
	}
	if err := out.Send(msg); err != nil {
		return fmt.Sprintf("Error displaying list: %v", err)
	}
	return fmt.Sprintf("List '%s' with %d items has been displayed to the user.", title, len(items))
}

func stringArg(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%q must contain only strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q must be a list of strings", key)
	}
}
