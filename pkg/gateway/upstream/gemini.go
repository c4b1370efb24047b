package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const defaultEventBuffer = 64

// GeminiConfig configures a Gemini Live connection.
type GeminiConfig struct {
	Model       string
	Voice       string
	Instruction string

	APIKey      string
	UseVertexAI bool
	ProjectID   string
	Location    string

	// ResumeHandle resumes a logically continued conversation when set.
	ResumeHandle string

	// Tools are function declarations exposed to the model.
	Tools []*genai.FunctionDeclaration

	EventBuffer int
	Logger      *slog.Logger
}

// Gemini adapts a Gemini Live session to the Stream interface.
type Gemini struct {
	session *genai.Session
	logger  *slog.Logger

	events chan Event

	sendMu    sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// ConnectGemini establishes a Gemini Live session and starts its receive
// loop. The returned stream is ready for SendAudio/SendVideo immediately.
func ConnectGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey}
	if cfg.UseVertexAI {
		clientCfg = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.ProjectID,
			Location: cfg.Location,
		}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	connectCfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SessionResumption:        &genai.SessionResumptionConfig{Handle: cfg.ResumeHandle},
	}
	if strings.TrimSpace(cfg.Instruction) != "" {
		connectCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.Instruction}},
		}
	}
	if strings.TrimSpace(cfg.Voice) != "" {
		connectCfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if len(cfg.Tools) > 0 {
		connectCfg.Tools = []*genai.Tool{{FunctionDeclarations: cfg.Tools}}
	}

	session, err := client.Live.Connect(ctx, cfg.Model, connectCfg)
	if err != nil {
		return nil, fmt.Errorf("connect gemini live: %w", err)
	}

	g := &Gemini{
		session: session,
		logger:  cfg.Logger,
		events:  make(chan Event, cfg.EventBuffer),
	}
	go g.receiveLoop(ctx)
	return g, nil
}

func (g *Gemini) receiveLoop(ctx context.Context) {
	defer close(g.events)
	for {
		msg, err := g.session.Receive()
		if err != nil {
			g.setErr(err)
			return
		}
		for _, ev := range eventsFromMessage(msg) {
			select {
			case g.events <- ev:
			case <-ctx.Done():
				g.setErr(ctx.Err())
				return
			}
		}
	}
}

// eventsFromMessage maps one live server message onto zero or more Events.
// Fields absent from the message simply produce nothing; a malformed message
// never fails the stream.
func eventsFromMessage(msg *genai.LiveServerMessage) []Event {
	if msg == nil {
		return nil
	}
	var out []Event

	if u := msg.SessionResumptionUpdate; u != nil {
		out = append(out, Event{Resumption: &ResumptionUpdate{
			Resumable: u.Resumable,
			NewHandle: u.NewHandle,
		}})
	}

	if sc := msg.ServerContent; sc != nil {
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			out = append(out, Event{
				Content: &Content{Role: "user", Parts: []Part{{Text: t.Text}}},
				Partial: !t.Finished,
			})
		}
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			out = append(out, Event{
				Content: &Content{Role: "model", Parts: []Part{{Text: t.Text}}},
				Partial: !t.Finished,
			})
		}
		if mt := sc.ModelTurn; mt != nil {
			var parts []Part
			for _, p := range mt.Parts {
				if p == nil {
					continue
				}
				if p.InlineData != nil && len(p.InlineData.Data) > 0 {
					parts = append(parts, Part{Audio: p.InlineData.Data})
				}
				if p.Text != "" {
					parts = append(parts, Part{Text: p.Text})
				}
			}
			if len(parts) > 0 {
				role := mt.Role
				if role == "" {
					role = "model"
				}
				out = append(out, Event{
					Content: &Content{Role: role, Parts: parts},
					Partial: true,
				})
			}
		}
		if sc.Interrupted || sc.TurnComplete {
			if len(out) == 0 {
				out = append(out, Event{})
			}
			last := &out[len(out)-1]
			last.Interrupted = last.Interrupted || sc.Interrupted
			last.TurnComplete = last.TurnComplete || sc.TurnComplete
		}
	}

	if tc := msg.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
		calls := make([]ToolCall, 0, len(tc.FunctionCalls))
		for _, fc := range tc.FunctionCalls {
			if fc == nil || strings.TrimSpace(fc.Name) == "" {
				continue
			}
			calls = append(calls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
		if len(calls) > 0 {
			out = append(out, Event{ToolCalls: calls})
		}
	}

	return out
}

func (g *Gemini) SendAudio(ctx context.Context, data []byte, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	return g.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     data,
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
		},
	})
}

func (g *Gemini) SendVideo(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	return g.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Video: &genai.Blob{
			Data:     data,
			MIMEType: "image/jpeg",
		},
	})
}

func (g *Gemini) SendToolResponse(ctx context.Context, results []ToolResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	responses := make([]*genai.FunctionResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: map[string]any{"result": r.Output},
		})
	}
	if len(responses) == 0 {
		return nil
	}
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	return g.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
}

func (g *Gemini) Events() <-chan Event {
	return g.events
}

func (g *Gemini) Err() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.err
}

func (g *Gemini) Close() error {
	var err error
	g.closeOnce.Do(func() {
		err = g.session.Close()
	})
	return err
}

func (g *Gemini) setErr(err error) {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	if g.err == nil {
		g.err = err
	}
}
