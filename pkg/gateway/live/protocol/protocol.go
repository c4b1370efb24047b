// Package protocol defines the typed wire frames exchanged with live
// websocket clients. Frames are JSON text messages carrying a "type"
// discriminator and a type-specific payload.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// VideoModeWebcam is assumed when a video frame carries no source mode.
	VideoModeWebcam = "webcam"
	// VideoModeScreen marks frames captured from a shared screen.
	VideoModeScreen = "screen"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientAudio carries one base64-encoded PCM chunk from the client.
type ClientAudio struct {
	Type string `json:"type"`
	Data string `json:"data"`

	// Payload is the decoded audio, populated by DecodeClientMessage.
	Payload []byte `json:"-"`
}

// ClientVideo carries one base64-encoded video frame plus its source mode.
type ClientVideo struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Mode string `json:"mode,omitempty"`

	Payload []byte `json:"-"`
}

// ClientEnd marks the end of client media for the current turn.
type ClientEnd struct {
	Type string `json:"type"`
}

// ClientText is a text utterance typed by the client. The voice-first core
// logs it without forwarding.
type ClientText struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// DecodeClientMessage decodes one inbound text frame into its typed form.
// Base64 media payloads are decoded here so the router only handles bytes.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "audio":
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio frame", "")
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return nil, badRequest("audio.data is not valid base64", "data")
		}
		msg.Payload = payload
		return msg, nil
	case "video":
		var msg ClientVideo
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid video frame", "")
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return nil, badRequest("video.data is not valid base64", "data")
		}
		msg.Payload = payload
		if strings.TrimSpace(msg.Mode) == "" {
			msg.Mode = VideoModeWebcam
		}
		return msg, nil
	case "end":
		var msg ClientEnd
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid end frame", "")
		}
		return msg, nil
	case "text":
		var msg ClientText
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid text frame", "")
		}
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ServerAudio carries one base64-encoded model audio chunk to the client.
type ServerAudio struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ServerText is a partial model transcript chunk.
type ServerText struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ServerUserTranscript is a partial transcript of what the user said.
type ServerUserTranscript struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ServerSessionID announces a new resumable session handle.
type ServerSessionID struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ServerInterrupted signals that the user barged in on the model's response.
type ServerInterrupted struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ServerTurnComplete signals normal completion of the model's turn.
// SessionID is null when no resumption handle has been established.
type ServerTurnComplete struct {
	Type      string  `json:"type"`
	SessionID *string `json:"session_id"`
}

// UIContent is the payload for a ui_content display.
type UIContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UICard is the payload for a ui_card display.
type UICard struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Footer  string `json:"footer,omitempty"`
}

// UIList is the payload for a ui_list display.
type UIList struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// ServerUI wraps one of the UI payloads under its display type
// (ui_content, ui_card, ui_list).
type ServerUI struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
