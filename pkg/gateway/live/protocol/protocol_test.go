package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeClientMessage_Audio(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03}
	raw := `{"type":"audio","data":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`

	decoded, err := DecodeClientMessage([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeClientMessage error = %v", err)
	}
	msg, ok := decoded.(ClientAudio)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientAudio", decoded)
	}
	if string(msg.Payload) != string(pcm) {
		t.Fatalf("payload = %v, want %v", msg.Payload, pcm)
	}
}

func TestDecodeClientMessage_VideoDefaultsMode(t *testing.T) {
	jpeg := []byte{0xff, 0xd8}
	raw := `{"type":"video","data":"` + base64.StdEncoding.EncodeToString(jpeg) + `"}`

	decoded, err := DecodeClientMessage([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeClientMessage error = %v", err)
	}
	msg, ok := decoded.(ClientVideo)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientVideo", decoded)
	}
	if msg.Mode != VideoModeWebcam {
		t.Fatalf("mode = %q, want %q", msg.Mode, VideoModeWebcam)
	}
	if string(msg.Payload) != string(jpeg) {
		t.Fatalf("payload = %v, want %v", msg.Payload, jpeg)
	}
}

func TestDecodeClientMessage_VideoKeepsExplicitMode(t *testing.T) {
	raw := `{"type":"video","data":"","mode":"screen"}`
	decoded, err := DecodeClientMessage([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeClientMessage error = %v", err)
	}
	if msg := decoded.(ClientVideo); msg.Mode != VideoModeScreen {
		t.Fatalf("mode = %q, want %q", msg.Mode, VideoModeScreen)
	}
}

func TestDecodeClientMessage_EndAndText(t *testing.T) {
	decoded, err := DecodeClientMessage([]byte(`{"type":"end"}`))
	if err != nil {
		t.Fatalf("decode end: %v", err)
	}
	if _, ok := decoded.(ClientEnd); !ok {
		t.Fatalf("decoded type = %T, want ClientEnd", decoded)
	}

	decoded, err = DecodeClientMessage([]byte(`{"type":"text","data":"hello"}`))
	if err != nil {
		t.Fatalf("decode text: %v", err)
	}
	msg, ok := decoded.(ClientText)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientText", decoded)
	}
	if msg.Data != "hello" {
		t.Fatalf("text = %q, want %q", msg.Data, "hello")
	}
}

func TestDecodeClientMessage_Errors(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		param string
	}{
		{"invalid json", "not json", ""},
		{"missing type", `{"data":"x"}`, "type"},
		{"unknown type", `{"type":"telemetry"}`, "type"},
		{"bad audio base64", `{"type":"audio","data":"%%%"}`, "data"},
		{"bad video base64", `{"type":"video","data":"%%%"}`, "data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error type = %T, want *DecodeError", err)
			}
			if de.Code != "bad_request" {
				t.Fatalf("code = %q, want bad_request", de.Code)
			}
			if de.Param != tc.param {
				t.Fatalf("param = %q, want %q", de.Param, tc.param)
			}
		})
	}
}

func TestServerTurnComplete_NullSessionID(t *testing.T) {
	payload, err := json.Marshal(ServerTurnComplete{Type: "turn_complete"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, present := m["session_id"]
	if !present {
		t.Fatalf("session_id absent, want explicit null: %s", payload)
	}
	if v != nil {
		t.Fatalf("session_id = %v, want null", v)
	}

	handle := "abc123"
	payload, err = json.Marshal(ServerTurnComplete{Type: "turn_complete", SessionID: &handle})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["session_id"] != handle {
		t.Fatalf("session_id = %v, want %q", m["session_id"], handle)
	}
}
