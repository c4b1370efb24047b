package config

import (
	"strings"
	"testing"
	"time"
)

var gatewayEnvKeys = []string{
	"NAVIGO_ADDR",
	"NAVIGO_MODEL",
	"NAVIGO_VOICE",
	"NAVIGO_INSTRUCTION",
	"NAVIGO_PROJECT_ID",
	"NAVIGO_LOCATION",
	"NAVIGO_AUDIO_QUEUE_SIZE",
	"NAVIGO_VIDEO_QUEUE_SIZE",
	"NAVIGO_OUTBOUND_QUEUE_SIZE",
	"NAVIGO_EVENT_BUFFER_SIZE",
	"NAVIGO_SEND_SAMPLE_RATE",
	"NAVIGO_MAX_MESSAGE_BYTES",
	"NAVIGO_WS_PING_INTERVAL",
	"NAVIGO_WS_WRITE_TIMEOUT",
	"NAVIGO_ALLOWED_ORIGINS",
	"NAVIGO_READ_HEADER_TIMEOUT",
	"NAVIGO_SHUTDOWN_GRACE_PERIOD",
	"GOOGLE_API_KEY",
	"GOOGLE_GENAI_USE_VERTEXAI",
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range gatewayEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":8081" {
		t.Fatalf("Addr = %q, want :8081", cfg.Addr)
	}
	if cfg.Model != "gemini-live-2.5-flash-native-audio" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.Voice != "Puck" {
		t.Fatalf("Voice = %q, want Puck", cfg.Voice)
	}
	if !strings.Contains(cfg.Instruction, "NaviGo AI") {
		t.Fatalf("Instruction missing default persona")
	}
	if cfg.UseVertexAI {
		t.Fatalf("UseVertexAI = true, want false by default")
	}
	if cfg.AudioQueueSize != 64 || cfg.VideoQueueSize != 8 || cfg.OutboundQueueSize != 128 {
		t.Fatalf("queue sizes = %d/%d/%d", cfg.AudioQueueSize, cfg.VideoQueueSize, cfg.OutboundQueueSize)
	}
	if cfg.EventBufferSize != 32 {
		t.Fatalf("EventBufferSize = %d, want 32", cfg.EventBufferSize)
	}
	if cfg.SendSampleRate != 16000 {
		t.Fatalf("SendSampleRate = %d, want 16000", cfg.SendSampleRate)
	}
	if cfg.MaxMessageBytes != 4<<20 {
		t.Fatalf("MaxMessageBytes = %d, want %d", cfg.MaxMessageBytes, int64(4<<20))
	}
	if cfg.WSPingInterval != 20*time.Second {
		t.Fatalf("WSPingInterval = %v, want 20s", cfg.WSPingInterval)
	}
	if cfg.WSWriteTimeout != 5*time.Second {
		t.Fatalf("WSWriteTimeout = %v, want 5s", cfg.WSWriteTimeout)
	}
	if cfg.ReadHeaderTimeout != 10*time.Second {
		t.Fatalf("ReadHeaderTimeout = %v, want 10s", cfg.ReadHeaderTimeout)
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Fatalf("ShutdownGracePeriod = %v, want 30s", cfg.ShutdownGracePeriod)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("AllowedOrigins = %v, want empty", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("NAVIGO_ADDR", ":9090")
	t.Setenv("NAVIGO_MODEL", "gemini-2.0-flash-live-001")
	t.Setenv("NAVIGO_VOICE", "Aoede")
	t.Setenv("NAVIGO_AUDIO_QUEUE_SIZE", "16")
	t.Setenv("NAVIGO_SEND_SAMPLE_RATE", "24000")
	t.Setenv("NAVIGO_WS_PING_INTERVAL", "45s")
	t.Setenv("NAVIGO_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.Model != "gemini-2.0-flash-live-001" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.Voice != "Aoede" {
		t.Fatalf("Voice = %q", cfg.Voice)
	}
	if cfg.AudioQueueSize != 16 {
		t.Fatalf("AudioQueueSize = %d, want 16", cfg.AudioQueueSize)
	}
	if cfg.SendSampleRate != 24000 {
		t.Fatalf("SendSampleRate = %d, want 24000", cfg.SendSampleRate)
	}
	if cfg.WSPingInterval != 45*time.Second {
		t.Fatalf("WSPingInterval = %v, want 45s", cfg.WSPingInterval)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if _, ok := cfg.AllowedOrigins["https://app.example.com"]; !ok {
		t.Fatalf("AllowedOrigins missing https://app.example.com: %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnv_RequiresCredentials(t *testing.T) {
	clearGatewayEnv(t)

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error when no credentials are configured")
	} else if !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Fatalf("error = %v, want GOOGLE_API_KEY mention", err)
	}
}

func TestLoadFromEnv_VertexRequiresProjectAndLocation(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "true")

	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "NAVIGO_PROJECT_ID") {
		t.Fatalf("error = %v, want NAVIGO_PROJECT_ID mention", err)
	}

	t.Setenv("NAVIGO_PROJECT_ID", "demo-project")
	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "NAVIGO_LOCATION") {
		t.Fatalf("error = %v, want NAVIGO_LOCATION mention", err)
	}

	t.Setenv("NAVIGO_LOCATION", "us-central1")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if !cfg.UseVertexAI || cfg.ProjectID != "demo-project" || cfg.Location != "us-central1" {
		t.Fatalf("vertex config = %+v", cfg)
	}
}

func TestLoadFromEnv_RejectsBadValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
		want  string
	}{
		{"NAVIGO_AUDIO_QUEUE_SIZE", "0", "NAVIGO_AUDIO_QUEUE_SIZE"},
		{"NAVIGO_VIDEO_QUEUE_SIZE", "-1", "NAVIGO_VIDEO_QUEUE_SIZE"},
		{"NAVIGO_OUTBOUND_QUEUE_SIZE", "0", "NAVIGO_OUTBOUND_QUEUE_SIZE"},
		{"NAVIGO_EVENT_BUFFER_SIZE", "0", "NAVIGO_EVENT_BUFFER_SIZE"},
		{"NAVIGO_SEND_SAMPLE_RATE", "0", "NAVIGO_SEND_SAMPLE_RATE"},
		{"NAVIGO_MAX_MESSAGE_BYTES", "0", "NAVIGO_MAX_MESSAGE_BYTES"},
		{"NAVIGO_WS_PING_INTERVAL", "0s", "NAVIGO_WS_PING_INTERVAL"},
		{"NAVIGO_WS_WRITE_TIMEOUT", "0s", "NAVIGO_WS_WRITE_TIMEOUT"},
		{"NAVIGO_READ_HEADER_TIMEOUT", "0s", "NAVIGO_READ_HEADER_TIMEOUT"},
		{"NAVIGO_SHUTDOWN_GRACE_PERIOD", "0s", "NAVIGO_SHUTDOWN_GRACE_PERIOD"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			clearGatewayEnv(t)
			t.Setenv("GOOGLE_API_KEY", "test-key")
			t.Setenv(tc.key, tc.value)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
