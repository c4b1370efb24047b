package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultInstruction is the system persona used when NAVIGO_INSTRUCTION is
// not set. The agent is voice-first; the display tools push structured
// content to the client screen alongside speech.
const DefaultInstruction = `You are NaviGo AI, a friendly and helpful travel assistant.
Your goal is to provide accurate and relevant travel information to users.
Introduce yourself at the beginning of the conversation: mention your name, NaviGo AI, and what you do.
Avoid giving any information about yourself, your capabilities, or the tools you use.

Be clear in your responses. Always keep your responses concise and to the point.
If you don't know the answer to a question, politely inform the user that you don't have that information.
If the user asks for information that is not related to travel, politely inform them that you cannot assist with that.

UI Display Tools:
You have access to tools that display information visually on the user's screen alongside your voice responses:
- Use display_content() for detailed explanations, descriptions, or formatted text that complements what you're saying
- Use display_card() for structured information like travel itineraries, destination summaries, or highlighted details (title, content, optional footer)
- Use display_list() for lists of items such as travel destinations, recommendations, activities, or step-by-step instructions

When to use UI tools:
- When providing itineraries or travel plans (use display_card or display_list)
- When listing multiple destinations, attractions, or recommendations (use display_list)
- When sharing detailed information that would be better read than heard (use display_content)
- When presenting structured information like hotel details, flight information, or package deals (use display_card)

Always mention that you've displayed the information on their screen when you use these tools. For example: "I've sent the itinerary details to your screen" or "Check your screen for the list of recommended destinations."`

type Config struct {
	Addr string

	// Backend model settings.
	Model       string
	Voice       string
	Instruction string

	// Either an API key (Gemini API) or Vertex AI project credentials.
	APIKey      string
	UseVertexAI bool
	ProjectID   string
	Location    string

	// Per-session queue sizing and audio format.
	AudioQueueSize    int
	VideoQueueSize    int
	OutboundQueueSize int
	EventBufferSize   int
	SendSampleRate    int
	MaxMessageBytes   int64

	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	// Browser origins allowed to open the websocket. Empty => same-origin
	// checks are skipped (development mode).
	AllowedOrigins map[string]struct{}

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("NAVIGO_ADDR", ":8081"),
		Model:               envOr("NAVIGO_MODEL", "gemini-live-2.5-flash-native-audio"),
		Voice:               envOr("NAVIGO_VOICE", "Puck"),
		Instruction:         envOr("NAVIGO_INSTRUCTION", DefaultInstruction),
		APIKey:              strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		UseVertexAI:         envBoolOr("GOOGLE_GENAI_USE_VERTEXAI", false),
		ProjectID:           envOr("NAVIGO_PROJECT_ID", ""),
		Location:            envOr("NAVIGO_LOCATION", ""),
		AudioQueueSize:      envIntOr("NAVIGO_AUDIO_QUEUE_SIZE", 64),
		VideoQueueSize:      envIntOr("NAVIGO_VIDEO_QUEUE_SIZE", 8),
		OutboundQueueSize:   envIntOr("NAVIGO_OUTBOUND_QUEUE_SIZE", 128),
		EventBufferSize:     envIntOr("NAVIGO_EVENT_BUFFER_SIZE", 32),
		SendSampleRate:      envIntOr("NAVIGO_SEND_SAMPLE_RATE", 16000),
		MaxMessageBytes:     envInt64Or("NAVIGO_MAX_MESSAGE_BYTES", 4<<20), // 4 MiB
		WSPingInterval:      envDurationOr("NAVIGO_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:      envDurationOr("NAVIGO_WS_WRITE_TIMEOUT", 5*time.Second),
		AllowedOrigins:      make(map[string]struct{}),
		ReadHeaderTimeout:   envDurationOr("NAVIGO_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("NAVIGO_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("NAVIGO_ALLOWED_ORIGINS")) {
		cfg.AllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.Model) == "" {
		return Config{}, fmt.Errorf("NAVIGO_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		return Config{}, fmt.Errorf("NAVIGO_VOICE must not be empty")
	}
	if cfg.UseVertexAI {
		if cfg.ProjectID == "" {
			return Config{}, fmt.Errorf("NAVIGO_PROJECT_ID must be set when GOOGLE_GENAI_USE_VERTEXAI=true")
		}
		if cfg.Location == "" {
			return Config{}, fmt.Errorf("NAVIGO_LOCATION must be set when GOOGLE_GENAI_USE_VERTEXAI=true")
		}
	} else if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("GOOGLE_API_KEY must be set when GOOGLE_GENAI_USE_VERTEXAI is not enabled")
	}
	if cfg.AudioQueueSize <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_AUDIO_QUEUE_SIZE must be > 0")
	}
	if cfg.VideoQueueSize <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_VIDEO_QUEUE_SIZE must be > 0")
	}
	if cfg.OutboundQueueSize <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_OUTBOUND_QUEUE_SIZE must be > 0")
	}
	if cfg.EventBufferSize <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_EVENT_BUFFER_SIZE must be > 0")
	}
	if cfg.SendSampleRate <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_SEND_SAMPLE_RATE must be > 0")
	}
	if cfg.MaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("NAVIGO_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
