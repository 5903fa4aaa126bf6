package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportREST = "rest"
	TransportSDK  = "sdk"

	RenderPlain    = "plain"
	RenderMarkdown = "markdown"
)

// DefaultSystemInstruction steers the model towards short plain-text replies.
const DefaultSystemInstruction = "You are BUIQ, a friendly assistant. Answer clearly and concisely in plain text. Do not use markdown, bullet lists, or numbered lists."

type Config struct {
	// Server
	Port  string
	Env   string
	Debug bool

	// Gemini AI
	GeminiAPIKey            string
	GeminiModel             string
	GeminiBaseURL           string
	GeminiTransport         string
	GeminiSystemInstruction string
	GeminiMaxOutputTokens   int
	GeminiTemperature       float64
	GeminiTimeout           time.Duration

	// Chat
	RenderMode    string
	MaxReplyChars int

	// Sessions
	SessionSecret      string
	SessionIdleTimeout time.Duration
	SendRateLimit      int

	// Redis (optional, enables cross-replica event relay)
	RedisURL string

	// Frontend
	FrontendURL string
}

// Load reads configuration from the environment. Values in a .env file in the
// working directory are applied first when present.
func Load() *Config {
	godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit .env path. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	port := getEnvOrDefault("PORT", "8080")

	cfg := &Config{
		Port:                    port,
		Env:                     getEnvOrDefault("ENV", "development"),
		Debug:                   getEnvAsBoolOrDefault("DEBUG", false),
		GeminiAPIKey:            mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:             getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:           strings.TrimRight(getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
		GeminiTransport:         oneOf(getEnvOrDefault("GEMINI_TRANSPORT", TransportREST), TransportREST, TransportREST, TransportSDK),
		GeminiSystemInstruction: getEnvOrDefault("GEMINI_SYSTEM_INSTRUCTION", DefaultSystemInstruction),
		GeminiMaxOutputTokens:   getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", 512),
		GeminiTemperature:       getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.7),
		GeminiTimeout:           getEnvAsDurationOrDefault("GEMINI_TIMEOUT", 0),
		RenderMode:              oneOf(getEnvOrDefault("CHAT_RENDER_MODE", RenderPlain), RenderPlain, RenderPlain, RenderMarkdown),
		MaxReplyChars:           getEnvAsIntOrDefault("CHAT_MAX_REPLY_CHARS", 800),
		SessionSecret:           getEnvOrDefault("SESSION_SECRET", ""),
		SessionIdleTimeout:      getEnvAsDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SendRateLimit:           getEnvAsIntOrDefault("SEND_RATE_LIMIT", 20),
		RedisURL:                getEnvOrDefault("REDIS_URL", ""),
		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:"+port),
	}

	return cfg
}

// IsMarkdown reports whether replies are rendered as markdown rather than cleaned plain text.
func (c *Config) IsMarkdown() bool {
	return c.RenderMode == RenderMarkdown
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go durations ("45s", "30m") or a bare number of seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// oneOf returns val when it is one of allowed, otherwise fallback.
func oneOf(val, fallback string, allowed ...string) string {
	val = strings.ToLower(val)
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	return fallback
}
