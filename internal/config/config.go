package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Collaborator endpoints and credentials
	Server ServerConfig

	// Real-time channel behavior
	Realtime RealtimeConfig

	// Typing indicator timing
	Typing TypingConfig

	// Presence classification windows
	Presence PresenceConfig

	// Dev stub server configuration
	DevServer DevServerConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds the collaborator service endpoints
type ServerConfig struct {
	BaseURL        string // REST base, e.g. https://tracker.example.com/api/v1
	WebSocketURL   string // WS base, e.g. wss://tracker.example.com/api/v1
	AuthToken      string
	RequestTimeout time.Duration
}

// RealtimeConfig holds room connection behavior
type RealtimeConfig struct {
	KeepaliveInterval time.Duration // ping cadence while connected
	ReconnectMinWait  time.Duration // initial backoff after transport close
	ReconnectMaxWait  time.Duration // backoff cap
	SendQueueSize     int           // outbound envelopes buffered while disconnected
	SendRatePerSecond float64       // per-room outbound rate limit
	SendBurst         int
	HandshakeTimeout  time.Duration
}

// TypingConfig holds typing indicator timing
type TypingConfig struct {
	Debounce      time.Duration // local keystroke debounce before typing=true
	StopAfter     time.Duration // inactivity before typing=false
	SweepInterval time.Duration // remote entry sweep cadence
	Expiry        time.Duration // remote entry max age without refresh
}

// PresenceConfig holds the read-time activity classification windows
type PresenceConfig struct {
	ActiveWindow time.Duration // last activity within this window => active
	IdleWindow   time.Duration // within this window => idle, beyond => away
}

// DevServerConfig holds the local collaborator stub configuration
type DevServerConfig struct {
	Port              string
	JWTSecret         string
	AllowedOrigins    []string
	ReadBufferSize    int
	WriteBufferSize   int
	RequestsPerSecond float64
	BurstSize         int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			BaseURL:        getEnvOrDefault("TRACKER_BASE_URL", "http://localhost:8080/api/v1"),
			WebSocketURL:   getEnvOrDefault("TRACKER_WS_URL", "ws://localhost:8080/api/v1"),
			AuthToken:      os.Getenv("TRACKER_TOKEN"),
			RequestTimeout: getDurationOrDefault("TRACKER_REQUEST_TIMEOUT", 15*time.Second),
		},
		Realtime: RealtimeConfig{
			KeepaliveInterval: getDurationOrDefault("RT_KEEPALIVE_INTERVAL", 30*time.Second),
			ReconnectMinWait:  getDurationOrDefault("RT_RECONNECT_MIN_WAIT", time.Second),
			ReconnectMaxWait:  getDurationOrDefault("RT_RECONNECT_MAX_WAIT", 30*time.Second),
			SendQueueSize:     getIntOrDefault("RT_SEND_QUEUE_SIZE", 64),
			SendRatePerSecond: getFloatOrDefault("RT_SEND_RPS", 20),
			SendBurst:         getIntOrDefault("RT_SEND_BURST", 40),
			HandshakeTimeout:  getDurationOrDefault("RT_HANDSHAKE_TIMEOUT", 10*time.Second),
		},
		Typing: TypingConfig{
			Debounce:      getDurationOrDefault("TYPING_DEBOUNCE", 300*time.Millisecond),
			StopAfter:     getDurationOrDefault("TYPING_STOP_AFTER", 2*time.Second),
			SweepInterval: getDurationOrDefault("TYPING_SWEEP_INTERVAL", time.Second),
			Expiry:        getDurationOrDefault("TYPING_EXPIRY", 4*time.Second),
		},
		Presence: PresenceConfig{
			ActiveWindow: getDurationOrDefault("PRESENCE_ACTIVE_WINDOW", time.Minute),
			IdleWindow:   getDurationOrDefault("PRESENCE_IDLE_WINDOW", 5*time.Minute),
		},
		DevServer: DevServerConfig{
			Port:              getEnvOrDefault("DEVSERVER_PORT", ":8080"),
			JWTSecret:         getEnvOrDefault("DEVSERVER_JWT_SECRET", "local-dev-secret"),
			AllowedOrigins:    getStringSliceOrDefault("DEVSERVER_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:    getIntOrDefault("DEVSERVER_READ_BUFFER_SIZE", 1024),
			WriteBufferSize:   getIntOrDefault("DEVSERVER_WRITE_BUFFER_SIZE", 1024),
			RequestsPerSecond: getFloatOrDefault("DEVSERVER_RATE_LIMIT_RPS", 20),
			BurstSize:         getIntOrDefault("DEVSERVER_RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "trackboard-realtime"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Server.BaseURL == "" {
		errs = append(errs, "TRACKER_BASE_URL is required")
	}

	if c.Server.WebSocketURL == "" {
		errs = append(errs, "TRACKER_WS_URL is required")
	}

	if c.Realtime.ReconnectMinWait > c.Realtime.ReconnectMaxWait {
		errs = append(errs, "RT_RECONNECT_MIN_WAIT cannot be greater than RT_RECONNECT_MAX_WAIT")
	}

	if c.Realtime.SendQueueSize < 0 {
		errs = append(errs, "RT_SEND_QUEUE_SIZE cannot be negative")
	}

	if c.Typing.Debounce >= c.Typing.StopAfter {
		errs = append(errs, "TYPING_DEBOUNCE must be shorter than TYPING_STOP_AFTER")
	}

	if c.Presence.ActiveWindow >= c.Presence.IdleWindow {
		errs = append(errs, "PRESENCE_ACTIVE_WINDOW must be shorter than PRESENCE_IDLE_WINDOW")
	}

	if c.App.Environment == "production" && len(c.DevServer.AllowedOrigins) == 0 {
		errs = append(errs, "DEVSERVER_ALLOWED_ORIGINS must be set when running the stub in production mode")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{BaseURL: %s, WS: %s, Token: [REDACTED], Environment: %s}",
		c.Server.BaseURL,
		c.Server.WebSocketURL,
		c.App.Environment,
	)
}
