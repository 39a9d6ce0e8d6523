package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Port           int
	GeminiAPIKey   string
	VoiceName      string
	RedisURL       string
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	AllowedOrigins []string
	MaxBufferSize  int           // Maximum buffered capture bytes per session
	FrameInterval  time.Duration // Video still-frame cadence
	JPEGQuality    int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:           8080,
		VoiceName:      "Zephyr",
		RedisURL:       "localhost:6379",
		RedisPassword:  "",
		MaxSessions:    100,
		SessionTimeout: 30 * time.Minute,
		AllowedOrigins: []string{"*"},
		MaxBufferSize:  5 * 1024 * 1024, // 5MB default
		FrameInterval:  time.Second,     // 1 fps bounds bandwidth, enough for posture feedback
		JPEGQuality:    60,
		KafkaTopic:     "posecoach.transcripts",
		LogLevel:       "info",
		LogFormat:      "json",
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	if voice := os.Getenv("VOICE_NAME"); voice != "" {
		config.VoiceName = voice
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// SESSION_TIMEOUT is in minutes
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// ALLOWED_ORIGINS is comma-separated
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if bufferSize := os.Getenv("MAX_BUFFER_SIZE"); bufferSize != "" {
		b, err := strconv.Atoi(bufferSize)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_BUFFER_SIZE: %w", err)
		}
		config.MaxBufferSize = b
	}

	// VIDEO_FRAME_INTERVAL is in milliseconds
	if interval := os.Getenv("VIDEO_FRAME_INTERVAL"); interval != "" {
		ms, err := strconv.Atoi(interval)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid VIDEO_FRAME_INTERVAL: %q", interval)
		}
		config.FrameInterval = time.Duration(ms) * time.Millisecond
	}

	if quality := os.Getenv("JPEG_QUALITY"); quality != "" {
		q, err := strconv.Atoi(quality)
		if err != nil || q < 1 || q > 100 {
			return nil, fmt.Errorf("invalid JPEG_QUALITY: %q", quality)
		}
		config.JPEGQuality = q
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config.KafkaBrokers = strings.Split(brokers, ",")
		config.KafkaEnabled = true
	}

	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		config.KafkaTopic = topic
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		switch format {
		case "json", "console":
			config.LogFormat = format
		default:
			return nil, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'console'")
		}
	}

	return config, nil
}
