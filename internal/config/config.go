package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Context store backends
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// Config holds all server configuration
type Config struct {
	Port      int
	Debug     bool
	JWTSecret string

	AssistantEndpoint string // host of the Embedded Assistant API, used for gRPC and REST
	ProjectID         string
	MapsAPIKey        string // empty disables device location lookup

	AssistTimeout    time.Duration
	MaxAudioDuration time.Duration
	AudioGain        float64
	MP3BitRate       int
	MP3Mode          string
	TempDir          string

	ContextStore    string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	RedisPassword   string
	RedisContextTTL time.Duration

	S3Bucket    string
	S3URLExpiry time.Duration
}

// Load loads configuration from the environment, after applying a .env file
// if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              8080,
		AssistantEndpoint: "embeddedassistant.googleapis.com",
		AssistTimeout:     9 * time.Second,
		MaxAudioDuration:  90 * time.Second,
		AudioGain:         1.75,
		MP3BitRate:        48,
		MP3Mode:           "joint_stereo",
		TempDir:           os.TempDir(),
		ContextStore:      StoreMemory,
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "assistbridge",
		RedisAddr:         "localhost:6379",
		RedisContextTTL:   24 * time.Hour,
		S3URLExpiry:       10 * time.Second,
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.Debug, err = envBool("DEBUG", cfg.Debug); err != nil {
		return nil, err
	}
	if cfg.AssistTimeout, err = envDuration("ASSIST_TIMEOUT", cfg.AssistTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxAudioDuration, err = envDuration("ASSIST_MAX_AUDIO_DURATION", cfg.MaxAudioDuration); err != nil {
		return nil, err
	}
	if cfg.AudioGain, err = envFloat("AUDIO_GAIN", cfg.AudioGain); err != nil {
		return nil, err
	}
	if cfg.MP3BitRate, err = envInt("MP3_BITRATE", cfg.MP3BitRate); err != nil {
		return nil, err
	}
	if cfg.RedisContextTTL, err = envDuration("REDIS_CONTEXT_TTL", cfg.RedisContextTTL); err != nil {
		return nil, err
	}
	if cfg.S3URLExpiry, err = envDuration("S3_URL_EXPIRY", cfg.S3URLExpiry); err != nil {
		return nil, err
	}

	cfg.JWTSecret = envString("JWT_SECRET", cfg.JWTSecret)
	cfg.AssistantEndpoint = envString("GOOGLE_ASSISTANT_API_ENDPOINT", cfg.AssistantEndpoint)
	cfg.ProjectID = envString("GOOGLE_PROJECT_ID", cfg.ProjectID)
	cfg.MapsAPIKey = envString("GOOGLE_MAPS_API_KEY", cfg.MapsAPIKey)
	cfg.MP3Mode = envString("MP3_MODE", cfg.MP3Mode)
	cfg.TempDir = envString("TEMP_DIR", cfg.TempDir)
	cfg.ContextStore = strings.ToLower(envString("CONTEXT_STORE", cfg.ContextStore))
	cfg.MongoURI = envString("MONGODB_URI", cfg.MongoURI)
	cfg.MongoDatabase = envString("MONGODB_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.S3Bucket = envString("S3_BUCKET", cfg.S3Bucket)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID environment variable is required")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET environment variable is required")
	}
	if c.AssistTimeout <= 0 {
		return fmt.Errorf("invalid ASSIST_TIMEOUT: must be positive")
	}
	if c.MaxAudioDuration < time.Second {
		return fmt.Errorf("invalid ASSIST_MAX_AUDIO_DURATION: must be at least one second")
	}
	if c.AudioGain <= 0 {
		return fmt.Errorf("invalid AUDIO_GAIN: must be positive")
	}
	if c.MP3BitRate <= 0 {
		return fmt.Errorf("invalid MP3_BITRATE: must be positive")
	}
	switch c.ContextStore {
	case StoreMemory, StoreMongo, StoreRedis:
	default:
		return fmt.Errorf("invalid CONTEXT_STORE: must be 'memory', 'mongo', or 'redis'")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// envDuration accepts Go durations ("9s", "1m30s") or plain seconds
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
