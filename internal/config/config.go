package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Media     MediaConfig
	Analysis  AnalysisConfig
	Voice     VoiceConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	Webhook   WebhookConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// MediaConfig holds the external media tool configuration
type MediaConfig struct {
	FFmpegPath  string
	FFprobePath string
	VideoCodec  string
	AudioCodec  string
	Preset      string
	CRF         int
	TempDir     string
	// StderrTail limits how much tool stderr is kept in error messages
	StderrTail int
}

// AnalysisConfig holds suggestion engine tuning
type AnalysisConfig struct {
	MaxAudioFrames   int
	SampleFrameIndex int
	SceneThreshold   float64
	MaxSceneFrames   int
}

// VoiceConfig holds the transcription collaborator configuration
type VoiceConfig struct {
	WhisperPath      string
	ModelPath        string
	Language         string
	WakeWord         string
	TargetSampleRate int
	Timeout          time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	JobTTL   time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	URLExpiry       time.Duration
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// WorkerConfig holds transform worker configuration
type WorkerConfig struct {
	Concurrency int
	ID          string
}

// WebhookConfig holds job completion callback configuration
type WebhookConfig struct {
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// MetricsConfig holds the Prometheus server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
	// StatusInterval is how often queue and worker status is collected
	StatusInterval time.Duration
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
	SamplingRate   float64
}

// AuthConfig holds optional bearer token auth configuration
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// RateLimitConfig holds the request rate limit for transform endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Defaults are well-formed, unmarshal cannot fail on them
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "10m")
	v.SetDefault("server.shutdownTimeout", "10s")

	// Media defaults
	v.SetDefault("media.ffmpegPath", "ffmpeg")
	v.SetDefault("media.ffprobePath", "ffprobe")
	v.SetDefault("media.videoCodec", "libx264")
	v.SetDefault("media.audioCodec", "aac")
	v.SetDefault("media.preset", "fast")
	v.SetDefault("media.crf", 23)
	v.SetDefault("media.tempDir", "/tmp/aiva")
	v.SetDefault("media.stderrTail", 500)

	// Analysis defaults, 30s at 48kHz
	v.SetDefault("analysis.maxAudioFrames", 30*48000)
	v.SetDefault("analysis.sampleFrameIndex", 10)
	v.SetDefault("analysis.sceneThreshold", 0.6)
	v.SetDefault("analysis.maxSceneFrames", 5000)

	// Voice defaults
	v.SetDefault("voice.whisperPath", "whisper-cli")
	v.SetDefault("voice.modelPath", "models/ggml-base.en.bin")
	v.SetDefault("voice.language", "en")
	v.SetDefault("voice.wakeWord", "")
	v.SetDefault("voice.targetSampleRate", 16000)
	v.SetDefault("voice.timeout", "2m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.jobTTL", "24h")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "derived")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.urlExpiry", "1h")

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")

	// Worker defaults
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.id", "")

	// Webhook defaults
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.maxAttempts", 3)
	v.SetDefault("webhook.retryDelay", "2s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.statusInterval", "10s")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "aiva")
	v.SetDefault("tracing.jaegerEndpoint", "localhost:6831")
	v.SetDefault("tracing.samplingRate", 1.0)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwtSecret", "change-me")

	// Rate limit defaults
	v.SetDefault("rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("rateLimit.burst", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
