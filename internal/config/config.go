package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"presenter-studio/internal/logger"
)

// Config holds the whole service configuration.
type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"development"`
	HTTPPort int    `env:"HTTP_PORT" env-default:"8080"`
	Logger   logger.Config

	SessionsDir    string `env:"SESSIONS_DIR" env-default:"./data/sessions"`
	PresentersFile string `env:"PRESENTERS_FILE" env-default:"./configs/presenters.yaml"`
	OutroPath      string `env:"OUTRO_PATH"`

	ImageProvider ProviderConfig `env-prefix:"IMAGE_PROVIDER_"`
	VideoProvider ProviderConfig `env-prefix:"VIDEO_PROVIDER_"`

	Pipeline PipelineConfig
	Storage  StorageConfig
	Media    MediaConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	CORS     CORSConfig
}

// ProviderConfig configures one generative provider task API.
type ProviderConfig struct {
	BaseURL     string        `env:"BASE_URL" env-required:"true"`
	APIKey      string        `env:"API_KEY"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"60s"`
	AspectRatio string        `env:"ASPECT_RATIO" env-default:"9:16"`
}

// PipelineConfig holds polling, retry and pacing knobs.
type PipelineConfig struct {
	PollInterval        time.Duration `env:"POLL_INTERVAL" env-default:"5s"`
	PollTimeout         time.Duration `env:"POLL_TIMEOUT" env-default:"10m"`
	ImagePollTimeout    time.Duration `env:"IMAGE_POLL_TIMEOUT" env-default:"3m"`
	ThrottleMaxAttempts int           `env:"THROTTLE_MAX_ATTEMPTS" env-default:"4"`
	ThrottleBackoff     time.Duration `env:"THROTTLE_BACKOFF" env-default:"30s"`
	DownloadMaxAttempts int           `env:"DOWNLOAD_MAX_ATTEMPTS" env-default:"3"`
	DownloadBackoff     time.Duration `env:"DOWNLOAD_BACKOFF" env-default:"2s"`
	CoolingPeriod       time.Duration `env:"COOLING_PERIOD" env-default:"45s"`
	SegmentConcurrency  int           `env:"SEGMENT_CONCURRENCY" env-default:"1"`
	WordsPerSecond      float64       `env:"WORDS_PER_SECOND" env-default:"2.8"`
	PromptDescriptorMax int           `env:"PROMPT_DESCRIPTOR_WORDS" env-default:"25"`
	Locale              string        `env:"LOCALE" env-default:"en"`
	ProgressionStyle    string        `env:"PROGRESSION_STYLE" env-default:"cinematic"`
}

// StorageConfig selects where reference images are published.
type StorageConfig struct {
	Backend       string        `env:"STORAGE_BACKEND" env-default:"local"`
	LocalDir      string        `env:"STORAGE_LOCAL_DIR" env-default:"./data/public"`
	PublicBaseURL string        `env:"STORAGE_PUBLIC_BASE_URL" env-default:"http://localhost:8080/static"`
	GCSBucket     string        `env:"STORAGE_GCS_BUCKET"`
	SignedURLTTL  time.Duration `env:"STORAGE_SIGNED_URL_TTL" env-default:"24h"`
}

// MediaConfig configures ffmpeg and the output encoding.
type MediaConfig struct {
	FFmpegPath        string        `env:"FFMPEG_PATH" env-default:"ffmpeg"`
	FFprobePath       string        `env:"FFPROBE_PATH" env-default:"ffprobe"`
	Width             int           `env:"VIDEO_WIDTH" env-default:"1080"`
	Height            int           `env:"VIDEO_HEIGHT" env-default:"1920"`
	FPS               int           `env:"VIDEO_FPS" env-default:"30"`
	AudioSampleRate   int           `env:"AUDIO_SAMPLE_RATE" env-default:"44100"`
	FlashDuration     time.Duration `env:"FLASH_DURATION" env-default:"40ms"`
	InsertFlashes     bool          `env:"INSERT_FLASHES" env-default:"false"`
	DurationTolerance time.Duration `env:"DURATION_TOLERANCE" env-default:"250ms"`
	SubtitleFont      string        `env:"SUBTITLE_FONT" env-default:"Arial"`
	CardFontFile      string        `env:"CARD_FONT_FILE"`
}

// RedisConfig enables the distributed session lease. Empty URL keeps leases in process.
type RedisConfig struct {
	URL      string        `env:"REDIS_URL"`
	LeaseTTL time.Duration `env:"LEASE_TTL" env-default:"30m"`
}

// RabbitMQConfig enables session event publishing. Empty URL disables it.
type RabbitMQConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EVENTS_EXCHANGE" env-default:"presenter_studio.session_events"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Load reads configuration from the environment, loading an optional .env first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_GCS_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Pipeline.SegmentConcurrency < 1 {
		return fmt.Errorf("SEGMENT_CONCURRENCY must be at least 1")
	}
	if c.Pipeline.ThrottleMaxAttempts < 1 {
		return fmt.Errorf("THROTTLE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.Media.Width <= 0 || c.Media.Height <= 0 || c.Media.FPS <= 0 {
		return fmt.Errorf("video dimensions and fps must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
