package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Transcription providers.
const (
	ProviderNone       = "none"
	ProviderAssemblyAI = "assemblyai"
	ProviderWhisper    = "whisper"
)

// Event backends.
const (
	BackendLog     = "log"
	BackendMQTT    = "mqtt"
	BackendKafka   = "kafka"
	BackendArchive = "archive"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken      string   `env:"AUTH_TOKEN"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`
	MaxUploadMB    int64    `env:"MAX_UPLOAD_MB" envDefault:"50"`
	MaxTextBytes   int64    `env:"MAX_TEXT_BYTES" envDefault:"1048576"`

	STTProvider           string        `env:"STT_PROVIDER" envDefault:"none"`
	STTLanguage           string        `env:"STT_LANGUAGE" envDefault:"en"`
	STTTimeout            time.Duration `env:"STT_TIMEOUT" envDefault:"5m"`
	AssemblyAIAPIKey      string        `env:"ASSEMBLYAI_API_KEY"`
	AssemblyAISpeechModel string        `env:"ASSEMBLYAI_SPEECH_MODEL" envDefault:"nano"`
	WhisperURL            string        `env:"WHISPER_URL"`
	WhisperModel          string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	WhisperAPIKey         string        `env:"WHISPER_API_KEY"`
	PreprocessAudio       bool          `env:"PREPROCESS_AUDIO" envDefault:"false"`
	TranscribeWorkers     int           `env:"TRANSCRIBE_WORKERS" envDefault:"2"`
	TranscribeQueueSize   int           `env:"TRANSCRIBE_QUEUE_SIZE" envDefault:"100"`

	WatchDir string `env:"WATCH_DIR"`

	EventsBackend []string `env:"EVENTS_BACKEND" envSeparator:"," envDefault:"log"`
	SSEReplaySize int      `env:"SSE_REPLAY_SIZE" envDefault:"256"`

	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" envDefault:"speech-analytics"`
	MQTTTopic       string `env:"MQTT_TOPIC" envDefault:"speech-analytics/reports"`
	MQTTInputTopics string `env:"MQTT_INPUT_TOPICS"`
	MQTTUsername    string `env:"MQTT_USERNAME"`
	MQTTPassword    string `env:"MQTT_PASSWORD"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"speech-analytics.reports"`

	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`
}

// ArchiveConfig holds settings for the report archive. Reports go to a
// local directory, an S3-compatible bucket, or both (local primary with
// the bucket as backup).
type ArchiveConfig struct {
	Dir string `env:"DIR"`
	// Local files older than Retention are pruned, oldest first, as are
	// files beyond MaxMB. Zero disables either limit. With a bucket
	// configured only files already uploaded are pruned.
	Retention time.Duration `env:"RETENTION"`
	MaxMB     int64         `env:"MAX_MB"`

	Endpoint  string `env:"S3_ENDPOINT"` // host:port, no scheme
	Bucket    string `env:"S3_BUCKET"`
	Prefix    string `env:"S3_PREFIX"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`

	UploadWorkers int `env:"UPLOAD_WORKERS" envDefault:"2"`
	UploadBuffer  int `env:"UPLOAD_BUFFER" envDefault:"500"`
}

// ObjectStoreEnabled reports whether a bucket is configured.
func (a ArchiveConfig) ObjectStoreEnabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	WatchDir    string
	STTProvider string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}
	if overrides.STTProvider != "" {
		cfg.STTProvider = overrides.STTProvider
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.STTProvider = strings.ToLower(strings.TrimSpace(c.STTProvider))
	c.EventsBackend = cleanList(c.EventsBackend, true)
	c.KafkaBrokers = cleanList(c.KafkaBrokers, false)
	c.CORSOrigins = cleanList(c.CORSOrigins, false)
}

// Validate checks that every enabled feature has the settings it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.STTProvider {
	case ProviderNone:
	case ProviderAssemblyAI:
		if c.AssemblyAIAPIKey == "" {
			errs = append(errs, errors.New("ASSEMBLYAI_API_KEY is required when STT_PROVIDER=assemblyai"))
		}
	case ProviderWhisper:
		if c.WhisperURL == "" {
			errs = append(errs, errors.New("WHISPER_URL is required when STT_PROVIDER=whisper"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STT_PROVIDER %q (want none, assemblyai or whisper)", c.STTProvider))
	}

	for _, b := range c.EventsBackend {
		switch b {
		case BackendLog:
		case BackendMQTT:
			if c.MQTTBrokerURL == "" {
				errs = append(errs, errors.New("MQTT_BROKER_URL is required for the mqtt events backend"))
			}
		case BackendKafka:
			if len(c.KafkaBrokers) == 0 {
				errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka events backend"))
			}
			if c.KafkaTopic == "" {
				errs = append(errs, errors.New("KAFKA_TOPIC is required for the kafka events backend"))
			}
		case BackendArchive:
			if c.Archive.Dir == "" && !c.Archive.ObjectStoreEnabled() {
				errs = append(errs, errors.New("ARCHIVE_DIR or ARCHIVE_S3_ENDPOINT and ARCHIVE_S3_BUCKET are required for the archive events backend"))
			}
			if c.Archive.Endpoint != "" && c.Archive.Bucket == "" {
				errs = append(errs, errors.New("ARCHIVE_S3_BUCKET is required when ARCHIVE_S3_ENDPOINT is set"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q (want log, mqtt, kafka or archive)", b))
		}
	}
	if c.MQTTInputTopics != "" && c.MQTTBrokerURL == "" {
		errs = append(errs, errors.New("MQTT_BROKER_URL is required when MQTT_INPUT_TOPICS is set"))
	}

	if c.TranscribeWorkers < 1 {
		errs = append(errs, errors.New("TRANSCRIBE_WORKERS must be >= 1"))
	}
	if c.TranscribeQueueSize < 1 {
		errs = append(errs, errors.New("TRANSCRIBE_QUEUE_SIZE must be >= 1"))
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be >= 1"))
	}
	if c.MaxTextBytes < 1 {
		errs = append(errs, errors.New("MAX_TEXT_BYTES must be >= 1"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be >= 0"))
	}

	return errors.Join(errs...)
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// HasBackend reports whether the named events backend is enabled.
func (c *Config) HasBackend(name string) bool {
	for _, b := range c.EventsBackend {
		if b == name {
			return true
		}
	}
	return false
}

// MQTTEnabled reports whether an MQTT connection is needed at all.
func (c *Config) MQTTEnabled() bool {
	return c.HasBackend(BackendMQTT) || c.MQTTInputTopics != ""
}

func cleanList(in []string, lower bool) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
