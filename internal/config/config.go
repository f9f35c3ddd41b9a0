package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Shortener ShortenerConfig
	Recorder  RecorderConfig
	Kafka     KafkaConfig
	Security  SecurityConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type ShortenerConfig struct {
	BaseURL        string
	SlugLength     int
	RedirectStatus int // 301 or 302
}

// RecorderConfig tunes the async click recorder.
type RecorderConfig struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// KafkaConfig controls the optional externalized click pipeline. When Sink
// is "kafka" the API publishes click events instead of writing the click
// store directly, and the click consumer does the writing.
type KafkaConfig struct {
	Sink    string // "store" or "kafka"
	Brokers []string
	Topic   string
}

type SecurityConfig struct {
	APIKeys    []string
	CreateRate CreateRateConfig
}

type CreateRateConfig struct {
	RequestsPerMinute int
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "atalho"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "atalho"),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			SlugLength:     GetEnvInt("SLUG_LENGTH", 7),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Recorder: RecorderConfig{
			QueueSize:    GetEnvInt("CLICK_QUEUE_SIZE", 4096),
			Workers:      GetEnvInt("CLICK_WORKERS", 2),
			WriteTimeout: GetEnvDuration("CLICK_WRITE_TIMEOUT", 2*time.Second),
		},
		Kafka: KafkaConfig{
			Sink:    GetEnv("CLICK_SINK", "store"),
			Brokers: SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
		},
		Security: SecurityConfig{
			APIKeys: SplitCSV(GetEnv("API_KEYS", "")),
			CreateRate: CreateRateConfig{
				RequestsPerMinute: GetEnvInt("CREATE_RATE_PER_MINUTE", 60),
			},
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Shortener.RedirectStatus != 301 && cfg.Shortener.RedirectStatus != 302 {
		return nil, fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", cfg.Shortener.RedirectStatus)
	}
	if cfg.Shortener.SlugLength < 4 || cfg.Shortener.SlugLength > 32 {
		return nil, fmt.Errorf("SLUG_LENGTH must be between 4 and 32 (got %d)", cfg.Shortener.SlugLength)
	}
	if cfg.Kafka.Sink != "store" && cfg.Kafka.Sink != "kafka" {
		return nil, fmt.Errorf("CLICK_SINK must be \"store\" or \"kafka\" (got %q)", cfg.Kafka.Sink)
	}
	if cfg.Kafka.Sink == "kafka" && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker when CLICK_SINK=kafka")
	}

	return cfg, nil
}
