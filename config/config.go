package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	LogMode       string
	CORSOrigins   []string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	MigrationsDir string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RegistryDriver selects the asset registry: postgres or memory.
	RegistryDriver string

	Store  StoreConfig
	Upload UploadConfig
	Events EventsConfig

	RateLimitInitiate int
	RateLimitWindow   time.Duration
}

// StoreConfig selects and configures the object store backend.
type StoreConfig struct {
	Driver string // s3, minio or memory

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIOBucket    string
}

type UploadConfig struct {
	PartURLTTL         time.Duration
	ReadURLTTL         time.Duration
	StoreTimeout       time.Duration
	DefaultContentType string
	PublishTimeout     time.Duration
}

type EventsConfig struct {
	Driver       string // redis, kafka or none
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
}

const (
	StoreDriverS3     = "s3"
	StoreDriverMinIO  = "minio"
	StoreDriverMemory = "memory"

	EventsDriverRedis = "redis"
	EventsDriverKafka = "kafka"
	EventsDriverNone  = "none"

	RegistryDriverPostgres = "postgres"
	RegistryDriverMemory   = "memory"
)

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		LogMode:       getEnv("LOG_MODE", "development"),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "oneclick_video"),
		DBPort:        getEnv("DB_PORT", "5432"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RegistryDriver: getEnv("REGISTRY_DRIVER", RegistryDriverPostgres),

		Store: StoreConfig{
			Driver:         getEnv("STORE_DRIVER", StoreDriverS3),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Bucket:       getEnv("S3_BUCKET", ""),
			S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
			S3Endpoint:     getEnv("S3_ENDPOINT", ""),
			MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinIOUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			MinIOBucket:    getEnv("MINIO_BUCKET", "videos"),
		},
		Upload: UploadConfig{
			PartURLTTL:         getEnvAsDuration("UPLOAD_PART_URL_TTL", time.Hour),
			ReadURLTTL:         getEnvAsDuration("UPLOAD_READ_URL_TTL", time.Hour),
			StoreTimeout:       getEnvAsDuration("STORE_TIMEOUT", 15*time.Second),
			DefaultContentType: getEnv("UPLOAD_DEFAULT_CONTENT_TYPE", "video/mp4"),
			PublishTimeout:     getEnvAsDuration("EVENTS_PUBLISH_TIMEOUT", 5*time.Second),
		},
		Events: EventsConfig{
			Driver:       getEnv("EVENTS_DRIVER", EventsDriverNone),
			RedisChannel: getEnv("EVENTS_REDIS_CHANNEL", "channel:assets"),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "asset.events"),
		},
		RateLimitInitiate: getEnvAsInt("RATE_LIMIT_INITIATE", 30),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "1h") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
