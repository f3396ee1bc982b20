package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	Mongo     MongoConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Directory DirectoryConfig
	UserSvc   UserServiceConfig
}

// MongoConfig points at the document store holding programs, program users
// and the role catalog.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig configures the optional location-directory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the program-users event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// DirectoryConfig points at the external location directory.
type DirectoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// UserServiceConfig points at the external profile/consent service.
type UserServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr: envOr("OUTREACH_ADDR", ":8080"),
		Mongo: MongoConfig{
			URI:      envOr("MONGO_URI", "mongodb://localhost:27017"),
			Database: envOr("MONGO_DATABASE", "outreach"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_PROGRAM_USERS_TOPIC", "outreach.program.users"),
		},
		Directory: DirectoryConfig{
			BaseURL: os.Getenv("LOCATION_DIRECTORY_URL"),
			Timeout: 10 * time.Second,
		},
		UserSvc: UserServiceConfig{
			BaseURL: os.Getenv("USER_SERVICE_URL"),
			Timeout: 10 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
