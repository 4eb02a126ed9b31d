package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Live     LiveConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string
	SignalTopic   string
	BarTopic      string
	ConsumerGroup string
}

// RedisConfig holds the quote cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	BarTTL   time.Duration
}

// EngineConfig holds the tunable decision thresholds. The defaults match the
// historical rule sets; see engine.DefaultRules.
type EngineConfig struct {
	DrawdownRatio float64
	WindowSize    int
	LiveBuyAmount float64
}

// LiveConfig holds the live worker configuration
type LiveConfig struct {
	PollInterval time.Duration
	SymbolLimit  int
	Timezone     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tradeengine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			SignalTopic:   getEnv("KAFKA_SIGNAL_TOPIC", "trade-signals"),
			BarTopic:      getEnv("KAFKA_BAR_TOPIC", "market-bars"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "trade-engine"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			BarTTL:   getEnvDuration("REDIS_BAR_TTL", 5*time.Minute),
		},
		Engine: EngineConfig{
			DrawdownRatio: getEnvFloat("ENGINE_DRAWDOWN_RATIO", 0.915),
			WindowSize:    getEnvInt("ENGINE_WINDOW_SIZE", 10),
			LiveBuyAmount: getEnvFloat("ENGINE_LIVE_BUY_AMOUNT", 10),
		},
		Live: LiveConfig{
			PollInterval: getEnvDuration("LIVE_POLL_INTERVAL", 30*time.Second),
			SymbolLimit:  getEnvInt("LIVE_SYMBOL_LIMIT", 5),
			Timezone:     getEnv("LIVE_TIMEZONE", "UTC"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
