// Package config loads the ambient and domain configuration for the
// room-monitor service from environment variables, the way owl-common's
// config package and wisefido-alarm's service config do: one struct per
// concern, defaults baked in, overridable per-field by its own env var.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string
}

type FrameStreamConfig struct {
	Key           string
	ConsumerGroup string
	ConsumerName  string
}

type HTTPConfig struct {
	Port int
}

type LogConfig struct {
	Level  string
	Format string
}

// Config is the root configuration for the room-monitor service.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Frame    FrameStreamConfig
	Log      LogConfig
	Engine   models.EngineConfig
}

// Load builds a Config from environment variables, falling back to the
// defaults named in the spec's Config table and the ambient stack
// section for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Port = getEnvInt("APP_HTTP_PORT", 8080)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "roommonitor")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "room-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "roommonitor")

	cfg.Frame.Key = getEnv("FRAME_STREAM_KEY", "roommonitor:frames")
	cfg.Frame.ConsumerGroup = getEnv("FRAME_CONSUMER_GROUP", "engine")
	hostname, _ := os.Hostname()
	cfg.Frame.ConsumerName = getEnv("FRAME_CONSUMER_NAME", hostname)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Engine = models.DefaultEngineConfig()
	cfg.Engine.AutoRegister = getEnvBool("AUTO_REGISTER", cfg.Engine.AutoRegister)
	cfg.Engine.MaxSlots = getEnvInt("MAX_SLOTS", cfg.Engine.MaxSlots)
	cfg.Engine.LyingRatioEnter = getEnvFloat("LYING_RATIO_ENTER", cfg.Engine.LyingRatioEnter)
	cfg.Engine.LyingRatioInitial = getEnvFloat("LYING_RATIO_INITIAL", cfg.Engine.LyingRatioInitial)
	cfg.Engine.SittingRatioMin = getEnvFloat("SITTING_RATIO_MIN", cfg.Engine.SittingRatioMin)
	cfg.Engine.SittingRatioMax = getEnvFloat("SITTING_RATIO_MAX", cfg.Engine.SittingRatioMax)
	cfg.Engine.StandConfirm = getEnvDuration("STAND_CONFIRM", cfg.Engine.StandConfirm)
	cfg.Engine.SitConfirm = getEnvDuration("SIT_CONFIRM", cfg.Engine.SitConfirm)
	cfg.Engine.LyingStable = getEnvDuration("LYING_STABLE", cfg.Engine.LyingStable)
	cfg.Engine.FallHeightDropA = getEnvFloat("FALL_HEIGHT_DROP_A", cfg.Engine.FallHeightDropA)
	cfg.Engine.FallTopDeltaA = getEnvFloat("FALL_TOP_DELTA_A", cfg.Engine.FallTopDeltaA)
	cfg.Engine.FallHeightDropB = getEnvFloat("FALL_HEIGHT_DROP_B", cfg.Engine.FallHeightDropB)
	cfg.Engine.FallTopDeltaB = getEnvFloat("FALL_TOP_DELTA_B", cfg.Engine.FallTopDeltaB)
	cfg.Engine.FallWindow = getEnvDuration("FALL_WINDOW", cfg.Engine.FallWindow)
	cfg.Engine.FallWarmupFrame = getEnvInt("FALL_WARMUP_FRAMES", cfg.Engine.FallWarmupFrame)
	cfg.Engine.BedFallDropPx = getEnvFloat("BED_FALL_DROP_PX", cfg.Engine.BedFallDropPx)
	cfg.Engine.FrameOutAlert = getEnvDuration("FRAMEOUT_ALERT", cfg.Engine.FrameOutAlert)
	cfg.Engine.TrackLostTimeout = getEnvDuration("TRACK_LOST_TIMEOUT", cfg.Engine.TrackLostTimeout)
	cfg.Engine.AlertDebounce = getEnvDuration("ALERT_DEBOUNCE", cfg.Engine.AlertDebounce)
	cfg.Engine.EMAAlphaStand = getEnvFloat("EMA_ALPHA_STAND", cfg.Engine.EMAAlphaStand)
	cfg.Engine.EMAAlphaSit = getEnvFloat("EMA_ALPHA_SIT", cfg.Engine.EMAAlphaSit)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var parsed float64
		if _, err := fmt.Sscanf(v, "%f", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
