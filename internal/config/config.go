package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 冷链监控服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	HTTP     HTTPConfig

	// 模拟器配置
	Simulator struct {
		ExcursionTemp   float64       // 温度偏移场景使用的带外温度（摄氏度）
		RecoveryDelay   time.Duration // 断电场景自动恢复延迟
		DedupWindow     time.Duration // 报警去重窗口
		BatchArrivalCap int           // 批量到货场景单次上线设备上限
	}

	// 事件总线配置
	Bus struct {
		SubscriberBuffer int // 每个订阅者的缓冲区大小，写满后丢弃消息
	}

	// 心跳配置
	Heartbeat struct {
		Interval time.Duration // PING 主题发布间隔
	}

	// 报警 Webhook 配置
	Alert struct {
		WebhookURL string        // 为空时禁用外发通知
		Timeout    time.Duration // 单次推送超时
	}

	// 实时缓存配置
	Cache struct {
		KeyPrefix string        // 最新读数缓存键前缀，如 "coldtrace:device:"
		KeySuffix string        // 最新读数缓存键后缀，如 ":latest"
		TTL       time.Duration // 缓存 TTL
	}

	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig 数据库配置
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

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	// 读数上报主题，格式: coldtrace/{device_id}/reading
	ReadingTopic string
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Addr string
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "coldtrace")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "coldtrace-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.ReadingTopic = getEnv("MQTT_READING_TOPIC", "coldtrace/+/reading")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Simulator.ExcursionTemp = 12.0 // 固定带外温度
	cfg.Simulator.RecoveryDelay = getEnvDuration("SIM_RECOVERY_DELAY", 30*time.Second)
	cfg.Simulator.DedupWindow = getEnvDuration("ALERT_DEDUP_WINDOW", 5*time.Minute)
	cfg.Simulator.BatchArrivalCap = 3

	cfg.Bus.SubscriberBuffer = getEnvInt("BUS_SUBSCRIBER_BUFFER", 16)

	cfg.Heartbeat.Interval = getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second)

	cfg.Alert.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Alert.Timeout = getEnvDuration("ALERT_WEBHOOK_TIMEOUT", 5*time.Second)

	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "coldtrace:device:")
	cfg.Cache.KeySuffix = ":latest"
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 10*time.Minute)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
