package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	WebSocket  WebSocketConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	History    HistoryConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Report     ReportConfig
	Moderation ModerationConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RateLimitConfig struct {
	MaxMessages int           `mapstructure:"max_messages"`
	Window      time.Duration `mapstructure:"window"`
}

// HistoryConfig selects the persistence backend: "none", "postgres",
// "sqlite" or "redis".
type HistoryConfig struct {
	Backend      string
	Limit        int
	Workers      int
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout"`
}

type DatabaseConfig struct {
	URL        string // postgres DSN or URL
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type ReportConfig struct {
	Rate  float64
	Burst int
}

type ModerationConfig struct {
	BannedWords []string `mapstructure:"banned_words"`
	Mask        string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads .env (if present), then config.yaml from ./config or the working
// directory, then the environment.
func Load() (*Config, error) {
	// .env is optional; missing file is not an error worth reporting here.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("websocket.ping_interval", "54s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("rate_limit.max_messages", DefaultRateMaxMessages)
	v.SetDefault("rate_limit.window", DefaultRateWindow.String())
	v.SetDefault("history.backend", "")
	v.SetDefault("history.limit", DefaultHistoryLimit)
	v.SetDefault("history.workers", DefaultHistoryWorkers)
	v.SetDefault("history.queue_size", DefaultHistoryQueueSize)
	v.SetDefault("history.write_timeout", DefaultHistoryWriteTimeout.String())
	v.SetDefault("history.load_timeout", DefaultHistoryLoadTimeout.String())
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "strangerly.db")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "strangerly:history")
	v.SetDefault("report.rate", DefaultReportRate)
	v.SetDefault("report.burst", DefaultReportBurst)
	v.SetDefault("moderation.banned_words", DefaultBannedWords)
	v.SetDefault("moderation.mask", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func bindEnv(v *viper.Viper) {
	// Plain names used by existing deployments.
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("history.backend", "HISTORY_BACKEND")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 54*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.RateLimit.Window = parseDuration(v, "rate_limit.window", DefaultRateWindow)
	cfg.History.WriteTimeout = parseDuration(v, "history.write_timeout", DefaultHistoryWriteTimeout)
	cfg.History.LoadTimeout = parseDuration(v, "history.load_timeout", DefaultHistoryLoadTimeout)

	cfg.History.Backend = resolveBackend(cfg)
	if cfg.RateLimit.MaxMessages <= 0 {
		cfg.RateLimit.MaxMessages = DefaultRateMaxMessages
	}

	return &cfg, nil
}

// resolveBackend picks a backend when none was named explicitly. Persistence
// stays off unless a database URL or redis address is configured.
func resolveBackend(cfg Config) string {
	backend := strings.ToLower(strings.TrimSpace(cfg.History.Backend))
	if backend != "" {
		return backend
	}
	switch {
	case cfg.Database.URL != "":
		return "postgres"
	case cfg.Redis.Address != "":
		return "redis"
	default:
		return "none"
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
