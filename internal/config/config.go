package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Client  ClientConfig  `mapstructure:"client"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GatewayConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RelayConfig struct {
	WSPath        string `mapstructure:"ws_path"`
	EventsChannel string `mapstructure:"events_channel"`
	SendBuffer    int    `mapstructure:"send_buffer"`
	StatsSchedule string `mapstructure:"stats_schedule"`
}

type ClientConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var envBindings = map[string]string{
	"server.port":               "SERVER_PORT",
	"server.host":               "SERVER_HOST",
	"gateway.port":              "GATEWAY_PORT",
	"gateway.host":              "GATEWAY_HOST",
	"redis.address":             "REDIS_ADDRESS",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"mysql.dsn":                 "MYSQL_DSN",
	"mysql.max_open_conns":      "MYSQL_MAX_OPEN_CONNS",
	"mysql.max_idle_conns":      "MYSQL_MAX_IDLE_CONNS",
	"mysql.conn_max_lifetime":   "MYSQL_CONN_MAX_LIFETIME",
	"relay.ws_path":             "RELAY_WS_PATH",
	"relay.events_channel":      "RELAY_EVENTS_CHANNEL",
	"relay.send_buffer":         "RELAY_SEND_BUFFER",
	"relay.stats_schedule":      "RELAY_STATS_SCHEDULE",
	"client.url":                "CLIENT_URL",
	"client.reconnect_interval": "CLIENT_RECONNECT_INTERVAL",
	"client.handshake_timeout":  "CLIENT_HANDSHAKE_TIMEOUT",
	"log.level":                 "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8081)
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("relay.ws_path", "/ws")
	v.SetDefault("relay.events_channel", "auction_events")
	v.SetDefault("relay.send_buffer", 256)
	v.SetDefault("relay.stats_schedule", "@every 1m")
	v.SetDefault("client.url", "ws://localhost:8080/ws")
	v.SetDefault("client.reconnect_interval", 5*time.Second)
	v.SetDefault("client.handshake_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Environment variable mappings
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads defaults, an optional .env file, an optional config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-relay/")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Relay.WSPath, "/") {
		return fmt.Errorf("relay.ws_path must start with '/': %q", c.Relay.WSPath)
	}
	if c.Relay.EventsChannel == "" {
		return errors.New("relay.events_channel must not be empty")
	}
	if c.Relay.SendBuffer <= 0 {
		return fmt.Errorf("relay.send_buffer must be positive: %d", c.Relay.SendBuffer)
	}
	if c.Client.ReconnectInterval <= 0 {
		return fmt.Errorf("client.reconnect_interval must be positive: %s", c.Client.ReconnectInterval)
	}
	return nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Relay: %s:%d%s, Gateway: %s:%d, Redis: %s, Channel: %s",
		c.Server.Host,
		c.Server.Port,
		c.Relay.WSPath,
		c.Gateway.Host,
		c.Gateway.Port,
		c.Redis.Address,
		c.Relay.EventsChannel,
	)
}
