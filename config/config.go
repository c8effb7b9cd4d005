package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Gate     GateConfig     `yaml:"gate"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	AccessEventsTopic string   `yaml:"access_events_topic"`
	GroupID           string   `yaml:"group_id"`
}

// GateConfig carries the validation parameters of the access-control core.
// TicketSecret keys the HMAC over issued ticket codes and must match the
// secret used at issuance.
type GateConfig struct {
	TicketSecret          string `yaml:"ticket_secret"`
	ScanReplaySeconds     int    `yaml:"scan_replay_seconds"`
	AntiPassbackSeconds   int    `yaml:"anti_passback_seconds"`
	DepartedGraceMinutes  int    `yaml:"departed_grace_minutes"`
	DeviceCacheTTLSeconds int    `yaml:"device_cache_ttl_seconds"`
	DebugErrors           bool   `yaml:"debug_errors"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Gate.TicketSecret == "" {
		cfg.Gate.TicketSecret = os.Getenv("GATE_TICKET_SECRET")
	}
	if cfg.Gate.TicketSecret == "" {
		return nil, fmt.Errorf("gate.ticket_secret is required")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gate.ScanReplaySeconds == 0 {
		c.Gate.ScanReplaySeconds = 3
	}
	if c.Gate.AntiPassbackSeconds == 0 {
		c.Gate.AntiPassbackSeconds = 300
	}
	if c.Gate.DepartedGraceMinutes == 0 {
		c.Gate.DepartedGraceMinutes = 60
	}
	if c.Gate.DeviceCacheTTLSeconds == 0 {
		c.Gate.DeviceCacheTTLSeconds = 60
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 15
	}
}
