package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	SMTP        SMTPConfig                `json:"smtp"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	MinWorkers    int    `json:"min_workers"`
	MaxWorkers    int    `json:"max_workers"`
	QueueSize     int    `json:"queue_size"`
	// WorkerIdleTimeout is in minutes.
	WorkerIdleTimeout int `json:"worker_idle_timeout"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// SMTPConfig configures the away-notification mailer. Credentials can be
// overridden with the EMAIL_SERVER_* / EMAIL_FROM environment variables.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Databases == nil {
		cfg.Databases = map[string]DatabaseConfig{}
	}
	if _, ok := cfg.Databases["sqlite3"]; !ok {
		cfg.Databases["sqlite3"] = DatabaseConfig{
			DSN: filepath.Join(filepath.Dir(absPath), "data", "sitsmart.db"),
		}
	}

	cfg.SMTP.applyEnvOverrides()
	return &cfg, nil
}

func (s *SMTPConfig) applyEnvOverrides() {
	if v := os.Getenv("EMAIL_SERVER_HOST"); v != "" {
		s.Host = v
	}
	if v := os.Getenv("EMAIL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Port = port
		}
	}
	if v := os.Getenv("EMAIL_SERVER_USER"); v != "" {
		s.Username = v
	}
	if v := os.Getenv("EMAIL_SERVER_PASSWORD"); v != "" {
		s.Password = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		s.From = v
	}
}
