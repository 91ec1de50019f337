// Package config binds the environment (and an optional config file) to the
// typed settings of the board binaries.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional YAML or JSON file read before the
// environment. Environment variables take precedence over the file.
const ConfigFileEnv = "BOARD_CONFIG_FILE"

type Config struct {
	Port        int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	StoreDriver string `mapstructure:"store_driver" validate:"oneof=postgres sqlite mongo"`
	PostgresURL string `mapstructure:"postgres_url" validate:"required_if=StoreDriver postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=StoreDriver sqlite"`
	MongoURI    string `mapstructure:"mongodb_uri" validate:"required_if=StoreDriver mongo"`

	// NATSURL left empty means events are pushed by an in-process hub.
	NATSURL       string `mapstructure:"nats_url"`
	NATSToken     string `mapstructure:"nats_token"`
	EventsSubject string `mapstructure:"events_subject" validate:"required"`

	RateLimit    int    `mapstructure:"rate_limit" validate:"gt=0"`
	JWTSecretKey string `mapstructure:"jwt_secret_key"`
	CORSOrigins  string `mapstructure:"cors_origins"`
	SeedFile     string `mapstructure:"seed_file"`

	WSClientBuffer int `mapstructure:"ws_client_buffer" validate:"gt=0"`
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins splits CORSOrigins on commas.
func (c *Config) Origins() []string {
	return splitList(c.CORSOrigins)
}

type SocketConfig struct {
	Port           int    `mapstructure:"socket_service_port" validate:"gt=0,lt=65536"`
	NATSURL        string `mapstructure:"nats_url"`
	NATSToken      string `mapstructure:"nats_token"`
	EventsSubject  string `mapstructure:"events_subject" validate:"required"`
	RateLimit      int    `mapstructure:"rate_limit" validate:"gt=0"`
	JWTSecretKey   string `mapstructure:"jwt_secret_key"`
	CORSOrigins    string `mapstructure:"cors_origins"`
	WSClientBuffer int    `mapstructure:"ws_client_buffer" validate:"gt=0"`
}

func (c *SocketConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *SocketConfig) Origins() []string {
	return splitList(c.CORSOrigins)
}

type WatchConfig struct {
	APIURL string `mapstructure:"board_api_url" validate:"required,url"`
	WSURL  string `mapstructure:"board_ws_url" validate:"required,url"`
	Token  string `mapstructure:"board_token"`
}

var shared = map[string]interface{}{
	"nats_url":         "",
	"nats_token":       "",
	"events_subject":   "board.events",
	"rate_limit":       300,
	"jwt_secret_key":   "",
	"cors_origins":     "",
	"ws_client_buffer": 64,
}

// Load reads the board service settings.
func Load() (*Config, error) {
	defaults := map[string]interface{}{
		"port":         8080,
		"store_driver": "sqlite",
		"postgres_url": "",
		"sqlite_path":  "board.db",
		"mongodb_uri":  "",
		"seed_file":    "",
	}
	cfg := &Config{}
	if err := load(cfg, shared, defaults); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSocket reads the websocket gateway settings.
func LoadSocket() (*SocketConfig, error) {
	cfg := &SocketConfig{}
	if err := load(cfg, shared, map[string]interface{}{"socket_service_port": 8081}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWatch reads the terminal mirror settings.
func LoadWatch() (*WatchConfig, error) {
	defaults := map[string]interface{}{
		"board_api_url": "http://localhost:8080",
		"board_ws_url":  "ws://localhost:8080/v1/ws",
		"board_token":   "",
	}
	cfg := &WatchConfig{}
	if err := load(cfg, defaults); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(target interface{}, defaults ...map[string]interface{}) error {
	v := viper.New()
	for _, d := range defaults {
		for k, val := range d {
			v.SetDefault(k, val)
		}
	}
	v.AutomaticEnv()

	if file := v.GetString(strings.ToLower(ConfigFileEnv)); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(target); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
