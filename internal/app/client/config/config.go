package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".sitekeeper"

	minLocationInterval = 5 * time.Second
)

type Config struct {
	Env               string        `mapstructure:"app_env"`
	ServerAddress     string        `mapstructure:"server_address"`
	LogLevel          string        `mapstructure:"log_level"`
	ConfigDir         string        `mapstructure:"config_dir"`
	TokenPath         string        `mapstructure:"token_path"`
	DataPath          string        `mapstructure:"data_path"`
	StatePath         string        `mapstructure:"state_path"`
	EnableTLS         bool          `mapstructure:"enable_tls"`
	DeviceName        string        `mapstructure:"device_name"`
	LocationFile      string        `mapstructure:"location_file"`
	SyncInterval      time.Duration `mapstructure:"sync_interval_seconds"`
	LocationInterval  time.Duration `mapstructure:"location_interval_seconds"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout_seconds"`
	ConnectivityCheck time.Duration `mapstructure:"connectivity_check_seconds"`
	Timezone          *time.Location
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("SYNC_INTERVAL_SECONDS", 60)
	v.SetDefault("LOCATION_INTERVAL_SECONDS", 10)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("CONNECTIVITY_CHECK_SECONDS", 15)
	v.SetDefault("TIMEZONE", "Local")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории конфигурации: %w", err)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "ledger.db")
	}

	tz, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("неизвестная временная зона: %w", err)
	}

	deviceName := v.GetString("DEVICE_NAME")
	if deviceName == "" {
		deviceName, _ = os.Hostname()
	}

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		ServerAddress:     v.GetString("SERVER_ADDRESS"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		ConfigDir:         configDir,
		TokenPath:         filepath.Join(configDir, "token"),
		DataPath:          dataPath,
		StatePath:         filepath.Join(configDir, "state.json"),
		EnableTLS:         v.GetBool("ENABLE_TLS"),
		DeviceName:        deviceName,
		LocationFile:      v.GetString("LOCATION_FILE"),
		SyncInterval:      time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		LocationInterval:  time.Duration(v.GetInt("LOCATION_INTERVAL_SECONDS")) * time.Second,
		RequestTimeout:    time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		ConnectivityCheck: time.Duration(v.GetInt("CONNECTIVITY_CHECK_SECONDS")) * time.Second,
		Timezone:          tz,
	}

	if cfg.LocationInterval < minLocationInterval {
		cfg.LocationInterval = minLocationInterval
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
