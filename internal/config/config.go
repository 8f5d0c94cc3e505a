package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Events EventsConfig
}

type AppConfig struct {
	Port    string
	Env     string
	BaseURL string
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// Path файл SQLite или URL libsql:// для удалённой базы
	Path string
}

type RedisConfig struct {
	Host string
	Port string
}

// Enabled is false when no Redis host is configured; events are then only logged.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type EventsConfig struct {
	Channel string
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile читает конфиг из указанного файла и переменных окружения.
// Отсутствующий файл не считается ошибкой.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")

	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.Path = v.GetString("DB_PATH")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")

	cfg.Events.Channel = v.GetString("EVENTS_CHANNEL")

	if cfg.DB.Driver != DriverPostgres && cfg.DB.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_PATH", "tinylink.db")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("EVENTS_CHANNEL", "tinylink:events")
}
