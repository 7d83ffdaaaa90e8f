package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type App struct {
	Name         string
	Env          string
	Host         string
	Port         int
	GinMode      string        `mapstructure:"gin_mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

type Log struct {
	Level      string
	JSON       bool
	File       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

type DB struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	DSN             string
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type JWT struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	Issuer        string
}

type Mail struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Limits struct {
	RPS            float64
	Burst          int
	ResetRPS       float64 `mapstructure:"reset_rps"`
	ResetBurst     int     `mapstructure:"reset_burst"`
	MaxConcurrency int64   `mapstructure:"max_concurrency"`
	MaxBodyBytes   int64   `mapstructure:"max_body_bytes"`
}

type Config struct {
	App    App
	Log    Log
	DB     DB
	Redis  Redis
	JWT    JWT
	Mail   Mail
	Limits Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "project-management-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.gin_mode", "debug")
	v.SetDefault("app.read_timeout", 15*time.Second)
	v.SetDefault("app.write_timeout", 30*time.Second)
	v.SetDefault("app.idle_timeout", 60*time.Second)
	v.SetDefault("app.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "taskuser")
	v.SetDefault("db.password", "taskpassword")
	v.SetDefault("db.name", "project_management")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "notifications")

	v.SetDefault("jwt.access_secret", "default-access-secret-change-me")
	v.SetDefault("jwt.refresh_secret", "default-refresh-secret-change-me")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "project-management-api")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@project-management.local")

	v.SetDefault("limits.rps", 50)
	v.SetDefault("limits.burst", 100)
	v.SetDefault("limits.reset_rps", 0.2)
	v.SetDefault("limits.reset_burst", 3)
	v.SetDefault("limits.max_concurrency", 256)
	v.SetDefault("limits.max_body_bytes", 1<<20)
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// Environment keys use underscores, e.g. DB_HOST overrides db.host.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
