// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted auth.secret.
const MinSecretLength = 16

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Awards      AwardsConfig      `mapstructure:"awards"`
	Ranking     RankingConfig     `mapstructure:"ranking"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Bot         BotConfig         `mapstructure:"bot"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
// Driver "memory" keeps everything in process, for local runs.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
}

// AuthConfig holds bearer-token validation settings.
type AuthConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminSubjects []string      `mapstructure:"admin_subjects"`
}

// LedgerConfig bounds a single ledger mutation.
type LedgerConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	OpTimeout      time.Duration `mapstructure:"op_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// AwardsConfig holds the point values of the built-in award rules.
type AwardsConfig struct {
	ProfileCompletion int64  `mapstructure:"profile_completion"`
	BCVerification    int64  `mapstructure:"bc_verification"`
	DailyLogin        int64  `mapstructure:"daily_login"`
	Timezone          string `mapstructure:"timezone"`
}

// RankingConfig points at an optional level table file.
// An empty path selects the built-in table.
type RankingConfig struct {
	LevelsFile string `mapstructure:"levels_file"`
}

// LeaderboardConfig holds leaderboard layout settings.
type LeaderboardConfig struct {
	Cut        int    `mapstructure:"cut"`
	SlotCount  int    `mapstructure:"slot_count"`
	RosterFile string `mapstructure:"roster_file"`
}

// NotifyConfig holds award notification settings.
type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

// BotConfig holds the Telegram command surface settings. The bot shares
// notify.telegram_token.
type BotConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Admins  []int64 `mapstructure:"admins"`
	Chats   []int64 `mapstructure:"chats"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Location returns the timezone used to bucket daily awards.
func (a *AwardsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load awards timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory, then ./ and ./config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_SECRET, LEADERBOARD_CUT. Only keys known to
	// viper are read from the environment, so setDefaults names every key.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "loyalty")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "loyalty")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.lock_timeout", "2s")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "loyalty-ledger")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_subjects", []string{})

	v.SetDefault("ledger.max_attempts", 5)
	v.SetDefault("ledger.op_timeout", "3s")
	v.SetDefault("ledger.initial_backoff", "25ms")
	v.SetDefault("ledger.max_backoff", "500ms")

	v.SetDefault("awards.profile_completion", 5)
	v.SetDefault("awards.bc_verification", 50)
	v.SetDefault("awards.daily_login", 1)
	v.SetDefault("awards.timezone", "Asia/Jakarta")

	v.SetDefault("ranking.levels_file", "")

	v.SetDefault("leaderboard.cut", 40)
	v.SetDefault("leaderboard.slot_count", 111)
	v.SetDefault("leaderboard.roster_file", "")

	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", 0)

	v.SetDefault("bot.enabled", false)
	v.SetDefault("bot.admins", []int64{})
	v.SetDefault("bot.chats", []int64{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if len(c.Auth.Secret) < MinSecretLength {
		return fmt.Errorf("auth.secret must be at least %d characters", MinSecretLength)
	}
	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("ledger.max_attempts must be at least 1, got %d", c.Ledger.MaxAttempts)
	}
	if c.Ledger.OpTimeout <= 0 {
		return fmt.Errorf("ledger.op_timeout must be positive")
	}
	if c.Leaderboard.Cut < 0 || c.Leaderboard.SlotCount < 0 {
		return fmt.Errorf("leaderboard.cut and leaderboard.slot_count must not be negative")
	}
	if _, err := c.Awards.Location(); err != nil {
		return err
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Bot.Enabled && c.Notify.TelegramToken == "" {
		return fmt.Errorf("bot.enabled requires notify.telegram_token")
	}
	return nil
}

// IsAdminSubject checks if an external subject is in the admin list.
func (c *Config) IsAdminSubject(subject string) bool {
	for _, s := range c.Auth.AdminSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

// IsBotAdmin checks if a Telegram user ID is in the bot admin list.
func (c *Config) IsBotAdmin(userID int64) bool {
	for _, id := range c.Bot.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the bot whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Bot.Chats) == 0 {
		return true
	}
	for _, id := range c.Bot.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
