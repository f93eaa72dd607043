package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrReadBytesUnsupported  = errors.New("provider does not support ReadBytes")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// EnvPrefix is the prefix of environment variables that override file values.
// ACCESSBOT_BOT__DISCORD__TOKEN maps to bot.discord.token.
const EnvPrefix = "ACCESSBOT_"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
}

// CommonConfig contains configuration shared between the bot and the db tool.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// BotConfig contains Discord bot and engine configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
	// Inbound grant endpoint configuration.
	API API `koanf:"api"`
	// Background sweep configuration.
	Worker Worker `koanf:"worker"`
	// Grant processor configuration.
	Grant Grant `koanf:"grant"`
	// Notification configuration.
	Notify Notify `koanf:"notify"`
	// Membership duration per tier in hours. Zero or missing means no expiry.
	TierDurations map[string]int `koanf:"tier_durations"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Telemetry contains OpenTelemetry export configuration.
type Telemetry struct {
	// Uptrace DSN. Tracing is disabled when empty.
	UptraceDSN string `koanf:"uptrace_dsn"`
	// Service name reported with traces.
	ServiceName string `koanf:"service_name"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Default embed color used when a guild has no accent color.
	EmbedColor int `koanf:"embed_color"`
}

// API contains the inbound grant endpoint configuration.
type API struct {
	// Listen host.
	Host string `koanf:"host"`
	// Listen port.
	Port int `koanf:"port"`
	// Shared secret expected as a Bearer token. Empty disables the check.
	Secret string `koanf:"secret"`
}

// Worker contains sweep loop configuration.
type Worker struct {
	// Seconds between ticket sweeps.
	TicketInterval int `koanf:"ticket_interval"`
	// Ticket time-to-live in seconds. Zero sweeps every open ticket.
	TicketTTL int `koanf:"ticket_ttl"`
	// Seconds between access sweeps.
	AccessInterval int `koanf:"access_interval"`
	// Cron spec for re-registering interactive components.
	RearmSchedule string `koanf:"rearm_schedule"`
}

// Grant contains grant processor configuration.
type Grant struct {
	// Number of concurrent grant workers.
	Workers int `koanf:"workers"`
	// Maximum number of queued grant events.
	QueueSize int `koanf:"queue_size"`
	// Milliseconds allowed to drain queued grants on shutdown.
	ShutdownTimeout int `koanf:"shutdown_timeout"`
}

// Notify contains notification template configuration.
type Notify struct {
	// Milliseconds the mention message stays before deletion.
	PingDelay int `koanf:"ping_delay"`
	// Account page for emulator and paper receipt customers.
	AccountURL string `koanf:"account_url"`
	// Brand name shown in the thank-you line.
	BrandName string `koanf:"brand_name"`
	// Tutorial links.
	EmailTutorialURL    string `koanf:"email_tutorial_url"`
	EmulatorTutorialURL string `koanf:"emulator_tutorial_url"`
	PaperTutorialURL    string `koanf:"paper_tutorial_url"`
}

// TicketPeriod returns the ticket sweep period.
func (w Worker) TicketPeriod() time.Duration {
	return time.Duration(w.TicketInterval) * time.Second
}

// TicketLifetime returns the ticket time-to-live.
func (w Worker) TicketLifetime() time.Duration {
	return time.Duration(w.TicketTTL) * time.Second
}

// AccessPeriod returns the access sweep period.
func (w Worker) AccessPeriod() time.Duration {
	return time.Duration(w.AccessInterval) * time.Second
}

// TierDuration returns the membership duration configured for a tier.
func (b BotConfig) TierDuration(tier string) time.Duration {
	return time.Duration(b.TierDurations[tier]) * time.Hour
}

// LoadConfig loads the configuration from the first directory holding each file.
// An explicit dir is searched before the default paths.
// Returns the config along with the used config directory.
func LoadConfig(dir string) (*Config, string, error) {
	k := koanf.New(".")

	// A missing .env file is fine
	_ = godotenv.Load()

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".accessbot",
		homeDir + "/.accessbot/config",
		"/etc/accessbot/config",
		"/app/config",
		"config",
		".",
	}
	if dir != "" {
		configPaths = append([]string{dir}, configPaths...)
	}

	if err := k.Load(defaultsProvider{}, nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "bot"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Environment overrides, mostly for secrets
	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/amethyx/accessbot/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
