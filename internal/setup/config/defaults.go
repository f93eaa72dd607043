package config

import "strings"

// defaultValues are loaded before any config file so partial files still work.
var defaultValues = map[string]any{
	"common.debug.log_level":           "info",
	"common.debug.max_logs_to_keep":    10,
	"common.debug.max_log_lines":       100000,
	"common.postgresql.port":           5432,
	"common.postgresql.max_open_conns": 10,
	"common.postgresql.max_idle_conns": 5,
	"common.postgresql.max_lifetime":   30,
	"common.postgresql.max_idle_time":  5,
	"common.redis.port":                6379,
	"common.telemetry.service_name":    "accessbot",

	"bot.discord.embed_color":    0x9B59B6,
	"bot.api.host":               "0.0.0.0",
	"bot.api.port":               5000,
	"bot.worker.ticket_interval": 3600,
	"bot.worker.ticket_ttl":      0,
	"bot.worker.access_interval": 60,
	"bot.worker.rearm_schedule":  "@every 10m",
	"bot.grant.workers":          8,
	"bot.grant.queue_size":       256,
	"bot.grant.shutdown_timeout": 30000,
	"bot.notify.ping_delay":      1500,
	"bot.notify.brand_name":      "AmethyX",
	"bot.notify.account_url":     "https://amethyx.net/account",
}

// defaultsProvider implements koanf.Provider over defaultValues.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesUnsupported
}

func (defaultsProvider) Read() (map[string]any, error) {
	out := make(map[string]any)

	for key, value := range defaultValues {
		parts := strings.Split(key, ".")

		m := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[part] = next
			}

			m = next
		}

		m[parts[len(parts)-1]] = value
	}

	return out, nil
}
