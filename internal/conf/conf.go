package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration.
type Config struct {
	// Lark (chat transport) configuration
	Lark LarkConfig

	// SMTP (email channel) configuration, optional
	SMTP SMTPConfig

	// Storage configuration
	Storage StorageConfig

	// Escalation configuration
	Escalation EscalationConfig

	// Dispatch configuration
	Dispatch DispatchConfig

	// MatchingConfigPath points at the YAML language-data file; empty
	// means built-in defaults only.
	MatchingConfigPath string

	// AckPhrase is the chat message that acknowledges a reminder.
	AckPhrase string

	// Debug enables verbose logging.
	Debug bool
}

// LarkConfig contains chat transport credentials.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// SMTPConfig contains the email channel settings.
type SMTPConfig struct {
	Host string // host:port
	From string
	User string
	Pass string
}

// Enabled reports whether the email channel is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// StorageConfig contains database paths.
type StorageConfig struct {
	DBPath string
}

// EscalationConfig holds the reminder schedule. Offsets are measured from
// first detection; the irregular spacing is a product choice carried as
// configuration, not a formula.
type EscalationConfig struct {
	Schedule []time.Duration
}

// DispatchConfig holds per-channel retry settings.
type DispatchConfig struct {
	Retries int
	Backoff time.Duration
}

// DefaultSchedule is the stock escalation schedule: immediate, then +1m,
// +2m, +15m, +60m.
var DefaultSchedule = []time.Duration{
	0,
	1 * time.Minute,
	2 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	dbPath := os.Getenv("KEYWATCH_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".keywatch", "keywatch.db")
	}

	retries := 3
	if val := os.Getenv("DISPATCH_RETRIES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			retries = parsed
		}
	}

	backoff := 2 * time.Second
	if val := os.Getenv("DISPATCH_BACKOFF"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			backoff = parsed
		}
	}

	schedule := DefaultSchedule
	if val := os.Getenv("ESCALATION_SCHEDULE"); val != "" {
		if parsed, err := parseSchedule(val); err == nil {
			schedule = parsed
		} else {
			fmt.Printf("[Config] Invalid ESCALATION_SCHEDULE %q, using default: %v\n", val, err)
		}
	}

	ackPhrase := os.Getenv("ACK_PHRASE")
	if ackPhrase == "" {
		ackPhrase = "done"
	}

	return &Config{
		Lark: LarkConfig{
			AppID:     os.Getenv("LARK_APP_ID"),
			AppSecret: os.Getenv("LARK_APP_SECRET"),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			From: os.Getenv("SMTP_FROM"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
		},
		Storage:    StorageConfig{DBPath: dbPath},
		Escalation: EscalationConfig{Schedule: schedule},
		Dispatch: DispatchConfig{
			Retries: retries,
			Backoff: backoff,
		},
		MatchingConfigPath: os.Getenv("MATCHING_CONFIG_PATH"),
		AckPhrase:          ackPhrase,
		Debug:              os.Getenv("DEBUG") == "true",
	}
}

// parseSchedule parses a comma-separated duration list, e.g. "0s,1m,2m".
func parseSchedule(val string) ([]time.Duration, error) {
	parts := strings.Split(val, ",")
	schedule := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative offset %v", d)
		}
		schedule = append(schedule, d)
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("empty schedule")
	}
	return schedule, nil
}

// Validate checks required configuration.
func (c *Config) Validate() error {
	if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
		return fmt.Errorf("LARK_APP_ID and LARK_APP_SECRET are required")
	}
	if len(c.Escalation.Schedule) == 0 {
		return fmt.Errorf("escalation schedule must not be empty")
	}
	for i := 1; i < len(c.Escalation.Schedule); i++ {
		if c.Escalation.Schedule[i] <= c.Escalation.Schedule[i-1] {
			return fmt.Errorf("escalation schedule offsets must increase")
		}
	}
	return nil
}
