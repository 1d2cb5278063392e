package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultPort          = 443
	defaultIntervalSec   = 86400
	defaultIntervalHours = 24.0
	defaultNotifyTimeout = 10
	defaultStatePath     = "state/certwatch_state.json"
	defaultNATSURL       = "nats://127.0.0.1:4222"
	defaultNATSBucket    = "certwatch_state"

	// StateBackendFile persists the snapshot as a local JSON file.
	StateBackendFile = "file"
	// StateBackendMemory keeps the snapshot in process memory.
	StateBackendMemory = "memory"
	// StateBackendNATS persists the snapshot in a JetStream KV bucket.
	StateBackendNATS = "nats"
)

var defaultAlertDays = []int{30, 15, 7, 3, 1}

// Config holds runtime settings, notification groups, and monitored sites.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Log     LogConfig     `toml:"log"`
	State   StateConfig   `toml:"state"`
	Notify  NotifyConfig  `toml:"notify"`
	Group   map[string]GroupConfig
	Site    []SiteConfig
}

// rawConfig mirrors the TOML model before runtime normalization.
// Params: decoded sections from one TOML source.
// Returns: raw site/group maps keyed by table name.
type rawConfig struct {
	Service ServiceConfig            `toml:"service"`
	Log     LogConfig                `toml:"log"`
	State   StateConfig              `toml:"state"`
	Notify  NotifyConfig             `toml:"notify"`
	Group   map[string]GroupConfig   `toml:"group"`
	Site    map[string]rawSiteConfig `toml:"site"`
}

// rawSiteConfig stores one site body from a `[site.<name>]` table.
// Params: site fields except the key-derived name.
// Returns: intermediate site body used for normalization.
type rawSiteConfig struct {
	Hostname              string  `toml:"hostname"`
	Port                  int     `toml:"port"`
	Environment           string  `toml:"environment"`
	AlertDays             []int   `toml:"alert_days"`
	NotificationsInterval float64 `toml:"notification_interval_hours"`
	Group                 string  `toml:"group"`
}

// ServiceConfig contains process-level settings.
// Params: service name and daemon loop controls.
// Returns: service behavior defaults.
type ServiceConfig struct {
	Name        string `toml:"name"`
	Daemon      bool   `toml:"daemon"`
	IntervalSec int    `toml:"interval_sec"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// StateConfig selects the snapshot persistence backend.
// Params: backend selector plus backend-specific settings.
// Returns: state store options.
type StateConfig struct {
	Backend string          `toml:"backend"`
	Path    string          `toml:"path"`
	NATS    NATSStateConfig `toml:"nats"`
}

// NATSStateConfig contains JetStream KV settings for the NATS backend.
// Params: server URLs, bucket name, and bucket-creation toggle.
// Returns: NATS state backend options.
type NATSStateConfig struct {
	URL               []string `toml:"url"`
	Bucket            string   `toml:"bucket"`
	AllowCreateBucket bool     `toml:"allow_create_bucket"`
}

// NotifyConfig defines global outbound notification behavior.
// Params: default slack webhook, default group, and send timeout.
// Returns: notification controls shared by all sites.
type NotifyConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
	DefaultGroup string `toml:"default_group"`
	TimeoutSec   int    `toml:"timeout_sec"`
}

// GroupConfig defines one named set of channel endpoints.
// Params: per-channel webhook URLs or env-var names and telegram credentials.
// Returns: channel endpoints resolved per site.
type GroupConfig struct {
	SlackWebhook    string `toml:"slack_webhook"`
	DiscordWebhook  string `toml:"discord_webhook"`
	TelegramToken   string `toml:"telegram_bot_token"`
	TelegramChatID  string `toml:"telegram_chat_id"`
	TelegramAPIBase string `toml:"telegram_api_base"`
	WebhookURL      string `toml:"webhook_url"`
}

// SiteConfig describes one monitored endpoint.
// Params: identity, probe target, alert thresholds, and channel selection.
// Returns: runtime site definition.
type SiteConfig struct {
	Name                  string
	Hostname              string
	Port                  int
	Environment           string
	AlertDays             []int
	NotificationsInterval float64
	Group                 string
}

// NotificationInterval returns the site rate-limit window as a duration.
// Params: none.
// Returns: minimum spacing between threshold alerts for the site.
func (s SiteConfig) NotificationInterval() time.Duration {
	return time.Duration(s.NotificationsInterval * float64(time.Hour))
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveSecret resolves one config value that is either a literal URL or an env-var name.
// Params: raw config value.
// Returns: literal value when it is a URL, env lookup result otherwise (may be empty).
func ResolveSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return os.Getenv(trimmed)
}

// normalizeRawConfig converts the raw TOML model to runtime config.
// Params: decoded raw config from one TOML source.
// Returns: normalized config snapshot with name-sorted sites.
func normalizeRawConfig(raw rawConfig) (Config, error) {
	cfg := Config{
		Service: raw.Service,
		Log:     raw.Log,
		State:   raw.State,
		Notify:  raw.Notify,
		Group:   raw.Group,
	}
	if len(raw.Site) == 0 {
		return cfg, nil
	}

	names := make([]string, 0, len(raw.Site))
	for name := range raw.Site {
		names = append(names, name)
	}
	sort.Strings(names)
	cfg.Site = make([]SiteConfig, 0, len(names))
	for _, name := range names {
		body := raw.Site[name]
		cfg.Site = append(cfg.Site, SiteConfig{
			Name:                  name,
			Hostname:              body.Hostname,
			Port:                  body.Port,
			Environment:           body.Environment,
			AlertDays:             body.AlertDays,
			NotificationsInterval: body.NotificationsInterval,
			Group:                 body.Group,
		})
	}
	return cfg, nil
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var raw rawConfig
	if err := toml.Unmarshal(body, &raw); err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	cfg, err := normalizeRawConfig(raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir reads and merges TOML files from one directory.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	for _, file := range files {
		fragment, err := loadFile(file)
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays one fragment onto the destination snapshot.
// Params: destination config and next fragment.
// Returns: merged configuration side-effect in dst.
func mergeConfig(dst *Config, src Config) {
	if src.Service != (ServiceConfig{}) {
		dst.Service = src.Service
	}
	if src.Log != (LogConfig{}) {
		dst.Log = src.Log
	}
	if src.State.Backend != "" || src.State.Path != "" || len(src.State.NATS.URL) > 0 {
		dst.State = src.State
	}
	if src.Notify != (NotifyConfig{}) {
		dst.Notify = src.Notify
	}
	if len(src.Group) > 0 {
		if dst.Group == nil {
			dst.Group = make(map[string]GroupConfig, len(src.Group))
		}
		for name, group := range src.Group {
			dst.Group[name] = group
		}
	}
	if len(src.Site) > 0 {
		dst.Site = append(dst.Site, src.Site...)
	}
}

// applyDefaults fills omitted config fields with safe defaults.
// Params: cfg pointer to decoded snapshot.
// Returns: defaults applied in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = "certwatch"
	}
	if cfg.Service.IntervalSec <= 0 {
		cfg.Service.IntervalSec = defaultIntervalSec
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.State.Backend) == "" {
		cfg.State.Backend = StateBackendFile
	}
	if strings.TrimSpace(cfg.State.Path) == "" {
		cfg.State.Path = defaultStatePath
	}
	if len(cfg.State.NATS.URL) == 0 {
		cfg.State.NATS.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.State.NATS.Bucket) == "" {
		cfg.State.NATS.Bucket = defaultNATSBucket
	}

	if cfg.Notify.TimeoutSec <= 0 {
		cfg.Notify.TimeoutSec = defaultNotifyTimeout
	}

	for i := range cfg.Site {
		site := &cfg.Site[i]
		if site.Port <= 0 {
			site.Port = defaultPort
		}
		if len(site.AlertDays) == 0 {
			site.AlertDays = append([]int(nil), defaultAlertDays...)
		}
		if site.NotificationsInterval <= 0 {
			site.NotificationsInterval = defaultIntervalHours
		}
		if strings.TrimSpace(site.Group) == "" {
			site.Group = cfg.Notify.DefaultGroup
		}
	}
}

// validateConfig validates the full runtime configuration.
// Params: cfg snapshot to validate.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	switch cfg.State.Backend {
	case StateBackendFile, StateBackendMemory, StateBackendNATS:
	default:
		return fmt.Errorf("state.backend has unsupported value %q", cfg.State.Backend)
	}

	for _, site := range cfg.Site {
		if strings.TrimSpace(site.Hostname) == "" {
			return fmt.Errorf("site.%s.hostname is required", site.Name)
		}
		for _, days := range site.AlertDays {
			if days < 0 {
				return fmt.Errorf("site.%s.alert_days must be non-negative", site.Name)
			}
		}
	}
	return nil
}
