package notify

import (
	"log/slog"
	"strings"

	"certwatch/internal/config"
)

// ResolveChannels builds the per-site sender sets from configuration.
// Params: full config snapshot and logger for unknown-group warnings.
// Returns: map from site name to its resolved channel senders.
//
// The default channel set is the global slack webhook alone. A site's group
// overrides slack and adds discord, telegram, and generic webhook endpoints
// when configured; entries whose secret does not resolve are skipped.
func ResolveChannels(cfg config.Config, logger *slog.Logger) map[string][]Sender {
	defaultSlack := config.ResolveSecret(cfg.Notify.SlackWebhook)

	resolved := make(map[string][]Sender, len(cfg.Site))
	for _, site := range cfg.Site {
		resolved[site.Name] = resolveSiteChannels(site, cfg, defaultSlack, logger)
	}
	return resolved
}

// resolveSiteChannels resolves one site's channel endpoints.
// Params: site config, full config, resolved default slack webhook, and logger.
// Returns: ordered sender list for the site (possibly empty).
func resolveSiteChannels(site config.SiteConfig, cfg config.Config, defaultSlack string, logger *slog.Logger) []Sender {
	slackURL := defaultSlack
	var group config.GroupConfig
	haveGroup := false

	if name := strings.TrimSpace(site.Group); name != "" {
		group, haveGroup = cfg.Group[name]
		if !haveGroup {
			logger.Warn("site references unknown notification group, using defaults",
				"site", site.Name, "group", name)
		}
	}

	var senders []Sender
	if haveGroup {
		if group.SlackWebhook != "" {
			slackURL = config.ResolveSecret(group.SlackWebhook)
		}
	}
	if slackURL != "" {
		senders = append(senders, NewSlackSender(slackURL))
	}
	if !haveGroup {
		return senders
	}

	if group.DiscordWebhook != "" {
		if url := config.ResolveSecret(group.DiscordWebhook); url != "" {
			senders = append(senders, NewDiscordSender(url))
		}
	}
	if group.TelegramToken != "" && group.TelegramChatID != "" {
		token := config.ResolveSecret(group.TelegramToken)
		chatID := resolveChatID(group.TelegramChatID)
		if token != "" && chatID != "" {
			senders = append(senders, NewTelegramSender(token, chatID, group.TelegramAPIBase))
		}
	}
	if group.WebhookURL != "" {
		if url := config.ResolveSecret(group.WebhookURL); url != "" {
			senders = append(senders, NewWebhookSender(url))
		}
	}
	return senders
}

// resolveChatID resolves a telegram chat id that may be numeric, literal, or an env-var name.
// Params: configured chat id value.
// Returns: chat id string, empty when an env-var name does not resolve.
func resolveChatID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if isNumericChatID(trimmed) {
		return trimmed
	}
	return config.ResolveSecret(trimmed)
}

// isNumericChatID reports whether the value is a numeric telegram chat id.
// Params: trimmed chat id value.
// Returns: true for optionally negative digit-only values.
func isNumericChatID(value string) bool {
	body := strings.TrimPrefix(value, "-")
	if body == "" {
		return false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
