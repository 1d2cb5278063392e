package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"certwatch/internal/domain"
)

// slackColors maps severity to Slack attachment hex colors.
var slackColors = map[domain.Severity]string{
	domain.SeverityInfo:     "#2eb886",
	domain.SeverityWarning:  "#daa038",
	domain.SeverityCritical: "#e01e5a",
}

// discordColors maps severity to Discord embed integer colors.
var discordColors = map[domain.Severity]int{
	domain.SeverityInfo:     3061894,
	domain.SeverityWarning:  16766720,
	domain.SeverityCritical: 15158332,
}

// SlackSender posts events to a Slack incoming webhook.
// Params: webhook URL and HTTP client.
// Returns: Slack channel sender.
type SlackSender struct {
	webhook string
	client  *http.Client
}

// NewSlackSender creates a Slack webhook sender.
// Params: resolved webhook URL.
// Returns: initialized sender.
func NewSlackSender(webhook string) *SlackSender {
	return &SlackSender{webhook: webhook, client: &http.Client{}}
}

// Channel returns the sender channel name.
// Params: none.
// Returns: static channel key.
func (s *SlackSender) Channel() string {
	return "slack"
}

// Send posts one attachment payload to the webhook.
// Params: context and event payload.
// Returns: transport or HTTP status error.
func (s *SlackSender) Send(ctx context.Context, event domain.Event) error {
	payload := struct {
		Attachments []struct {
			Text  string  `json:"text"`
			Color string  `json:"color"`
			TS    float64 `json:"ts"`
		} `json:"attachments"`
	}{
		Attachments: []struct {
			Text  string  `json:"text"`
			Color string  `json:"color"`
			TS    float64 `json:"ts"`
		}{{
			Text:  event.Message,
			Color: slackColors[event.Severity],
			TS:    float64(time.Now().Unix()),
		}},
	}
	return postJSON(ctx, s.client, "slack", s.webhook, payload)
}

// DiscordSender posts events to a Discord webhook as embeds.
// Params: webhook URL and HTTP client.
// Returns: Discord channel sender.
type DiscordSender struct {
	webhook string
	client  *http.Client
}

// NewDiscordSender creates a Discord webhook sender.
// Params: resolved webhook URL.
// Returns: initialized sender.
func NewDiscordSender(webhook string) *DiscordSender {
	return &DiscordSender{webhook: webhook, client: &http.Client{}}
}

// Channel returns the sender channel name.
// Params: none.
// Returns: static channel key.
func (s *DiscordSender) Channel() string {
	return "discord"
}

// Send posts one embed payload to the webhook.
// Params: context and event payload.
// Returns: transport or HTTP status error.
func (s *DiscordSender) Send(ctx context.Context, event domain.Event) error {
	type embed struct {
		Description string `json:"description"`
		Color       int    `json:"color"`
		Timestamp   string `json:"timestamp"`
	}
	payload := struct {
		Embeds []embed `json:"embeds"`
	}{
		Embeds: []embed{{
			Description: event.Message,
			Color:       discordColors[event.Severity],
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}
	return postJSON(ctx, s.client, "discord", s.webhook, payload)
}

// WebhookSender posts the raw event as JSON to a generic endpoint.
// Params: endpoint URL and HTTP client.
// Returns: generic webhook sender.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a generic webhook sender.
// Params: resolved endpoint URL.
// Returns: initialized sender.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{url: url, client: &http.Client{}}
}

// Channel returns the sender channel name.
// Params: none.
// Returns: static channel key.
func (s *WebhookSender) Channel() string {
	return "webhook"
}

// Send posts severity and message as a flat JSON object.
// Params: context and event payload.
// Returns: transport or HTTP status error.
func (s *WebhookSender) Send(ctx context.Context, event domain.Event) error {
	payload := struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}{
		Severity: string(event.Severity),
		Message:  event.Message,
	}
	return postJSON(ctx, s.client, "webhook", s.url, payload)
}

// postJSON sends one JSON POST and checks for a 2xx response.
// Params: context, client, sender label, target URL, and payload value.
// Returns: encode, transport, or HTTP status error.
func postJSON(ctx context.Context, client *http.Client, label, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", label, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", label, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("%s send: %w", label, err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		rawBody, readErr := io.ReadAll(response.Body)
		if readErr != nil {
			return fmt.Errorf("%s status=%d", label, response.StatusCode)
		}
		trimmed := strings.TrimSpace(string(rawBody))
		if trimmed == "" {
			return fmt.Errorf("%s status=%d", label, response.StatusCode)
		}
		return fmt.Errorf("%s status=%d body=%s", label, response.StatusCode, trimmed)
	}
	return nil
}
