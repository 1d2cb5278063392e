package domain

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SiteState stores persisted monitoring state for one site key.
// Params: last observed expiry, thresholds alerted for the current certificate,
// and timestamp of the last dispatched threshold alert.
// Returns: snapshot record for the state backend.
type SiteState struct {
	LastExpiry           *time.Time `json:"last_expiry"`
	NotifiedThresholds   []int      `json:"notified_thresholds"`
	LastNotificationSent *time.Time `json:"last_notification_sent"`
}

// Snapshot maps site keys to persisted site state.
// Params: none.
// Returns: full state view read at cycle start and written at cycle end.
type Snapshot map[string]SiteState

// HasNotified reports whether threshold was already alerted for the current certificate.
// Params: threshold in days.
// Returns: true when threshold is present in the notified set.
func (s SiteState) HasNotified(threshold int) bool {
	for _, t := range s.NotifiedThresholds {
		if t == threshold {
			return true
		}
	}
	return false
}

// NormalizeHost reduces a URL-form hostname to its bare host component.
// Params: configured hostname, either bare host or http(s) URL.
// Returns: bare host usable for dialing and key building.
func NormalizeHost(hostname string) string {
	trimmed := strings.TrimSpace(hostname)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Hostname() == "" {
		return trimmed
	}
	return parsed.Hostname()
}

// SiteKey builds the host:port identity used to deduplicate persisted state.
// Params: configured hostname (host or URL) and port.
// Returns: normalized state lookup key.
func SiteKey(hostname string, port int) string {
	return NormalizeHost(hostname) + ":" + strconv.Itoa(port)
}
