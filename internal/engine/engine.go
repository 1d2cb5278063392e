package engine

import (
	"fmt"
	"sort"
	"time"

	"certwatch/internal/config"
	"certwatch/internal/domain"

	"github.com/dustin/go-humanize"
)

// Evaluator decides renewal and threshold transitions for one site per cycle.
// Params: none; all inputs are passed per evaluation.
// Returns: pure state-transition behavior for the run orchestrator.
type Evaluator struct{}

// New creates the site evaluator.
// Params: none.
// Returns: initialized evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// RemainingDays computes whole days between now and expiry, truncated toward zero.
// Params: certificate expiry and evaluation instant.
// Returns: calendar-granularity day count (negative when already expired).
func RemainingDays(expiry, now time.Time) int {
	return int(expiry.Sub(now).Hours() / 24)
}

// TriggeredThreshold selects the threshold breached by the remaining days.
// Params: configured alert day set and remaining days.
// Returns: smallest configured threshold satisfying remaining <= threshold,
// and false when the certificate is not yet inside any window.
func TriggeredThreshold(alertDays []int, remainingDays int) (int, bool) {
	sorted := append([]int(nil), alertDays...)
	sort.Ints(sorted)
	for _, threshold := range sorted {
		if remainingDays <= threshold {
			return threshold, true
		}
	}
	return 0, false
}

// Evaluate applies the expiry state machine to one site.
// Params: site configuration, prior persisted state, freshly probed expiry, and now.
// Returns: updated state and ordered notification events (renewal first).
func (e *Evaluator) Evaluate(site config.SiteConfig, prior domain.SiteState, currentExpiry, now time.Time) (domain.SiteState, []domain.Event) {
	next := domain.SiteState{
		LastExpiry:           prior.LastExpiry,
		NotifiedThresholds:   append([]int(nil), prior.NotifiedThresholds...),
		LastNotificationSent: prior.LastNotificationSent,
	}
	var events []domain.Event

	remainingDays := RemainingDays(currentExpiry, now)

	// Renewal: a strictly later expiry means a new certificate instance.
	// The first-ever observation is the baseline, not a renewal.
	if prior.LastExpiry != nil && currentExpiry.After(*prior.LastExpiry) {
		events = append(events, domain.Event{
			Severity: domain.SeverityInfo,
			Message:  renewalMessage(site, currentExpiry, remainingDays),
		})
		next.NotifiedThresholds = nil
	}

	expiry := currentExpiry
	next.LastExpiry = &expiry

	threshold, triggered := TriggeredThreshold(site.AlertDays, remainingDays)
	if !triggered || next.HasNotified(threshold) {
		return next, events
	}

	if next.LastNotificationSent != nil && now.Sub(*next.LastNotificationSent) < site.NotificationInterval() {
		// Rate-limited: the threshold stays un-notified so a later cycle can fire it.
		return next, events
	}

	severity := domain.SeverityWarning
	if threshold <= 7 {
		severity = domain.SeverityCritical
	}
	events = append(events, domain.Event{
		Severity: severity,
		Message:  thresholdMessage(site, currentExpiry, remainingDays, threshold),
	})
	next.NotifiedThresholds = append(next.NotifiedThresholds, threshold)
	sent := now
	next.LastNotificationSent = &sent

	return next, events
}

// renewalMessage renders the certificate-renewed notice for one site.
// Params: site config, new expiry, and remaining days.
// Returns: markdown message body.
func renewalMessage(site config.SiteConfig, expiry time.Time, remainingDays int) string {
	return fmt.Sprintf(
		"*Certificate Renewed*\n*Site*: %s (%s)\n*Host*: %s\n*New Expiry*: %s (%s)\n*Days remaining*: %d",
		site.Name, environmentLabel(site),
		domain.NormalizeHost(site.Hostname),
		expiry.Format("2006-01-02"), humanize.Time(expiry),
		remainingDays,
	)
}

// thresholdMessage renders the expiry-warning alert for one site.
// Params: site config, expiry, remaining days, and breached threshold.
// Returns: markdown message body.
func thresholdMessage(site config.SiteConfig, expiry time.Time, remainingDays, threshold int) string {
	return fmt.Sprintf(
		"*Certificate Expiry Warning*\n*Site*: %s (%s)\n*Host*: %s\n*Days remaining*: *%d* (Threshold: %d)\n*Expiry Date*: %s (%s)",
		site.Name, environmentLabel(site),
		domain.NormalizeHost(site.Hostname),
		remainingDays, threshold,
		expiry.Format("2006-01-02"), humanize.Time(expiry),
	)
}

// environmentLabel returns the site environment or a placeholder.
// Params: site config.
// Returns: environment label for message bodies.
func environmentLabel(site config.SiteConfig) string {
	if site.Environment == "" {
		return "N/A"
	}
	return site.Environment
}
