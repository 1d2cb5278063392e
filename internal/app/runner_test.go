package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"certwatch/internal/clock"
	"certwatch/internal/config"
	"certwatch/internal/domain"
	"certwatch/internal/notify"
	"certwatch/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProber returns fixed expiries or errors per host.
type fakeProber struct {
	expiries map[string]time.Time
	errs     map[string]error
}

func (f *fakeProber) Probe(host string, _ int) (time.Time, error) {
	if err := f.errs[host]; err != nil {
		return time.Time{}, err
	}
	return f.expiries[host], nil
}

// fakeDispatcher records every dispatched event.
type fakeDispatcher struct {
	events []domain.Event
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ []notify.Sender, event domain.Event) {
	f.events = append(f.events, event)
}

func runnerConfig(sites ...config.SiteConfig) config.Config {
	return config.Config{Site: sites}
}

func site(name, hostname string) config.SiteConfig {
	return config.SiteConfig{
		Name:                  name,
		Hostname:              hostname,
		Port:                  443,
		Environment:           "production",
		AlertDays:             []int{30, 15, 7, 3, 1},
		NotificationsInterval: 24,
	}
}

func TestRunCycleWithoutSitesDoesNothing(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	runner := NewRunner(runnerConfig(), testLogger(), store, &fakeProber{}, dispatcher, nil, clock.FixedClock{At: time.Now()})

	if err := runner.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(dispatcher.events) != 0 {
		t.Fatalf("expected no events, got %v", dispatcher.events)
	}
}

func TestRunCycleSavesUpdatedSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(20 * 24 * time.Hour)

	store := state.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	prober := &fakeProber{expiries: map[string]time.Time{"shop.example.com": expiry}}
	runner := NewRunner(
		runnerConfig(site("shop", "https://shop.example.com")),
		testLogger(), store, prober, dispatcher, nil, clock.FixedClock{At: now},
	)

	if err := runner.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one threshold event, got %v", dispatcher.events)
	}
	if dispatcher.events[0].Severity != domain.SeverityWarning {
		t.Fatalf("expected warning for the 30-day threshold, got %v", dispatcher.events[0].Severity)
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	entry, ok := saved["shop.example.com:443"]
	if !ok {
		t.Fatalf("expected snapshot entry persisted, got %v", saved)
	}
	if entry.LastExpiry == nil || !entry.LastExpiry.Equal(expiry) {
		t.Fatalf("expected persisted expiry %v, got %v", expiry, entry.LastExpiry)
	}
	if len(entry.NotifiedThresholds) != 1 || entry.NotifiedThresholds[0] != 30 {
		t.Fatalf("expected threshold 30 recorded, got %v", entry.NotifiedThresholds)
	}
}

func TestRunCycleProbeFailureDispatchesCriticalAndLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	priorExpiry := now.Add(60 * 24 * time.Hour)

	store := state.NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, domain.Snapshot{
		"down.example.com:443": {LastExpiry: &priorExpiry},
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	dispatcher := &fakeDispatcher{}
	prober := &fakeProber{errs: map[string]error{"down.example.com": errors.New("connection refused")}}
	runner := NewRunner(
		runnerConfig(site("down", "down.example.com")),
		testLogger(), store, prober, dispatcher, nil, clock.FixedClock{At: now},
	)

	if err := runner.RunCycle(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one failure event, got %v", dispatcher.events)
	}
	event := dispatcher.events[0]
	if event.Severity != domain.SeverityCritical {
		t.Fatalf("expected critical severity, got %v", event.Severity)
	}
	if !strings.Contains(event.Message, "down") || !strings.Contains(event.Message, "connection refused") {
		t.Fatalf("expected site and error in message, got %q", event.Message)
	}

	saved, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	entry, ok := saved["down.example.com:443"]
	if !ok {
		t.Fatalf("expected prior entry retained, got %v", saved)
	}
	if entry.LastExpiry == nil || !entry.LastExpiry.Equal(priorExpiry) {
		t.Fatalf("expected prior expiry untouched, got %v", entry.LastExpiry)
	}
}

func TestRunCycleProbeFailureDoesNotCreateNewEntry(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	prober := &fakeProber{errs: map[string]error{"new.example.com": errors.New("timeout")}}
	runner := NewRunner(
		runnerConfig(site("new", "new.example.com")),
		testLogger(), store, prober, dispatcher, nil, clock.FixedClock{At: time.Now()},
	)

	if err := runner.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("expected no entry for never-probed site, got %v", saved)
	}
}

func TestRunCycleIsolatesFailuresAcrossSites(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	healthyExpiry := now.Add(90 * 24 * time.Hour)

	store := state.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	prober := &fakeProber{
		expiries: map[string]time.Time{"ok.example.com": healthyExpiry},
		errs:     map[string]error{"bad.example.com": errors.New("handshake failure")},
	}
	runner := NewRunner(
		runnerConfig(site("bad", "bad.example.com"), site("ok", "ok.example.com")),
		testLogger(), store, prober, dispatcher, nil, clock.FixedClock{At: now},
	)

	if err := runner.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	// One failure event for bad, nothing for ok (90 days is outside every window).
	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one event, got %v", dispatcher.events)
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, ok := saved["ok.example.com:443"]; !ok {
		t.Fatalf("expected healthy site persisted despite sibling failure, got %v", saved)
	}
}
