package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"certwatch/internal/clock"
	"certwatch/internal/config"
	"certwatch/internal/domain"
	"certwatch/internal/engine"
	"certwatch/internal/notify"
	"certwatch/internal/state"
)

// CertProber fetches the TLS certificate expiry for one endpoint.
// Params: bare host and port; the implementation bounds the dial with a timeout.
// Returns: certificate expiry in UTC or probe error.
type CertProber interface {
	Probe(host string, port int) (time.Time, error)
}

// EventDispatcher fans one event out to a sender set.
// Params: context, resolved senders, and event payload.
// Returns: nothing; failures are handled per channel.
type EventDispatcher interface {
	Dispatch(ctx context.Context, senders []notify.Sender, event domain.Event)
}

// Runner executes one monitoring cycle over all configured sites.
// Params: config snapshot, probe/evaluate/dispatch collaborators, and state store.
// Returns: cycle orchestration with per-site failure isolation.
type Runner struct {
	cfg        config.Config
	logger     *slog.Logger
	store      state.Store
	prober     CertProber
	dispatcher EventDispatcher
	evaluator  *engine.Evaluator
	channels   map[string][]notify.Sender
	clock      clock.Clock
}

// NewRunner builds the cycle runner.
// Params: config, logger, store, prober, dispatcher, resolved channels, and clock.
// Returns: initialized runner.
func NewRunner(
	cfg config.Config,
	logger *slog.Logger,
	store state.Store,
	prober CertProber,
	dispatcher EventDispatcher,
	channels map[string][]notify.Sender,
	clk clock.Clock,
) *Runner {
	return &Runner{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		prober:     prober,
		dispatcher: dispatcher,
		evaluator:  engine.New(),
		channels:   channels,
		clock:      clk,
	}
}

// RunCycle probes every site, evaluates state transitions, dispatches events,
// and persists the snapshot once at the end.
// Params: cycle context.
// Returns: snapshot persistence error; per-site failures never abort the cycle.
func (r *Runner) RunCycle(ctx context.Context) error {
	if len(r.cfg.Site) == 0 {
		r.logger.Warn("no sites configured")
		return nil
	}

	snapshot, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Warn("state load failed, starting from empty snapshot", "error", err.Error())
		snapshot = domain.Snapshot{}
	}

	for _, site := range r.cfg.Site {
		r.processSite(ctx, site, snapshot)
	}

	if err := r.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist state snapshot: %w", err)
	}
	r.logger.Info("check cycle completed", "sites", len(r.cfg.Site))
	return nil
}

// processSite probes and evaluates one site, updating the snapshot in place.
// Params: cycle context, site config, and mutable snapshot.
// Returns: nothing; probe failures dispatch a critical event and leave state untouched.
func (r *Runner) processSite(ctx context.Context, site config.SiteConfig, snapshot domain.Snapshot) {
	host := domain.NormalizeHost(site.Hostname)
	key := domain.SiteKey(site.Hostname, site.Port)
	senders := r.channels[site.Name]

	r.logger.Info("checking site", "site", site.Name, "host", host, "port", site.Port)

	expiry, err := r.prober.Probe(host, site.Port)
	if err != nil {
		r.logger.Error("certificate check failed",
			"site", site.Name, "host", host, "error", err.Error())
		r.dispatcher.Dispatch(ctx, senders, domain.Event{
			Severity: domain.SeverityCritical,
			Message:  failureMessage(site, host, err),
		})
		return
	}

	now := r.clock.Now()
	r.logger.Info("site certificate probed",
		"site", site.Name,
		"expiry", expiry.Format("2006-01-02"),
		"days_left", engine.RemainingDays(expiry, now))

	next, events := r.evaluator.Evaluate(site, snapshot[key], expiry, now)
	for _, event := range events {
		r.dispatcher.Dispatch(ctx, senders, event)
	}
	snapshot[key] = next
}

// failureMessage renders the probe-failure alert for one site.
// Params: site config, normalized host, and verbatim probe error.
// Returns: markdown message body.
func failureMessage(site config.SiteConfig, host string, err error) string {
	environment := site.Environment
	if environment == "" {
		environment = "N/A"
	}
	return fmt.Sprintf(
		"*Certificate Check Failed*\n*Site*: %s (%s)\n*Host*: %s\n*Error*: `%s`",
		site.Name, environment, host, err.Error(),
	)
}
