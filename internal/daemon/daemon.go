// Package daemon runs the synchronization lifecycle: recover stale
// publications at startup, sync every configured container, keep the process
// resident so session-scoped publications stay alive, and optionally re-sync
// on a timer.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deskhand/deskhand/internal/config"
	"github.com/deskhand/deskhand/internal/logging"
	"github.com/deskhand/deskhand/internal/metrics"
	"github.com/deskhand/deskhand/internal/notify"
	"github.com/deskhand/deskhand/internal/runtime"
	"github.com/deskhand/deskhand/internal/state"
)

// Synchronizer is the per-container pass capability the daemon schedules.
type Synchronizer interface {
	Sync(ctx context.Context, name string, kind runtime.Kind) error
	Retract(ctx context.Context, owner string) error
}

// Daemon schedules synchronization passes over the configured containers.
type Daemon struct {
	cfg      *config.Config
	syncer   Synchronizer
	notifier *notify.MultiNotifier

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	wg     sync.WaitGroup

	// Now is swappable for tests.
	Now func() time.Time
}

// New creates a daemon. notifier may be empty (zero services) but not nil.
func New(cfg *config.Config, s Synchronizer, notifier *notify.MultiNotifier) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		cfg:      cfg,
		syncer:   s,
		notifier: notifier,
		ctx:      ctx,
		cancel:   cancel,
		quit:     make(chan struct{}),
		Now:      time.Now,
	}
}

// Start launches the daemon loop in the background.
func (d *Daemon) Start() {
	d.wg.Add(1)
	go d.loop()
}

func (d *Daemon) loop() {
	defer d.wg.Done()

	d.recoverStaleOwners(d.ctx)
	d.sweep(d.ctx)

	if d.cfg.ResyncInterval <= 0 {
		// One-shot registration; stay resident so the session keeps
		// its published entries until the process exits.
		<-d.quit
		return
	}

	ticker := time.NewTicker(d.cfg.ResyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			d.sweep(d.ctx)
		}
	}
}

// RunOnce performs stale-owner recovery and a single sweep, returning the
// joined per-container failures.
func (d *Daemon) RunOnce(ctx context.Context) error {
	d.recoverStaleOwners(ctx)
	return errors.Join(d.sweep(ctx)...)
}

// recoverStaleOwners retracts owners persisted by a previous run that are no
// longer in the configured container list. Best-effort: a failed retract is
// logged and retried naturally on the next startup.
func (d *Daemon) recoverStaleOwners(ctx context.Context) {
	records, err := state.GetAllPublishRecords()
	if err != nil {
		logging.Get().Warn().Err(err).Msg("cannot read publish records, skipping stale-owner recovery")
		return
	}
	configured := make(map[string]bool, len(d.cfg.Containers))
	for _, ref := range d.cfg.Containers {
		configured[ref.Name] = true
	}
	for owner := range records {
		if configured[owner] {
			continue
		}
		logging.Get().Info().Str("owner", owner).Msg("retracting stale publication")
		if err := d.syncer.Retract(ctx, owner); err != nil {
			logging.Get().Warn().Err(err).Str("owner", owner).Msg("stale-owner retract failed")
		}
	}
}

// sweep syncs every configured container sequentially in listing order. One
// container's failure never blocks the next.
func (d *Daemon) sweep(ctx context.Context) []error {
	var failures []error
	for _, ref := range d.cfg.Containers {
		select {
		case <-d.quit:
			return failures
		default:
		}
		if ref.Name == "" {
			continue
		}
		if err := d.syncer.Sync(ctx, ref.Name, ref.Kind()); err != nil {
			logging.Get().Error().Err(err).Str("container", ref.Name).Msg("synchronization pass failed")
			failures = append(failures, fmt.Errorf("%s: %w", ref.Name, err))
			continue
		}
	}
	metrics.SetLastRun(d.Now())
	d.notifySweep(ctx, failures)
	return failures
}

func (d *Daemon) notifySweep(ctx context.Context, failures []error) {
	if d.notifier == nil || d.notifier.Len() == 0 {
		return
	}
	switch d.cfg.NotificationLevel {
	case "none":
		return
	case "all":
		if len(failures) == 0 {
			d.notifier.Send(ctx, "Deskhand sync complete",
				fmt.Sprintf("%d containers synchronized", len(d.cfg.Containers)))
			return
		}
	default: // "failure"
		if len(failures) == 0 {
			return
		}
	}
	var b strings.Builder
	for _, err := range failures {
		fmt.Fprintf(&b, "%v\n", err)
	}
	d.notifier.Send(ctx, "Deskhand sync failures", b.String())
}

// Stop shuts the daemon down: the loop exits, in-flight container calls are
// cancelled, and pending notifications are drained until ctx expires.
func (d *Daemon) Stop(ctx context.Context) error {
	close(d.quit)
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d.notifier != nil {
		return d.notifier.Wait(ctx)
	}
	return nil
}
