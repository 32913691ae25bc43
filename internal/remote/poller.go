package remote

import (
	"context"
	"time"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/logging"
	"github.com/sadopc/billr/internal/model"
)

// TimerSource yields the authoritative active timer, or nil when idle.
type TimerSource interface {
	ActiveTimer(ctx context.Context) (*model.ActiveTimer, error)
}

// Reconciler is the ledger side of a poll.
type Reconciler interface {
	ReconcileTimer(remote *model.ActiveTimer) (ledger.Reconciliation, error)
}

// Poller periodically copies the remote timer state into the ledger.
type Poller struct {
	source   TimerSource
	ledger   Reconciler
	interval time.Duration
	log      logging.Logger
	// OnChange, when set, is called after a poll that changed the local timer.
	OnChange func(ledger.Reconciliation)
}

func NewPoller(source TimerSource, l Reconciler, interval time.Duration, log logging.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Poller{source: source, ledger: l, interval: interval, log: log}
}

// Run polls once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll performs a single fetch and reconcile. A failed fetch leaves the
// local timer untouched.
func (p *Poller) Poll(ctx context.Context) ledger.Reconciliation {
	remote, err := p.source.ActiveTimer(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn(ctx, "poll remote timer failed", "err", err)
		}
		return ""
	}
	outcome, err := p.ledger.ReconcileTimer(remote)
	if err != nil {
		p.log.Warn(ctx, "reconcile timer", "outcome", outcome, "err", err)
	}
	switch outcome {
	case ledger.ReconcileCleared, ledger.ReconcileAdopted, ledger.ReconcileUpdated:
		if p.OnChange != nil {
			p.OnChange(outcome)
		}
	}
	return outcome
}
