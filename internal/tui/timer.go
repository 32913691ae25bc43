package tui

import (
	"time"

	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
)

// timerModel mirrors the ledger's active timer for display. The ledger owns
// the state; this model only caches it between ticks.
type timerModel struct {
	ledger *ledger.Ledger

	active      *model.ActiveTimer
	projectName string
	elapsed     time.Duration
}

func newTimerModel(l *ledger.Ledger) timerModel {
	t := timerModel{ledger: l}
	t.sync()
	return t
}

// sync reloads the timer from the ledger.
func (t *timerModel) sync() {
	at, ok := t.ledger.ActiveTimer()
	if !ok {
		t.active = nil
		t.projectName = ""
		t.elapsed = 0
		return
	}
	t.active = &at
	t.projectName = "?"
	if p, err := t.ledger.Project(at.ProjectID); err == nil {
		t.projectName = p.Name
	}
	t.elapsed = t.ledger.Elapsed()
}

func (t *timerModel) start(projectID, description string) error {
	_, err := t.ledger.StartTimer(projectID, description)
	t.sync()
	return err
}

// stop records the running session as an entry. The returned entry is the
// zero value when nothing was running.
func (t *timerModel) stop() (model.TimeEntry, error) {
	e, err := t.ledger.StopTimer()
	t.sync()
	return e, err
}

func (t *timerModel) tick() {
	if t.active != nil {
		t.elapsed = t.ledger.Elapsed()
	}
}

func (t timerModel) running() bool {
	return t.active != nil
}

func (t timerModel) description() string {
	if t.active == nil {
		return ""
	}
	return t.active.Description
}

func (t timerModel) currentElapsed() time.Duration {
	return t.elapsed
}
