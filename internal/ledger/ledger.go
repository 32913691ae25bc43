// Package ledger is the authoritative in-memory store for clients, projects,
// time entries, invoices and the active timer.
//
// A single mutex guards every collection and the timer slot, so a timer stop
// (entry insert + timer clear) or an invoice creation is observed by readers
// either completely or not at all. Durable writes go through a Persister
// after the in-memory change is visible; a failed write is reported as
// ErrPersistence and never rolls the change back.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/billr/internal/logging"
	"github.com/sadopc/billr/internal/model"
)

// Persister is the durable collaborator.
type Persister interface {
	LoadCollection(kind model.Kind) ([]json.RawMessage, error)
	SaveCollection(kind model.Kind, docs []json.RawMessage) error
	LoadScalar(key, def string) (string, error)
	SaveScalar(key, value string) error
}

// Setting keys and their defaults.
const (
	SettingDefaultCurrency = "default_currency"
	SettingInvoiceDueDays  = "invoice_due_days"
	SettingWeekStart       = "week_start"
	SettingTheme           = "theme"
)

var SettingDefaults = map[string]string{
	SettingDefaultCurrency: "EUR",
	SettingInvoiceDueDays:  "14",
	SettingWeekStart:       "monday",
	SettingTheme:           "dark",
}

type Ledger struct {
	mu       sync.RWMutex
	clients  *table[model.Client]
	projects *table[model.Project]
	entries  *table[model.TimeEntry]
	invoices *table[model.Invoice]
	timer    *model.ActiveTimer
	settings map[string]string
	seq      uint64

	// saveMu orders durable writes; saved holds the last written
	// sequence per kind so an older snapshot never overwrites a newer one.
	saveMu sync.Mutex
	saved  map[model.Kind]uint64

	store Persister
	log   logging.Logger
	now   func() time.Time
	loc   *time.Location
	newID func() string
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(log logging.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithLocation sets the zone used to derive calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func New(store Persister, opts ...Option) *Ledger {
	l := &Ledger{
		clients:  newTable(func(c model.Client) string { return c.ID }, func(c model.Client) time.Time { return c.CreatedAt }),
		projects: newTable(func(p model.Project) string { return p.ID }, func(p model.Project) time.Time { return p.CreatedAt }),
		entries:  newTable(func(e model.TimeEntry) string { return e.ID }, func(e model.TimeEntry) time.Time { return e.CreatedAt }),
		invoices: newTable(func(i model.Invoice) string { return i.ID }, func(i model.Invoice) time.Time { return i.CreatedAt }),
		settings: make(map[string]string),
		saved:    make(map[model.Kind]uint64),
		store:    store,
		log:      logging.Discard(),
		now:      time.Now,
		loc:      time.Local,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.store == nil {
		l.store = NewMemoryStore()
	}
	return l
}

// Load hydrates every collection and the active timer from the durable store.
// Documents that fail to decode are skipped and logged.
func (l *Ledger) Load() error {
	clients, err := loadKind[model.Client](l, model.KindClients)
	if err != nil {
		return err
	}
	projects, err := loadKind[model.Project](l, model.KindProjects)
	if err != nil {
		return err
	}
	entries, err := loadKind[model.TimeEntry](l, model.KindTimeEntries)
	if err != nil {
		return err
	}
	invoices, err := loadKind[model.Invoice](l, model.KindInvoices)
	if err != nil {
		return err
	}
	timers, err := loadKind[model.ActiveTimer](l, model.KindActiveTimer)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients.replace(clients)
	l.projects.replace(projects)
	l.entries.replace(entries)
	l.invoices.replace(invoices)
	l.timer = nil
	if len(timers) > 0 {
		t := timers[len(timers)-1]
		l.timer = &t
	}
	l.log.Info(context.Background(), "ledger loaded",
		"clients", len(clients), "projects", len(projects),
		"entries", len(entries), "invoices", len(invoices), "timer", l.timer != nil)
	return nil
}

func loadKind[T any](l *Ledger, kind model.Kind) ([]T, error) {
	docs, err := l.store.LoadCollection(kind)
	if err != nil {
		return nil, &Error{Kind: ErrPersistence, Entity: string(kind), Msg: "load", Err: err}
	}
	out := make([]T, 0, len(docs))
	for i, d := range docs {
		var v T
		if err := json.Unmarshal(d, &v); err != nil {
			l.log.Warn(context.Background(), "skipping undecodable document", "kind", kind, "index", i, "err", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

type snapshot struct {
	kind model.Kind
	seq  uint64
	docs []json.RawMessage
	err  error
}

// snapshotLocked captures the given collections. l.mu must be held.
func (l *Ledger) snapshotLocked(kinds ...model.Kind) []snapshot {
	l.seq++
	out := make([]snapshot, 0, len(kinds))
	for _, k := range kinds {
		s := snapshot{kind: k, seq: l.seq}
		switch k {
		case model.KindClients:
			s.docs, s.err = l.clients.docs()
		case model.KindProjects:
			s.docs, s.err = l.projects.docs()
		case model.KindTimeEntries:
			s.docs, s.err = l.entries.docs()
		case model.KindInvoices:
			s.docs, s.err = l.invoices.docs()
		case model.KindActiveTimer:
			s.docs = []json.RawMessage{}
			if l.timer != nil {
				b, err := json.Marshal(l.timer)
				s.docs, s.err = append(s.docs, b), err
			}
		}
		out = append(out, s)
	}
	return out
}

// flush writes snapshots in order, skipping any that a newer write of the
// same kind already superseded.
func (l *Ledger) flush(snaps []snapshot) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	var errs []error
	for _, s := range snaps {
		if s.seq <= l.saved[s.kind] {
			continue
		}
		err := s.err
		if err == nil {
			err = l.store.SaveCollection(s.kind, s.docs)
		}
		if err != nil {
			l.log.Warn(context.Background(), "persist collection failed", "kind", s.kind, "err", err)
			errs = append(errs, fmt.Errorf("save %s: %w", s.kind, err))
			continue
		}
		l.saved[s.kind] = s.seq
	}
	if len(errs) == 0 {
		return nil
	}
	return &Error{Kind: ErrPersistence, Err: errors.Join(errs...)}
}

// mutate runs fn under the write lock and persists the kinds it reports as
// changed once the lock is released.
func (l *Ledger) mutate(fn func() ([]model.Kind, error)) error {
	l.mu.Lock()
	kinds, err := fn()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	snaps := l.snapshotLocked(kinds...)
	l.mu.Unlock()
	return l.flush(snaps)
}

// Setting returns a scalar setting, falling back to def and then to the
// built-in default.
func (l *Ledger) Setting(key, def string) string {
	l.mu.RLock()
	v, ok := l.settings[key]
	l.mu.RUnlock()
	if ok {
		return v
	}
	if def == "" {
		def = SettingDefaults[key]
	}
	v, err := l.store.LoadScalar(key, def)
	if err != nil {
		l.log.Warn(context.Background(), "load setting failed", "key", key, "err", err)
		return def
	}
	l.mu.Lock()
	l.settings[key] = v
	l.mu.Unlock()
	return v
}

// SetSetting stores a scalar setting. The in-memory value is updated even if
// the durable write fails.
func (l *Ledger) SetSetting(key, value string) error {
	value, err := normalizeSetting(key, value)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.settings[key] = value
	l.mu.Unlock()
	if err := l.store.SaveScalar(key, value); err != nil {
		l.log.Warn(context.Background(), "save setting failed", "key", key, "err", err)
		return &Error{Kind: ErrPersistence, Entity: "setting", ID: key, Err: err}
	}
	return nil
}

// Settings returns every known setting with its current value.
func (l *Ledger) Settings() map[string]string {
	out := make(map[string]string, len(SettingDefaults))
	for k := range SettingDefaults {
		out[k] = l.Setting(k, "")
	}
	return out
}

func (l *Ledger) today() string {
	return model.DateOf(l.now(), l.loc)
}

// Location returns the zone used for calendar dates.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}
