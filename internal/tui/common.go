package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/model"
	"github.com/shopspring/decimal"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewClients
	viewProjects
	viewEntries
	viewInvoices
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Clients", "Projects", "Entries", "Invoices", "Reports", "Settings"}

// --- Messages ---

type timerStartedMsg struct {
	timer model.ActiveTimer
}

type timerStoppedMsg struct {
	entry model.TimeEntry
}

// TimerSyncMsg tells the running program that the active timer was changed
// from outside, e.g. by the remote poller.
type TimerSyncMsg struct {
	Outcome ledger.Reconciliation
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// errStatus turns a ledger error into a status line. A persistence warning
// means the change is live but not on disk.
func errStatus(action string, err error) tea.Cmd {
	return func() tea.Msg {
		if ledger.IsWarning(err) {
			return statusMsg{text: action + ", but saving failed: " + rootCause(err)}
		}
		text := fmt.Sprintf("%s: %s", action, rootCause(err))
		if f := ledger.FieldOf(err); f != "" {
			text += " (" + f + ")"
		}
		return statusMsg{text: text, isError: true}
	}
}

func rootCause(err error) string {
	var le *ledger.Error
	if errors.As(err, &le) && le.Msg != "" {
		return le.Msg
	}
	return err.Error()
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

// statusOr reports err when it is set and text otherwise.
func statusOr(text string, err error) tea.Cmd {
	if err != nil {
		if ledger.IsWarning(err) {
			return errStatus(text, err)
		}
		return errStatus("Error", err)
	}
	return status(text)
}

// savePayload writes p into dir and returns the written path.
func savePayload(dir string, p export.Payload) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, p.Filename)
	if err := os.WriteFile(path, p.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p.Filename, err)
	}
	return path, nil
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMinutes renders whole minutes as "2h 05m", or "45m" below an hour.
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

func formatHours(minutes int) string {
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// clampCursor keeps a list cursor inside [0, n).
func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
