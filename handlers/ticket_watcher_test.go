package handlers

import (
	"path/filepath"
	"testing"
	"time"

	"smp-bot/storage"
)

// fakeGateway mirrors what the real session gateway does: AutoClose removes
// the ticket from state and archives it, like CloseTicket.
type fakeGateway struct {
	state    *storage.State
	history  storage.Database
	existing map[string]bool

	alerts     []string
	autoCloses []string
}

func (g *fakeGateway) ChannelExists(channelID string) bool {
	return g.existing[channelID]
}

func (g *fakeGateway) SendAlert(t storage.Ticket, deadline time.Time) (string, error) {
	g.alerts = append(g.alerts, t.ChannelID)
	return "alert-" + t.ChannelID, nil
}

func (g *fakeGateway) AutoClose(t storage.Ticket) {
	if !g.state.RemoveTicket(t.ChannelID) {
		return
	}
	g.autoCloses = append(g.autoCloses, t.ChannelID)
	_ = g.history.ArchiveTicket(storage.HistoryEntry{
		TicketID:  t.ChannelID,
		UserID:    t.UserID,
		Username:  t.Username,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
		ClosedAt:  time.Now(),
		Status:    storage.StatusInactivity,
	})
}

func newTestWatcher(t *testing.T) (*ticketWatcher, *fakeGateway, *storage.State, storage.Database) {
	t.Helper()
	dir := t.TempDir()
	state := storage.LoadState(filepath.Join(dir, "state.json"))
	history := storage.InitDB("json", "", dir)
	if err := history.Init(); err != nil {
		t.Fatalf("history init: %v", err)
	}
	gw := &fakeGateway{state: state, history: history, existing: make(map[string]bool)}
	w := newTicketWatcher(state, history, gw, time.Hour, 2*time.Hour, 5*time.Second)
	return w, gw, state, history
}

func openTicket(state *storage.State, gw *fakeGateway, channelID string, lastActivity time.Time) {
	gw.existing[channelID] = true
	state.PutTicket(storage.Ticket{
		ChannelID:    channelID,
		UserID:       "user-1",
		Username:     "steve",
		Category:     "question",
		CreatedAt:    lastActivity,
		LastActivity: lastActivity,
	})
}

func TestSweepAlertsAfterThreshold(t *testing.T) {
	w, gw, state, _ := newTestWatcher(t)
	now := time.Now()
	openTicket(state, gw, "ch-1", now.Add(-30*time.Minute))

	w.sweep(now)
	if len(gw.alerts) != 0 {
		t.Fatalf("alert fired before threshold: %v", gw.alerts)
	}

	w.sweep(now.Add(31 * time.Minute))
	if len(gw.alerts) != 1 || gw.alerts[0] != "ch-1" {
		t.Fatalf("expected one alert for ch-1, got %v", gw.alerts)
	}

	tk, _ := state.Ticket("ch-1")
	if tk.AlertMessageID != "alert-ch-1" {
		t.Fatalf("alert message ID not recorded: %q", tk.AlertMessageID)
	}

	// A second sweep at the same idle level must not alert again.
	w.sweep(now.Add(40 * time.Minute))
	if len(gw.alerts) != 1 {
		t.Fatalf("duplicate alert: %v", gw.alerts)
	}
}

func TestSweepAutoClosesAfterDeadline(t *testing.T) {
	w, gw, state, history := newTestWatcher(t)
	now := time.Now()
	openTicket(state, gw, "ch-1", now.Add(-90*time.Minute))

	w.sweep(now)
	if len(gw.alerts) != 1 {
		t.Fatalf("expected alert first, got %v", gw.alerts)
	}
	if len(gw.autoCloses) != 0 {
		t.Fatalf("closed before deadline: %v", gw.autoCloses)
	}

	w.sweep(now.Add(31 * time.Minute))
	if len(gw.autoCloses) != 1 || gw.autoCloses[0] != "ch-1" {
		t.Fatalf("expected auto close of ch-1, got %v", gw.autoCloses)
	}
	if _, ok := state.Ticket("ch-1"); ok {
		t.Fatal("ticket still in state after auto close")
	}

	entries, err := history.HistoryForUser("user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != storage.StatusInactivity {
		t.Fatalf("expected one inactivity entry, got %+v", entries)
	}

	// Sweeping again must be a no-op.
	w.sweep(now.Add(time.Hour))
	if len(gw.autoCloses) != 1 {
		t.Fatalf("double close: %v", gw.autoCloses)
	}
}

func TestActivityResetsAlert(t *testing.T) {
	w, gw, state, _ := newTestWatcher(t)
	now := time.Now()
	openTicket(state, gw, "ch-1", now.Add(-90*time.Minute))

	w.sweep(now)
	if len(gw.alerts) != 1 {
		t.Fatalf("expected alert, got %v", gw.alerts)
	}

	prev, ok := state.TouchTicket("ch-1", now.Add(time.Minute))
	if !ok || prev != "alert-ch-1" {
		t.Fatalf("touch returned %q, %v", prev, ok)
	}

	// The old close deadline would have passed, but activity reset the clock.
	w.sweep(now.Add(45 * time.Minute))
	if len(gw.autoCloses) != 0 {
		t.Fatalf("closed despite fresh activity: %v", gw.autoCloses)
	}
	if len(gw.alerts) != 1 {
		t.Fatalf("unexpected extra alert: %v", gw.alerts)
	}
}

func TestSweepArchivesVanishedChannel(t *testing.T) {
	w, gw, state, history := newTestWatcher(t)
	now := time.Now()
	openTicket(state, gw, "ch-1", now)
	gw.existing["ch-1"] = false

	w.sweep(now)

	if _, ok := state.Ticket("ch-1"); ok {
		t.Fatal("vanished ticket still in state")
	}
	entries, err := history.HistoryForUser("user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != storage.StatusChannelDeleted {
		t.Fatalf("expected channel_deleted entry, got %+v", entries)
	}

	// Repeat sweep must not archive twice.
	w.sweep(now.Add(time.Minute))
	entries, _ = history.HistoryForUser("user-1")
	if len(entries) != 1 {
		t.Fatalf("duplicate archive: %+v", entries)
	}
}
