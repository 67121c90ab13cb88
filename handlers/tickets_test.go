package handlers

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smp-bot/config"
	"smp-bot/storage"
)

func newTestTickets(t *testing.T) (*TicketSystem, *storage.State) {
	t.Helper()
	dir := t.TempDir()
	state := storage.LoadState(filepath.Join(dir, "state.json"))
	history := storage.InitDB("json", "", dir)
	if err := history.Init(); err != nil {
		t.Fatalf("history init: %v", err)
	}
	return NewTicketSystem(&config.Config{}, state, history), state
}

func TestClaim(t *testing.T) {
	sys, state := newTestTickets(t)
	now := time.Now()
	state.PutTicket(storage.Ticket{ChannelID: "ch-1", UserID: "opener"})

	if _, err := sys.Claim("not-a-ticket", "staff-1", true, now); !errors.Is(err, ErrNotTicketChannel) {
		t.Fatalf("expected ErrNotTicketChannel, got %v", err)
	}

	if _, err := sys.Claim("ch-1", "rando", false, now); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	claimed, err := sys.Claim("ch-1", "staff-1", true, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Claimed || claimed.ClaimedBy != "staff-1" {
		t.Fatalf("claim not recorded: %+v", claimed)
	}

	holder, err := sys.Claim("ch-1", "staff-2", true, now)
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if holder.ClaimedBy != "staff-1" {
		t.Fatalf("wrong holder reported: %+v", holder)
	}
}

func TestRestoreDropsVanishedChannels(t *testing.T) {
	sys, state := newTestTickets(t)
	now := time.Now()
	opened := now.Add(-3 * time.Hour)

	state.PutTicket(storage.Ticket{ChannelID: "ch-live", UserID: "u1", Category: "question", CreatedAt: opened, LastActivity: opened})
	state.PutTicket(storage.Ticket{ChannelID: "ch-gone", UserID: "u2", Category: "bug", CreatedAt: opened, LastActivity: opened})

	gw := &fakeGateway{state: state, history: sys.history, existing: map[string]bool{"ch-live": true}}
	if restored := sys.restore(gw, now); restored != 1 {
		t.Fatalf("restore returned %d, want 1", restored)
	}

	if _, ok := state.Ticket("ch-gone"); ok {
		t.Fatal("vanished ticket still in state after restore")
	}
	entries, err := sys.history.HistoryForUser("u2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != storage.StatusChannelDeleted {
		t.Fatalf("expected channel_deleted entry, got %+v", entries)
	}

	// The survivor's clock starts at restore time, so downtime never counts
	// toward inactivity.
	tk, ok := state.Ticket("ch-live")
	if !ok {
		t.Fatal("surviving ticket missing after restore")
	}
	if !tk.LastActivity.Equal(now) {
		t.Fatalf("clock not reset: %v, want %v", tk.LastActivity, now)
	}
}

func TestSanitizeChannelName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"bug-Steve", "bug-steve"},
		{"question-Cool Guy", "question-cool-guy"},
		{"other-Ωmega", "other-mega"},
		{"!!!", "ticket"},
		{"bug-under_score", "bug-under_score"},
	}
	for _, c := range cases {
		if got := sanitizeChannelName(c.in); got != c.want {
			t.Errorf("sanitizeChannelName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
