package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	st := LoadState(path)
	now := time.Now().Truncate(time.Second)
	st.PutTicket(Ticket{
		ChannelID:    "ch-1",
		UserID:       "u1",
		Username:     "steve",
		Category:     "bug",
		CreatedAt:    now,
		LastActivity: now,
	})
	st.SetMenuMessage("menu-ch", "msg-1")
	st.SetCountingProgress(CountingState{Current: 41, LastUserID: "u2"})
	st.Block("bad-user")
	if err := st.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := LoadState(path)
	tk, ok := loaded.Ticket("ch-1")
	if !ok || tk.UserID != "u1" || tk.Category != "bug" {
		t.Fatalf("ticket lost in round trip: %+v", tk)
	}
	if loaded.MenuMessage("menu-ch") != "msg-1" {
		t.Fatal("menu message lost")
	}
	if c := loaded.CountingProgress(); c.Current != 41 || c.LastUserID != "u2" {
		t.Fatalf("counting state lost: %+v", c)
	}
	if !loaded.IsBlocked("bad-user") {
		t.Fatal("blacklist lost")
	}
}

func TestRemoveTicketIdempotent(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "state.json"))
	st.PutTicket(Ticket{ChannelID: "ch-1"})

	if !st.RemoveTicket("ch-1") {
		t.Fatal("first remove should report true")
	}
	if st.RemoveTicket("ch-1") {
		t.Fatal("second remove should report false")
	}
}

func TestTouchTicketClearsAlert(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "state.json"))
	now := time.Now()
	st.PutTicket(Ticket{ChannelID: "ch-1", LastActivity: now.Add(-time.Hour)})
	st.SetAlert("ch-1", "alert-msg", now)

	prev, ok := st.TouchTicket("ch-1", now)
	if !ok || prev != "alert-msg" {
		t.Fatalf("TouchTicket = %q, %v", prev, ok)
	}

	tk, _ := st.Ticket("ch-1")
	if tk.AlertMessageID != "" || !tk.AlertSentAt.IsZero() {
		t.Fatalf("alert markers not cleared: %+v", tk)
	}
	if !tk.LastActivity.Equal(now) {
		t.Fatalf("activity not bumped: %v", tk.LastActivity)
	}

	if _, ok := st.TouchTicket("missing", now); ok {
		t.Fatal("touch on unknown channel should report false")
	}
}

func TestClaimTicketOnce(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "state.json"))
	now := time.Now()
	st.PutTicket(Ticket{ChannelID: "ch-1", UserID: "u1"})

	tk, ok := st.ClaimTicket("ch-1", "staff-1", now)
	if !ok || tk.ClaimedBy != "staff-1" {
		t.Fatalf("claim failed: %+v, %v", tk, ok)
	}

	tk, ok = st.ClaimTicket("ch-1", "staff-2", now)
	if ok {
		t.Fatal("second claim should fail")
	}
	if tk.ClaimedBy != "staff-1" {
		t.Fatalf("second claim returned wrong holder: %+v", tk)
	}
}

func TestResetTicketClocks(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "state.json"))
	old := time.Now().Add(-10 * time.Hour)
	st.PutTicket(Ticket{ChannelID: "ch-1", LastActivity: old, AlertMessageID: "stale"})
	st.PutTicket(Ticket{ChannelID: "ch-2", LastActivity: old})

	boot := time.Now()
	st.ResetTicketClocks(boot)

	for _, id := range []string{"ch-1", "ch-2"} {
		tk, _ := st.Ticket(id)
		if !tk.LastActivity.Equal(boot) {
			t.Fatalf("%s clock not reset: %v", id, tk.LastActivity)
		}
		if tk.AlertMessageID != "" {
			t.Fatalf("%s stale alert survived reset", id)
		}
	}
}
