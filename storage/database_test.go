package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func testBackends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	return map[string]Database{
		"sqlite": &SQLiteDB{path: filepath.Join(dir, "bot.db")},
		"json":   newJSONHistory(filepath.Join(dir, "history.json")),
	}
}

func TestArchiveTicketIdempotent(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Init(); err != nil {
				t.Fatalf("init: %v", err)
			}
			defer db.Close()

			entry := HistoryEntry{
				TicketID:  "ch-1",
				UserID:    "u1",
				Username:  "steve",
				Category:  "bug",
				CreatedAt: time.Now().Add(-time.Hour),
				ClosedAt:  time.Now(),
				Reason:    "closed by staff",
				Status:    StatusStaffClosed,
			}

			if err := db.ArchiveTicket(entry); err != nil {
				t.Fatalf("first archive: %v", err)
			}
			// Same ticket again, e.g. close button raced the watcher.
			if err := db.ArchiveTicket(entry); err != nil {
				t.Fatalf("second archive: %v", err)
			}

			entries, err := db.HistoryForUser("u1")
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Status != StatusStaffClosed || entries[0].Category != "bug" {
				t.Fatalf("entry mangled: %+v", entries[0])
			}
		})
	}
}

func TestHistoryForUserOrderAndIsolation(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Init(); err != nil {
				t.Fatalf("init: %v", err)
			}
			defer db.Close()

			base := time.Now()
			for i, tid := range []string{"ch-1", "ch-2", "ch-3"} {
				err := db.ArchiveTicket(HistoryEntry{
					TicketID:  tid,
					UserID:    "u1",
					Username:  "steve",
					Category:  "question",
					CreatedAt: base.Add(-time.Hour),
					ClosedAt:  base.Add(time.Duration(i) * time.Minute),
					Status:    StatusInactivity,
				})
				if err != nil {
					t.Fatalf("archive %s: %v", tid, err)
				}
			}
			_ = db.ArchiveTicket(HistoryEntry{
				TicketID: "ch-other", UserID: "u2", Username: "alex",
				Category: "bug", CreatedAt: base, ClosedAt: base,
				Status: StatusStaffClosed,
			})

			entries, err := db.HistoryForUser("u1")
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(entries) != 3 {
				t.Fatalf("expected 3 entries for u1, got %d", len(entries))
			}
			// Most recently closed first.
			if entries[0].TicketID != "ch-3" || entries[2].TicketID != "ch-1" {
				t.Fatalf("wrong order: %s, %s, %s",
					entries[0].TicketID, entries[1].TicketID, entries[2].TicketID)
			}
		})
	}
}

func TestStats(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Init(); err != nil {
				t.Fatalf("init: %v", err)
			}
			defer db.Close()

			now := time.Now()
			seed := []struct {
				id, category, status string
			}{
				{"ch-1", "bug", StatusStaffClosed},
				{"ch-2", "bug", StatusInactivity},
				{"ch-3", "question", StatusInactivity},
			}
			for _, s := range seed {
				_ = db.ArchiveTicket(HistoryEntry{
					TicketID: s.id, UserID: "u1", Username: "steve",
					Category: s.category, CreatedAt: now, ClosedAt: now,
					Status: s.status,
				})
			}

			stats, err := db.Stats()
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if stats.Total != 3 {
				t.Fatalf("total = %d, want 3", stats.Total)
			}
			if stats.ByStatus[StatusInactivity] != 2 || stats.ByStatus[StatusStaffClosed] != 1 {
				t.Fatalf("bad status breakdown: %v", stats.ByStatus)
			}
			if stats.ByCategory["bug"] != 2 || stats.ByCategory["question"] != 1 {
				t.Fatalf("bad category breakdown: %v", stats.ByCategory)
			}
		})
	}
}
