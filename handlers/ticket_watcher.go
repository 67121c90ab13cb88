package handlers

import (
	"log"
	"time"

	"smp-bot/storage"
)

// ticketGateway is the slice of Discord the watcher needs. Tests substitute
// a fake; production uses sessionGateway.
type ticketGateway interface {
	ChannelExists(channelID string) bool

	// SendAlert posts the inactivity warning and returns its message ID.
	SendAlert(t storage.Ticket, deadline time.Time) (string, error)

	// AutoClose runs the close path for an idle ticket. It must be safe to
	// call for a ticket that was closed concurrently.
	AutoClose(t storage.Ticket)
}

// ticketWatcher drives all inactivity handling from one ticker. One sweep
// walks every open ticket, so there are no per-ticket timers to leak when a
// ticket closes early.
type ticketWatcher struct {
	state   *storage.State
	history storage.Database
	gw      ticketGateway

	alertAfter time.Duration
	closeAfter time.Duration
	interval   time.Duration

	stop chan struct{}
}

func newTicketWatcher(state *storage.State, history storage.Database, gw ticketGateway, alertAfter, closeAfter, interval time.Duration) *ticketWatcher {
	return &ticketWatcher{
		state:      state,
		history:    history,
		gw:         gw,
		alertAfter: alertAfter,
		closeAfter: closeAfter,
		interval:   interval,
	}
}

func (w *ticketWatcher) Start() {
	w.stop = make(chan struct{})
	go w.run()
	log.Printf("[Ticket] Watcher running (alert %s, close %s, poll %s)", w.alertAfter, w.closeAfter, w.interval)
}

func (w *ticketWatcher) Stop() {
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

func (w *ticketWatcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.sweep(time.Now())
		case <-w.stop:
			return
		}
	}
}

// sweep inspects every open ticket once. Order of checks matters: a vanished
// channel wins over any inactivity state, and closing wins over alerting.
func (w *ticketWatcher) sweep(now time.Time) {
	for _, t := range w.state.TicketList() {
		if !w.gw.ChannelExists(t.ChannelID) {
			if !w.state.RemoveTicket(t.ChannelID) {
				continue
			}
			w.archive(t, storage.StatusChannelDeleted, "channel deleted manually", now)
			_ = w.state.Save()
			log.Printf("[Ticket] Channel %s vanished, archived", t.ChannelID)
			continue
		}

		idle := now.Sub(t.LastActivity)

		if idle >= w.closeAfter && t.AlertMessageID != "" {
			w.gw.AutoClose(t)
			continue
		}

		if idle >= w.alertAfter && t.AlertMessageID == "" {
			deadline := now.Add(w.closeAfter - idle)
			msgID, err := w.gw.SendAlert(t, deadline)
			if err != nil {
				log.Printf("[Ticket] Failed to send alert for %s: %v", t.ChannelID, err)
				continue
			}
			w.state.SetAlert(t.ChannelID, msgID, now)
			_ = w.state.Save()
		}
	}
}

func (w *ticketWatcher) archive(t storage.Ticket, status, reason string, closedAt time.Time) {
	err := w.history.ArchiveTicket(storage.HistoryEntry{
		TicketID:  t.ChannelID,
		UserID:    t.UserID,
		Username:  t.Username,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
		ClosedAt:  closedAt,
		Reason:    reason,
		Status:    status,
	})
	if err != nil {
		log.Printf("[Ticket] Failed to archive %s: %v", t.ChannelID, err)
	}
}
