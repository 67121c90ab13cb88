package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Ticket closure statuses recorded in history.
const (
	StatusStaffClosed    = "staff_closed"
	StatusInactivity     = "inactivity"
	StatusChannelDeleted = "channel_deleted"
)

type Ticket struct {
	ChannelID    string            `json:"channel_id"`
	UserID       string            `json:"user_id"`
	Username     string            `json:"username"`
	Category     string            `json:"category"`
	Answers      map[string]string `json:"answers,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`

	Claimed   bool      `json:"claimed"`
	ClaimedBy string    `json:"claimed_by,omitempty"`
	ClaimedAt time.Time `json:"claimed_at,omitempty"`

	AlertMessageID string    `json:"alert_message_id,omitempty"`
	AlertSentAt    time.Time `json:"alert_sent_at,omitempty"`

	ClaimRoles []string `json:"claim_roles"`
	CloseRoles []string `json:"close_roles"`
}

type CountingState struct {
	Current    int    `json:"current"`
	LastUserID string `json:"last_user_id,omitempty"`
}

// State is the bot's persisted runtime state: one JSON document, rewritten
// wholesale on every Save. Intervals and listeners are never serialized;
// only the plain records live here.
type State struct {
	mu       sync.RWMutex
	filePath string

	Tickets         map[string]Ticket `json:"tickets"`
	MenuMessages    map[string]string `json:"menu_messages"`
	StatusMessageID string            `json:"status_message_id,omitempty"`
	Counting        CountingState     `json:"counting"`
	Blacklist       map[string]bool   `json:"whitelist_blacklist"`
}

func LoadState(path string) *State {
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	st := &State{
		filePath:     path,
		Tickets:      make(map[string]Ticket),
		MenuMessages: make(map[string]string),
		Blacklist:    make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, st)
	}
	st.filePath = path
	if st.Tickets == nil {
		st.Tickets = make(map[string]Ticket)
	}
	if st.MenuMessages == nil {
		st.MenuMessages = make(map[string]string)
	}
	if st.Blacklist == nil {
		st.Blacklist = make(map[string]bool)
	}
	return st
}

func (st *State) Save() error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.filePath, data, 0644)
}

func (st *State) Ticket(channelID string) (Ticket, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.Tickets[channelID]
	return t, ok
}

func (st *State) PutTicket(t Ticket) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Tickets[t.ChannelID] = t
}

// RemoveTicket reports whether the ticket was present, so close paths stay
// idempotent: the first remover wins, later callers see false and stop.
func (st *State) RemoveTicket(channelID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.Tickets[channelID]
	if ok {
		delete(st.Tickets, channelID)
	}
	return ok
}

func (st *State) TicketList() []Ticket {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Ticket, 0, len(st.Tickets))
	for _, t := range st.Tickets {
		out = append(out, t)
	}
	return out
}

func (st *State) TicketCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.Tickets)
}

// TouchTicket bumps the ticket's last activity and clears any pending alert
// markers in the same operation. It returns the previous alert message ID so
// the caller can delete the alert message best-effort.
func (st *State) TouchTicket(channelID string, now time.Time) (prevAlert string, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.Tickets[channelID]
	if !ok {
		return "", false
	}
	prevAlert = t.AlertMessageID
	t.LastActivity = now
	t.AlertMessageID = ""
	t.AlertSentAt = time.Time{}
	st.Tickets[channelID] = t
	return prevAlert, true
}

func (st *State) SetAlert(channelID, messageID string, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.Tickets[channelID]
	if !ok {
		return
	}
	t.AlertMessageID = messageID
	t.AlertSentAt = now
	st.Tickets[channelID] = t
}

// ClaimTicket marks the ticket claimed. It reports false when the ticket is
// already claimed; the alert markers are cleared and activity bumped on
// success.
func (st *State) ClaimTicket(channelID, userID string, now time.Time) (Ticket, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.Tickets[channelID]
	if !ok || t.Claimed {
		return t, false
	}
	t.Claimed = true
	t.ClaimedBy = userID
	t.ClaimedAt = now
	t.LastActivity = now
	t.AlertMessageID = ""
	t.AlertSentAt = time.Time{}
	st.Tickets[channelID] = t
	return t, true
}

// ResetTicketClocks sets every ticket's last activity to now and drops stale
// alert markers. Used on startup so downtime never counts as inactivity.
func (st *State) ResetTicketClocks(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, t := range st.Tickets {
		t.LastActivity = now
		t.AlertMessageID = ""
		t.AlertSentAt = time.Time{}
		st.Tickets[id] = t
	}
}

func (st *State) MenuMessage(channelID string) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.MenuMessages[channelID]
}

func (st *State) SetMenuMessage(channelID, messageID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.MenuMessages[channelID] = messageID
}

func (st *State) StatusMessage() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.StatusMessageID
}

func (st *State) SetStatusMessage(messageID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.StatusMessageID = messageID
}

func (st *State) CountingProgress() CountingState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.Counting
}

func (st *State) SetCountingProgress(c CountingState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Counting = c
}

func (st *State) IsBlocked(userID string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.Blacklist[userID]
}

func (st *State) Block(userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Blacklist[userID] = true
}

func (st *State) Unblock(userID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	blocked := st.Blacklist[userID]
	delete(st.Blacklist, userID)
	return blocked
}
