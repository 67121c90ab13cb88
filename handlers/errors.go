package handlers

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyBlocked   = errors.New("user is blocked from whitelist requests")
	ErrRequestPending   = errors.New("user already has a pending whitelist request")
	ErrAlreadyClaimed   = errors.New("ticket is already claimed")
	ErrPermissionDenied = errors.New("missing required role")
	ErrNotTicketChannel = errors.New("channel is not a ticket")
)

// CooldownActiveError carries the wait time so handlers can tell the user
// when to retry.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(time.Second))
}
