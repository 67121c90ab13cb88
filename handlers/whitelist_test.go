package handlers

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smp-bot/config"
	"smp-bot/storage"
)

func TestExtractGamertag(t *testing.T) {
	cases := []struct {
		in       string
		tag      string
		platform string
		ok       bool
	}{
		{"bedrock CoolGuy42", "CoolGuy42", "Bedrock", true},
		{"java Steve", "Steve", "Java", true},
		{"Cool Guy 42 bedrock", "Cool_Guy_42", "Bedrock", true},
		{"java Epic-Gamer", "Epic_Gamer", "Java", true},
		{"bedrock under_score", "under_score", "Bedrock", true},
		{"BEDROCK ShoutyName", "ShoutyName", "Bedrock", true},
		{"CoolGuy42", "", "", false},
		{"bedrock", "", "", false},
		{"java x", "", "", false},
		{"bedrock this_name_is_way_too_long_for_anyone", "", "", false},
		{"java bad!chars", "", "", false},
	}

	for _, c := range cases {
		tag, platform, ok := ExtractGamertag(c.in)
		if ok != c.ok || tag != c.tag || platform != c.platform {
			t.Errorf("ExtractGamertag(%q) = %q, %q, %v; want %q, %q, %v",
				c.in, tag, platform, ok, c.tag, c.platform, c.ok)
		}
	}
}

func newTestWhitelist(t *testing.T) (*WhitelistSystem, *storage.State) {
	t.Helper()
	dir := t.TempDir()
	state := storage.LoadState(filepath.Join(dir, "state.json"))
	store, err := storage.NewRequestStore("file", "", "", dir)
	if err != nil {
		t.Fatalf("request store: %v", err)
	}
	cfg := &config.Config{}
	cfg.Whitelist.CooldownHours = 24
	cfg.Whitelist.ConfirmTTLMinutes = 5
	return NewWhitelistSystem(cfg, state, store), state
}

func TestWhitelistSubmitConfirmFlow(t *testing.T) {
	w, _ := newTestWhitelist(t)
	now := time.Now()

	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A second submission while one is pending must be rejected.
	if err := w.Submit("u1", "steve", "Other", "Java", now); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	req, err := w.Confirm("u1", "CoolGuy42", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if req.Status != storage.RequestPending || req.Gamertag != "CoolGuy42" {
		t.Fatalf("unexpected confirmed request: %+v", req)
	}

	// Cooldown starts on confirm, not on submit.
	err = w.Submit("u1", "steve", "Another1", "Java", now.Add(2*time.Minute))
	var cd *CooldownActiveError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CooldownActiveError, got %v", err)
	}

	// After the cooldown the user can submit again.
	if err := w.Submit("u1", "steve", "Another1", "Java", now.Add(25*time.Hour)); err != nil {
		t.Fatalf("submit after cooldown: %v", err)
	}
}

func TestWhitelistExpiredTempDoesNotBlockResubmit(t *testing.T) {
	w, _ := newTestWhitelist(t)
	now := time.Now()

	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The user walked away without confirming and nothing swept the store.
	// Past the TTL the stale record must not count as pending.
	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("resubmit past TTL: %v", err)
	}
}

func TestWhitelistConfirmExpires(t *testing.T) {
	w, _ := newTestWhitelist(t)
	now := time.Now()

	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := w.Confirm("u1", "CoolGuy42", now.Add(10*time.Minute)); err == nil {
		t.Fatal("expected expired confirm to fail")
	}

	// The stale temp entry is cleaned up, so a fresh submit works.
	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now.Add(11*time.Minute)); err != nil {
		t.Fatalf("resubmit after expiry: %v", err)
	}
}

func TestWhitelistDenyBlocksUntilReset(t *testing.T) {
	w, state := newTestWhitelist(t)
	now := time.Now()

	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := w.Confirm("u1", "CoolGuy42", now); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	req, err := w.Deny("CoolGuy42")
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if req.UserID != "u1" {
		t.Fatalf("denied wrong user: %+v", req)
	}
	if !state.IsBlocked("u1") {
		t.Fatal("user not blocked after deny")
	}

	// The block outlives the cooldown.
	if err := w.Submit("u1", "steve", "NewTag42", "Java", now.Add(48*time.Hour)); !errors.Is(err, ErrAlreadyBlocked) {
		t.Fatalf("expected ErrAlreadyBlocked, got %v", err)
	}

	cleared, err := w.Reset("u1")
	if err != nil || !cleared {
		t.Fatalf("reset = %v, %v", cleared, err)
	}
	if err := w.Submit("u1", "steve", "NewTag42", "Java", now.Add(48*time.Hour)); err != nil {
		t.Fatalf("submit after reset: %v", err)
	}
}

func TestWhitelistApproveRemovesRequest(t *testing.T) {
	w, _ := newTestWhitelist(t)
	now := time.Now()

	if err := w.Submit("u1", "steve", "CoolGuy42", "Bedrock", now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := w.Confirm("u1", "CoolGuy42", now); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	req, err := w.Approve("CoolGuy42")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.Platform != "Bedrock" {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := w.Approve("CoolGuy42"); err == nil {
		t.Fatal("second approve should fail, request already consumed")
	}
}
