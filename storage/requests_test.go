package storage

import (
	"testing"
	"time"
)

func newTestRequestStore(t *testing.T) RequestStore {
	t.Helper()
	store, err := NewRequestStore("file", "", "", t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestRequestStoreCRUD(t *testing.T) {
	store := newTestRequestStore(t)
	now := time.Now()

	req := Request{
		Gamertag:    "CoolGuy42",
		Platform:    "bedrock",
		UserID:      "u1",
		Username:    "steve",
		RequestedAt: now,
		Status:      RequestPending,
	}
	if err := store.Put("CoolGuy42", req); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get("CoolGuy42")
	if err != nil || !ok {
		t.Fatalf("get: %v, %v", ok, err)
	}
	if got.UserID != "u1" || got.Platform != "bedrock" {
		t.Fatalf("mangled request: %+v", got)
	}

	keys, err := store.KeysForUser("u1")
	if err != nil || len(keys) != 1 || keys[0] != "CoolGuy42" {
		t.Fatalf("KeysForUser = %v, %v", keys, err)
	}
	if keys, _ := store.KeysForUser("stranger"); len(keys) != 0 {
		t.Fatalf("stranger has keys: %v", keys)
	}

	if err := store.Delete("CoolGuy42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get("CoolGuy42"); ok {
		t.Fatal("request survived delete")
	}
	// Deleting a missing key is fine.
	if err := store.Delete("CoolGuy42"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRequestStoreExpireTemp(t *testing.T) {
	store := newTestRequestStore(t)
	now := time.Now()

	_ = store.Put(TempKey("u1", "Stale"), Request{
		Gamertag: "Stale", UserID: "u1",
		ExpiresAt: now.Add(-time.Minute),
		Status:    RequestPendingConfirmation,
	})
	_ = store.Put(TempKey("u2", "Fresh"), Request{
		Gamertag: "Fresh", UserID: "u2",
		ExpiresAt: now.Add(time.Hour),
		Status:    RequestPendingConfirmation,
	})
	_ = store.Put("Confirmed", Request{
		Gamertag: "Confirmed", UserID: "u3",
		Status: RequestPending,
	})

	if err := store.ExpireTemp(now); err != nil {
		t.Fatalf("expire: %v", err)
	}

	if _, ok, _ := store.Get(TempKey("u1", "Stale")); ok {
		t.Fatal("expired temp request survived")
	}
	if _, ok, _ := store.Get(TempKey("u2", "Fresh")); !ok {
		t.Fatal("fresh temp request was dropped")
	}
	if _, ok, _ := store.Get("Confirmed"); !ok {
		t.Fatal("confirmed request was dropped")
	}
}
