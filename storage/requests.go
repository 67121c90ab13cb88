package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Whitelist request statuses.
const (
	RequestPendingConfirmation = "pending_confirmation"
	RequestPending             = "pending"
)

// Request is a whitelist application keyed by gamertag. Unconfirmed ones are
// stored under "temp_<userID>_<gamertag>" until the user clicks confirm.
type Request struct {
	Gamertag       string    `json:"gamertag"        bson:"gamertag"`
	Platform       string    `json:"platform"        bson:"platform"`
	UserID         string    `json:"user_id"         bson:"user_id"`
	Username       string    `json:"username"        bson:"username"`
	RequestedAt    time.Time `json:"requested_at"    bson:"requested_at"`
	ConfirmedAt    time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"   bson:"expires_at,omitempty"`
	StaffMessageID string    `json:"staff_message_id,omitempty" bson:"staff_message_id,omitempty"`
	Status         string    `json:"status"          bson:"status"`
}

func TempKey(userID, gamertag string) string {
	return "temp_" + userID + "_" + gamertag
}

type RequestStore interface {
	Put(key string, r Request) error

	Get(key string) (Request, bool, error)

	Delete(key string) error

	KeysForUser(userID string) ([]string, error)

	// ExpireTemp drops unconfirmed requests whose confirmation window ended.
	ExpireTemp(now time.Time) error

	Close() error
}

// NewRequestStore picks the whitelist request backend from config. Anything
// other than mongodb uses the JSON file store.
func NewRequestStore(backend, uri, database, dataDir string) (RequestStore, error) {
	switch backend {
	case "mongodb":
		s, err := newMongoRequestStore(uri, database)
		if err != nil {
			return nil, err
		}
		log.Println("[Whitelist] Request backend: mongodb")
		return s, nil
	default:
		log.Println("[Whitelist] Request backend: file")
		return newFileRequestStore(filepath.Join(dataDir, "whitelist_requests.json"))
	}
}

type fileRequestStore struct {
	mu       sync.Mutex
	path     string
	requests map[string]Request
}

func newFileRequestStore(path string) (*fileRequestStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	s := &fileRequestStore{path: path, requests: make(map[string]Request)}
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &s.requests)
	}
	return s, nil
}

func (f *fileRequestStore) flush() error {
	data, err := json.MarshalIndent(f.requests, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

func (f *fileRequestStore) Put(key string, r Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[key] = r
	return f.flush()
}

func (f *fileRequestStore) Get(key string) (Request, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[key]
	return r, ok, nil
}

func (f *fileRequestStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[key]; !ok {
		return nil
	}
	delete(f.requests, key)
	return f.flush()
}

func (f *fileRequestStore) KeysForUser(userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k, r := range f.requests {
		if r.UserID == userID {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fileRequestStore) ExpireTemp(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := false
	for k, r := range f.requests {
		if strings.HasPrefix(k, "temp_") && !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt) {
			delete(f.requests, k)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return f.flush()
}

func (f *fileRequestStore) Close() error { return nil }

type mongoRequestStore struct {
	client   *mongo.Client
	requests *mongo.Collection
}

type requestDoc struct {
	Key     string `bson:"_id"`
	Request `bson:",inline"`
}

func newMongoRequestStore(uri, database string) (*mongoRequestStore, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("database.mongodb.uri and database.mongodb.database must be set in config.json to use request_backend=mongodb")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &mongoRequestStore{
		client:   client,
		requests: client.Database(database).Collection("whitelist_requests"),
	}

	store.requests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})

	return store, nil
}

func (m *mongoRequestStore) Put(key string, r Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.requests.ReplaceOne(
		ctx,
		bson.M{"_id": key},
		requestDoc{Key: key, Request: r},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *mongoRequestStore) Get(key string) (Request, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var doc requestDoc
	err := m.requests.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	return doc.Request, true, nil
}

func (m *mongoRequestStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.requests.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *mongoRequestStore) KeysForUser(userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := m.requests.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc requestDoc
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		keys = append(keys, doc.Key)
	}
	return keys, cursor.Err()
}

func (m *mongoRequestStore) ExpireTemp(now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := m.requests.DeleteMany(ctx, bson.M{
		"status":     RequestPendingConfirmation,
		"expires_at": bson.M{"$lt": now, "$gt": time.Time{}},
	})
	return err
}

func (m *mongoRequestStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
