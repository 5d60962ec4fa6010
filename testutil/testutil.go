// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/quick-poll/auth"
	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/db"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
)

// Environment variables that enable the optional backend tests
const (
	PostgresURLEnv = "TEST_POSTGRES_URL"
	MongoURLEnv    = "TEST_MONGO_URL"
)

// SetupTestStore opens a fresh SQLite store in a temp directory
func SetupTestStore(t *testing.T) *db.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quickpoll.db")
	s, err := db.Open(db.DialectSQLite, "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              8000,
		DatabaseURL:       "file::memory:",
		DatabaseType:      cliparse.DatabaseSQLite,
		TurnstileDisabled: true,
		TurnstileURL:      cliparse.DefaultTurnstileURL,
		VerifyTimeout:     time.Second,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimitInterval: time.Millisecond,
		RateLimitBurst:    1000,
		PollLifetime:      7 * 24 * time.Hour,
		SweepInterval:     time.Minute,
		BroadcastTimeout:  time.Second,
	}
}

// NewTestPoll builds an unsaved poll with one option per label, active for
// an hour. Options get stable IDs "opt-0", "opt-1", ...
func NewTestPoll(t *testing.T, labels ...string) *models.Poll {
	t.Helper()

	pollID, err := auth.GenerateID(8)
	if err != nil {
		t.Fatalf("Failed to generate poll ID: %v", err)
	}
	creatorKey, err := auth.GenerateCreatorKey()
	if err != nil {
		t.Fatalf("Failed to generate creator key: %v", err)
	}

	now := time.Now().UTC()
	poll := &models.Poll{
		PollID:        pollID,
		CreatorKey:    creatorKey,
		Question:      "Test question?",
		PublicResults: true,
		Theme:         models.DefaultTheme,
		Votes:         models.Tally{},
		Voters:        models.NewVoterSet(),
		CreatedAt:     now,
		ActiveUntil:   now.Add(time.Hour),
		ExpireAt:      now.Add(7 * 24 * time.Hour),
	}
	for i, label := range labels {
		poll.Options = append(poll.Options, models.Option{ID: OptionID(i), Text: label})
	}

	return poll
}

// OptionID returns the ID NewTestPoll gives the i-th option
func OptionID(i int) string {
	return "opt-" + strconv.Itoa(i)
}

// CreateTestPoll saves a poll built by NewTestPoll after applying edit
func CreateTestPoll(t *testing.T, s store.PollStore, edit func(*models.Poll), labels ...string) *models.Poll {
	t.Helper()

	poll := NewTestPoll(t, labels...)
	if edit != nil {
		edit(poll)
	}
	if err := s.Create(context.Background(), poll); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return poll
}

// FakeVerifier returns Err for every call and counts calls
type FakeVerifier struct {
	Err   error
	Calls atomic.Int64
}

func (f *FakeVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	f.Calls.Add(1)
	return f.Err
}

// RecordingObserver remembers every push it receives
type RecordingObserver struct {
	PushErr error

	mu     sync.Mutex
	pushes []models.PollResults
	closed bool
}

func (o *RecordingObserver) Push(ctx context.Context, results models.PollResults) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.PushErr != nil {
		return o.PushErr
	}
	o.pushes = append(o.pushes, results)
	return nil
}

func (o *RecordingObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// Pushes returns a copy of the received pushes
func (o *RecordingObserver) Pushes() []models.PollResults {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.PollResults(nil), o.pushes...)
}

func (o *RecordingObserver) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
