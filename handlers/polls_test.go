// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/testutil"
	"github.com/danielhkuo/quick-poll/verify"
)

func boolPtr(b bool) *bool { return &b }

func createPoll(t *testing.T, env *testEnv, req models.CreatePollRequest) models.PollCreatedResponse {
	t.Helper()

	w := httptest.NewRecorder()
	env.polls.CreatePoll(w, testutil.MakeRequest("POST", "/api/polls", req, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp models.PollCreatedResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func TestCreatePoll(t *testing.T) {
	env := setupEnv(t)

	before := time.Now().UTC()
	resp := createPoll(t, env, models.CreatePollRequest{
		Question:      "  Cats or dogs?  ",
		Options:       []string{"Cats", " Dogs "},
		DurationHours: 2,
		Theme:         "dark",
	})

	if len(strings.Split(resp.PollID, "-")) != 3 {
		t.Errorf("Expected three-word poll ID, got %q", resp.PollID)
	}
	if len(resp.CreatorKey) < 40 {
		t.Errorf("Expected a long creator key, got %q", resp.CreatorKey)
	}
	if resp.Question != "Cats or dogs?" {
		t.Errorf("Expected trimmed question, got %q", resp.Question)
	}

	activeFor := resp.ActiveUntil.Sub(before)
	if activeFor < 2*time.Hour-time.Minute || activeFor > 2*time.Hour+time.Minute {
		t.Errorf("Expected active_until about 2h out, got %v", activeFor)
	}
	if !resp.ExpireAt.After(resp.ActiveUntil) {
		t.Errorf("Expected expire_at after active_until, got %v / %v", resp.ExpireAt, resp.ActiveUntil)
	}

	poll, err := env.store.Find(context.Background(), resp.PollID)
	if err != nil {
		t.Fatalf("Poll not stored: %v", err)
	}
	if poll.Options[1].Text != "Dogs" || len(poll.Options[0].ID) != 32 {
		t.Errorf("Unexpected stored options: %+v", poll.Options)
	}
	if !poll.PublicResults || poll.Theme != "dark" {
		t.Errorf("Expected default public results and theme dark, got %+v", poll)
	}

	stats, _ := env.store.Stats(context.Background())
	if stats[store.StatPollsCreated] != 1 {
		t.Errorf("Expected total_polls_created 1, got %d", stats[store.StatPollsCreated])
	}
}

func TestCreatePoll_Defaults(t *testing.T) {
	env := setupEnv(t)

	resp := createPoll(t, env, models.CreatePollRequest{
		Question: "Lunch?",
		Options:  []string{"Pizza", "Tacos"},
	})

	poll, _ := env.store.Find(context.Background(), resp.PollID)
	if d := poll.ActiveUntil.Sub(poll.CreatedAt); d != DefaultDurationHours*time.Hour {
		t.Errorf("Expected default duration %dh, got %v", DefaultDurationHours, d)
	}
	if poll.Theme != models.DefaultTheme {
		t.Errorf("Expected default theme, got %q", poll.Theme)
	}
}

func TestCreatePoll_Validation(t *testing.T) {
	env := setupEnv(t)
	long := strings.Repeat("x", models.MaxQuestionLength+1)

	testCases := []struct {
		name string
		req  models.CreatePollRequest
	}{
		{"missing question", models.CreatePollRequest{Options: []string{"A", "B"}}},
		{"blank question", models.CreatePollRequest{Question: "   ", Options: []string{"A", "B"}}},
		{"question too long", models.CreatePollRequest{Question: long, Options: []string{"A", "B"}}},
		{"one option", models.CreatePollRequest{Question: "Q", Options: []string{"A"}}},
		{"eleven options", models.CreatePollRequest{Question: "Q", Options: strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")}},
		{"blank option", models.CreatePollRequest{Question: "Q", Options: []string{"A", " "}}},
		{"duplicate options", models.CreatePollRequest{Question: "Q", Options: []string{"Yes", "yes"}}},
		{"negative duration", models.CreatePollRequest{Question: "Q", Options: []string{"A", "B"}, DurationHours: -1}},
		{"duration past expiry", models.CreatePollRequest{Question: "Q", Options: []string{"A", "B"}, DurationHours: 169}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.polls.CreatePoll(w, testutil.MakeRequest("POST", "/api/polls", tc.req, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}

	if env.verifier.Calls.Load() != 0 {
		t.Error("Verifier must not be called for invalid requests")
	}
}

func TestCreatePoll_InvalidJSON(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest("POST", "/api/polls", strings.NewReader("{nope"))
	w := httptest.NewRecorder()
	env.polls.CreatePoll(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestCreatePoll_Verification(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"rejected", verify.ErrRejected, http.StatusBadRequest},
		{"unavailable", errors.Wrap(verify.ErrUnavailable, "timeout"), http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupEnv(t)
			env.verifier.Err = tc.err

			w := httptest.NewRecorder()
			env.polls.CreatePoll(w, testutil.MakeRequest("POST", "/api/polls", models.CreatePollRequest{
				Question: "Q", Options: []string{"A", "B"},
			}, nil))

			testutil.AssertStatus(t, w, tc.expected)

			stats, _ := env.store.Stats(context.Background())
			if stats[store.StatPollsCreated] != 0 {
				t.Error("Failed verification must not create a poll")
			}
		})
	}
}

func TestGetPoll(t *testing.T) {
	env := setupEnv(t)
	poll := testutil.CreateTestPoll(t, env.store, nil, "Cats", "Dogs")

	req := testutil.MakeRequest("GET", "/api/polls/"+poll.PollID, nil, nil)
	req.SetPathValue("id", poll.PollID)
	w := httptest.NewRecorder()
	env.polls.GetPoll(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	body := w.Body.String()
	if strings.Contains(body, poll.CreatorKey) || strings.Contains(body, "creator_key") {
		t.Error("Public view must not include the creator key")
	}
	if strings.Contains(body, `"votes"`) {
		t.Error("Public view must not include the tally")
	}

	var resp models.PollPublic
	testutil.AssertJSON(t, w, &resp)
	if resp.PollID != poll.PollID || len(resp.Options) != 2 {
		t.Errorf("Unexpected public view: %+v", resp)
	}
}

func TestGetPoll_NotFound(t *testing.T) {
	env := setupEnv(t)

	req := testutil.MakeRequest("GET", "/api/polls/nope", nil, nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()
	env.polls.GetPoll(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetResults(t *testing.T) {
	env := setupEnv(t)
	public := testutil.CreateTestPoll(t, env.store, nil, "Cats", "Dogs")
	private := testutil.CreateTestPoll(t, env.store, func(p *models.Poll) {
		p.PublicResults = false
	}, "Cats", "Dogs")

	env.store.ApplyVote(context.Background(), public.PollID, []string{testutil.OptionID(0)}, "fp", time.Now())

	testCases := []struct {
		name     string
		pollID   string
		key      string
		expected int
	}{
		{"public without key", public.PollID, "", http.StatusOK},
		{"private without key", private.PollID, "", http.StatusForbidden},
		{"private with wrong key", private.PollID, "wrong", http.StatusForbidden},
		{"private with creator key", private.PollID, private.CreatorKey, http.StatusOK},
		{"unknown poll", "nope", "", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.key != "" {
				headers["X-Creator-Key"] = tc.key
			}
			req := testutil.MakeRequest("GET", "/api/polls/"+tc.pollID+"/results", nil, headers)
			req.SetPathValue("id", tc.pollID)
			w := httptest.NewRecorder()

			env.polls.GetResults(w, req)

			testutil.AssertStatus(t, w, tc.expected)
		})
	}

	// Tally includes every option, zero for unpicked
	req := testutil.MakeRequest("GET", "/api/polls/"+public.PollID+"/results", nil, nil)
	req.SetPathValue("id", public.PollID)
	w := httptest.NewRecorder()
	env.polls.GetResults(w, req)

	var results models.PollResults
	testutil.AssertJSON(t, w, &results)
	dogs, ok := results.Votes[testutil.OptionID(1)]
	if results.Votes[testutil.OptionID(0)] != 1 || !ok || dogs != 0 {
		t.Errorf("Expected {Cats:1, Dogs:0}, got %v", results.Votes)
	}
	if results.VoterCount != 1 {
		t.Errorf("Expected voter_count 1, got %d", results.VoterCount)
	}
}

func TestDeletePoll(t *testing.T) {
	env := setupEnv(t)
	poll := testutil.CreateTestPoll(t, env.store, nil, "Cats", "Dogs")

	observer := &testutil.RecordingObserver{}
	env.broadcaster.Subscribe(poll.PollID, observer)

	del := func(pollID, key string) *httptest.ResponseRecorder {
		headers := map[string]string{}
		if key != "" {
			headers["X-Creator-Key"] = key
		}
		req := testutil.MakeRequest("DELETE", "/api/polls/"+pollID, nil, headers)
		req.SetPathValue("id", pollID)
		w := httptest.NewRecorder()
		env.polls.DeletePoll(w, req)
		return w
	}

	testutil.AssertStatus(t, del(poll.PollID, ""), http.StatusForbidden)
	testutil.AssertStatus(t, del(poll.PollID, "wrong"), http.StatusForbidden)
	testutil.AssertStatus(t, del("nope", poll.CreatorKey), http.StatusForbidden)

	if observer.Closed() {
		t.Fatal("Observer closed by a rejected delete")
	}

	testutil.AssertStatus(t, del(poll.PollID, poll.CreatorKey), http.StatusNoContent)

	if _, err := env.store.Find(context.Background(), poll.PollID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected poll gone, got %v", err)
	}
	if !observer.Closed() || env.registry.Len(poll.PollID) != 0 {
		t.Error("Expected live observers of the deleted poll to be closed")
	}

	// Second delete looks the same as a wrong key
	testutil.AssertStatus(t, del(poll.PollID, poll.CreatorKey), http.StatusForbidden)
}

func TestGetStats(t *testing.T) {
	env := setupEnv(t)

	createPoll(t, env, models.CreatePollRequest{Question: "Q1", Options: []string{"A", "B"}})
	resp := createPoll(t, env, models.CreatePollRequest{Question: "Q2", Options: []string{"A", "B"}, PublicResults: boolPtr(false)})

	poll, _ := env.store.Find(context.Background(), resp.PollID)
	if poll.PublicResults {
		t.Error("Expected public_results false to be honored")
	}

	req := testutil.MakeRequest("GET", "/api/stats", nil, nil)
	w := httptest.NewRecorder()
	env.stats.GetStats(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var stats models.StatsResponse
	testutil.AssertJSON(t, w, &stats)
	if stats.TotalPollsCreated != 2 || stats.TotalVotesCast != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
