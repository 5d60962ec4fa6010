// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/db"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/testutil"
)

// forEachStore runs fn against SQLite, and against PostgreSQL when
// TEST_POSTGRES_URL is set
func forEachStore(t *testing.T, fn func(t *testing.T, s *db.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, testutil.SetupTestStore(t))
	})

	t.Run("postgres", func(t *testing.T) {
		url := os.Getenv(testutil.PostgresURLEnv)
		if url == "" {
			t.Skip(testutil.PostgresURLEnv + " not set")
		}

		s, err := db.Open(db.DialectPostgres, url)
		if err != nil {
			t.Fatalf("Failed to open postgres: %v", err)
		}
		_, err = s.DB().Exec(`TRUNCATE poll_voter, poll_option, poll, stats`)
		if err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
		t.Cleanup(func() { s.Close() })

		fn(t, s)
	})
}

func TestCreateAndFind(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, func(p *models.Poll) {
			p.AllowMultipleChoices = true
			p.PublicResults = false
			p.Theme = "dark"
		}, "Cats", "Dogs", "Birds")

		got, err := s.Find(ctx, poll.PollID)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}

		if got.Question != poll.Question || got.CreatorKey != poll.CreatorKey || got.Theme != "dark" {
			t.Errorf("Poll fields not round-tripped: %+v", got)
		}
		if !got.AllowMultipleChoices || got.PublicResults {
			t.Errorf("Expected multiple choice and private results, got %+v", got)
		}
		if len(got.Options) != 3 {
			t.Fatalf("Expected 3 options, got %d", len(got.Options))
		}
		for i, opt := range got.Options {
			if opt != poll.Options[i] {
				t.Errorf("Option %d: expected %+v, got %+v", i, poll.Options[i], opt)
			}
			if got.Votes[opt.ID] != 0 {
				t.Errorf("Expected zero votes for %s, got %d", opt.ID, got.Votes[opt.ID])
			}
		}
		if got.ActiveUntil.Location() != time.UTC {
			t.Errorf("Expected UTC instants, got %v", got.ActiveUntil.Location())
		}
		if !got.ActiveUntil.Equal(poll.ActiveUntil.Truncate(time.Millisecond)) {
			t.Errorf("Expected active_until %v, got %v", poll.ActiveUntil, got.ActiveUntil)
		}
	})
}

func TestCreate_DuplicateID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")

		dup := testutil.NewTestPoll(t, "C", "D")
		dup.PollID = poll.PollID

		err := s.Create(context.Background(), dup)
		if !errors.Is(err, store.ErrDuplicateID) {
			t.Errorf("Expected ErrDuplicateID, got %v", err)
		}
	})
}

func TestFind_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		_, err := s.Find(context.Background(), "no-such-poll")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		_, err = s.FindForVote(context.Background(), "no-such-poll", "fp")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound from FindForVote, got %v", err)
		}
	})
}

func TestApplyVote(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, func(p *models.Poll) {
			p.AllowMultipleChoices = true
		}, "A", "B", "C")
		a, b, c := testutil.OptionID(0), testutil.OptionID(1), testutil.OptionID(2)

		after, err := s.ApplyVote(ctx, poll.PollID, []string{a, c}, "fp-1", time.Now())
		if err != nil {
			t.Fatalf("ApplyVote failed: %v", err)
		}
		if after.Votes[a] != 1 || after.Votes[b] != 0 || after.Votes[c] != 1 {
			t.Errorf("Unexpected tally after vote: %v", after.Votes)
		}
		if after.VoterCount != 1 {
			t.Errorf("Expected voter count 1, got %d", after.VoterCount)
		}
		if !after.Voters.Contains("fp-1") {
			t.Error("Expected post-write snapshot to contain the voter")
		}

		_, err = s.ApplyVote(ctx, poll.PollID, []string{b}, "fp-1", time.Now())
		if !errors.Is(err, store.ErrAlreadyVoted) {
			t.Errorf("Expected ErrAlreadyVoted, got %v", err)
		}

		got, err := s.Find(ctx, poll.PollID)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if got.Votes[b] != 0 || got.VoterCount != 1 {
			t.Errorf("Rejected vote changed the poll: votes=%v voters=%d", got.Votes, got.VoterCount)
		}
	})
}

func TestApplyVote_UnknownPollAndOption(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()

		_, err := s.ApplyVote(ctx, "no-such-poll", []string{"x"}, "fp", time.Now())
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}

		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")
		_, err = s.ApplyVote(ctx, poll.PollID, []string{"missing"}, "fp", time.Now())
		if !errors.Is(err, store.ErrUnknownOption) {
			t.Errorf("Expected ErrUnknownOption, got %v", err)
		}

		// The failed write must leave nothing behind
		got, _ := s.FindForVote(ctx, poll.PollID, "fp")
		if got.Voters.Contains("fp") || got.VoterCount != 0 {
			t.Errorf("Expected rollback, got voters=%d", got.VoterCount)
		}
	})
}

func TestApplyVote_ConcurrentSameFingerprint(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")

		const numVoters = 20
		var successCount, dupCount atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < numVoters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ApplyVote(ctx, poll.PollID, []string{testutil.OptionID(0)}, "same-fp", time.Now())
				if err == nil {
					successCount.Add(1)
				} else if errors.Is(err, store.ErrAlreadyVoted) {
					dupCount.Add(1)
				} else {
					t.Errorf("Unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if successCount.Load() != 1 {
			t.Errorf("Expected exactly 1 admitted vote, got %d", successCount.Load())
		}
		if dupCount.Load() != numVoters-1 {
			t.Errorf("Expected %d duplicates, got %d", numVoters-1, dupCount.Load())
		}

		got, _ := s.Find(ctx, poll.PollID)
		if got.Votes[testutil.OptionID(0)] != 1 || got.VoterCount != 1 {
			t.Errorf("Expected one counted vote, got votes=%v voters=%d", got.Votes, got.VoterCount)
		}
	})
}

func TestApplyVote_ClosedAtWrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")
		stored, _ := s.Find(ctx, poll.PollID)

		_, err := s.ApplyVote(ctx, poll.PollID, []string{testutil.OptionID(0)}, "late", stored.ActiveUntil)
		if !errors.Is(err, store.ErrClosed) {
			t.Fatalf("Expected ErrClosed at active_until, got %v", err)
		}

		got, _ := s.FindForVote(ctx, poll.PollID, "late")
		if got.Voters.Contains("late") || got.VoterCount != 0 || got.Votes[testutil.OptionID(0)] != 0 {
			t.Errorf("Closed write left state behind: votes=%v voters=%d", got.Votes, got.VoterCount)
		}

		if _, err := s.ApplyVote(ctx, poll.PollID, []string{testutil.OptionID(0)}, "late", stored.ActiveUntil.Add(-time.Millisecond)); err != nil {
			t.Errorf("Expected vote just before active_until to be written, got %v", err)
		}
	})
}

func TestFind_HidesExpiredBeforeSweep(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		expired := testutil.CreateTestPoll(t, s, func(p *models.Poll) {
			p.ActiveUntil = now.Add(-2 * time.Hour)
			p.ExpireAt = now.Add(-time.Minute)
		}, "A", "B")

		if _, err := s.Find(ctx, expired.PollID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected expired poll hidden from Find, got %v", err)
		}
		if _, err := s.FindForVote(ctx, expired.PollID, "fp"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected expired poll hidden from FindForVote, got %v", err)
		}

		// Still visible with a clock before expiry, and still swept
		s.Now = func() time.Time { return now.Add(-time.Hour) }
		if _, err := s.Find(ctx, expired.PollID); err != nil {
			t.Errorf("Expected poll visible before expire_at, got %v", err)
		}
		s.Now = time.Now

		removed, err := s.Sweep(ctx, now)
		if err != nil || len(removed) != 1 {
			t.Errorf("Expected hidden poll to be swept, got %v, %v", removed, err)
		}
	})
}

func TestFindForVote_Membership(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")

		if _, err := s.ApplyVote(ctx, poll.PollID, []string{testutil.OptionID(1)}, "voted", time.Now()); err != nil {
			t.Fatalf("ApplyVote failed: %v", err)
		}

		got, err := s.FindForVote(ctx, poll.PollID, "voted")
		if err != nil {
			t.Fatalf("FindForVote failed: %v", err)
		}
		if !got.Voters.Contains("voted") {
			t.Error("Expected fingerprint to be a member")
		}

		got, err = s.FindForVote(ctx, poll.PollID, "fresh")
		if err != nil {
			t.Fatalf("FindForVote failed: %v", err)
		}
		if got.Voters.Contains("fresh") || len(got.Voters) != 0 {
			t.Errorf("Expected empty voter set, got %v", got.Voters)
		}
	})
}

func TestDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		poll := testutil.CreateTestPoll(t, s, nil, "A", "B")
		s.ApplyVote(ctx, poll.PollID, []string{testutil.OptionID(0)}, "fp", time.Now())

		n, err := s.Delete(ctx, poll.PollID, "wrong-key")
		if err != nil || n != 0 {
			t.Errorf("Expected nothing deleted with wrong key, got n=%d err=%v", n, err)
		}

		n, err = s.Delete(ctx, poll.PollID, poll.CreatorKey)
		if err != nil || n != 1 {
			t.Errorf("Expected one poll deleted, got n=%d err=%v", n, err)
		}

		if _, err := s.Find(ctx, poll.PollID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}

		// Same ID can be reused once children are gone
		again := testutil.NewTestPoll(t, "A", "B")
		again.PollID = poll.PollID
		if err := s.Create(ctx, again); err != nil {
			t.Errorf("Expected ID to be reusable after delete, got %v", err)
		}
	})
}

func TestSweep(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		expired := testutil.CreateTestPoll(t, s, func(p *models.Poll) {
			p.CreatedAt = now.Add(-8 * 24 * time.Hour)
			p.ActiveUntil = now.Add(-7 * 24 * time.Hour)
			p.ExpireAt = now.Add(-time.Hour)
		}, "A", "B")
		live := testutil.CreateTestPoll(t, s, nil, "A", "B")

		removed, err := s.Sweep(ctx, now)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if len(removed) != 1 || removed[0] != expired.PollID {
			t.Errorf("Expected [%s] removed, got %v", expired.PollID, removed)
		}

		if _, err := s.Find(ctx, expired.PollID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected expired poll gone, got %v", err)
		}
		if _, err := s.Find(ctx, live.PollID); err != nil {
			t.Errorf("Expected live poll kept, got %v", err)
		}

		removed, err = s.Sweep(ctx, now)
		if err != nil || len(removed) != 0 {
			t.Errorf("Expected empty second sweep, got %v, %v", removed, err)
		}
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *db.Store) {
		ctx := context.Background()

		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if len(stats) != 0 {
			t.Errorf("Expected no stats yet, got %v", stats)
		}

		for i := 0; i < 3; i++ {
			if err := s.IncrementStat(ctx, store.StatVotesCast); err != nil {
				t.Fatalf("IncrementStat failed: %v", err)
			}
		}
		s.IncrementStat(ctx, store.StatPollsCreated)

		stats, _ = s.Stats(ctx)
		if stats[store.StatVotesCast] != 3 || stats[store.StatPollsCreated] != 1 {
			t.Errorf("Unexpected stats: %v", stats)
		}
	})
}
