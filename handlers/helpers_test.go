// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"testing"
	"time"

	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/db"
	"github.com/danielhkuo/quick-poll/live"
	"github.com/danielhkuo/quick-poll/testutil"
	"github.com/danielhkuo/quick-poll/vote"
)

type testEnv struct {
	cfg         cliparse.Config
	store       *db.Store
	verifier    *testutil.FakeVerifier
	registry    *live.Registry
	broadcaster *live.Broadcaster

	polls  *PollHandler
	voting *VotingHandler
	live   *LiveHandler
	stats  *StatsHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		cfg:      testutil.GetTestConfig(),
		store:    testutil.SetupTestStore(t),
		verifier: &testutil.FakeVerifier{},
		registry: live.NewRegistry(),
	}
	env.broadcaster = live.NewBroadcaster(env.registry, time.Second)

	engine := vote.NewEngine(env.store, env.verifier, env.broadcaster)
	env.polls = NewPollHandler(env.store, env.verifier, env.broadcaster, env.cfg)
	env.voting = NewVotingHandler(engine, env.cfg)
	env.live = NewLiveHandler(env.store, env.broadcaster, []string{"*"})
	env.stats = NewStatsHandler(env.store)

	return env
}
