// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "quickpoll"

const (
	NameVotes         = "votes_total"
	NamePollsCreated  = "polls_created_total"
	NameSweptPolls    = "swept_polls_total"
	NameLiveObservers = "live_observers"
	NameBroadcastPush = "broadcast_pushes_total"
	NameVerifications = "verifications_total"
	LabelOutcome      = "outcome"
	LabelResult       = "result"
)

// Votes counts every vote request by outcome (admitted, closed, ...)
var Votes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameVotes,
		Help:      "Vote requests by outcome",
		Namespace: Namespace,
	},
	[]string{LabelOutcome},
)

var PollsCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NamePollsCreated,
		Help:      "Polls created",
		Namespace: Namespace,
	},
)

var SweptPolls = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameSweptPolls,
		Help:      "Expired polls removed by the sweeper",
		Namespace: Namespace,
	},
)

var LiveObservers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name:      NameLiveObservers,
		Help:      "Currently connected live result observers",
		Namespace: Namespace,
	},
)

// BroadcastPushes counts pushes to observers by result (delivered, failed)
var BroadcastPushes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameBroadcastPush,
		Help:      "Live result pushes by result",
		Namespace: Namespace,
	},
	[]string{LabelResult},
)

// Verifications counts human verification calls by result (valid, rejected, unavailable)
var Verifications = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameVerifications,
		Help:      "Human verification calls by result",
		Namespace: Namespace,
	},
	[]string{LabelResult},
)
