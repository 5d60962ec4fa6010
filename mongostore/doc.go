// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package mongostore implements store.PollStore on MongoDB using globalsign/mgo.

	s, err := mongostore.Open("mongodb://localhost:27017/quickpoll")

Each poll is one document in the polls collection. The voter fingerprints
live in a voters array that is never loaded back; membership is checked with
a count query.

A vote is one findAndModify whose selector requires the fingerprint to be
absent, so two concurrent votes with the same fingerprint cannot both match.
When nothing matches, follow-up counts decide between ErrNotFound,
ErrAlreadyVoted and ErrUnknownOption.

Expired polls are removed by a TTL index on expire_at. Global counters are a
single document in the stats collection.
*/
package mongostore
