// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier generation and creator-key checks.

# Poll IDs

Poll IDs are human-readable three-word identifiers:

	id, err := auth.GeneratePollID() // "sleepy-blue-toaster"

The word space is small (15^3), so the store enforces uniqueness and the
caller retries on collision.

# Creator Keys

The creator key is a random 32-byte (256-bit) secret returned once at
creation time:

	key, err := auth.GenerateCreatorKey()
	err = auth.ValidateCreatorKey(provided, poll.CreatorKey)

Comparison runs in constant time. Possession of the key is the only
authority in the system: it unlocks private results and deletion.

	if auth.CanViewResults(poll.PublicResults, provided, poll.CreatorKey) { ... }

# Option IDs

	id := auth.GenerateOptionID() // 32 hex chars (UUIDv4 without dashes)

# ID Generation

Random hex IDs for records:

	id, err := auth.GenerateID(12) // 24 hex characters
*/
package auth
