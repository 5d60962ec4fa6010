// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package verify talks to the human-verification service (Cloudflare Turnstile).

	v := verify.NewTurnstile(cfg.TurnstileSecretKey, cfg.TurnstileURL, cfg.VerifyTimeout)
	err := v.Verify(ctx, token, clientIP)

Verify returns one of three results:

  - nil: the token is valid
  - ErrRejected: the service refused the token (the user can retry with a fresh one)
  - an error matching ErrUnavailable: timeout, network failure, non-2xx or
    undecodable answer

The call is bounded by the configured timeout and is never retried, since a
token is single-use.
*/
package verify
