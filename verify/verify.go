// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/metrics"
)

var (
	// ErrRejected means the service looked at the token and said no
	ErrRejected = errors.New("verification token rejected")
	// ErrUnavailable means no answer could be obtained (timeout, network, 5xx)
	ErrUnavailable = errors.New("verification service unavailable")
)

// Verifier checks a proof-of-humanness token
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Turnstile verifies tokens against Cloudflare Turnstile's siteverify endpoint
type Turnstile struct {
	secret  string
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewTurnstile(secret, url string, timeout time.Duration) *Turnstile {
	return &Turnstile{
		secret:  secret,
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type siteverifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns nil, ErrRejected, or an error wrapping ErrUnavailable
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		metrics.Verifications.WithLabelValues("rejected").Inc()
		return ErrRejected
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	body, err := json.Marshal(siteverifyRequest{Secret: t.secret, Response: token, RemoteIP: remoteIP})
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	// No retry: a Turnstile token can only be redeemed once
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.Verifications.WithLabelValues("unavailable").Inc()
		return errors.Wrapf(ErrUnavailable, "siteverify request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Verifications.WithLabelValues("unavailable").Inc()
		return errors.Wrapf(ErrUnavailable, "siteverify returned status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.Verifications.WithLabelValues("unavailable").Inc()
		return errors.Wrapf(ErrUnavailable, "could not decode siteverify response: %v", err)
	}

	if !result.Success {
		metrics.Verifications.WithLabelValues("rejected").Inc()
		slog.Info("turnstile verification failed", "error_codes", result.ErrorCodes)
		return ErrRejected
	}

	metrics.Verifications.WithLabelValues("valid").Inc()
	return nil
}

// Disabled accepts every token. Development only.
type Disabled struct{}

func (Disabled) Verify(ctx context.Context, token, remoteIP string) error {
	return nil
}

var (
	_ Verifier = &Turnstile{}
	_ Verifier = Disabled{}
)
