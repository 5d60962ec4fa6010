// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimit limits each client IP to one request per interval with bursts
// of up to burst. Limiters for up to cacheSize clients are kept for ttl.
func RateLimit(trustProxy bool, interval time.Duration, burst int, cacheSize int, ttl time.Duration) func(http.Handler) http.Handler {
	cache := expirable.NewLRU[string, *rate.Limiter](cacheSize, nil, ttl)

	getLimiter := func(ip string) *rate.Limiter {
		limiter, exists := cache.Get(ip)
		if !exists {
			limiter = rate.NewLimiter(rate.Every(interval), burst)
			cache.Add(ip, limiter)
		}
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getLimiter(GetClientIP(r, trustProxy))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				ErrorResponse(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				ErrorResponse(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))

			next.ServeHTTP(w, r)
		})
	}
}
