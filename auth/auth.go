// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidCreatorKey = errors.New("invalid creator key")
	ErrMissingCreatorKey = errors.New("creator key required")
)

// Word lists for 3-word human-readable poll IDs
var (
	moods = []string{
		"sleepy", "spicy", "aggressive", "awkward", "chaotic",
		"sparkly", "dramatic", "slow", "loud", "tiny",
		"brave", "happy", "messy", "angry", "funny",
	}
	looks = []string{
		"blue", "noisy", "invisible", "annoying", "miniature",
		"lazy", "electric", "bored", "shiny", "quiet",
		"green", "purple", "fuzzy", "tired", "weird",
	}
	things = []string{
		"toaster", "duck", "cactus", "robot", "llama",
		"potato", "turtle", "cloud", "octopus", "penguin",
		"fridge", "banana", "squirrel", "chair", "bread",
	}
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate random ID")
	}
	return hex.EncodeToString(b), nil
}

// GeneratePollID picks a word from each list: "sleepy-blue-toaster".
// Uniqueness is enforced by the store; callers retry on collision.
func GeneratePollID() (string, error) {
	parts := make([]string, 0, 3)
	for _, words := range [][]string{moods, looks, things} {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
		if err != nil {
			return "", errors.Wrap(err, "failed to generate poll ID")
		}
		parts = append(parts, words[n.Int64()])
	}
	return strings.Join(parts, "-"), nil
}

// GenerateOptionID returns a UUIDv4 as 32 hex chars
func GenerateOptionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateCreatorKey creates the secret that proves ownership of a poll
func GenerateCreatorKey() (string, error) {
	b := make([]byte, 32) // 256 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate creator key")
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// ValidateCreatorKey compares the provided key against the stored one in constant time
func ValidateCreatorKey(provided, stored string) error {
	if provided == "" {
		return ErrMissingCreatorKey
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) != 1 {
		return ErrInvalidCreatorKey
	}
	return nil
}

// CanViewResults reports whether results are readable with the given key
func CanViewResults(publicResults bool, provided, stored string) bool {
	if publicResults {
		return true
	}
	return ValidateCreatorKey(provided, stored) == nil
}
