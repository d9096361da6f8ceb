// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"fmt"

	"github.com/google/uuid"
)

// keyAlphabet omits 0, 1, O and I to keep keys unambiguous when read aloud.
const keyAlphabet = "23456789ABCDEFGHIJKLMNPQRSTUVWXYZ"

const keyLength = 8

// newKey returns a random library key. Randomness comes from a v4 UUID.
func newKey() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	b := make([]byte, keyLength)
	for i := range b {
		b[i] = keyAlphabet[int(u[i])%len(keyAlphabet)]
	}
	return string(b), nil
}
