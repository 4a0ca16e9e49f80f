// Package id generates short identifiers for correlating streaming
// sessions in agent logs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"
)

var fallback atomic.Uint64

// New returns an identifier of the form <prefix>_<10 hex chars>,
// e.g. "exec_1f2a3b4c5d". Identifiers are random; if the system
// entropy source fails, a process-local counter keeps them unique.
func New(prefix string) string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		n := fallback.Add(1)
		for i := range b {
			b[i] = byte(n >> (8 * i))
		}
	}
	return prefix + "_" + hex.EncodeToString(b)
}
