// Package dblock serializes integration tests that share one DATABASE_URL.
// Packages run as separate test binaries, so the lock is a loopback port
// rather than a mutex.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45433"

// Acquire blocks until this process holds the lock and returns its release.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
