package infra

import "time"

// SystemClock reads wall-clock time. The engine takes a domain.Clock so
// tests can drive boost cadence deterministically.
type SystemClock struct{}

// Now returns the current unix-epoch seconds.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}
