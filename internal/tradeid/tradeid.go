// Package tradeid generates process-unique trade identifiers.
package tradeid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a trade ID of the form "T<unix-millis><random-suffix>".
// The millisecond prefix keeps IDs roughly sortable by creation time;
// the 4-byte random suffix makes collisions within a millisecond
// negligible.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a trade ID anchored at the given time.
func NewAt(t time.Time) string {
	var suffix [4]byte
	// rand.Read on a crypto source never fails in practice; a zero
	// suffix on error still leaves the millisecond prefix.
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("T%d%s", t.UnixMilli(), hex.EncodeToString(suffix[:]))
}
