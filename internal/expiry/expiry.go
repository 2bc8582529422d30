// Package expiry converts caller-supplied TTLs into stored expiry
// instants and decides whether a stored record is currently expired.
//
// Expiry instants are unix seconds; Never marks records without a time
// limit. No relative duration is ever persisted.
package expiry

import "time"

// Never is the stored expiry for records that do not expire.
const Never int64 = -1

type ttlKind int

const (
	kindForever ttlKind = iota // zero value: no expiry
	kindSeconds
	kindDuration
)

// TTL is a caller-supplied time-to-live. The zero value never expires.
type TTL struct {
	kind ttlKind
	secs int64
	dur  time.Duration
}

// Forever is the TTL of records without a time limit.
var Forever TTL

// Seconds is a TTL of a whole number of seconds. Zero means expired
// immediately (strictly: at the write-time instant); a negative count
// means no expiry.
func Seconds(n int64) TTL {
	return TTL{kind: kindSeconds, secs: n}
}

// In is a TTL expressed as a duration from now. It resolves against the
// reference instant at write time; a negative duration clamps to zero.
func In(d time.Duration) TTL {
	return TTL{kind: kindDuration, dur: d}
}

// Normalize resolves the TTL against a reference instant to a concrete
// second count. ok is false when the record should never expire.
func (t TTL) Normalize(now time.Time) (secs int64, ok bool) {
	switch t.kind {
	case kindSeconds:
		return t.secs, true
	case kindDuration:
		s := int64(t.dur / time.Second)
		if s < 0 {
			s = 0
		}
		return s, true
	default:
		return 0, false
	}
}

// Instant maps a normalized second count to the stored expiry instant.
// A missing or negative count means Never; zero means exactly now.
func Instant(secs int64, ok bool, now time.Time) int64 {
	if !ok || secs < 0 {
		return Never
	}
	return now.Unix() + secs
}

// IsExpired reports whether a stored expiry instant has passed. A record
// with exp == now is not yet expired; Never never is.
func IsExpired(exp int64, now time.Time) bool {
	return exp != Never && exp < now.Unix()
}
