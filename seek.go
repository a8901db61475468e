package videotexture

import (
	"math"
	"time"
)

// EndOfStreamGuard is how far before the end a forward seek past the duration
// lands, so the seek does not immediately re-trigger end-of-stream.
const EndOfStreamGuard = 300 * time.Millisecond

// ClampSeek computes the target of a relative seek by delta seconds.
//
// Rules:
//   - target = position + delta
//   - target < 0 → 0
//   - target ≥ duration → duration − EndOfStreamGuard, floored at 0
//   - unknown or zero duration → only the lower bound applies
//
// The sum saturates instead of overflowing, so any delta is clamped.
func ClampSeek(position, duration time.Duration, durationKnown bool, delta int) time.Duration {
	if position < 0 {
		position = 0
	}

	var target time.Duration
	n := int64(delta)
	switch {
	case n > (math.MaxInt64-int64(position))/int64(time.Second):
		target = math.MaxInt64
	case n < 0 && -(n+1) >= int64(position)/int64(time.Second):
		target = 0
	default:
		target = position + time.Duration(n)*time.Second
	}
	if target < 0 {
		target = 0
	}

	if durationKnown && duration > 0 && target >= duration {
		target = duration - EndOfStreamGuard
		if target < 0 {
			target = 0
		}
	}
	return target
}

// FractionTarget returns p·duration with p clamped to [0,1].
func FractionTarget(p float64, duration time.Duration) time.Duration {
	switch {
	case p < 0 || p != p:
		p = 0
	case p > 1:
		p = 1
	}
	return time.Duration(p * float64(duration))
}
