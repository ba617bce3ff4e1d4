package wizard

import "sync/atomic"

// fence issues monotonically increasing tokens for one class of
// asynchronous operation. A completion may only be applied while its token
// is still the most recently issued one; anything older is stale and must
// be discarded silently.
type fence struct {
	last atomic.Uint64
}

// issue returns a fresh token, superseding all earlier ones.
func (f *fence) issue() uint64 {
	return f.last.Add(1)
}

// current reports whether token is still the latest issued.
func (f *fence) current(token uint64) bool {
	return f.last.Load() == token
}

// invalidate supersedes all outstanding tokens without issuing a usable
// one, so in-flight completions are discarded on arrival.
func (f *fence) invalidate() {
	f.last.Add(1)
}
