package ukko

import "time"

// Backoff decides how the loop reacts to failed authentication.
type Backoff struct {
	// MaxFailures in a row end the loop. Zero never gives up.
	MaxFailures int
	// RetrySleep replaces the regular sleep after a failure.
	RetrySleep time.Duration
}

func (b Backoff) start() *failures {
	return &failures{max: b.MaxFailures}
}

type failures struct {
	max   int
	count int
}

func (f *failures) reset() {
	f.count = 0
}

// fail records one failure and reports whether the limit is reached.
func (f *failures) fail() bool {
	f.count++
	return f.max > 0 && f.count >= f.max
}
