package sample

import "time"

// NewRefreshGate creates a stage that forwards a Sample only when at least
// interval has passed since the last forwarded one, by sample timestamp.
// Samples up to a tenth of the interval early still pass, so a source
// running at exactly the interval is not halved by receive jitter.
// The first Sample always passes. An interval of zero forwards everything.
func NewRefreshGate(interval time.Duration, bufSize int) func(in <-chan Sample) <-chan Sample {
	if bufSize <= 0 {
		bufSize = 100
	}
	minSpacing := interval - interval/10

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var last time.Time
			forwarded := false
			for s := range in {
				if forwarded && s.Timestamp.Sub(last) < minSpacing {
					continue
				}
				forwarded = true
				last = s.Timestamp
				send(out, s)
			}
		}()

		return out
	}
}
