package dedupe

const defaultMaxSize = 50000

// Option applies a configuration option to the deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many lap keys are remembered.
// A non-positive size keeps every key.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
