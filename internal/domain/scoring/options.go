package scoring

type settings struct {
	positionPoints []float64
	relativeScale  float64
}

// Option applies a configuration option to New.
type Option func(*settings)

// WithPositionPoints sets the points table for the position strategy.
func WithPositionPoints(points []float64) Option {
	return func(s *settings) {
		if len(points) > 0 {
			s.positionPoints = points
		}
	}
}

// WithRelativeScale sets the score of an event winner under the relative strategy.
func WithRelativeScale(scale float64) Option {
	return func(s *settings) {
		if scale > 0 {
			s.relativeScale = scale
		}
	}
}
