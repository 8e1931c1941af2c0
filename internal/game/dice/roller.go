package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged draws.
// Every draw is logged at debug level with its label, parameters, and result.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Normal draws a rounded value from Normal(mean, stddev) and logs it.
func (r *Roller) Normal(label string, mean, stddev float64) int {
	v := Normal(r.src, mean, stddev)
	r.logger.Debug("normal roll",
		zap.String("label", label),
		zap.Float64("mean", mean),
		zap.Float64("stddev", stddev),
		zap.Int("result", v),
	)
	return v
}
