package advisor

import "time"

// Config tunes ranking and execution. Zero values take the defaults below,
// so a literal Config{} behaves sensibly.
type Config struct {
	// WeightAmount and WeightCount blend normalized total amount and grant
	// count into the candidate score.
	WeightAmount float64
	WeightCount  float64
	// TopK caps the ranked candidate list.
	TopK int
	// TaskTimeout bounds one generation-service call.
	TaskTimeout time.Duration
	// ReportTTL bounds how long terminal reports stay retrievable in the
	// cache after the run is consumed.
	ReportTTL time.Duration
}

func (c *Config) setDefaults() {
	if c.WeightAmount == 0 && c.WeightCount == 0 {
		c.WeightAmount = 0.5
		c.WeightCount = 0.5
	}
	if c.TopK <= 0 {
		c.TopK = 10
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 8 * time.Second
	}
	if c.ReportTTL <= 0 {
		c.ReportTTL = 24 * time.Hour
	}
}
