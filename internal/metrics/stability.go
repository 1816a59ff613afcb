package metrics

import (
	"github.com/san-kum/magnetsim/internal/cluster"
)

// ClampRatio is the fraction of item-frames whose speed sat on the
// MaxVelocity clamp. A well tuned scene keeps it near zero.
type ClampRatio struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewClampRatio() *ClampRatio {
	return &ClampRatio{
		name:      "clamp_ratio",
		tolerance: 1e-9,
	}
}

func (c *ClampRatio) Name() string {
	return c.name
}

func (c *ClampRatio) Observe(items []cluster.Item, cfg cluster.Config, _ float64) {
	for i := range items {
		c.samples++
		if items[i].Velocity.Len() >= cfg.MaxVelocity-c.tolerance {
			c.violations++
		}
	}
}

func (c *ClampRatio) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.violations) / float64(c.samples)
}

func (c *ClampRatio) Reset() {
	c.violations = 0
	c.samples = 0
}
