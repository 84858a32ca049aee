package loadgen

import (
	"fmt"
	"time"
)

// Config holds the load generator settings
type Config struct {
	Instruments []string
	Workers     int
	Rate        float64 // submissions per second across all workers, 0 for unlimited
	Duration    time.Duration
	MaxOrders   int // per worker, 0 for no limit
	Owners      int
	Seed        int64

	Quotes QuoteConfig
	Flow   FlowConfig

	// RequoteInterval replaces the resting quotes around the last trade
	// price. Zero quotes once at start.
	RequoteInterval time.Duration
}

// QuoteConfig holds the layered quoting parameters
type QuoteConfig struct {
	MakerID  string
	// IDPrefix prefixes quote ids. Defaults to MakerID.
	IDPrefix string

	MidPrice      float64
	Levels        int
	SpreadPercent float64
	StepPercent   float64
	LevelSize     int64
}

// FlowConfig holds the taker flow mix. Ratios are shares of all submissions;
// the remainder are plain limit orders around the mid price.
type FlowConfig struct {
	MarketRatio  float64
	FOKRatio     float64
	IcebergRatio float64
	StopRatio    float64
	MaxQuantity  int64
	// PriceBandPercent bounds limit and trigger prices around the mid price
	PriceBandPercent float64
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Owners <= 0 {
		c.Owners = 1
	}
	if c.Quotes.MakerID == "" {
		c.Quotes.MakerID = "mm-01"
	}
	if c.Flow.MaxQuantity <= 0 {
		c.Flow.MaxQuantity = 10
	}
	if c.Flow.PriceBandPercent <= 0 {
		c.Flow.PriceBandPercent = 1
	}
}

func (c *Config) validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("no instruments configured")
	}
	if c.Duration <= 0 && c.MaxOrders <= 0 {
		return fmt.Errorf("either a duration or a per-worker order limit is required")
	}
	if c.Quotes.MidPrice <= 0 {
		return fmt.Errorf("mid price must be positive")
	}
	return nil
}
