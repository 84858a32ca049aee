package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// Flow draws random taker orders. A Flow is not safe for concurrent use;
// give every worker its own.
type Flow struct {
	cfg    FlowConfig
	rnd    *rand.Rand
	prefix string
	owners int
	next   int
}

// NewFlow creates a Flow whose order ids start with prefix
func NewFlow(cfg FlowConfig, prefix string, owners int, seed int64) *Flow {
	if owners <= 0 {
		owners = 1
	}
	return &Flow{
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(seed)),
		prefix: prefix,
		owners: owners,
	}
}

// Next returns the next order for instrument around mid
func (f *Flow) Next(instrument string, mid float64) (*core.Order, error) {
	f.next++
	id := fmt.Sprintf("%s-%d", f.prefix, f.next)
	owner := fmt.Sprintf("owner-%d", f.rnd.Intn(f.owners))
	side := core.Side(f.rnd.Intn(2))
	qty := 1 + f.rnd.Int63n(f.cfg.MaxQuantity)

	r := f.rnd.Float64()
	switch {
	case r < f.cfg.MarketRatio:
		return core.NewMarketOrder(id, owner, instrument, side, qty, core.GTC)

	case r < f.cfg.MarketRatio+f.cfg.FOKRatio:
		return core.NewLimitOrder(id, owner, instrument, side, qty, f.price(mid, side, true), core.FOK)

	case r < f.cfg.MarketRatio+f.cfg.FOKRatio+f.cfg.IcebergRatio:
		qty *= 4
		display := 1 + f.rnd.Int63n(qty)
		return core.NewIcebergOrder(id, owner, instrument, side, qty, display, f.price(mid, side, false), core.GTC)

	case r < f.cfg.MarketRatio+f.cfg.FOKRatio+f.cfg.IcebergRatio+f.cfg.StopRatio:
		return f.stop(id, owner, instrument, side, qty, mid)
	}
	return core.NewLimitOrder(id, owner, instrument, side, qty, f.price(mid, side, f.rnd.Intn(2) == 0), core.GTC)
}

// stop places buy-stops above and sell-stops below mid so they wait for
// the price to move.
func (f *Flow) stop(id, owner, instrument string, side core.Side, qty int64, mid float64) (*core.Order, error) {
	offset := mid * f.cfg.PriceBandPercent / 100 * f.rnd.Float64()
	trigger := mid + offset
	if side == core.Sell {
		trigger = mid - offset
	}
	if f.rnd.Intn(2) == 0 {
		return core.NewStopOrder(id, owner, instrument, side, core.TypeMarket, qty, fpdecimal.Zero, roundPrice(trigger))
	}
	return core.NewStopOrder(id, owner, instrument, side, core.TypeLimit, qty, f.price(trigger, side, true), roundPrice(trigger))
}

// price draws a limit price within the band. An aggressive price sits on
// the far side of mid for side.
func (f *Flow) price(mid float64, side core.Side, aggressive bool) fpdecimal.Decimal {
	offset := mid * f.cfg.PriceBandPercent / 100 * f.rnd.Float64()
	if (side == core.Buy) != aggressive {
		offset = -offset
	}
	p := mid + offset
	if p < 0.01 {
		p = 0.01
	}
	return roundPrice(p)
}
