// Package exchange serializes access to a matching engine so it can be shared
// between goroutines. Every mutation, stop cascade included, runs as one
// step under a write lock; queries share a read lock and return copies.
package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/erain9/matchcore/pkg/logging"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
)

// ErrInstrumentNotFound is returned for an instrument no order has reached
var ErrInstrumentNotFound = errors.New("instrument not found")

// InstrumentInfo contains metadata about an instrument
type InstrumentInfo struct {
	Name         string
	CreatedAt    time.Time
	Bids         int
	Asks         int
	BuyStops     int
	SellStops    int
	Trades       int
	LastPrice    fpdecimal.Decimal
	HasLastPrice bool
}

// Result is a copy of the outcome of one submission
type Result struct {
	Order     core.SimpleOrder
	Trades    []core.Trade
	Activated []string
	Killed    bool
	Stored    bool
	Parked    bool
	Left      int64
	Processed int64
}

func newResult(done *core.Done) Result {
	activated := make([]string, len(done.Activated))
	for i, o := range done.Activated {
		activated[i] = o.ID()
	}
	trades := make([]core.Trade, len(done.Trades))
	copy(trades, done.Trades)
	return Result{
		Order:     done.Order.ToSimple(),
		Trades:    trades,
		Activated: activated,
		Killed:    done.Killed,
		Stored:    done.Stored,
		Parked:    done.Parked,
		Left:      done.Left,
		Processed: done.Processed,
	}
}

// BookSnapshot is an aggregated view of one order book
type BookSnapshot struct {
	Instrument string
	BestBid    fpdecimal.Decimal
	BestAsk    fpdecimal.Decimal
	Bids       []core.PriceLevel
	Asks       []core.PriceLevel
}

type instrumentState struct {
	createdAt time.Time
	trades    int
}

// Exchange owns one MatchingEngine
type Exchange struct {
	mu          sync.RWMutex
	engine      *core.MatchingEngine
	instruments map[string]*instrumentState
	clock       func() time.Time
}

// New creates an Exchange around engine. The engine must not be used
// directly afterwards.
func New(engine *core.MatchingEngine) *Exchange {
	return &Exchange{
		engine:      engine,
		instruments: make(map[string]*instrumentState),
		clock:       time.Now,
	}
}

func (x *Exchange) logger(ctx context.Context, instrument string) zerolog.Logger {
	return logging.FromContext(logging.WithInstrument(ctx, instrument))
}

// Submit matches order. A canceled ctx is honored only before matching starts.
func (x *Exchange) Submit(ctx context.Context, order *core.Order) (Result, error) {
	if order == nil {
		return Result{}, core.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger := x.logger(ctx, order.Instrument())

	x.mu.Lock()
	defer x.mu.Unlock()

	done, err := x.engine.Match(ctx, order)
	if err != nil {
		logger.Debug().Err(err).Str("order_id", order.ID()).Msg("order rejected")
		return Result{}, err
	}

	state, ok := x.instruments[order.Instrument()]
	if !ok {
		state = &instrumentState{createdAt: x.clock()}
		x.instruments[order.Instrument()] = state
		logger.Info().Msg("created new order book")
	}
	state.trades += len(done.Trades)

	res := newResult(done)
	logger.Debug().
		Str("order_id", order.ID()).
		Int("trades", len(res.Trades)).
		Int("activated", len(res.Activated)).
		Bool("stored", res.Stored).
		Bool("killed", res.Killed).
		Msg("order processed")
	return res, nil
}

// Cancel removes a resting order or a dormant stop
func (x *Exchange) Cancel(ctx context.Context, instrument, orderID string) (core.SimpleOrder, error) {
	if err := ctx.Err(); err != nil {
		return core.SimpleOrder{}, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.engine.Cancel(ctx, instrument, orderID)
	if err != nil {
		logger := x.logger(ctx, instrument)
		logger.Debug().Err(err).Str("order_id", orderID).Msg("cancel failed")
		return core.SimpleOrder{}, err
	}
	return o.ToSimple(), nil
}

// Modify changes price and quantity of a resting order
func (x *Exchange) Modify(ctx context.Context, instrument, orderID string, side core.Side, price fpdecimal.Decimal, quantity, displayQty int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.engine.Modify(ctx, instrument, orderID, side, price, quantity, displayQty); err != nil {
		logger := x.logger(ctx, instrument)
		logger.Debug().Err(err).Str("order_id", orderID).Msg("modify failed")
		return err
	}
	return nil
}

// Order returns a resting order
func (x *Exchange) Order(instrument, orderID string) (core.SimpleOrder, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ob, ok := x.engine.Book(instrument)
	if !ok {
		return core.SimpleOrder{}, false
	}
	o, ok := ob.Order(orderID)
	if !ok {
		return core.SimpleOrder{}, false
	}
	return o.ToSimple(), true
}

// Depth returns up to levels aggregated price levels per side
func (x *Exchange) Depth(instrument string, levels int) (BookSnapshot, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ob, ok := x.engine.Book(instrument)
	if !ok {
		return BookSnapshot{}, ErrInstrumentNotFound
	}
	return BookSnapshot{
		Instrument: instrument,
		BestBid:    ob.BestBidPrice(),
		BestAsk:    ob.BestAskPrice(),
		Bids:       ob.Depth(core.Buy, levels),
		Asks:       ob.Depth(core.Sell, levels),
	}, nil
}

// OrdersForOwner returns copies of the owner's resting orders
func (x *Exchange) OrdersForOwner(instrument, owner string) (bids, asks []core.SimpleOrder, err error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ob, ok := x.engine.Book(instrument)
	if !ok {
		return nil, nil, ErrInstrumentNotFound
	}
	b, a := ob.OrdersForOwner(owner)
	return simple(b), simple(a), nil
}

// Stops returns copies of the dormant stops on side in trigger priority
func (x *Exchange) Stops(instrument string, side core.Side) []core.SimpleOrder {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return simple(x.engine.Stops().Orders(instrument, side))
}

// Trades returns every trade in execution order
func (x *Exchange) Trades() []core.Trade {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.engine.Trades()
}

// TradesForOwner returns the trades owner took part in
func (x *Exchange) TradesForOwner(owner string) []core.Trade {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.engine.TradesForOwner(owner)
}

// Instrument returns metadata about one instrument
func (x *Exchange) Instrument(name string) (InstrumentInfo, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	state, ok := x.instruments[name]
	if !ok {
		return InstrumentInfo{}, ErrInstrumentNotFound
	}
	return x.info(name, state), nil
}

// Instruments returns metadata about every instrument, sorted by name
func (x *Exchange) Instruments() []InstrumentInfo {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]InstrumentInfo, 0, len(x.instruments))
	for _, name := range x.engine.Instruments() {
		if state, ok := x.instruments[name]; ok {
			out = append(out, x.info(name, state))
		}
	}
	return out
}

func (x *Exchange) info(name string, state *instrumentState) InstrumentInfo {
	info := InstrumentInfo{
		Name:      name,
		CreatedAt: state.createdAt,
		Trades:    state.trades,
		BuyStops:  x.engine.Stops().Len(name, core.Buy),
		SellStops: x.engine.Stops().Len(name, core.Sell),
	}
	if ob, ok := x.engine.Book(name); ok {
		info.Bids = len(ob.Bids())
		info.Asks = len(ob.Asks())
	}
	info.LastPrice, info.HasLastPrice = x.engine.LastTradePrice(name)
	return info
}

func simple(orders []*core.Order) []core.SimpleOrder {
	out := make([]core.SimpleOrder, len(orders))
	for i, o := range orders {
		out[i] = o.ToSimple()
	}
	return out
}
