package core

import (
	"context"
	"slices"
	"time"

	"github.com/erain9/matchcore/pkg/otel"
	"github.com/gammazero/deque"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig configures a MatchingEngine
type EngineConfig struct {
	Logger zerolog.Logger
	// Clock stamps trades. Defaults to time.Now.
	Clock func() time.Time
	// Degree of the B-trees backing books and stop books.
	Degree int
}

// DefaultEngineConfig returns a config with a disabled logger and wall clock
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Logger: zerolog.Nop(),
		Clock:  time.Now,
		Degree: DefaultDegree,
	}
}

// MatchingEngine matches orders under price-time priority across any number
// of instruments. It owns one OrderBook per instrument, a shared StopBook and
// the trade Ledger. MatchingEngine is not safe for concurrent use; callers
// serialize access.
type MatchingEngine struct {
	books     map[string]*OrderBook
	stops     *StopBook
	ledger    *Ledger
	seq       *Sequence
	tradeID   uint64
	lastPrice map[string]fpdecimal.Decimal
	logger    zerolog.Logger
	clock     func() time.Time
	degree    int
	metrics   *otel.MatchMetrics
}

// NewMatchingEngine creates an engine with no books
func NewMatchingEngine(cfg EngineConfig) *MatchingEngine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Degree <= 0 {
		cfg.Degree = DefaultDegree
	}
	seq := &Sequence{}
	return &MatchingEngine{
		books:     make(map[string]*OrderBook),
		stops:     NewStopBook(seq, cfg.Degree),
		ledger:    NewLedger(),
		seq:       seq,
		lastPrice: make(map[string]fpdecimal.Decimal),
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		degree:    cfg.Degree,
		metrics:   otel.GetMatchMetrics(),
	}
}

func (e *MatchingEngine) book(instrument string) *OrderBook {
	ob, ok := e.books[instrument]
	if !ok {
		ob = NewOrderBook(instrument, e.seq, e.degree)
		e.books[instrument] = ob
	}
	return ob
}

type matchResult int

const (
	resultFilled matchResult = iota
	resultStored
	resultParked
	resultKilled
	resultDiscarded
)

// Match submits an order. Stop orders are parked until triggered; any other
// order trades against the opposite side, and a limit remainder rests in the
// book. Every stop activated by the resulting trades is matched before Match
// returns, and its trades are reported in the same Done.
//
// Errors are returned only before anything is mutated.
func (e *MatchingEngine) Match(ctx context.Context, order *Order) (*Done, error) {
	if order == nil {
		return nil, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if order.Quantity() <= 0 {
		return nil, ErrInvalidQuantity
	}
	if e.live(order.Instrument(), order.ID()) {
		return nil, ErrOrderExists
	}

	start := time.Now()
	ctx, span := otel.StartMatchSpan(ctx, otel.SpanMatchOrder,
		attribute.String(otel.AttributeInstrument, order.Instrument()),
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderType, string(order.Type())),
		attribute.Int64(otel.AttributeOrderQuantity, order.Quantity()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer span.End()
	e.metrics.RecordSubmitted(ctx, order.Instrument(), string(order.Type()))

	done := newDone(order)

	var pending deque.Deque[*Order]
	pending.PushBack(order)
	for pending.Len() > 0 {
		o := pending.PopFront()

		trades, result := e.matchOne(ctx, o)
		for _, t := range trades {
			done.appendTrade(t)
		}

		if o == order {
			done.setLeft(o.Quantity())
			switch result {
			case resultStored:
				done.Stored = true
			case resultParked:
				done.Parked = true
			case resultKilled:
				done.Killed = true
			}
		}

		if len(trades) == 0 {
			continue
		}

		last := trades[len(trades)-1].Price
		e.lastPrice[o.Instrument()] = last

		// Stops on both sides are checked against the trade price, not only
		// the side opposite the aggressor. Depth first: each activated stop
		// and everything it triggers runs before the next stop activated by
		// the same trade.
		activated := e.triggered(o.Instrument(), o.Side(), last)
		for i := len(activated) - 1; i >= 0; i-- {
			pending.PushFront(activated[i])
		}
		for _, a := range activated {
			done.appendActivated(a)
			span.AddEvent(otel.SpanActivateStop, trace.WithAttributes(
				attribute.String(otel.AttributeOrderID, a.ID()),
				attribute.String(otel.AttributeOrderSide, a.Side().String()),
				attribute.String(otel.AttributeOrderPrice, a.TriggerPrice().String()),
			))
			e.logger.Debug().
				Str("instrument", a.Instrument()).
				Str("order_id", a.ID()).
				Str("trigger", a.TriggerPrice().String()).
				Str("last_price", last.String()).
				Msg("stop order activated")
		}
		e.metrics.RecordStopsActivated(ctx, o.Instrument(), int64(len(activated)))
	}

	e.metrics.RecordTrades(ctx, order.Instrument(), int64(len(done.Trades)))
	e.metrics.RecordDuration(ctx, order.Instrument(), time.Since(start))
	otel.AddAttributes(span,
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
		attribute.Int(otel.AttributeActivatedCount, len(done.Activated)),
		attribute.Int64(otel.AttributeExecutedQuantity, done.Processed),
		attribute.Int64(otel.AttributeRemainingQuantity, done.Left),
		attribute.String(otel.AttributeOrderStatus, done.status()),
	)
	if done.Killed {
		span.AddEvent("fill_or_kill_killed")
	}

	return done, nil
}

// triggered extracts the stops reached by a trade at price. Stops on the
// aggressor's side come first.
func (e *MatchingEngine) triggered(instrument string, aggressor Side, price fpdecimal.Decimal) []*Order {
	out := e.stops.ExtractTriggered(instrument, aggressor, price)
	out = append(out, e.stops.ExtractTriggered(instrument, aggressor.Opposite(), price)...)
	for _, o := range out {
		o.activate()
	}
	return out
}

// matchOne runs a single order against its book.
func (e *MatchingEngine) matchOne(ctx context.Context, o *Order) ([]Trade, matchResult) {
	book := e.book(o.Instrument())

	if o.IsStopOrder() {
		if err := e.stops.Add(o); err != nil {
			e.logger.Error().Err(err).Str("order_id", o.ID()).Msg("failed to park stop order")
			return nil, resultDiscarded
		}
		e.logger.Debug().
			Str("instrument", o.Instrument()).
			Str("order_id", o.ID()).
			Str("trigger", o.TriggerPrice().String()).
			Msg("stop order parked")
		return nil, resultParked
	}

	opposite := o.Side().Opposite()
	if o.IsFOK() && !book.available(opposite, o.Price(), o.Quantity()) {
		e.logger.Info().
			Str("instrument", o.Instrument()).
			Str("order_id", o.ID()).
			Int64("quantity", o.Quantity()).
			Msg("fill-or-kill order killed")
		e.metrics.RecordFOKKilled(ctx, o.Instrument())
		return nil, resultKilled
	}

	var (
		trades    []Trade
		consumed  []*Order
		remaining = o.Quantity()
	)
	book.side(opposite).Scan(func(r *Order) bool {
		if remaining == 0 || !o.crosses(r.Price()) {
			return false
		}
		traded := min(remaining, r.Quantity())
		e.tradeID++
		t := Trade{
			ID:               e.tradeID,
			Instrument:       o.Instrument(),
			Price:            r.Price(),
			Quantity:         traded,
			RestingOrderID:   r.ID(),
			RestingOwnerID:   r.Owner(),
			AggressorOrderID: o.ID(),
			AggressorOwnerID: o.Owner(),
			AggressorSide:    o.Side(),
			Timestamp:        e.clock(),
		}
		trades = append(trades, t)
		e.ledger.Append(t)

		r.fill(traded)
		remaining -= traded
		if r.Quantity() == 0 {
			consumed = append(consumed, r)
		}

		e.logger.Debug().
			Uint64("trade_id", t.ID).
			Str("instrument", t.Instrument).
			Str("price", t.Price.String()).
			Int64("quantity", t.Quantity).
			Str("resting_order_id", t.RestingOrderID).
			Str("aggressor_order_id", t.AggressorOrderID).
			Msg("trade")
		return true
	})

	if filled := o.Quantity() - remaining; filled > 0 {
		o.fill(filled)
	}

	result := resultFilled
	if remaining > 0 {
		result = resultDiscarded
		if o.IsLimitOrder() && !o.IsFOK() {
			if err := book.Add(o); err != nil {
				e.logger.Error().Err(err).Str("order_id", o.ID()).Msg("failed to rest order")
			} else {
				result = resultStored
			}
		}
	}

	for _, r := range consumed {
		book.Remove(r)
	}

	return trades, result
}

func (e *MatchingEngine) live(instrument, orderID string) bool {
	if ob, ok := e.books[instrument]; ok {
		if _, ok := ob.Order(orderID); ok {
			return true
		}
	}
	return e.stops.Contains(instrument, orderID)
}

// Cancel removes a resting order or a dormant stop
func (e *MatchingEngine) Cancel(ctx context.Context, instrument, orderID string) (*Order, error) {
	_, span := otel.StartMatchSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeInstrument, instrument),
		attribute.String(otel.AttributeOrderID, orderID),
	)
	defer span.End()

	o, err := e.cancel(instrument, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	otel.AddAttributes(span, attribute.Int64(otel.AttributeRemainingQuantity, o.Quantity()))
	return o, nil
}

func (e *MatchingEngine) cancel(instrument, orderID string) (*Order, error) {
	if ob, ok := e.books[instrument]; ok {
		if o, ok := ob.Order(orderID); ok {
			ob.Remove(o)
			e.logger.Info().Str("instrument", instrument).Str("order_id", orderID).Msg("order canceled")
			return o, nil
		}
	}
	if o, ok := e.stops.Remove(instrument, orderID); ok {
		e.logger.Info().Str("instrument", instrument).Str("order_id", orderID).Msg("stop order canceled")
		return o, nil
	}
	return nil, ErrNonexistentOrder
}

// Modify changes price and quantity of a resting order. See OrderBook.Modify.
func (e *MatchingEngine) Modify(ctx context.Context, instrument, orderID string, side Side, price fpdecimal.Decimal, quantity, displayQty int64) error {
	_, span := otel.StartMatchSpan(ctx, otel.SpanModifyOrder,
		attribute.String(otel.AttributeInstrument, instrument),
		attribute.String(otel.AttributeOrderID, orderID),
		attribute.String(otel.AttributeOrderSide, side.String()),
		attribute.String(otel.AttributeOrderPrice, price.String()),
		attribute.Int64(otel.AttributeOrderQuantity, quantity),
	)
	defer span.End()

	ob, ok := e.books[instrument]
	if !ok {
		span.RecordError(ErrNonexistentOrder)
		return ErrNonexistentOrder
	}
	if err := ob.Modify(orderID, side, price, quantity, displayQty); err != nil {
		span.RecordError(err)
		return err
	}
	e.logger.Debug().
		Str("instrument", instrument).
		Str("order_id", orderID).
		Str("price", price.String()).
		Int64("quantity", quantity).
		Msg("order modified")
	return nil
}

// Book returns the book of instrument if any order has reached it
func (e *MatchingEngine) Book(instrument string) (*OrderBook, bool) {
	ob, ok := e.books[instrument]
	return ob, ok
}

// Instruments returns the instruments with a book, sorted by name
func (e *MatchingEngine) Instruments() []string {
	out := make([]string, 0, len(e.books))
	for name := range e.books {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Stops returns the stop book
func (e *MatchingEngine) Stops() *StopBook {
	return e.stops
}

// Trades returns every trade in execution order
func (e *MatchingEngine) Trades() []Trade {
	return e.ledger.All()
}

// TradesForOwner returns the trades owner took part in
func (e *MatchingEngine) TradesForOwner(owner string) []Trade {
	return e.ledger.ForOwner(owner)
}

// LastTradePrice returns the price of the most recent trade in instrument
func (e *MatchingEngine) LastTradePrice(instrument string) (fpdecimal.Decimal, bool) {
	p, ok := e.lastPrice[instrument]
	return p, ok
}
