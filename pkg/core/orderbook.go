package core

import (
	"github.com/nikolaydubina/fpdecimal"
	"github.com/tidwall/btree"
)

// DefaultDegree is the B-tree degree used for book sides when none is given
const DefaultDegree = 32

// OrderBook holds the resting orders of one instrument. Bids are ordered by
// price descending, asks by price ascending, and arrival order breaks ties on
// both sides. OrderBook is not safe for concurrent use.
type OrderBook struct {
	instrument string
	bids       *btree.BTreeG[*Order]
	asks       *btree.BTreeG[*Order]
	orders     map[string]*Order
	seq        *Sequence
}

// NewOrderBook creates an empty book. Orders added to it draw arrival numbers
// from seq, which may be shared with other books and a StopBook.
func NewOrderBook(instrument string, seq *Sequence, degree int) *OrderBook {
	if seq == nil {
		seq = &Sequence{}
	}
	if degree <= 0 {
		degree = DefaultDegree
	}
	opts := btree.Options{Degree: degree, NoLocks: true}
	return &OrderBook{
		instrument: instrument,
		bids:       btree.NewBTreeGOptions(bidLess, opts),
		asks:       btree.NewBTreeGOptions(askLess, opts),
		orders:     make(map[string]*Order),
		seq:        seq,
	}
}

func bidLess(a, b *Order) bool {
	if !a.price.Equal(b.price) {
		return a.price.GreaterThan(b.price)
	}
	return a.seq < b.seq
}

func askLess(a, b *Order) bool {
	if !a.price.Equal(b.price) {
		return a.price.LessThan(b.price)
	}
	return a.seq < b.seq
}

// Instrument returns the instrument of the book
func (ob *OrderBook) Instrument() string {
	return ob.instrument
}

func (ob *OrderBook) side(side Side) *btree.BTreeG[*Order] {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

// Add places the order at the back of its price level
func (ob *OrderBook) Add(order *Order) error {
	if order == nil || order.IsStopOrder() || order.Quantity() <= 0 {
		return ErrInvalidArgument
	}
	if _, ok := ob.orders[order.ID()]; ok {
		return ErrOrderExists
	}
	order.seq = ob.seq.Next()
	ob.side(order.Side()).Set(order)
	ob.orders[order.ID()] = order
	return nil
}

// Remove deletes the order from the book. It returns false if this exact
// order is not resting here.
func (ob *OrderBook) Remove(order *Order) bool {
	if order == nil {
		return false
	}
	existing, ok := ob.orders[order.ID()]
	if !ok || existing != order {
		return false
	}
	ob.side(order.Side()).Delete(order)
	delete(ob.orders, order.ID())
	return true
}

// Modify changes price and quantity of a resting order. The order loses its
// time priority and moves to the back of its new price level. For icebergs a
// positive displayQty replaces the displayed slice size; plain orders ignore
// it.
func (ob *OrderBook) Modify(orderID string, side Side, price fpdecimal.Decimal, quantity, displayQty int64) error {
	order, ok := ob.orders[orderID]
	if !ok || order.Side() != side {
		return ErrNonexistentOrder
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if price.LessThanOrEqual(fpdecimal.Zero) || price.GreaterThanOrEqual(MaxPrice) {
		return ErrInvalidPrice
	}
	if order.IsIceberg() && (displayQty < 0 || displayQty > quantity) {
		return ErrInvalidQuantity
	}
	if ob.wouldCross(side, price) {
		return ErrWouldCross
	}

	tree := ob.side(side)
	tree.Delete(order)
	order.update(price, quantity, displayQty)
	order.seq = ob.seq.Next()
	tree.Set(order)
	return nil
}

func (ob *OrderBook) wouldCross(side Side, price fpdecimal.Decimal) bool {
	if side == Buy {
		best, ok := ob.BestAsk()
		return ok && price.GreaterThanOrEqual(best.Price())
	}
	best, ok := ob.BestBid()
	return ok && price.LessThanOrEqual(best.Price())
}

// Order returns a resting order by id
func (ob *OrderBook) Order(orderID string) (*Order, bool) {
	o, ok := ob.orders[orderID]
	return o, ok
}

// Len returns the number of resting orders on both sides
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}

// BestBid returns the highest priority bid
func (ob *OrderBook) BestBid() (*Order, bool) {
	return ob.bids.Min()
}

// BestAsk returns the highest priority ask
func (ob *OrderBook) BestAsk() (*Order, bool) {
	return ob.asks.Min()
}

// BestBidPrice returns the best bid price or zero when there are no bids
func (ob *OrderBook) BestBidPrice() fpdecimal.Decimal {
	if o, ok := ob.BestBid(); ok {
		return o.Price()
	}
	return fpdecimal.Zero
}

// BestAskPrice returns the best ask price or MaxPrice when there are no asks
func (ob *OrderBook) BestAskPrice() fpdecimal.Decimal {
	if o, ok := ob.BestAsk(); ok {
		return o.Price()
	}
	return MaxPrice
}

// LevelQuantity sums the remaining quantity resting at exactly price
func (ob *OrderBook) LevelQuantity(side Side, price fpdecimal.Decimal) int64 {
	var total int64
	pivot := &Order{price: price}
	ob.side(side).Ascend(pivot, func(o *Order) bool {
		if !o.price.Equal(price) {
			return false
		}
		total += o.quantity
		return true
	})
	return total
}

// CumulativeQuantity sums the remaining quantity on side priced at or better
// than threshold: bids at or above it, asks at or below it.
func (ob *OrderBook) CumulativeQuantity(side Side, threshold fpdecimal.Decimal) int64 {
	var total int64
	ob.scanAtOrBetter(side, threshold, func(o *Order) bool {
		total += o.quantity
		return true
	})
	return total
}

// available reports whether side holds at least need lots at or better than
// threshold, stopping as soon as it does.
func (ob *OrderBook) available(side Side, threshold fpdecimal.Decimal, need int64) bool {
	var total int64
	ob.scanAtOrBetter(side, threshold, func(o *Order) bool {
		total += o.quantity
		return total < need
	})
	return total >= need
}

func (ob *OrderBook) scanAtOrBetter(side Side, threshold fpdecimal.Decimal, iter func(*Order) bool) {
	ob.side(side).Scan(func(o *Order) bool {
		if side == Buy && o.price.LessThan(threshold) {
			return false
		}
		if side == Sell && o.price.GreaterThan(threshold) {
			return false
		}
		return iter(o)
	})
}

// OrdersForOwner returns the owner's resting bids and asks in priority order
func (ob *OrderBook) OrdersForOwner(owner string) (bids, asks []*Order) {
	collect := func(tree *btree.BTreeG[*Order]) []*Order {
		var out []*Order
		tree.Scan(func(o *Order) bool {
			if o.owner == owner {
				out = append(out, o)
			}
			return true
		})
		return out
	}
	return collect(ob.bids), collect(ob.asks)
}

// Bids returns the bids in priority order
func (ob *OrderBook) Bids() []*Order {
	return ob.bids.Items()
}

// Asks returns the asks in priority order
func (ob *OrderBook) Asks() []*Order {
	return ob.asks.Items()
}

// Depth aggregates up to levels price levels of side, best first. A
// non-positive levels returns every level.
func (ob *OrderBook) Depth(side Side, levels int) []PriceLevel {
	var out []PriceLevel
	ob.side(side).Scan(func(o *Order) bool {
		n := len(out)
		if n > 0 && out[n-1].Price.Equal(o.price) {
			out[n-1].Quantity += o.quantity
			out[n-1].Shown += o.showQty
			out[n-1].Orders++
			return true
		}
		if levels > 0 && n == levels {
			return false
		}
		out = append(out, PriceLevel{Price: o.price, Quantity: o.quantity, Shown: o.showQty, Orders: 1})
		return true
	})
	return out
}
