package core

import (
	"github.com/nikolaydubina/fpdecimal"
	"github.com/tidwall/btree"
)

type stopSides struct {
	buy    *btree.BTreeG[*Order]
	sell   *btree.BTreeG[*Order]
	orders map[string]*Order
}

// StopBook keeps dormant stop orders per instrument. Buy stops are ordered by
// trigger ascending and sell stops by trigger descending, so the stops a
// moving price reaches first come first. StopBook is not safe for concurrent
// use.
type StopBook struct {
	books  map[string]*stopSides
	seq    *Sequence
	degree int
}

// NewStopBook creates an empty stop book
func NewStopBook(seq *Sequence, degree int) *StopBook {
	if seq == nil {
		seq = &Sequence{}
	}
	if degree <= 0 {
		degree = DefaultDegree
	}
	return &StopBook{
		books:  make(map[string]*stopSides),
		seq:    seq,
		degree: degree,
	}
}

func buyStopLess(a, b *Order) bool {
	if !a.trigger.Equal(b.trigger) {
		return a.trigger.LessThan(b.trigger)
	}
	return a.seq < b.seq
}

func sellStopLess(a, b *Order) bool {
	if !a.trigger.Equal(b.trigger) {
		return a.trigger.GreaterThan(b.trigger)
	}
	return a.seq < b.seq
}

func (sb *StopBook) sides(instrument string, create bool) *stopSides {
	s, ok := sb.books[instrument]
	if !ok && create {
		opts := btree.Options{Degree: sb.degree, NoLocks: true}
		s = &stopSides{
			buy:    btree.NewBTreeGOptions(buyStopLess, opts),
			sell:   btree.NewBTreeGOptions(sellStopLess, opts),
			orders: make(map[string]*Order),
		}
		sb.books[instrument] = s
	}
	return s
}

func (s *stopSides) side(side Side) *btree.BTreeG[*Order] {
	if side == Buy {
		return s.buy
	}
	return s.sell
}

// Add parks a stop order under its instrument and side
func (sb *StopBook) Add(order *Order) error {
	if order == nil || !order.IsStopOrder() {
		return ErrInvalidArgument
	}
	s := sb.sides(order.Instrument(), true)
	if _, ok := s.orders[order.ID()]; ok {
		return ErrOrderExists
	}
	order.seq = sb.seq.Next()
	s.side(order.Side()).Set(order)
	s.orders[order.ID()] = order
	return nil
}

// ExtractTriggered removes and returns, in trigger priority, every stop on
// side whose condition holds at lastPrice. Buy stops fire when their trigger
// is at or below lastPrice, sell stops when it is at or above.
func (sb *StopBook) ExtractTriggered(instrument string, side Side, lastPrice fpdecimal.Decimal) []*Order {
	s := sb.sides(instrument, false)
	if s == nil {
		return nil
	}
	tree := s.side(side)

	var out []*Order
	for {
		o, ok := tree.Min()
		if !ok || !o.triggered(lastPrice) {
			break
		}
		tree.PopMin()
		delete(s.orders, o.ID())
		out = append(out, o)
	}
	return out
}

// Remove cancels a dormant stop
func (sb *StopBook) Remove(instrument, orderID string) (*Order, bool) {
	s := sb.sides(instrument, false)
	if s == nil {
		return nil, false
	}
	o, ok := s.orders[orderID]
	if !ok {
		return nil, false
	}
	s.side(o.Side()).Delete(o)
	delete(s.orders, orderID)
	return o, true
}

// Contains reports whether the stop is parked
func (sb *StopBook) Contains(instrument, orderID string) bool {
	s := sb.sides(instrument, false)
	if s == nil {
		return false
	}
	_, ok := s.orders[orderID]
	return ok
}

// Len returns the number of dormant stops on side
func (sb *StopBook) Len(instrument string, side Side) int {
	s := sb.sides(instrument, false)
	if s == nil {
		return 0
	}
	return s.side(side).Len()
}

// Orders returns the dormant stops on side in trigger priority
func (sb *StopBook) Orders(instrument string, side Side) []*Order {
	s := sb.sides(instrument, false)
	if s == nil {
		return nil
	}
	return s.side(side).Items()
}
