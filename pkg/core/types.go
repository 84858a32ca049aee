package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// SimpleOrder is a value copy of an Order, safe to hand out of the engine.
type SimpleOrder struct {
	OrderID     string
	Owner       string
	Instrument  string
	Type        OrderType
	Side        Side
	TIF         TIF
	Quantity    int64
	OriginalQty int64
	Price       fpdecimal.Decimal
	Iceberg     bool
	DisplayQty  int64
	ShowQty     int64
	Stop        bool
	Trigger     fpdecimal.Decimal
	Seq         uint64
}

// MarshalJSON implements Marshaler interface
func (s SimpleOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OrderID     string    `json:"orderID"`
		Owner       string    `json:"owner"`
		Instrument  string    `json:"instrument"`
		Type        OrderType `json:"type"`
		Side        string    `json:"side"`
		TIF         TIF       `json:"tif"`
		Quantity    int64     `json:"quantity"`
		OriginalQty int64     `json:"originalQty"`
		Price       string    `json:"price"`
		Iceberg     bool      `json:"iceberg,omitempty"`
		DisplayQty  int64     `json:"displayQty"`
		ShowQty     int64     `json:"showQty"`
		Stop        bool      `json:"stop,omitempty"`
		Trigger     string    `json:"trigger,omitempty"`
		Seq         uint64    `json:"seq"`
	}{
		OrderID:     s.OrderID,
		Owner:       s.Owner,
		Instrument:  s.Instrument,
		Type:        s.Type,
		Side:        s.Side.String(),
		TIF:         s.TIF,
		Quantity:    s.Quantity,
		OriginalQty: s.OriginalQty,
		Price:       s.Price.String(),
		Iceberg:     s.Iceberg,
		DisplayQty:  s.DisplayQty,
		ShowQty:     s.ShowQty,
		Stop:        s.Stop,
		Trigger:     triggerString(s),
		Seq:         s.Seq,
	})
}

func triggerString(s SimpleOrder) string {
	if !s.Stop {
		return ""
	}
	return s.Trigger.String()
}

// PriceLevel aggregates the resting orders at one price
type PriceLevel struct {
	Price fpdecimal.Decimal
	// Quantity is the total remaining quantity, hidden iceberg lots included.
	Quantity int64
	// Shown is the quantity visible to market participants.
	Shown  int64
	Orders int
}

// Done contains information about the order execution result
type Done struct {
	// Initial order processed
	Order *Order
	// Original quantity of the order
	Quantity int64
	// Trades executed by the order and by every stop it activated
	Trades []Trade
	// Stop orders activated during this call, in activation order
	Activated []*Order
	// Order was a fill-or-kill that could not be filled completely
	Killed bool
	// Order rests in the book after the call
	Stored bool
	// Order was parked in the stop book
	Parked bool
	// Remaining quantity left for the initial order
	Left int64
	// Total quantity processed for the initial order
	Processed int64
}

// Order statuses reported by Done
const (
	StatusFilled    = "filled"
	StatusPartial   = "partially_filled"
	StatusStored    = "stored"
	StatusParked    = "parked"
	StatusKilled    = "killed"
	StatusDiscarded = "discarded"
)

func newDone(order *Order) *Done {
	return &Done{
		Order:     order,
		Quantity:  order.OriginalQty(),
		Trades:    make([]Trade, 0),
		Activated: make([]*Order, 0),
		Left:      order.Quantity(),
	}
}

func (d *Done) appendTrade(t Trade) {
	d.Trades = append(d.Trades, t)
}

func (d *Done) appendActivated(order *Order) {
	d.Activated = append(d.Activated, order)
}

// setLeft records the remaining quantity of the initial order
func (d *Done) setLeft(left int64) {
	d.Left = left
	d.Processed = d.Quantity - left
}

// status names the outcome of the initial order
func (d *Done) status() string {
	switch {
	case d.Killed:
		return StatusKilled
	case d.Parked:
		return StatusParked
	case d.Stored && d.Processed > 0:
		return StatusPartial
	case d.Stored:
		return StatusStored
	case d.Left == 0:
		return StatusFilled
	}
	return StatusDiscarded
}

// MarshalJSON implements json.Marshaler interface for Done
func (d *Done) MarshalJSON() ([]byte, error) {
	activatedIDs := make([]string, len(d.Activated))
	for i, order := range d.Activated {
		activatedIDs[i] = order.ID()
	}

	return json.Marshal(struct {
		Order     SimpleOrder `json:"order"`
		Trades    []Trade     `json:"trades"`
		Activated []string    `json:"activated"`
		Killed    bool        `json:"killed"`
		Stored    bool        `json:"stored"`
		Parked    bool        `json:"parked"`
		Left      int64       `json:"left"`
		Processed int64       `json:"processed"`
	}{
		Order:     d.Order.ToSimple(),
		Trades:    d.Trades,
		Activated: activatedIDs,
		Killed:    d.Killed,
		Stored:    d.Stored,
		Parked:    d.Parked,
		Left:      d.Left,
		Processed: d.Processed,
	})
}
