package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool {
	return s == Buy || s == Sell
}

// OrderType represents type of the order
type OrderType string

// Order types
const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// TIF represents time in force parameter
type TIF string

// Order Time In Force (TIF)
const (
	GTC TIF = "GTC" // Good Till Canceled
	FOK TIF = "FOK" // Fill Or Kill
)

// OrderParams describes an order to be built by NewOrder.
type OrderParams struct {
	ID         string
	Owner      string
	Instrument string
	Side       Side
	Type       OrderType
	Quantity   int64
	// Price is ignored for market orders.
	Price fpdecimal.Decimal
	TIF   TIF
	// Iceberg orders show at most DisplayQty of their quantity at a time.
	Iceberg    bool
	DisplayQty int64
	// Stop orders stay dormant until a trade reaches Trigger.
	Stop    bool
	Trigger fpdecimal.Decimal
}

// Order stores information about order
type Order struct {
	id          string
	owner       string
	instrument  string
	orderType   OrderType
	side        Side
	tif         TIF
	quantity    int64
	originalQty int64
	price       fpdecimal.Decimal
	iceberg     bool
	displayQty  int64
	showQty     int64
	stop        bool
	trigger     fpdecimal.Decimal
	seq         uint64
}

// NewOrder validates params and builds an Order. Validation failures are
// reported as *ConstructionError.
func NewOrder(p OrderParams) (*Order, error) {
	if p.ID == "" {
		return nil, constructionError(p.ID, "id", ErrInvalidArgument)
	}
	if p.Instrument == "" {
		return nil, constructionError(p.ID, "instrument", ErrInvalidArgument)
	}
	if !p.Side.valid() {
		return nil, constructionError(p.ID, "side", ErrInvalidSide)
	}
	if p.Type != TypeMarket && p.Type != TypeLimit {
		return nil, constructionError(p.ID, "type", ErrInvalidType)
	}
	if p.TIF == "" {
		p.TIF = GTC
	}
	if p.TIF != GTC && p.TIF != FOK {
		return nil, constructionError(p.ID, "tif", ErrInvalidTif)
	}
	if p.Quantity <= 0 {
		return nil, constructionError(p.ID, "quantity", ErrInvalidQuantity)
	}

	price := p.Price
	if p.Type == TypeMarket {
		price = marketPrice(p.Side)
	} else if price.LessThanOrEqual(fpdecimal.Zero) || price.GreaterThanOrEqual(MaxPrice) {
		return nil, constructionError(p.ID, "price", ErrInvalidPrice)
	}

	displayQty := p.Quantity
	if p.Iceberg {
		if p.DisplayQty <= 0 || p.DisplayQty > p.Quantity {
			return nil, constructionError(p.ID, "display quantity", ErrInvalidQuantity)
		}
		displayQty = p.DisplayQty
	}

	trigger := fpdecimal.Zero
	if p.Stop {
		if p.Trigger.LessThanOrEqual(fpdecimal.Zero) || p.Trigger.GreaterThanOrEqual(MaxPrice) {
			return nil, constructionError(p.ID, "trigger price", ErrInvalidPrice)
		}
		trigger = p.Trigger
	}

	return &Order{
		id:          p.ID,
		owner:       p.Owner,
		instrument:  p.Instrument,
		orderType:   p.Type,
		side:        p.Side,
		tif:         p.TIF,
		quantity:    p.Quantity,
		originalQty: p.Quantity,
		price:       price,
		iceberg:     p.Iceberg,
		displayQty:  displayQty,
		showQty:     displayQty,
		stop:        p.Stop,
		trigger:     trigger,
	}, nil
}

// NewMarketOrder creates a market order. Buy orders carry MaxPrice and sell
// orders a zero price so they cross every resting level.
func NewMarketOrder(orderID, owner, instrument string, side Side, quantity int64, tif TIF) (*Order, error) {
	return NewOrder(OrderParams{
		ID:         orderID,
		Owner:      owner,
		Instrument: instrument,
		Side:       side,
		Type:       TypeMarket,
		Quantity:   quantity,
		TIF:        tif,
	})
}

// NewLimitOrder creates a limit order
func NewLimitOrder(orderID, owner, instrument string, side Side, quantity int64, price fpdecimal.Decimal, tif TIF) (*Order, error) {
	return NewOrder(OrderParams{
		ID:         orderID,
		Owner:      owner,
		Instrument: instrument,
		Side:       side,
		Type:       TypeLimit,
		Quantity:   quantity,
		Price:      price,
		TIF:        tif,
	})
}

// NewStopOrder creates a dormant order of the given type. Once triggered it
// behaves as an ordinary market or limit order.
func NewStopOrder(orderID, owner, instrument string, side Side, orderType OrderType, quantity int64, price, trigger fpdecimal.Decimal) (*Order, error) {
	return NewOrder(OrderParams{
		ID:         orderID,
		Owner:      owner,
		Instrument: instrument,
		Side:       side,
		Type:       orderType,
		Quantity:   quantity,
		Price:      price,
		Stop:       true,
		Trigger:    trigger,
	})
}

// NewIcebergOrder creates a limit order showing at most displayQty at a time
func NewIcebergOrder(orderID, owner, instrument string, side Side, quantity, displayQty int64, price fpdecimal.Decimal, tif TIF) (*Order, error) {
	return NewOrder(OrderParams{
		ID:         orderID,
		Owner:      owner,
		Instrument: instrument,
		Side:       side,
		Type:       TypeLimit,
		Quantity:   quantity,
		Price:      price,
		TIF:        tif,
		Iceberg:    true,
		DisplayQty: displayQty,
	})
}

func marketPrice(side Side) fpdecimal.Decimal {
	if side == Buy {
		return MaxPrice
	}
	return fpdecimal.Zero
}

// ID returns OrderID field copy
func (o *Order) ID() string {
	return o.id
}

// Owner returns the owner id
func (o *Order) Owner() string {
	return o.owner
}

// Instrument returns the instrument the order trades
func (o *Order) Instrument() string {
	return o.instrument
}

// Type returns order type
func (o *Order) Type() OrderType {
	return o.orderType
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// TIF returns tif field
func (o *Order) TIF() TIF {
	return o.tif
}

// Quantity returns remaining quantity
func (o *Order) Quantity() int64 {
	return o.quantity
}

// OriginalQty returns originalQty field copy
func (o *Order) OriginalQty() int64 {
	return o.originalQty
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// IsIceberg reports whether the order hides part of its quantity
func (o *Order) IsIceberg() bool {
	return o.iceberg
}

// DisplayQty returns the size of a visible iceberg slice. For plain orders it
// equals the remaining quantity.
func (o *Order) DisplayQty() int64 {
	return o.displayQty
}

// ShowQty returns the quantity currently visible in the book
func (o *Order) ShowQty() int64 {
	return o.showQty
}

// IsStopOrder returns true while the order waits for its trigger
func (o *Order) IsStopOrder() bool {
	return o.stop
}

// TriggerPrice returns the stop trigger, zero for non-stop orders
func (o *Order) TriggerPrice() fpdecimal.Decimal {
	return o.trigger
}

// Seq returns the arrival sequence assigned when the order entered a book
func (o *Order) Seq() uint64 {
	return o.seq
}

// IsMarketOrder returns true if Order is MARKET
func (o *Order) IsMarketOrder() bool {
	return o.orderType == TypeMarket
}

// IsLimitOrder returns true if Order is LIMIT
func (o *Order) IsLimitOrder() bool {
	return o.orderType == TypeLimit
}

// IsFOK returns true for fill-or-kill orders
func (o *Order) IsFOK() bool {
	return o.tif == FOK
}

// crosses reports whether a resting order at price is acceptable to o.
func (o *Order) crosses(price fpdecimal.Decimal) bool {
	if o.side == Buy {
		return price.LessThanOrEqual(o.price)
	}
	return price.GreaterThanOrEqual(o.price)
}

// triggered reports whether a trade at price activates this stop.
func (o *Order) triggered(price fpdecimal.Decimal) bool {
	if o.side == Buy {
		return o.trigger.LessThanOrEqual(price)
	}
	return o.trigger.GreaterThanOrEqual(price)
}

// fill removes traded lots from the order and refreshes the visible slice.
// An iceberg whose shown slice is exhausted reveals a new slice, carrying
// over any excess traded beyond the shown amount.
func (o *Order) fill(traded int64) {
	o.quantity -= traded
	if o.quantity <= 0 {
		o.quantity = 0
		o.displayQty = 0
		o.showQty = 0
		return
	}
	if !o.iceberg {
		o.displayQty = o.quantity
		o.showQty = o.quantity
		return
	}

	if traded < o.showQty {
		o.showQty -= traded
	} else {
		overflow := traded - o.showQty
		o.showQty = o.displayQty - overflow%o.displayQty
	}
	if o.displayQty > o.quantity {
		o.displayQty = o.quantity
	}
	if o.showQty > o.displayQty {
		o.showQty = o.displayQty
	}
}

// update replaces price and quantities of a resting order.
func (o *Order) update(price fpdecimal.Decimal, quantity, displayQty int64) {
	o.price = price
	o.quantity = quantity
	if !o.iceberg {
		o.displayQty = quantity
		o.showQty = quantity
		return
	}
	if displayQty <= 0 {
		displayQty = o.displayQty
	}
	if displayQty > quantity {
		displayQty = quantity
	}
	o.displayQty = displayQty
	o.showQty = displayQty
}

// activate turns a triggered stop into a live order.
func (o *Order) activate() {
	o.stop = false
}

// ToSimple returns a value snapshot of the order
func (o *Order) ToSimple() SimpleOrder {
	return SimpleOrder{
		OrderID:     o.id,
		Owner:       o.owner,
		Instrument:  o.instrument,
		Type:        o.orderType,
		Side:        o.side,
		TIF:         o.tif,
		Quantity:    o.quantity,
		OriginalQty: o.originalQty,
		Price:       o.price,
		Iceberg:     o.iceberg,
		DisplayQty:  o.displayQty,
		ShowQty:     o.showQty,
		Stop:        o.stop,
		Trigger:     o.trigger,
		Seq:         o.seq,
	}
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	s := o.ToSimple()
	return s.MarshalJSON()
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := json.Marshal(o)
	return string(j)
}
