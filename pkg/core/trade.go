package core

import (
	"encoding/json"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Trade is an immutable record of one execution between a resting order and
// an aggressor. Trades are always priced at the resting order's price.
type Trade struct {
	ID               uint64
	Instrument       string
	Price            fpdecimal.Decimal
	Quantity         int64
	RestingOrderID   string
	RestingOwnerID   string
	AggressorOrderID string
	AggressorOwnerID string
	AggressorSide    Side
	Timestamp        time.Time
}

// MarshalJSON implements Marshaler interface
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID               uint64    `json:"id"`
		Instrument       string    `json:"instrument"`
		Price            string    `json:"price"`
		Quantity         int64     `json:"quantity"`
		RestingOrderID   string    `json:"restingOrderID"`
		RestingOwnerID   string    `json:"restingOwnerID"`
		AggressorOrderID string    `json:"aggressorOrderID"`
		AggressorOwnerID string    `json:"aggressorOwnerID"`
		AggressorSide    string    `json:"aggressorSide"`
		Timestamp        time.Time `json:"timestamp"`
	}{
		ID:               t.ID,
		Instrument:       t.Instrument,
		Price:            t.Price.String(),
		Quantity:         t.Quantity,
		RestingOrderID:   t.RestingOrderID,
		RestingOwnerID:   t.RestingOwnerID,
		AggressorOrderID: t.AggressorOrderID,
		AggressorOwnerID: t.AggressorOwnerID,
		AggressorSide:    t.AggressorSide.String(),
		Timestamp:        t.Timestamp,
	})
}
