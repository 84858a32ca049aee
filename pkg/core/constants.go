package core

import (
	"errors"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// Errors
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidSide      = errors.New("invalid side")
	ErrInvalidType      = errors.New("invalid order type")
	ErrInvalidTif       = errors.New("invalid TIF")
	ErrOrderExists      = errors.New("order exists")
	ErrNonexistentOrder = errors.New("nonexistent order")
	ErrWouldCross       = errors.New("price would cross the opposite side")
)

// MaxPrice is the price carried by market buy orders and reported as the best
// ask of an empty book. Limit prices must stay strictly below it.
var MaxPrice = fpdecimal.FromInt(int64(1_000_000_000_000))

// ConstructionError is returned by the order constructors when a field
// violates the order contract. The wrapped error is one of the sentinels above.
type ConstructionError struct {
	OrderID string
	Field   string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("order %q: %s: %v", e.OrderID, e.Field, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func constructionError(id, field string, err error) error {
	return &ConstructionError{OrderID: id, Field: field, Err: err}
}
