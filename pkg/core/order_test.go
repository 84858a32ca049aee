package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstrument = "BTC"

func px(v float64) fpdecimal.Decimal {
	return fpdecimal.FromFloat(v)
}

func newLimit(t testing.TB, id, owner string, side Side, qty int64, price float64) *Order {
	t.Helper()
	o, err := NewLimitOrder(id, owner, testInstrument, side, qty, px(price), GTC)
	require.NoError(t, err)
	return o
}

func newFOKLimit(t testing.TB, id, owner string, side Side, qty int64, price float64) *Order {
	t.Helper()
	o, err := NewLimitOrder(id, owner, testInstrument, side, qty, px(price), FOK)
	require.NoError(t, err)
	return o
}

func newMarket(t testing.TB, id, owner string, side Side, qty int64, tif TIF) *Order {
	t.Helper()
	o, err := NewMarketOrder(id, owner, testInstrument, side, qty, tif)
	require.NoError(t, err)
	return o
}

func newIceberg(t testing.TB, id, owner string, side Side, qty, display int64, price float64) *Order {
	t.Helper()
	o, err := NewIcebergOrder(id, owner, testInstrument, side, qty, display, px(price), GTC)
	require.NoError(t, err)
	return o
}

func newStopLimit(t testing.TB, id, owner string, side Side, qty int64, price, trigger float64) *Order {
	t.Helper()
	o, err := NewStopOrder(id, owner, testInstrument, side, TypeLimit, qty, px(price), px(trigger))
	require.NoError(t, err)
	return o
}

func newStopMarket(t testing.TB, id, owner string, side Side, qty int64, trigger float64) *Order {
	t.Helper()
	o, err := NewStopOrder(id, owner, testInstrument, side, TypeMarket, qty, fpdecimal.Zero, px(trigger))
	require.NoError(t, err)
	return o
}

func TestSide(t *testing.T) {
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "UNKNOWN", Side(7).String())
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestNewOrderValidation(t *testing.T) {
	base := OrderParams{
		ID:         "o1",
		Owner:      "alice",
		Instrument: testInstrument,
		Side:       Buy,
		Type:       TypeLimit,
		Quantity:   10,
		Price:      px(100),
	}

	tests := []struct {
		name   string
		modify func(p *OrderParams)
		field  string
		err    error
	}{
		{"missing id", func(p *OrderParams) { p.ID = "" }, "id", ErrInvalidArgument},
		{"missing instrument", func(p *OrderParams) { p.Instrument = "" }, "instrument", ErrInvalidArgument},
		{"bad side", func(p *OrderParams) { p.Side = Side(5) }, "side", ErrInvalidSide},
		{"bad type", func(p *OrderParams) { p.Type = "STOP" }, "type", ErrInvalidType},
		{"bad tif", func(p *OrderParams) { p.TIF = "IOC" }, "tif", ErrInvalidTif},
		{"zero quantity", func(p *OrderParams) { p.Quantity = 0 }, "quantity", ErrInvalidQuantity},
		{"negative quantity", func(p *OrderParams) { p.Quantity = -3 }, "quantity", ErrInvalidQuantity},
		{"zero price", func(p *OrderParams) { p.Price = fpdecimal.Zero }, "price", ErrInvalidPrice},
		{"price at sentinel", func(p *OrderParams) { p.Price = MaxPrice }, "price", ErrInvalidPrice},
		{"iceberg display zero", func(p *OrderParams) { p.Iceberg = true }, "display quantity", ErrInvalidQuantity},
		{"iceberg display above total", func(p *OrderParams) { p.Iceberg, p.DisplayQty = true, 11 }, "display quantity", ErrInvalidQuantity},
		{"stop without trigger", func(p *OrderParams) { p.Stop = true }, "trigger price", ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.modify(&p)
			o, err := NewOrder(p)
			require.Error(t, err)
			assert.Nil(t, o)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)

			var cerr *ConstructionError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestNewOrderDefaults(t *testing.T) {
	o := newLimit(t, "o1", "alice", Buy, 10, 99)
	assert.Equal(t, GTC, o.TIF())
	assert.Equal(t, int64(10), o.Quantity())
	assert.Equal(t, int64(10), o.OriginalQty())
	assert.Equal(t, int64(10), o.DisplayQty())
	assert.Equal(t, int64(10), o.ShowQty())
	assert.False(t, o.IsIceberg())
	assert.False(t, o.IsStopOrder())
	assert.True(t, o.IsLimitOrder())
	assert.True(t, o.TriggerPrice().Equal(fpdecimal.Zero))
}

func TestMarketOrderPriceSentinel(t *testing.T) {
	buy := newMarket(t, "b", "alice", Buy, 5, GTC)
	sell := newMarket(t, "s", "bob", Sell, 5, FOK)

	assert.True(t, buy.Price().Equal(MaxPrice))
	assert.True(t, sell.Price().Equal(fpdecimal.Zero))
	assert.True(t, buy.IsMarketOrder())
	assert.True(t, sell.IsFOK())
}

func TestIcebergFill(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		display  int64
		fills    []int64
		wantQty  int64
		wantShow int64
		wantDisp int64
	}{
		{"inside slice", 50, 10, []int64{5}, 45, 5, 10},
		{"exactly the slice", 50, 10, []int64{10}, 40, 10, 10},
		{"across one slice", 50, 10, []int64{19}, 31, 1, 10},
		{"then into the next", 50, 10, []int64{19, 2}, 29, 9, 10},
		{"aggressive remainder", 50, 10, []int64{26}, 24, 4, 10},
		{"aggressive then passive", 50, 10, []int64{26, 5}, 19, 9, 10},
		{"tail below display", 25, 10, []int64{20}, 5, 5, 5},
		{"fully consumed", 25, 5, []int64{25}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newIceberg(t, "i", "alice", Sell, tt.total, tt.display, 100)
			for _, f := range tt.fills {
				o.fill(f)
				assert.LessOrEqual(t, o.ShowQty(), o.DisplayQty())
				assert.LessOrEqual(t, o.DisplayQty(), o.Quantity())
			}
			assert.Equal(t, tt.wantQty, o.Quantity())
			assert.Equal(t, tt.wantShow, o.ShowQty())
			assert.Equal(t, tt.wantDisp, o.DisplayQty())
		})
	}
}

func TestPlainFillMirrorsTotal(t *testing.T) {
	o := newLimit(t, "o", "alice", Buy, 50, 100)
	o.fill(30)
	assert.Equal(t, int64(20), o.Quantity())
	assert.Equal(t, int64(20), o.ShowQty())
	assert.Equal(t, int64(20), o.DisplayQty())
}

func TestStopTriggerCondition(t *testing.T) {
	buy := newStopLimit(t, "b", "alice", Buy, 10, 102, 100)
	sell := newStopLimit(t, "s", "bob", Sell, 10, 98, 100)

	assert.False(t, buy.triggered(px(99.5)))
	assert.True(t, buy.triggered(px(100)))
	assert.True(t, buy.triggered(px(101)))

	assert.False(t, sell.triggered(px(100.5)))
	assert.True(t, sell.triggered(px(100)))
	assert.True(t, sell.triggered(px(99)))
}

func TestOrderJSON(t *testing.T) {
	o := newStopLimit(t, "s1", "alice", Sell, 10, 98, 100)

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "s1", decoded["orderID"])
	assert.Equal(t, "SELL", decoded["side"])
	assert.Equal(t, "LIMIT", decoded["type"])
	assert.Equal(t, true, decoded["stop"])
	assert.Equal(t, px(100).String(), decoded["trigger"])
	assert.Equal(t, string(data), o.String())
}
