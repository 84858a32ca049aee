package loadgen

import (
	"context"
	"testing"
	"time"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/erain9/matchcore/pkg/exchange"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Instruments: []string{"BTC-USD", "ETH-USD"},
		Workers:     4,
		MaxOrders:   250,
		Owners:      10,
		Seed:        1,
		Quotes: QuoteConfig{
			MakerID:       "mm",
			MidPrice:      100,
			Levels:        5,
			SpreadPercent: 0.2,
			StepPercent:   0.1,
			LevelSize:     50,
		},
		Flow: FlowConfig{
			MarketRatio:      0.15,
			FOKRatio:         0.05,
			IcebergRatio:     0.1,
			StopRatio:        0.1,
			MaxQuantity:      20,
			PriceBandPercent: 1,
		},
	}
}

func newTestExchange() *exchange.Exchange {
	return exchange.New(core.NewMatchingEngine(core.DefaultEngineConfig()))
}

func TestRun(t *testing.T) {
	x := newTestExchange()
	r, err := New(testConfig(), x, zerolog.Nop())
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4*250), rep.Submitted)
	assert.Equal(t, int64(0), rep.Rejected)
	assert.Equal(t, int64(20), rep.Quotes)
	assert.Equal(t, rep.Submitted, rep.Latency.TotalCount())
	assert.Greater(t, rep.Trades, int64(0))
	assert.Equal(t, int64(len(x.Trades())), rep.Trades)
	assert.Greater(t, rep.Throughput(), 0.0)

	for _, info := range x.Instruments() {
		snap, err := x.Depth(info.Name, 1)
		require.NoError(t, err)
		if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
			assert.True(t, snap.BestBid.LessThan(snap.BestAsk), info.Name)
		}
	}
	rep.Log(zerolog.Nop())
}

func TestRunsShareExchange(t *testing.T) {
	x := newTestExchange()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r, err := New(testConfig(), x, zerolog.Nop())
		require.NoError(t, err)
		rep, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rep.Rejected)
	}
	assert.Len(t, x.Instruments(), 2)
}

func TestRequoteReplacesLadder(t *testing.T) {
	x := newTestExchange()
	cfg := testConfig()
	cfg.Instruments = []string{"BTC-USD"}
	r, err := New(cfg, x, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Requote(ctx))
	first := r.LiveQuotes("BTC-USD")
	require.Len(t, first, 10)

	require.NoError(t, r.Requote(ctx))
	second := r.LiveQuotes("BTC-USD")
	require.Len(t, second, 10)

	for _, id := range first {
		_, ok := x.Order("BTC-USD", id)
		assert.False(t, ok, id)
	}
	for _, id := range second {
		_, ok := x.Order("BTC-USD", id)
		assert.True(t, ok, id)
	}
}

func TestRunCanceledContext(t *testing.T) {
	x := newTestExchange()
	cfg := testConfig()
	cfg.MaxOrders = 0
	cfg.Duration = 0
	_, err := New(cfg, x, zerolog.Nop())
	assert.Error(t, err)

	cfg.MaxOrders = 1000
	r, err := New(cfg, x, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordLatencyClampsOutliers(t *testing.T) {
	h := newLatencyHistogram()

	recordLatency(h, 0)
	recordLatency(h, 250*time.Microsecond)
	recordLatency(h, 2*time.Minute)

	assert.Equal(t, int64(3), h.TotalCount())
	assert.GreaterOrEqual(t, h.Max(), int64(59*time.Second/time.Microsecond))
}

func TestLastTradePrice(t *testing.T) {
	x := newTestExchange()
	p := NewLastTradePrice(x, 123)
	ctx := context.Background()

	got, err := p.Price(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 123.0, got)

	cfg := testConfig()
	cfg.Instruments = []string{"BTC-USD"}
	cfg.Flow = FlowConfig{MarketRatio: 1, MaxQuantity: 1}
	cfg.Workers = 1
	cfg.MaxOrders = 1
	r, err := New(cfg, x, zerolog.Nop())
	require.NoError(t, err)
	rep, err := r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), rep.Trades)

	got, err = p.Price(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.True(t, got == 99.9 || got == 100.1, got)
}
