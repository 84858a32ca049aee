package loadgen

import (
	"testing"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuoteConfig() QuoteConfig {
	return QuoteConfig{
		MakerID:       "test-mm",
		MidPrice:      50000,
		Levels:        3,
		SpreadPercent: 0.1,
		StepPercent:   0.05,
		LevelSize:     10,
	}
}

func TestLayeredSymmetricQuoting(t *testing.T) {
	s := NewLayeredSymmetricQuoting(testQuoteConfig(), zerolog.Nop())

	orders, err := s.Quotes("BTC-USD", 50000)
	require.NoError(t, err)
	require.Len(t, orders, 6)

	for i, o := range orders {
		want := core.Buy
		if i%2 == 1 {
			want = core.Sell
		}
		assert.Equal(t, want, o.Side())
		assert.True(t, o.IsLimitOrder())
		assert.Equal(t, core.GTC, o.TIF())
		assert.Equal(t, int64(10), o.Quantity())
		assert.Equal(t, "test-mm", o.Owner())
		assert.Equal(t, "BTC-USD", o.Instrument())
	}

	// Half spread 25, step 25
	assert.True(t, orders[0].Price().Equal(fpdecimal.FromInt(49975)))
	assert.True(t, orders[1].Price().Equal(fpdecimal.FromInt(50025)))
	assert.True(t, orders[2].Price().Equal(fpdecimal.FromInt(49950)))
	assert.True(t, orders[5].Price().Equal(fpdecimal.FromInt(50075)))

	for i := 2; i < len(orders); i += 2 {
		assert.True(t, orders[i].Price().LessThan(orders[i-2].Price()), "bids step down")
		assert.True(t, orders[i+1].Price().GreaterThan(orders[i-1].Price()), "asks step up")
	}
}

func TestQuoteIDsAreUniqueAcrossRounds(t *testing.T) {
	s := NewLayeredSymmetricQuoting(testQuoteConfig(), zerolog.Nop())

	seen := map[string]bool{}
	for round := 0; round < 3; round++ {
		orders, err := s.Quotes("BTC-USD", 50000)
		require.NoError(t, err)
		for _, o := range orders {
			assert.False(t, seen[o.ID()], o.ID())
			seen[o.ID()] = true
		}
	}
}

func TestQuotesSkipNonPositiveBids(t *testing.T) {
	cfg := testQuoteConfig()
	cfg.StepPercent = 60
	s := NewLayeredSymmetricQuoting(cfg, zerolog.Nop())

	orders, err := s.Quotes("BTC-USD", 1)
	require.NoError(t, err)
	bids := 0
	for _, o := range orders {
		if o.Side() == core.Buy {
			bids++
			assert.True(t, o.Price().GreaterThan(fpdecimal.Zero))
		}
	}
	assert.Equal(t, 2, bids)
	assert.Len(t, orders, 5)
}
