package loadgen

import (
	"fmt"
	"math"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
)

// QuotingStrategy produces the resting orders a maker keeps around a price
type QuotingStrategy interface {
	Quotes(instrument string, mid float64) ([]*core.Order, error)
}

// LayeredSymmetricQuoting quotes Levels bid/ask pairs, the first pair
// SpreadPercent apart and each further level StepPercent away from the last.
type LayeredSymmetricQuoting struct {
	cfg    QuoteConfig
	logger zerolog.Logger
	round  int
}

// NewLayeredSymmetricQuoting creates a new LayeredSymmetricQuoting strategy
func NewLayeredSymmetricQuoting(cfg QuoteConfig, logger zerolog.Logger) *LayeredSymmetricQuoting {
	return &LayeredSymmetricQuoting{
		cfg:    cfg,
		logger: logger.With().Str("component", "quoting").Logger(),
	}
}

// Quotes implements QuotingStrategy. Order ids are unique per call.
func (s *LayeredSymmetricQuoting) Quotes(instrument string, mid float64) ([]*core.Order, error) {
	halfSpread := mid * (s.cfg.SpreadPercent / 2 / 100)
	step := mid * (s.cfg.StepPercent / 100)
	s.round++

	orders := make([]*core.Order, 0, s.cfg.Levels*2)
	for i := 1; i <= s.cfg.Levels; i++ {
		bidPrice := roundPrice(mid - halfSpread - float64(i-1)*step)
		askPrice := roundPrice(mid + halfSpread + float64(i-1)*step)

		// Deep levels can fall through zero on a wide ladder
		if bidPrice.GreaterThan(fpdecimal.Zero) {
			bid, err := core.NewLimitOrder(s.quoteID(instrument, "buy", i), s.cfg.MakerID, instrument, core.Buy, s.cfg.LevelSize, bidPrice, core.GTC)
			if err != nil {
				return nil, err
			}
			orders = append(orders, bid)
		}

		ask, err := core.NewLimitOrder(s.quoteID(instrument, "sell", i), s.cfg.MakerID, instrument, core.Sell, s.cfg.LevelSize, askPrice, core.GTC)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ask)

		s.logger.Debug().
			Str("instrument", instrument).
			Int("level", i).
			Str("bid_price", bidPrice.String()).
			Str("ask_price", askPrice.String()).
			Int64("quantity", s.cfg.LevelSize).
			Msg("calculated quote pair")
	}
	return orders, nil
}

func (s *LayeredSymmetricQuoting) quoteID(instrument, side string, level int) string {
	prefix := s.cfg.IDPrefix
	if prefix == "" {
		prefix = s.cfg.MakerID
	}
	return fmt.Sprintf("%s-%s-%s-%d-%d", prefix, instrument, side, level, s.round)
}

func roundPrice(p float64) fpdecimal.Decimal {
	return fpdecimal.FromFloat(math.Round(p*100) / 100)
}
