// Package loadgen drives an exchange with layered maker quotes and a random
// taker flow, measuring submission latency.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/erain9/matchcore/pkg/core"
	"github.com/erain9/matchcore/pkg/exchange"
	"github.com/erain9/matchcore/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// PriceSource supplies the reference price quotes and flow are built around
type PriceSource interface {
	Price(ctx context.Context, instrument string) (float64, error)
}

// LastTradePrice reads the last trade price from an exchange and falls back
// to a fixed price before the first trade.
type LastTradePrice struct {
	x        *exchange.Exchange
	fallback float64
}

// NewLastTradePrice creates a LastTradePrice source
func NewLastTradePrice(x *exchange.Exchange, fallback float64) *LastTradePrice {
	return &LastTradePrice{x: x, fallback: fallback}
}

// Price implements PriceSource
func (p *LastTradePrice) Price(_ context.Context, instrument string) (float64, error) {
	info, err := p.x.Instrument(instrument)
	if errors.Is(err, exchange.ErrInstrumentNotFound) || (err == nil && !info.HasLastPrice) {
		return p.fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(info.LastPrice.String(), 64)
}

// Report summarizes one run
type Report struct {
	Submitted int64
	Rejected  int64
	Trades    int64
	Killed    int64
	Activated int64
	Stored    int64
	Parked    int64
	Quotes    int64
	Elapsed   time.Duration
	// Latency holds submission latencies in microseconds
	Latency *hdrhistogram.Histogram
}

// Throughput returns accepted submissions per second
func (r *Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Submitted-r.Rejected) / r.Elapsed.Seconds()
}

// Log writes the summary and latency quantiles
func (r *Report) Log(logger zerolog.Logger) {
	logger.Info().
		Int64("submitted", r.Submitted).
		Int64("rejected", r.Rejected).
		Int64("trades", r.Trades).
		Int64("fok_killed", r.Killed).
		Int64("stops_activated", r.Activated).
		Int64("stored", r.Stored).
		Int64("parked", r.Parked).
		Int64("quotes", r.Quotes).
		Dur("elapsed", r.Elapsed).
		Float64("orders_per_sec", r.Throughput()).
		Msg("load test completed")

	if r.Latency == nil || r.Latency.TotalCount() == 0 {
		return
	}
	logger.Info().
		Float64("mean_us", r.Latency.Mean()).
		Int64("p50_us", r.Latency.ValueAtQuantile(50)).
		Int64("p90_us", r.Latency.ValueAtQuantile(90)).
		Int64("p99_us", r.Latency.ValueAtQuantile(99)).
		Int64("p999_us", r.Latency.ValueAtQuantile(99.9)).
		Int64("max_us", r.Latency.Max()).
		Msg("submission latency")
}

func (r *Report) add(res exchange.Result) {
	r.Trades += int64(len(res.Trades))
	r.Activated += int64(len(res.Activated))
	if res.Killed {
		r.Killed++
	}
	if res.Stored {
		r.Stored++
	}
	if res.Parked {
		r.Parked++
	}
}

func (r *Report) merge(o *Report) {
	r.Submitted += o.Submitted
	r.Rejected += o.Rejected
	r.Trades += o.Trades
	r.Killed += o.Killed
	r.Activated += o.Activated
	r.Stored += o.Stored
	r.Parked += o.Parked
	r.Latency.Merge(o.Latency)
}

func newLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)
}

// recordLatency records d in microseconds, clamped to the histogram range
func recordLatency(h *hdrhistogram.Histogram, d time.Duration) {
	v := min(max(1, d.Microseconds()), h.HighestTrackableValue())
	_ = h.RecordValue(v)
}

// Runner quotes and trades against one Exchange. Order ids carry a per-run
// prefix so several runs can share an exchange.
type Runner struct {
	id       string
	cfg      Config
	x        *exchange.Exchange
	strategy QuotingStrategy
	prices   PriceSource
	logger   zerolog.Logger

	mu     sync.Mutex
	quotes map[string][]string // instrument -> live quote ids
	quoted int64
}

// New creates a Runner using LayeredSymmetricQuoting and the exchange's last
// trade price.
func New(cfg Config, x *exchange.Exchange, logger zerolog.Logger) (*Runner, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid load generator config: %w", err)
	}
	id := uuid.NewString()
	if cfg.Quotes.IDPrefix == "" {
		cfg.Quotes.IDPrefix = id[:8] + "-" + cfg.Quotes.MakerID
	}
	return &Runner{
		id:       id,
		cfg:      cfg,
		x:        x,
		strategy: NewLayeredSymmetricQuoting(cfg.Quotes, logger),
		prices:   NewLastTradePrice(x, cfg.Quotes.MidPrice),
		logger:   logger.With().Str("component", "loadgen").Str("run_id", id).Logger(),
		quotes:   make(map[string][]string),
	}, nil
}

// Run places the initial quotes, then submits flow from cfg.Workers workers
// until the duration elapses, every worker reaches MaxOrders, or ctx ends.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx = logging.WithRequestID(ctx, r.id)
	if err := r.Requote(ctx); err != nil {
		return nil, fmt.Errorf("failed to place initial quotes: %w", err)
	}

	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	limit := rate.Inf
	if r.cfg.Rate > 0 {
		limit = rate.Limit(r.cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, r.cfg.Workers)

	r.logger.Info().
		Strs("instruments", r.cfg.Instruments).
		Int("workers", r.cfg.Workers).
		Float64("rate", r.cfg.Rate).
		Dur("duration", r.cfg.Duration).
		Int("max_orders", r.cfg.MaxOrders).
		Msg("starting load test")

	stopRequote := make(chan struct{})
	var requoteWG sync.WaitGroup
	if r.cfg.RequoteInterval > 0 {
		requoteWG.Add(1)
		go r.requoteLoop(ctx, stopRequote, &requoteWG)
	}

	start := time.Now()
	reports := make([]*Report, r.cfg.Workers)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			reports[w] = r.work(ctx, w, limiter)
		}(w)
	}
	wg.Wait()
	close(stopRequote)
	requoteWG.Wait()

	total := &Report{Latency: newLatencyHistogram(), Elapsed: time.Since(start)}
	for _, rep := range reports {
		total.merge(rep)
	}
	r.mu.Lock()
	total.Quotes = r.quoted
	r.mu.Unlock()
	return total, nil
}

func (r *Runner) work(ctx context.Context, w int, limiter *rate.Limiter) *Report {
	rep := &Report{Latency: newLatencyHistogram()}
	flow := NewFlow(r.cfg.Flow, fmt.Sprintf("%s-w%d", r.id[:8], w), r.cfg.Owners, r.cfg.Seed+int64(w))
	logger := r.logger.With().Int("worker", w).Logger()

	for i := 0; r.cfg.MaxOrders <= 0 || i < r.cfg.MaxOrders; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return rep
		}

		instrument := r.cfg.Instruments[(w+i)%len(r.cfg.Instruments)]
		mid, err := r.prices.Price(ctx, instrument)
		if err != nil {
			logger.Error().Err(err).Str("instrument", instrument).Msg("failed to fetch price")
			continue
		}
		order, err := flow.Next(instrument, mid)
		if err != nil {
			logger.Error().Err(err).Msg("failed to build order")
			continue
		}

		start := time.Now()
		res, err := r.x.Submit(ctx, order)
		elapsed := time.Since(start)
		if err != nil && ctx.Err() != nil {
			return rep
		}

		rep.Submitted++
		recordLatency(rep.Latency, elapsed)
		if err != nil {
			rep.Rejected++
			logger.Debug().Err(err).Str("order_id", order.ID()).Msg("order rejected")
			continue
		}
		rep.add(res)
	}
	return rep
}

func (r *Runner) requoteLoop(ctx context.Context, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.cfg.RequoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := r.Requote(ctx); err != nil {
				r.logger.Error().Err(err).Msg("failed to update quotes")
			}
		}
	}
}

// ID returns the run id
func (r *Runner) ID() string {
	return r.id
}

// Requote cancels the maker's live quotes and places a fresh ladder around
// the current price of every instrument.
func (r *Runner) Requote(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, instrument := range r.cfg.Instruments {
		r.cancelQuotes(ctx, instrument)

		mid, err := r.prices.Price(ctx, instrument)
		if err != nil {
			return fmt.Errorf("failed to fetch price: %w", err)
		}
		orders, err := r.strategy.Quotes(instrument, mid)
		if err != nil {
			return fmt.Errorf("failed to calculate quotes: %w", err)
		}

		for _, o := range orders {
			res, err := r.x.Submit(ctx, o)
			if err != nil {
				return fmt.Errorf("failed to place quote %s: %w", o.ID(), err)
			}
			r.quoted++
			if res.Stored {
				r.quotes[instrument] = append(r.quotes[instrument], o.ID())
			}
		}
		r.logger.Debug().Str("instrument", instrument).Float64("mid", mid).Int("quotes", len(orders)).Msg("quotes placed")
	}
	return nil
}

// cancelQuotes drops quotes that were filled in the meantime
func (r *Runner) cancelQuotes(ctx context.Context, instrument string) {
	for _, id := range r.quotes[instrument] {
		if _, err := r.x.Cancel(ctx, instrument, id); err != nil && !errors.Is(err, core.ErrNonexistentOrder) {
			r.logger.Error().Err(err).Str("order_id", id).Msg("failed to cancel quote")
		}
	}
	r.quotes[instrument] = r.quotes[instrument][:0]
}

// LiveQuotes returns the ids of the quotes placed by the last Requote that
// were resting at the time
func (r *Runner) LiveQuotes(instrument string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.quotes[instrument]...)
}
