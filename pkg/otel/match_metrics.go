package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	matchMetrics     *MatchMetrics
	matchMetricsOnce sync.Once
)

// MatchMetrics holds the matching engine instruments. A zero MatchMetrics is
// valid and records nothing.
type MatchMetrics struct {
	ordersSubmitted metric.Int64Counter
	tradesTotal     metric.Int64Counter
	fokKilled       metric.Int64Counter
	stopsActivated  metric.Int64Counter
	matchDuration   metric.Float64Histogram
}

// GetMatchMetrics returns the MatchMetrics singleton, built from the global
// meter provider on first use.
func GetMatchMetrics() *MatchMetrics {
	matchMetricsOnce.Do(func() {
		m, err := NewMatchMetrics(otel.GetMeterProvider().Meter(instrumentationName))
		if err != nil {
			m = &MatchMetrics{}
		}
		matchMetrics = m
	})
	return matchMetrics
}

// NewMatchMetrics creates the instruments on meter
func NewMatchMetrics(meter metric.Meter) (*MatchMetrics, error) {
	ordersSubmitted, err := meter.Int64Counter(
		"matchcore.orders.submitted.total",
		metric.WithDescription("Total number of orders submitted for matching"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	tradesTotal, err := meter.Int64Counter(
		"matchcore.trades.total",
		metric.WithDescription("Total number of trades executed"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	fokKilled, err := meter.Int64Counter(
		"matchcore.fok.killed.total",
		metric.WithDescription("Fill-or-kill orders discarded without trading"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	stopsActivated, err := meter.Int64Counter(
		"matchcore.stops.activated.total",
		metric.WithDescription("Stop orders activated by a trade"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	matchDuration, err := meter.Float64Histogram(
		"matchcore.match.duration",
		metric.WithDescription("Time spent matching one submission, cascade included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MatchMetrics{
		ordersSubmitted: ordersSubmitted,
		tradesTotal:     tradesTotal,
		fokKilled:       fokKilled,
		stopsActivated:  stopsActivated,
		matchDuration:   matchDuration,
	}, nil
}

// RecordSubmitted counts a submission
func (m *MatchMetrics) RecordSubmitted(ctx context.Context, instrument, orderType string) {
	if m == nil || m.ordersSubmitted == nil {
		return
	}
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
		attribute.String(AttributeOrderType, orderType),
	))
}

// RecordTrades counts executed trades
func (m *MatchMetrics) RecordTrades(ctx context.Context, instrument string, count int64) {
	if m == nil || m.tradesTotal == nil || count == 0 {
		return
	}
	m.tradesTotal.Add(ctx, count, metric.WithAttributes(attribute.String(AttributeInstrument, instrument)))
}

// RecordFOKKilled counts a killed fill-or-kill order
func (m *MatchMetrics) RecordFOKKilled(ctx context.Context, instrument string) {
	if m == nil || m.fokKilled == nil {
		return
	}
	m.fokKilled.Add(ctx, 1, metric.WithAttributes(attribute.String(AttributeInstrument, instrument)))
}

// RecordStopsActivated counts activated stops
func (m *MatchMetrics) RecordStopsActivated(ctx context.Context, instrument string, count int64) {
	if m == nil || m.stopsActivated == nil || count == 0 {
		return
	}
	m.stopsActivated.Add(ctx, count, metric.WithAttributes(attribute.String(AttributeInstrument, instrument)))
}

// RecordDuration records how long one submission took
func (m *MatchMetrics) RecordDuration(ctx context.Context, instrument string, d time.Duration) {
	if m == nil || m.matchDuration == nil {
		return
	}
	m.matchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttributeInstrument, instrument)))
}
