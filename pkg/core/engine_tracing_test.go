package core

import (
	"context"
	"testing"

	"github.com/erain9/matchcore/pkg/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*MatchingEngine, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.InitForTesting(tp.Tracer("core-test"))
	t.Cleanup(otel.ResetForTesting)
	return newTestEngine(), exporter
}

func spanAttrs(kvs []attribute.KeyValue) map[attribute.Key]string {
	out := make(map[attribute.Key]string, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func spansNamed(exporter *tracetest.InMemoryExporter, name string) tracetest.SpanStubs {
	var out tracetest.SpanStubs
	for _, s := range exporter.GetSpans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func TestMatchSpanStatusAndActivations(t *testing.T) {
	e, exporter := newTracedEngine(t)

	submit(t, e, newStopMarket(t, "s1", "carol", Buy, 5, 100))
	submit(t, e, newLimit(t, "a1", "alice", Sell, 20, 101))
	submit(t, e, newLimit(t, "b1", "bob", Buy, 10, 101))
	submit(t, e, newFOKLimit(t, "f1", "bob", Buy, 50, 101))

	matches := spansNamed(exporter, otel.SpanMatchOrder)
	require.Len(t, matches, 4)

	statuses := make([]string, len(matches))
	for i, s := range matches {
		statuses[i] = spanAttrs(s.Attributes)[otel.AttributeOrderStatus]
	}
	assert.Equal(t, []string{StatusParked, StatusStored, StatusFilled, StatusKilled}, statuses)

	var activated []string
	for _, ev := range matches[2].Events {
		if ev.Name == otel.SpanActivateStop {
			activated = append(activated, spanAttrs(ev.Attributes)[otel.AttributeOrderID])
		}
	}
	assert.Equal(t, []string{"s1"}, activated)
	assert.Equal(t, "1", spanAttrs(matches[2].Attributes)[otel.AttributeActivatedCount])
}

func TestCancelAndModifySpans(t *testing.T) {
	e, exporter := newTracedEngine(t)
	ctx := context.Background()

	submit(t, e, newLimit(t, "b1", "alice", Buy, 5, 90))
	require.NoError(t, e.Modify(ctx, testInstrument, "b1", Buy, px(91), 4, 0))
	_, err := e.Cancel(ctx, testInstrument, "b1")
	require.NoError(t, err)
	_, err = e.Cancel(ctx, testInstrument, "zz")
	require.ErrorIs(t, err, ErrNonexistentOrder)

	modifies := spansNamed(exporter, otel.SpanModifyOrder)
	require.Len(t, modifies, 1)
	attrs := spanAttrs(modifies[0].Attributes)
	assert.Equal(t, "b1", attrs[otel.AttributeOrderID])
	assert.Equal(t, "4", attrs[otel.AttributeOrderQuantity])

	cancels := spansNamed(exporter, otel.SpanCancelOrder)
	require.Len(t, cancels, 2)
	assert.Equal(t, "4", spanAttrs(cancels[0].Attributes)[otel.AttributeRemainingQuantity])
	assert.Empty(t, cancels[0].Events)
	require.Len(t, cancels[1].Events, 1)
	assert.Equal(t, "exception", cancels[1].Events[0].Name)
}

func TestDoneStatus(t *testing.T) {
	tests := []struct {
		name string
		done Done
		want string
	}{
		{"filled", Done{Quantity: 10, Processed: 10}, StatusFilled},
		{"partial", Done{Quantity: 10, Processed: 4, Left: 6, Stored: true}, StatusPartial},
		{"stored", Done{Quantity: 10, Left: 10, Stored: true}, StatusStored},
		{"parked", Done{Quantity: 10, Left: 10, Parked: true}, StatusParked},
		{"killed", Done{Quantity: 10, Left: 10, Killed: true}, StatusKilled},
		{"discarded", Done{Quantity: 10, Processed: 3, Left: 7}, StatusDiscarded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.done.status())
		})
	}
}
