package main

import (
	"context"
	"fmt"

	"github.com/erain9/matchcore/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

const instrument = "BTC-USD"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	ctx := context.Background()

	fmt.Println("== fill-or-kill market buy larger than the book")
	engine := core.NewMatchingEngine(core.DefaultEngineConfig())
	must(engine.Match(ctx, must(core.NewLimitOrder("ask-1", "alice", instrument, core.Sell, 50, fpdecimal.FromInt(100), core.GTC))))
	done := must(engine.Match(ctx, must(core.NewMarketOrder("fok-1", "bob", instrument, core.Buy, 75, core.FOK))))
	book, _ := engine.Book(instrument)
	fmt.Printf("killed=%v trades=%d resting ask=%d@%s\n", done.Killed, len(done.Trades), book.LevelQuantity(core.Sell, fpdecimal.FromInt(100)), book.BestAskPrice())

	fmt.Println("\n== iceberg ask refreshes its visible slice")
	engine = core.NewMatchingEngine(core.DefaultEngineConfig())
	iceberg := must(core.NewIcebergOrder("ice-1", "alice", instrument, core.Sell, 50, 10, fpdecimal.FromInt(100), core.GTC))
	must(engine.Match(ctx, iceberg))
	done = must(engine.Match(ctx, must(core.NewLimitOrder("bid-1", "bob", instrument, core.Buy, 5, fpdecimal.FromInt(100), core.GTC))))
	fmt.Printf("trades=%d total=%d displayed=%d shown=%d\n", len(done.Trades), iceberg.Quantity(), iceberg.DisplayQty(), iceberg.ShowQty())

	fmt.Println("\n== buy-stop activated by a trade above its trigger")
	engine = core.NewMatchingEngine(core.DefaultEngineConfig())
	done = must(engine.Match(ctx, must(core.NewStopOrder("stop-1", "carol", instrument, core.Buy, core.TypeMarket, 50, fpdecimal.Zero, fpdecimal.FromInt(100)))))
	fmt.Printf("parked=%v dormant buy-stops=%d\n", done.Parked, engine.Stops().Len(instrument, core.Buy))
	must(engine.Match(ctx, must(core.NewLimitOrder("ask-2", "alice", instrument, core.Sell, 80, fpdecimal.FromInt(101), core.GTC))))
	done = must(engine.Match(ctx, must(core.NewLimitOrder("bid-2", "bob", instrument, core.Buy, 10, fpdecimal.FromInt(101), core.GTC))))
	for _, o := range done.Activated {
		fmt.Printf("activated %s\n", o.ID())
	}
	for _, t := range done.Trades {
		fmt.Printf("trade #%d %d@%s resting=%s aggressor=%s\n", t.ID, t.Quantity, t.Price, t.RestingOrderID, t.AggressorOrderID)
	}

	fmt.Println("\n== time priority within a price level")
	engine = core.NewMatchingEngine(core.DefaultEngineConfig())
	must(engine.Match(ctx, must(core.NewLimitOrder("bid-a", "alice", instrument, core.Buy, 10, fpdecimal.FromInt(99), core.GTC))))
	must(engine.Match(ctx, must(core.NewLimitOrder("bid-b", "bob", instrument, core.Buy, 30, fpdecimal.FromInt(99), core.GTC))))
	book, _ = engine.Book(instrument)
	best, _ := book.BestBid()
	fmt.Printf("best bid %s: %d@%s\n", best.ID(), best.Quantity(), best.Price())
	for _, level := range book.Depth(core.Buy, 5) {
		fmt.Printf("level %s quantity=%d orders=%d\n", level.Price, level.Quantity, level.Orders)
	}
}
