package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/bkowalczyk/trade-engine/internal/config"
	"github.com/bkowalczyk/trade-engine/internal/database"
	"github.com/bkowalczyk/trade-engine/internal/engine"
	"github.com/bkowalczyk/trade-engine/internal/kafka"
	"github.com/bkowalczyk/trade-engine/internal/ledger"
	"github.com/bkowalczyk/trade-engine/internal/models"
	"github.com/bkowalczyk/trade-engine/internal/portfolio"
	"github.com/bkowalczyk/trade-engine/internal/series"
)

func main() {
	variant := flag.String("rules", "default", "rule variant: default or tranche")
	workers := flag.Int("workers", 4, "concurrent symbol workers")
	record := flag.Bool("record", false, "persist closed positions to the database")
	top := flag.Int("top", 10, "longest-held positions to print")
	history := flag.Int("history", 0, "oldest relative index to replay, exclusive (0 = variant default)")
	flag.Parse()

	rules := engine.DefaultRules()
	switch *variant {
	case "default":
	case "tranche":
		rules = engine.TrancheRules()
	default:
		log.Fatalf("unknown rule variant %q", *variant)
	}
	if *history != 0 {
		rules.HistoryDepth = *history
	}
	if rules.HistoryDepth >= 0 {
		log.Fatalf("history depth must be negative, got %d", rules.HistoryDepth)
	}

	cfg := config.Load()
	rules.DrawdownRatio = cfg.Engine.DrawdownRatio
	rules.WindowSize = cfg.Engine.WindowSize

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	symbols := flag.Args()
	var watch []*models.Symbol
	if len(symbols) > 0 {
		for _, name := range symbols {
			s, err := db.GetSymbol(name)
			if err != nil {
				log.Fatalf("failed to load symbol %s: %v", name, err)
			}
			watch = append(watch, s)
		}
	} else {
		watch, err = db.GetEnabledSymbols()
		if err != nil {
			log.Fatalf("failed to load watchlist: %v", err)
		}
	}
	if len(watch) == 0 {
		log.Fatal("no symbols to replay")
	}
	log.Printf("replaying %d symbols with %q rules", len(watch), *variant)

	jobs := make(chan *models.Symbol)
	results := make([]*portfolio.Aggregator, *workers)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		agg := portfolio.NewAggregator()
		results[i] = agg
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng := engine.New(rules)
			for sym := range jobs {
				res, err := replaySymbol(db, eng, sym)
				if err != nil {
					log.Printf("backtest: %s skipped: %v", sym.Symbol, err)
					continue
				}
				agg.AddResult(res)
			}
		}()
	}
	for _, sym := range watch {
		jobs <- sym
	}
	close(jobs)
	wg.Wait()

	agg := portfolio.NewAggregator()
	for _, r := range results {
		agg.Merge(r)
	}

	if *record {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SignalTopic)
		defer producer.Close()
		recordPositions(db, producer, watch, agg.Positions())
	}

	printReport(agg, *top)
}

// recordPositions persists every record and announces realized liquidations
// on the signal topic. Open-tagged snapshots are stored but not published.
func recordPositions(db *database.DB, producer *kafka.Producer, watch []*models.Symbol, positions []models.ClosedPosition) {
	ids := make(map[string]int, len(watch))
	for _, s := range watch {
		ids[s.Symbol] = s.ID
	}
	ctx := context.Background()
	for _, p := range positions {
		rec := p
		if err := db.InsertClosedPosition(&rec); err != nil {
			log.Printf("backtest: failed to record %s position: %v", p.Symbol, err)
			continue
		}
		if rec.Open {
			continue
		}
		if err := producer.PublishPositionClosed(ctx, ids[p.Symbol], &rec); err != nil {
			log.Printf("backtest: failed to publish %s close: %v", p.Symbol, err)
		}
	}
}

func replaySymbol(db *database.DB, eng *engine.Engine, sym *models.Symbol) (engine.Result, error) {
	indicators, err := db.GetIndicatorValues(sym.ID, eng.Rules().Indicators, eng.Rules().HistoryDepth)
	if err != nil {
		return engine.Result{}, fmt.Errorf("loading indicators: %w", err)
	}
	prices, err := db.GetPriceBars(sym.ID)
	if err != nil {
		return engine.Result{}, fmt.Errorf("loading prices: %w", err)
	}
	obs, err := series.Align(sym.Symbol, indicators, prices, eng.Rules().Indicators)
	if err != nil {
		return engine.Result{}, err
	}
	return eng.Run(obs, ledger.New(sym.Symbol))
}

func printReport(agg *portfolio.Aggregator, top int) {
	r := agg.Summarize()

	fmt.Println("==== replay summary ====")
	fmt.Printf("realized profit:    %10.2f\n", r.RealizedProfit)
	fmt.Printf("unrealized profit:  %10.2f (%d open)\n", r.UnrealizedProfit, r.OpenCount)
	fmt.Printf("total profit:       %10.2f\n", r.TotalProfit)
	fmt.Printf("total invested:     %10.2f (%.2f%% return)\n", r.TotalInvested, r.PercentOfTotalInvested)
	fmt.Printf("peak invested:      %10.2f at index %d (%.2f%% of peak, %.2f%% realized)\n",
		r.PeakInvested, r.PeakIndex, r.PercentOfPeakInvested, r.PercentRealizedOfPeak)
	fmt.Printf("closed positions:   %d (%d profitable, %d losing)\n",
		r.ClosedCount, r.ProfitableCloses, r.LosingCloses)
	fmt.Printf("hold duration:      avg %.1f, max %d\n", r.AvgDuration, r.MaxDuration)
	if r.LargestPeakSymbol != "" {
		fmt.Printf("largest peak value: %10.2f (%s)\n", r.LargestPeakValue, r.LargestPeakSymbol)
	}

	if samples := agg.InvestedByIndex(); len(samples) > 0 {
		fmt.Printf("---- invested by index ----\n")
		for _, s := range samples {
			fmt.Printf("%5d  %10.2f\n", s.Index, s.Invested)
		}
	}

	if top > 0 {
		fmt.Printf("---- longest held ----\n")
		for _, p := range agg.TopByDuration(top) {
			state := "closed"
			if p.Open {
				state = "open"
			}
			fmt.Printf("%-8s %4d steps  profit %8.2f (%6.2f%%)  %s  %s\n",
				p.Symbol, p.Duration, p.Profit, p.PercentProfit, state, p.SellReason)
		}
	}
}
