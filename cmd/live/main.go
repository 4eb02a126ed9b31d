package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bkowalczyk/trade-engine/internal/cache"
	"github.com/bkowalczyk/trade-engine/internal/config"
	"github.com/bkowalczyk/trade-engine/internal/database"
	"github.com/bkowalczyk/trade-engine/internal/engine"
	"github.com/bkowalczyk/trade-engine/internal/kafka"
	"github.com/bkowalczyk/trade-engine/internal/models"
	"github.com/bkowalczyk/trade-engine/internal/series"
)

// worker polls the watchlist and runs one live decision pass per eligible
// symbol, persisting the updated state and emitting buy/sell signals.
type worker struct {
	db       *database.DB
	quotes   *cache.QuoteCache
	producer *kafka.Producer
	eng      *engine.Engine
	loc      *time.Location
	limit    int
}

func main() {
	cfg := config.Load()

	rules := engine.DefaultRules()
	rules.DrawdownRatio = cfg.Engine.DrawdownRatio
	rules.WindowSize = cfg.Engine.WindowSize
	rules.LiveBuyAmount = cfg.Engine.LiveBuyAmount

	loc, err := time.LoadLocation(cfg.Live.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Live.Timezone, err)
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("connected to database")

	quotes, err := cache.NewQuoteCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.BarTTL)
	if err != nil {
		// Quotes fall back to the database when the cache is down.
		log.Printf("quote cache unavailable, using database bars: %v", err)
		quotes = nil
	} else {
		defer quotes.Close()
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SignalTopic)
	defer producer.Close()

	w := &worker{
		db:       db,
		quotes:   quotes,
		producer: producer,
		eng:      engine.New(rules),
		loc:      loc,
		limit:    cfg.Live.SymbolLimit,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("live trigger polling every %s (limit %d per pass)", cfg.Live.PollInterval, w.limit)
	ticker := time.NewTicker(cfg.Live.PollInterval)
	defer ticker.Stop()

	w.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *worker) runPass(ctx context.Context) {
	now := time.Now().In(w.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, w.loc)

	symbols, err := w.db.GetSymbolsForLiveCheck(day)
	if err != nil {
		log.Printf("live: failed to load symbols: %v", err)
		return
	}
	if len(symbols) > w.limit {
		symbols = symbols[:w.limit]
	}

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		if err := w.checkSymbol(ctx, sym, now); err != nil {
			log.Printf("live: %s check failed: %v", sym.Symbol, err)
		}
	}
}

func (w *worker) checkSymbol(ctx context.Context, sym *models.Symbol, now time.Time) error {
	state, err := w.db.GetState(sym.ID)
	if err != nil {
		return err
	}

	rules := w.eng.Rules()
	recent, err := w.db.GetRecentIndicatorValues(sym.ID, rules.Indicators, rules.WindowSize)
	if err != nil {
		return err
	}

	price, err := w.latestPrice(ctx, sym.ID)
	if err != nil {
		return err
	}

	obs := engine.LiveObservation{
		Price:          price,
		Indicators:     make(map[int]*float64, len(rules.Indicators)),
		MomentumWindow: series.LatestWindow(recent, rules.MomentumIndex, rules.WindowSize),
	}
	for _, idx := range rules.Indicators {
		if latest := series.LatestWindow(recent, idx, 1); len(latest) > 0 {
			obs.Indicators[idx] = latest[0]
		}
	}

	next := w.eng.Step(state, obs, now, w.loc)
	if err := w.db.UpsertState(next); err != nil {
		return err
	}

	if next.Buy && !state.Buy {
		if err := w.producer.PublishBuySignal(ctx, sym.ID, sym.Symbol, next.AmountBuySell); err != nil {
			log.Printf("live: %s buy signal publish failed: %v", sym.Symbol, err)
		}
	}
	if next.Sell && !state.Sell {
		if err := w.producer.PublishSellSignal(ctx, sym.ID, sym.Symbol, "drawdown after arm"); err != nil {
			log.Printf("live: %s sell signal publish failed: %v", sym.Symbol, err)
		}
	}
	return nil
}

// latestPrice reads the cached intraday bar, falling back to the persisted
// one, and prices at the high/low midpoint like the replay does.
func (w *worker) latestPrice(ctx context.Context, symbolID int) (float64, error) {
	if w.quotes != nil {
		bar, ok, err := w.quotes.GetLatestBar(ctx, symbolID)
		if err != nil {
			log.Printf("live: quote cache read failed for symbol %d: %v", symbolID, err)
		} else if ok {
			return midpoint(bar), nil
		}
	}

	bar, err := w.db.GetRealTimeBar(symbolID)
	if err != nil {
		return 0, err
	}
	return midpoint(bar), nil
}

func midpoint(bar *models.RealTimeBar) float64 {
	return bar.High.Add(bar.Low).Div(decimal.NewFromInt(2)).InexactFloat64()
}
