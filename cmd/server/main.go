package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bkowalczyk/trade-engine/internal/api"
	"github.com/bkowalczyk/trade-engine/internal/cache"
	"github.com/bkowalczyk/trade-engine/internal/config"
	"github.com/bkowalczyk/trade-engine/internal/database"
	"github.com/bkowalczyk/trade-engine/internal/kafka"
)

func main() {
	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("connected to database")

	var barCache kafka.BarCache
	quotes, err := cache.NewQuoteCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.BarTTL)
	if err != nil {
		// Bars still land in the database; the live worker just loses the
		// cached-read fast path.
		log.Printf("quote cache unavailable, bars will not be cached: %v", err)
	} else {
		defer quotes.Close()
		barCache = quotes
	}

	// Bar consumer keeps real_time_bars and the quote cache current while
	// the API serves reads.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.BarTopic, cfg.Kafka.ConsumerGroup, db, barCache)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("bar consumer stopped: %v", err)
		}
	}()

	handler := api.NewHandler(db)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	log.Println("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
