package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khasanov/eventbot/config"
	"github.com/khasanov/eventbot/internal/bot"
	"github.com/khasanov/eventbot/internal/mirror"
	"github.com/khasanov/eventbot/internal/reminder"
	"github.com/khasanov/eventbot/internal/scheduler"
	"github.com/khasanov/eventbot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	var m *mirror.Mirror
	if cfg.MirrorConfigured() {
		m = mirror.New(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendar, cfg.Timezone)
		log.Printf("CalDAV mirror enabled: %s", cfg.CalDAVURL)
	} else {
		log.Println("CalDAV mirror not configured, skipping")
	}

	tgBot, err := bot.New(cfg, store, m)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	leads := reminder.NormalizeLeadTimes(cfg.LeadTimes)
	engine := reminder.NewEngine(store, tgBot, leads, cfg.CatchUpWindow, cfg.Timezone)
	tgBot.SetEngine(engine)

	if err := tgBot.SetupWebhook(); err != nil {
		log.Fatalf("Failed to setup webhook: %v", err)
	}

	sched := scheduler.New(cfg, engine, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("EventBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("EventBot stopped")
}
