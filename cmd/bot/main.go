package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/ai"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/bot"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/config"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/deals"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/pipeline"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/steam"
)

func main() {
	slog.Info("Starting Steam Telegram bot...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	storefront := steam.New(cfg.RequestTimeout, cfg.SteamBaseURL)
	resolver := deals.New(cfg.ITADAPIKey, cfg.ITADShops, cfg.ITADCountry, cfg.RequestTimeout, cfg.ITADBaseURL)
	analyzer := ai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, ai.Mode(cfg.AnalysisMode), cfg.DescriptionLimit)
	p := pipeline.New(storefront, resolver, analyzer)

	b, err := bot.New(cfg.TelegramToken, p, cfg.ShutdownGrace)
	if err != nil {
		slog.Error("Critical error initializing Telegram bot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped.")
}
