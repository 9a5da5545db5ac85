package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/database/types"
	"github.com/fantom2513/vibe-ds-bot/internal/discord"
	"github.com/fantom2513/vibe-ds-bot/internal/engine"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/dispatch"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/dispatch/ratelimit"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/stacking"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/tracker"
	"github.com/fantom2513/vibe-ds-bot/internal/scheduler"
	"github.com/fantom2513/vibe-ds-bot/internal/setup"
	"go.uber.org/zap"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"

	defaultSweepIntervalSec = 30
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(ctx)

	logger := app.Logger
	botCfg := &app.Config.Bot

	// Sessions left open by an unclean shutdown are closed before tracking
	// restarts from live gateway events.
	closed, err := app.DB.Model().Session().CloseAllOpenSessions(ctx)
	if err != nil {
		logger.Error("Failed to close stale sessions", zap.Error(err))
	} else if closed > 0 {
		logger.Info("Closed stale sessions", zap.Int64("count", closed))
	}

	seedKickTargets(ctx, app, logger)

	// Gateway and platform adapter
	bot := discord.NewBot(botCfg.Discord.Token, botCfg.Discord.GuildID, logger)
	platform := discord.NewAdapter(bot.State(), logger)

	// Engine components
	trk := tracker.New(app.DB.Model().Session(), logger)
	dispatcher := dispatch.New(platform, ratelimit.New(), botCfg.Engine.RateLimitPerMinute, logger)
	detector := stacking.New(trk, dispatcher, logger)

	eng := engine.New(engine.Deps{
		GuildID:     botCfg.Discord.GuildID,
		StaticPairs: engine.StaticPairsFromConfig(&botCfg.Engine),
		Rules:       app.DB.Model().Rule(),
		Lists:       app.DB.Model().UserList(),
		Pairs:       app.DB.Model().Pairing(),
		Audit:       app.DB.Model().Audit(),
		Executor:    dispatcher,
		Tracker:     trk,
		Detector:    detector,
		Logger:      logger,
	})
	bot.SetHandler(eng)

	// Periodic duties
	sweepInterval := time.Duration(botCfg.Engine.SweepIntervalSec) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepIntervalSec * time.Second
	}

	sched := scheduler.New(logger)

	sweeper := scheduler.NewOvertimeSweeper(
		botCfg.Discord.GuildID, app.DB.Model().Rule(), trk,
		platform, dispatcher, app.DB.Model().Audit(), logger,
	)
	sched.RegisterInterval("overtime", sweepInterval, sweeper.Sweep)

	kicker := scheduler.NewIdleKicker(
		botCfg.Discord.GuildID, botCfg.Engine.DefaultKickTimeoutSec,
		app.DB.Model().KickTarget(), trk, platform, dispatcher, app.DB.Model().Audit(), logger,
	)
	sched.RegisterInterval("idle_timeout", sweepInterval, kicker.Sweep)

	// Configuration reload path: stacking pairs and cron toggles
	toggles := scheduler.NewToggleBuilder(app.DB.Model().Schedule(), app.DB.Model().Rule(), logger)

	reload := func(ctx context.Context) {
		if err := eng.Reload(ctx); err != nil {
			logger.Error("Failed to reload engine configuration", zap.Error(err))
		}

		duties, err := toggles.Build(ctx)
		if err != nil {
			logger.Error("Failed to rebuild rule schedules", zap.Error(err))
			return
		}

		sched.ReplaceCrons(duties)
	}

	reload(ctx)

	app.DB.Notifier().Subscribe(reload)

	if err := app.DB.Notifier().Start(ctx); err != nil {
		logger.Fatal("Failed to start config change listener", zap.Error(err))
	}

	go func() {
		for err := range sched.Errors() {
			logger.Error("Periodic duty reported failure", zap.Error(err))
		}
	}()

	sched.Start(ctx)

	// Start the bot and connect to Discord
	if err := bot.Open(ctx); err != nil {
		sched.Stop()
		logger.Fatal("Failed to connect to gateway", zap.Error(err))
	}

	logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Gateway goes first so no new events arrive, then the duty loops drain
	if err := bot.Close(); err != nil {
		logger.Error("Failed to close gateway connection", zap.Error(err))
	}

	sched.Stop()
}

// seedKickTargets upserts statically configured kick targets so sweeps see
// one merged set in the database.
func seedKickTargets(ctx context.Context, app *setup.App, logger *zap.Logger) {
	for _, target := range app.Config.Bot.Engine.KickTargets {
		if target.DiscordID == 0 {
			continue
		}

		row := &types.KickTarget{
			DiscordID:  target.DiscordID,
			TimeoutSec: target.TimeoutSec,
			IsActive:   true,
		}
		if err := app.DB.Model().KickTarget().UpsertTarget(ctx, row); err != nil {
			logger.Error("Failed to seed kick target",
				zap.Uint64("discord_id", target.DiscordID),
				zap.Error(err))
		}
	}
}
