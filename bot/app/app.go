// Package app assembles the bot: config, logging, optional history archive,
// the workout engine, and the Telegram transport.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Jethrochang07/FlyWJ/bot/handlers"
	"github.com/Jethrochang07/FlyWJ/bot/history"
	"github.com/Jethrochang07/FlyWJ/bot/workout"
	coreconfig "github.com/Jethrochang07/FlyWJ/core/config"
	coredatabase "github.com/Jethrochang07/FlyWJ/core/database"
	"github.com/Jethrochang07/FlyWJ/core/logger"
	tg "github.com/Jethrochang07/FlyWJ/core/telegram"
	tghelpers "github.com/Jethrochang07/FlyWJ/core/telegram/helpers"
	"github.com/Jethrochang07/FlyWJ/core/telegram/router"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Run starts the bot and blocks until ctx is cancelled or the transport
// stops.
func Run(ctx context.Context, cfg *coreconfig.Config) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("app: logger init: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	var (
		db       *sqlx.DB
		archiver workout.Archiver
	)
	if cfg.Database.Enabled() {
		var err error
		db, err = coredatabase.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("app: database connect: %w", err)
		}
		defer func() { _ = db.Close() }()
		archiver = history.NewStore(db)
	} else {
		logger.L.Info("history archive disabled",
			slog.String("event", "history.disabled"),
		)
	}

	notifier := handlers.NewTimeoutNotifier()
	engine := workout.NewEngine(workout.Options{
		IdleTimeout: cfg.Workout.IdleTimeout,
		Notifier:    notifier,
		Archiver:    archiver,
	})
	logger.LogEvent(ctx, logger.Workout, slog.LevelInfo, "engine.ready",
		slog.Duration("idle_timeout", cfg.Workout.IdleTimeout),
		slog.Bool("archive_enabled", archiver != nil),
	)

	reg := tg.NewRegistry()
	handlers.Register(reg, engine)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(handlers.Conversation(engine), reg, router.TextOptions{})...)

	onLimited := func(c tele.Context) error {
		return tghelpers.SendText(c, "Slow down a little. ⏳")
	}

	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(cfg, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			notifier.Bind(rt.Bot, rt.Dispatcher)
			logger.L.Info("bot started",
				slog.String("event", "start"),
				slog.Int("commands", len(rt.Registry.Commands())),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			engine.Close()
			logger.L.Info("bot stopped", slog.String("event", "stop"))
			return nil
		},
	})
}
