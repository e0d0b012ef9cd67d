// Package app wires the application together: storage, the user
// session, the monitoring pipeline, the dialogue machine, and the
// operator bot.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/conversation"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/monitor"
	"github.com/luoyanglang/telegram-monitor/internal/platform/config"
	"github.com/luoyanglang/telegram-monitor/internal/platform/observability"
	db "github.com/luoyanglang/telegram-monitor/internal/storage"
	"github.com/luoyanglang/telegram-monitor/internal/telegrambot"
	"github.com/luoyanglang/telegram-monitor/internal/telegramreader"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// destProxy breaks the construction cycle between the pipeline (which
// forwards to the bot) and the bot (whose dialogue machine controls the
// pipeline). The destination is set once before anything runs.
type destProxy struct {
	dest monitor.Destination
}

func (p *destProxy) Forward(ctx context.Context, f monitor.Forward) error {
	return p.dest.Forward(ctx, f)
}

// Run starts the user session and the operator bot and blocks until
// either fails or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	session := telegramreader.New(a.cfg.TGAPIID, a.cfg.TGAPIHash, a.cfg.TGSessionPath, a.database, a.logger)
	checker := blacklist.NewChecker(a.database, a.cfg.BlacklistFailClosed, a.logger)

	proxy := &destProxy{}
	pipeline := monitor.New(session, proxy, a.database, checker, a.database, monitor.Options{
		SendRPS:     a.cfg.ForwardRPS,
		SendTimeout: a.cfg.SendTimeout,
	}, a.logger)

	machine := conversation.NewMachine(a.database, a.database, a.database, a.database, session, pipeline, a.logger)

	bot, err := telegrambot.New(a.cfg.BotToken, a.cfg.OperatorID, machine, a.database, a.logger)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	proxy.dest = bot

	errCh := make(chan error, 2)

	go func() {
		errCh <- session.Run(ctx)
	}()

	go func() {
		errCh <- bot.Run(ctx)
	}()

	err = <-errCh

	if stopErr := pipeline.Stop(); stopErr != nil && !coreerrors.Is(stopErr, coreerrors.ErrNotRunning) {
		a.logger.Error().Err(stopErr).Msg("failed to stop pipeline")
	}

	return err
}
