package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"floorwatch/internal/alerting"
	"floorwatch/internal/config"
	"floorwatch/internal/engine"
	"floorwatch/internal/fetch"
	"floorwatch/internal/marketplace"
	"floorwatch/internal/operator"
	"floorwatch/internal/rates"
	"floorwatch/internal/scheduler"
	"floorwatch/internal/service"
	"floorwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newMarketplace() (*marketplace.Client, *marketplace.Resolver) {
	fetcher := fetch.New(fetch.Options{
		Attempts: a.Config.Fetch.Attempts,
		Backoff:  a.Config.Fetch.Backoff,
		Timeout:  a.Config.Marketplace.RequestTimeout,
		Headers: map[string]string{
			"Origin":  "https://og.rarible.com",
			"Referer": "https://og.rarible.com/winkdiscover/items",
		},
	}, a.Logger)

	client := marketplace.NewClient(marketplace.Options{
		BaseURL:    a.Config.Marketplace.BaseURL,
		Collection: a.Config.Marketplace.Collection,
		PageSize:   a.Config.Marketplace.PageSize,
		MaxPages:   a.Config.Marketplace.MaxPages,
	}, fetcher, a.Logger)

	resolver := marketplace.NewResolver(a.Config.Marketplace.MetadataTimeout, a.Logger)
	return client, resolver
}

func (a *App) newTelegram() (*alerting.TelegramClient, alerting.Notifier) {
	if !a.Config.Telegram.Enabled {
		return nil, nil
	}
	cfg := a.Config.Telegram
	client := alerting.NewTelegramClient(cfg.BotToken, cfg.APIBase, 0)
	notifier := alerting.NewTelegramNotifier(client, cfg.ChannelID, cfg.ImageTimeout, a.Logger)
	return client, notifier
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running watcher: the poll loop plus the operator
// command listener, both stopping on SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	market, resolver := a.newMarketplace()
	rateProvider := rates.NewProvider(rates.Options{
		BaseURL: a.Config.Rates.BaseURL,
		Symbol:  a.Config.Rates.Symbol,
		Timeout: a.Config.Rates.RequestTimeout,
	}, a.Logger)

	telegram, notifier := a.newTelegram()
	if notifier == nil {
		a.Logger.Warn().Msg("telegram disabled; alerts will not be delivered")
	}

	eng := engine.New(store, store, store, notifier, a.Config.Watcher.RefreshEvery, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watcher.Interval,
		StartupDelay: a.Config.Watcher.StartupDelay,
	}, a.Logger)

	svc := service.New(sched, market, resolver, rateProvider, eng, a.Logger)

	if telegram != nil {
		listener := operator.NewListener(telegram, store, a.Config.Telegram.ChannelID, a.Logger)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("command listener terminated")
			}
		}()
	}

	a.Logger.Info().Str("collection", a.Config.Marketplace.Collection).Msg("starting floor watcher")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("floor watcher stopped")
	return nil
}
