// Command perpbasket builds long/short baskets of Binance USDT-M perpetual
// futures and reports how they would have performed.
//
// Usage:
//
//	perpbasket serve [--config basket.yaml] [--listen :8080]
//	perpbasket run --basket BTC:long,ETH:short [--chart out.png]
//	perpbasket setup [--out basket.gen.yaml]
//
// Settings can also come from PERPBASKET_* environment variables or a .env file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/perpbasket/config"
	"github.com/vadiminshakov/perpbasket/internal/chart"
	"github.com/vadiminshakov/perpbasket/internal/clients"
	"github.com/vadiminshakov/perpbasket/internal/report"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
	"github.com/vadiminshakov/perpbasket/internal/services/market/collector"
	"github.com/vadiminshakov/perpbasket/internal/setup"
	"github.com/vadiminshakov/perpbasket/internal/web"
	"github.com/vadiminshakov/perpbasket/internal/workspace"
	"github.com/vadiminshakov/perpbasket/pkg/retrier"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Command {
	case config.CommandSetup:
		err = setup.RunTUI(cfg.SetupOutput)
	case config.CommandRun:
		err = run(ctx, cfg, logger)
	case config.CommandServe:
		err = serve(ctx, cfg, logger)
	}
	if err != nil {
		logger.Fatal("perpbasket failed", zap.String("command", string(cfg.Command)), zap.Error(err))
	}
}

func newProvider(cfg config.Config, logger *zap.Logger) *collector.BinanceProvider {
	client := clients.NewBinanceFuturesClient(cfg.BinanceURL, cfg.RequestTimeout)
	return collector.NewBinanceProvider(client, logger.Named("binance"), retrier.WithMaxRetries(cfg.MaxRetries))
}

func newBuilder(cfg config.Config, provider collector.KlineProvider, logger *zap.Logger) *basket.Builder {
	return basket.NewBuilder(provider,
		basket.WithRequestTimeout(cfg.RequestTimeout),
		basket.WithLogger(logger.Named("builder")))
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	provider := newProvider(cfg, logger)

	ws, err := workspace.New(newBuilder(cfg, provider, logger), cfg.Resolution, cfg.Limit, logger.Named("workspace"))
	if err != nil {
		return err
	}
	if err := ws.SetRange(cfg.Range); err != nil {
		return err
	}
	if len(cfg.Basket) > 0 {
		if err := ws.Load(cfg.Basket); err != nil {
			return errors.Wrap(err, "failed to load configured basket")
		}
		if _, err := ws.Refresh(ctx); err != nil {
			logger.Warn("initial basket refresh failed", zap.Error(err))
		}
	}

	return web.NewServer(cfg.ListenAddr, ws, provider, logger.Named("http")).Start(ctx)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	builder := newBuilder(cfg, newProvider(cfg, logger), logger)

	res, err := builder.Build(ctx, cfg.Basket, basket.Query{Resolution: cfg.Resolution, Limit: cfg.Limit, Range: cfg.Range})
	if err != nil {
		return err
	}

	fmt.Println(report.Render(res))

	if cfg.ChartPath != "" {
		buf, err := chart.Render(res, chart.Options{})
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.ChartPath, buf, 0644); err != nil {
			return errors.Wrap(err, "failed to write chart")
		}
		logger.Info("chart saved", zap.String("path", cfg.ChartPath))
	}
	return nil
}
