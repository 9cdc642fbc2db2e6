package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/m3rciful/offerbot/bot"
	"github.com/m3rciful/offerbot/core/bootstrap"
	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram"
	"github.com/m3rciful/offerbot/ops"
	"github.com/m3rciful/offerbot/storage"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	migrationsDir := flag.String("migrations", "migrations", "path to the SQL migrations directory")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := bootstrap.Init(ctx, *cfgPath, *migrationsDir)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer res.Close()

	store := storage.New(res.DB)
	app := bot.New(res.Cfg, store)
	defer app.Shutdown()

	opsSrv := ops.New(res.Cfg.Ops.Listen, store)
	go func() {
		if err := opsSrv.Run(ctx); err != nil {
			logger.Ops.ErrorContext(ctx, "ops_server", "status", "fail", "err", err)
			cancel()
		}
	}()

	if err := telegram.Run(ctx, app.BuildRunOptions()); err != nil {
		logger.L.ErrorContext(ctx, "run", "status", "fail", "err", err)
		res.Close()
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
