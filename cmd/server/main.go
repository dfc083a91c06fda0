package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/config"
	"github.com/sudo-init-do/agricompass/internal/db"
	"github.com/sudo-init-do/agricompass/internal/logging"
	"github.com/sudo-init-do/agricompass/internal/server"
	"github.com/sudo-init-do/agricompass/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides CONFIG_FILE)")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	e := server.New(server.Options{
		Store:      st,
		JWTSecret:  cfg.Auth.JWTSecret,
		BcryptCost: cfg.Auth.BcryptCost,
		RateLimit:  cfg.Auth.RateLimit,
		Log:        log,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr(), "store": cfg.Store.Driver}).Info("server starting")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-stop
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, log logrus.FieldLogger) (store.Store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	err = db.EnsureSchema(ctx, sqlDB)
	sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("connected to database")
	return store.NewPostgres(pool), pool.Close, nil
}
