package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/httpserver"
	"github.com/robalobadob/flickle/internal/stats"
	"github.com/robalobadob/flickle/internal/store"
)

func loadCatalog(cfg *Config) (*content.Catalog, error) {
	if cfg.catalogue != "" {
		return content.LoadFile(cfg.catalogue, cfg.salt)
	}
	return content.Default(cfg.salt)
}

func runServe(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, closeAccounts, err := openAccounts(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeAccounts()

	srv := httpserver.New(cfg.httpConfig(), httpserver.Deps{
		DB:       db,
		Rounds:   store.NewMemoryStore(),
		Catalog:  cat,
		Accounts: accounts,
		Guests:   stats.NewMemory(),
	})
	go srv.SweepLoop(ctx, cfg.sessionTTL, cfg.sessionTTL/4)

	log.Info().Str("addr", cfg.addr()).Strs("modes", cat.IDs()).Msg("starting flickle server")
	if err := srv.Start(ctx, cfg.addr()); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
