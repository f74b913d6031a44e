package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	account "auction-market/internal/accountService"
	auction "auction-market/internal/auctionService"
	"auction-market/internal/config"
	"auction-market/internal/repository"
	"auction-market/internal/server"
	"auction-market/internal/session"
	"auction-market/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open repository", map[string]any{"driver": cfg.StoreDriver, "error": err.Error()})
	}
	defer closeRepo()

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open session store", map[string]any{"backend": cfg.SessionBackend, "error": err.Error()})
	}
	defer closeSessions()

	auctionSvc := auction.NewAuctionService(repo, auction.WithEditLock(cfg.LockEditsAfterBids))
	accountSvc := account.NewAccountService(repo, sessions, cfg.SessionTTL)

	if cfg.SeedDemoData {
		prepopulate(ctx, accountSvc, auctionSvc)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.SetupRouter(auctionSvc, accountSvc),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		utils.Info("starting auction server", map[string]any{
			"addr":            srv.Addr,
			"store_driver":    cfg.StoreDriver,
			"session_backend": cfg.SessionBackend,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		utils.Error("server failed", map[string]any{"error": err.Error()})
	case <-ctx.Done():
		utils.Info("shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("server stopped", nil)
}

// openRepository builds the AuctionDB selected by STORE_DRIVER and migrates SQL stores
func openRepository(ctx context.Context, cfg *config.Config) (repository.AuctionDB, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres, config.StoreSQLite:
		open := repository.OpenSQLite
		dsn := cfg.SQLitePath
		if cfg.StoreDriver == config.StorePostgres {
			open, dsn = repository.OpenPostgres, cfg.PostgresConn
		}
		db, err := open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		repo := repository.NewSQLRepo(db)
		return repo, func() {
			if err := repo.Close(); err != nil {
				utils.Warn("error closing database", map[string]any{"error": err.Error()})
			}
		}, nil
	default:
		return repository.NewMemoryRepo(), func() {}, nil
	}
}

// openSessions builds the session store selected by SESSION_BACKEND
func openSessions(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionBackend != config.SessionsRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	store := session.NewRedisStore(client)
	return store, func() {
		if err := store.Close(); err != nil {
			utils.Warn("error closing redis client", map[string]any{"error": err.Error()})
		}
	}, nil
}

// prepopulate adds two demo accounts and an auction running for the next day
func prepopulate(ctx context.Context, accounts *account.AccountService, auctions *auction.AuctionService) {
	seller, err := accounts.Register(ctx, "seller", "seller@example.com", "password")
	if err != nil {
		utils.Warn("skipping demo data", map[string]any{"error": err.Error()})
		return
	}
	if _, err := accounts.Register(ctx, "bidder", "bidder@example.com", "password"); err != nil {
		utils.Warn("skipping demo bidder", map[string]any{"error": err.Error()})
	}

	now := time.Now().UTC()
	created, err := auctions.CreateAuction(ctx, seller.AccountID, auction.AuctionDraft{
		Title:       "Vintage bicycle",
		Description: "Steel frame road bike, looking for a trade",
		StartAt:     now,
		EndAt:       now.Add(24 * time.Hour),
	})
	if err != nil {
		utils.Warn("skipping demo auction", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("demo data loaded", map[string]any{"auction_id": created.AuctionID, "owner_id": seller.AccountID})
}
