package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venomous.dev/internal/auth"
	"venomous.dev/internal/config"
	"venomous.dev/internal/httpapi"
	"venomous.dev/internal/obs"
	"venomous.dev/internal/token"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load()

	tokens, err := token.NewService(token.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	var store auth.Store
	var pg *auth.PGStore
	var probe httpapi.ReadyProbe
	if cfg.DatabaseURL != "" {
		pg, err = auth.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pg
		probe.Store = pg
	} else {
		// In-memory fallback keeps local development working without
		// a database.
		store = auth.NewMemStore()
	}

	svc, err := auth.NewService(store, tokens,
		auth.WithHasher(auth.NewHasher(cfg.BcryptCost)),
		auth.WithLockoutPolicy(auth.LockoutPolicy{
			Threshold: cfg.LockThreshold,
			Window:    cfg.LockWindow,
		}),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(svc, tokens, probe, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting venomous-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pg != nil {
		_ = pg.Close()
	}
	log.Println("Stopped")
}
