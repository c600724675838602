package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lexdesk.org/internal/audit"
	"lexdesk.org/internal/auth"
	"lexdesk.org/internal/httpapi"
	"lexdesk.org/internal/menu"
	"lexdesk.org/internal/obs"
	"lexdesk.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("LEXDESK_GIT_COMMIT"))

	dsn := os.Getenv("LEXDESK_PG_DSN")
	if dsn == "" {
		log.Fatal("missing LEXDESK_PG_DSN")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	issuer, err := auth.NewTokenIssuer(os.Getenv("LEXDESK_AUTH_SECRET"))
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	var authOpts []auth.ServiceOption
	if raw := os.Getenv("LEXDESK_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse LEXDESK_TOKEN_TTL: %v", err)
		}
		authOpts = append(authOpts, auth.WithTokenTTL(ttl))
	}
	authSvc, err := auth.NewService(store, issuer, authOpts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authSvc.EnsureBuiltins(startupCtx); err != nil {
		log.Fatalf("ensure permission catalog: %v", err)
	}
	cancelStartup()

	resolver, err := menu.NewResolver(store)
	if err != nil {
		log.Fatalf("menu resolver: %v", err)
	}
	recorder, err := audit.NewRecorder(store)
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}

	api := httpapi.New(authSvc, resolver, recorder, httpapi.ReadyProbe{DB: store.DB()}, version)

	addr := os.Getenv("LEXDESK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.LogEvent("info", "starting lexdesk-api", map[string]any{
		"version": version,
		"addr":    addr,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	obs.LogEvent("info", "shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	obs.LogEvent("info", "stopped", nil)
}
