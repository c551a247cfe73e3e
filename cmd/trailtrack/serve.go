// README: serve subcommand; wires the infrastructure clients and runs the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trailtrack/internal/config"
	httptransport "trailtrack/internal/http"
	"trailtrack/internal/infra"
	"trailtrack/internal/maps"
	"trailtrack/internal/modules/notify"
	"trailtrack/internal/modules/routes"
	"trailtrack/internal/modules/tracking"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	log, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := fb.Verifier(ctx)
	if err != nil {
		return err
	}
	messagingClient, err := fb.Messaging(ctx)
	if err != nil {
		return err
	}

	var repo routes.Repository
	switch cfg.Routes.Backend {
	case "postgres":
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer dbPool.Close()
		store := routes.NewPostgresStore(dbPool)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("routes schema: %w", err)
		}
		repo = store
	default:
		fsClient, err := fb.Firestore(ctx)
		if err != nil {
			return err
		}
		defer fsClient.Close()
		repo = routes.NewFirestoreStore(fsClient)
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	snapper, err := newSnapper(cfg, log)
	if err != nil {
		return fmt.Errorf("snapper: %w", err)
	}

	notifier, err := notify.NewFCMNotifier(messagingClient, cfg.Notify.TopicKey, log.Named("notify"))
	if err != nil {
		return fmt.Errorf("%w (set %s_NOTIFY_TOPIC_KEY)", err, config.EnvPrefix)
	}

	routeSvc := routes.NewService(repo, log.Named("routes"))
	trackingSvc := tracking.NewService(tracking.ServiceDeps{
		Snapper:  snapper,
		Saver:    routeSvc,
		Notifier: notifier,
		Live:     tracking.NewLiveStore(redisClient, cfg.Tracking.LiveTTL()),
		Logger:   log.Named("tracking"),
	}, recorderOptions(cfg))
	defer trackingSvc.Shutdown()

	deps := httptransport.ServerDeps{
		Verifier: verifier,
		Tracking: trackingSvc,
		Routes:   routeSvc,
		Topics:   notifier,
		Logger:   log.Named("http"),
	}
	if cfg.Snapping.ProxyEnabled {
		deps.Proxy = newProxy(cfg, log)
	}
	if cfg.Places.APIKey != "" {
		places, err := maps.NewPlacesService(cfg.Places.APIKey)
		if err != nil {
			return err
		}
		deps.Places = places
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.NewServer(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("routes_backend", cfg.Routes.Backend), zap.String("snapping_backend", cfg.Snapping.Backend))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
