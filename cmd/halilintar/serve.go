package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/halilintar-go/internal/chatapi"
	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/gateway"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/logger"
	"github.com/comigor/halilintar-go/internal/preview"
	"github.com/comigor/halilintar-go/internal/render"
	"github.com/comigor/halilintar-go/internal/session"
	"github.com/comigor/halilintar-go/internal/storage"
	"github.com/comigor/halilintar-go/internal/theme"
	"github.com/comigor/halilintar-go/internal/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the browser UI and completion gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	db := storage.NewSQLite(cfg.Storage.Path)
	defer db.Close()

	store := conversation.NewStore(db)
	loaded := store.Load()
	logger.L.Info("conversations loaded", "count", len(loaded))

	previews := preview.NewRegistry()
	renderer := render.New(render.Options{
		Theme:        theme.Load(db),
		StyleLight:   cfg.Render.StyleLight,
		StyleDark:    cfg.Render.StyleDark,
		CopyFeedback: cfg.Render.CopyFeedback,
		Launcher:     previews,
	})

	controller := session.NewController(store, chatapi.New(cfg.Endpoint(), nil))
	ui, err := web.New(web.Deps{
		Store:           store,
		Controller:      controller,
		Renderer:        renderer,
		Previews:        previews,
		Themes:          db,
		DefaultProvider: cfg.Client.DefaultProvider,
		CopyFeedback:    cfg.Render.CopyFeedback,
		MaxUploadBytes:  cfg.Gateway.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	ui.Register(mux)
	mux.Handle("POST /api/chat", gateway.New(llm.NewProviders(cfg.Providers), cfg.Gateway))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", srv.Addr, "endpoint", cfg.Endpoint())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("shutdown failed", "error", err)
	}
	if err := store.Flush(); err != nil {
		logger.L.Error("final flush failed", "error", err)
	}
	return nil
}
