package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/votsa/ssr/internal/app"
	"github.com/votsa/ssr/internal/config"
	"github.com/votsa/ssr/internal/obs"
)

func main() {
	ctx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("development", os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, os.Stdout)

	//Create AppConfig will all initialization
	appConfig, err := app.SetAppConfig(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer appConfig.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           appConfig.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("initiating graceful shutdown", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown error", "error", err)
		}
		// Cancel root context so in-flight polls stop
		logger.Info("shutdown done, cancelling remaining requests")
		rootCancel()
		close(idleConnsClosed)
	}()

	logger.Info("starting server", "addr", cfg.Addr(), "mode", cfg.Mode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	<-idleConnsClosed
	logger.Info("server stopped")
}
