package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal-agent/internal/di"
	"portal-agent/internal/infrastructure/httpapi"
)

const serviceName = "portal-agent"

func main() {
	container, err := di.NewContainer(di.Config{})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	server := httpapi.NewServer(container.Runner, container.Source, container.Logger)
	addr := container.Env.GetWithDefault("HTTP_ADDR", ":8000")

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		container.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("http server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		container.Logger.Error("shutdown failed", "error", err.Error())
	}
	container.Logger.Info("server stopped")
}
