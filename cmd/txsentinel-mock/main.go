// Command txsentinel-mock runs a local TxSentinel compatible server.
//
//	TXSENTINEL_MOCK_ADDR=:8080 go run ./cmd/txsentinel-mock
//	curl -X POST localhost:8080/warnings -d '{"severity":"critical","description":"Drainer"}'
//	curl -X POST localhost:8080/balance -d '{"balance":1.5}'
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txsentinel-tui/mockserver"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "txsentinel-mock",
	})
	if os.Getenv("TXSENTINEL_MOCK_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	addr := os.Getenv("TXSENTINEL_MOCK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := mockserver.New(logger)

	// websocket connections are hijacked, so only the header read is bounded
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr, "wallet", "ws://localhost"+addr+"/wallet/")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	srv.CloseAll(websocket.CloseGoingAway, "server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
