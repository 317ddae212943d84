package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/predictflow/internal/scheduler"
)

const timePrecision = time.Millisecond

// startStatusServer launches the HTTP status server in a background
// goroutine. It exposes /health for liveness probes and /status for a
// JSON snapshot of pipeline progress.
func (a *App) startStatusServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/status", a.statusHandler)

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.appCfg.StatusPort),
		Handler: mux,
	}

	a.logger.Info("🩺 Status server starting", "port", a.appCfg.StatusPort)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed.", "error", err)
		}
	}()
}

// closeStatusServer gracefully shuts down the status server, waiting for
// in-flight requests to complete.
func (a *App) closeStatusServer() {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Status server shutdown failed.", "error", err)
	}
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	snap := a.sched.Status()
	payload := struct {
		scheduler.Snapshot
		Completed int     `json:"completed"`
		Progress  float64 `json:"progress"`
	}{
		Snapshot:  snap,
		Completed: snap.Completed(),
		Progress:  snap.Progress(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode status payload.", "error", err)
	}
}
