// Package server provides HTTP server initialization and lifecycle management
// for the Moneta API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/moneta-hq/moneta/internal/config"
	"github.com/moneta-hq/moneta/internal/engine"
	"github.com/moneta-hq/moneta/web/handlers"
)

// Start wires the engine to its HTTP surface and starts serving. It returns
// the actual listen address (useful for tests with port 0) and the WebSocket
// hub. The server shuts down gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, eng *engine.MemoryEngine) (string, *handlers.WebSocketHub, error) {
	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	// Push engine events to connected visualization clients.
	eng.SetOnMemoryCreated(func(memoryID string) {
		wsHub.Broadcast(handlers.Event{Type: handlers.EventMemoryCreated, MemoryID: memoryID})
	})
	eng.SetOnMemoryDeleted(func(memoryID string) {
		wsHub.Broadcast(handlers.Event{Type: handlers.EventMemoryDeleted, MemoryID: memoryID})
	})
	eng.SetOnScoresChanged(func(memoryIDs []string) {
		wsHub.Broadcast(handlers.Event{Type: handlers.EventScoresChanged, MemoryIDs: memoryIDs})
	})

	api := handlers.NewAPIHandlers(eng)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/memories", api.CreateMemory)
	apiMux.HandleFunc("GET /api/memories", api.ListMemories)
	apiMux.HandleFunc("GET /api/memories/{id}", api.GetMemory)
	apiMux.HandleFunc("DELETE /api/memories/{id}", api.DeleteMemory)
	apiMux.HandleFunc("POST /api/memories/{id}/reinforce", api.Reinforce)
	apiMux.HandleFunc("GET /api/search", api.Search)
	apiMux.HandleFunc("GET /api/network", api.Network)
	apiMux.HandleFunc("POST /api/recalculate", api.Recalculate)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.Health)
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))
	mux.Handle("/ws", wsHub)

	rl := handlers.NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateLimitBurst)
	handler := handlers.SecurityHeaders(handlers.RateLimitMiddleware(mux, rl))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}
