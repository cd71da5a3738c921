// Package server constructs and starts the RoomRelay HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"log"
	"net/http"
	"time"
)

// CreateServer builds the HTTP server that fronts the relay. The timeouts
// only govern the plain HTTP surface; upgraded WebSocket connections manage
// their own deadlines in the client pumps.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer begins listening for connections and blocks until the server
// stops.
func StartServer(server *http.Server) error {
	log.Printf("Listening on %s", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer stops accepting new connections and waits for in-flight
// requests to drain, up to the timeout.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Println("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("HTTP server stopped")
	return nil
}
