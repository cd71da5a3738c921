package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"roomrelay/internal/server"
)

func main() {
	fmt.Println("Starting RoomRelay server...")

	// Load configuration from .env (if present) and the environment.
	_ = godotenv.Load()
	var cfg server.Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	applied := server.SetConfig(&cfg)

	hub := server.NewHub()
	go hub.Run()

	gateway := server.NewGateway(hub)
	mux := server.SetupRoutes(gateway)
	httpServer := server.CreateServer(applied.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}

	if err := server.ShutdownServer(httpServer, applied.ShutdownTimeout); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(applied.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
