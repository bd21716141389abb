// main.go - HTTP server application
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridstatus/internal-analytics/internal"
)

const defaultShutdownTimeout = 30 * time.Second

func main() {
	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	log.Println("Running database migrations...")
	if err := app.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	go func() {
		if err := app.Start(); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	waitForShutdownSignal(app)
}

// waitForShutdownSignal blocks until termination and then drains the app.
func waitForShutdownSignal(app *internal.Application) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server shutdown complete")
}
