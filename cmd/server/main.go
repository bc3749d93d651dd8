/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the collections engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the overdue-flag refresher
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: collections.db)
           Use ":memory:" for an in-memory database
  -seed    Load demo policies on startup (default: false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the refresher and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/collections.db"

  # Run an in-memory demo
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corredora/collections-engine/api"
	"github.com/corredora/collections-engine/store/memory"
	"github.com/corredora/collections-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "collections.db", "SQLite database path")
	seed := flag.Bool("seed", false, "Load demo policies on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// The proof registry stands in for the external document store.
	proofs := memory.NewProofSet()

	// Initialize handler
	handler := api.NewHandler(store, proofs)

	if *seed {
		if err := api.Seed(context.Background(), store, proofs); err != nil {
			log.Printf("Warning: Failed to seed demo data: %v", err)
		} else {
			log.Println("Demo data seeded")
		}
	}

	// Keep the materialized overdue flag current for reporting queries.
	refresher := api.NewOverdueRefresher(store)
	refresher.Start()
	defer refresher.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
