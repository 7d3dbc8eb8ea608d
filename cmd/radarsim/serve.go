package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/banshee-data/radarsim/internal/api"
	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
)

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	listen := fs.String("listen", ":8080", "Listen address")
	configPath := fs.String("config", config.DefaultConfigPath, "Default scenario JSON file")
	dbPath := fs.String("db", "radarsim.db", "Results database (empty disables storage)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *listen == "" {
		return errors.New("listen address is required")
	}

	cfg, err := config.LoadScenarioConfig(*configPath)
	if err != nil {
		return err
	}
	database, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *listen, err)
	}
	return serve(ctx, ln, database, cfg)
}

// serve runs the API on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, database *db.DB, cfg *config.ScenarioConfig) error {
	server := &http.Server{
		Handler:           api.NewServer(database, cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving on %s", ln.Addr())
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
