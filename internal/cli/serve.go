package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/config"
	"fileflow/internal/dedup"
	"fileflow/internal/lifecycle"
	"fileflow/internal/server"
	"fileflow/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// configPath resolves the config file location: FILEFLOW_CONFIG env,
// else ~/.fileflow/config.toml.
func configPath() string {
	if p := os.Getenv("FILEFLOW_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".fileflow", "config.toml")
}

// loadConfigQuiet loads the config without warning on parse errors;
// non-serve commands just fall back to defaults.
func loadConfigQuiet() (config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return config.Default(), nil
	}
	return cfg, nil
}

// dbPathFor resolves where the database lives for a given config:
// explicit path override, else inside the data root, else the
// home-directory default.
func dbPathFor(cfg config.Config) (string, error) {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path, nil
	}
	if cfg.Storage.Root != "" {
		return store.PathForRoot(cfg.Storage.Root), nil
	}
	return store.DefaultPath()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
	}

	dbPath, err := dbPathFor(cfg)
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.Root = cfg.Storage.Root

	life := lifecycle.New(db)
	life.Bands = lifecycle.Bands{
		ActiveDays:  cfg.Lifecycle.ActiveDays,
		DormantDays: cfg.Lifecycle.DormantDays,
	}
	life.SetInterval(time.Duration(cfg.Lifecycle.RefreshIntervalMin) * time.Minute)
	life.Start()
	defer life.Stop()

	srv := server.New(db, life, dedup.New(db), VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "fileflow serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
