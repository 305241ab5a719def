package commands

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/inkforge/handbook/internal/config"
	"github.com/inkforge/handbook/internal/server"
)

// ServeCommand starts the live preview server and blocks until interrupted.
func ServeCommand(args []string) error {
	opts := parseFlags(args)

	cfg, err := config.Load(opts["config"])
	if err != nil {
		return err
	}
	if port := opts["port"]; port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		cfg.Server.Port = p
	}
	if host := opts["host"]; host != "" {
		cfg.Server.Host = host
	}

	store, backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	srv := server.New(store, cfg)
	if cfg.Storage.Type == "file" && cfg.Storage.Dir != "" {
		// Pick up snapshot edits made by other tools while serving.
		if err := srv.WatchDir(cfg.Storage.Dir); err != nil {
			log.Printf("[serve] snapshot watch disabled: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		log.Printf("[serve] final save: %v", err)
	}
	return nil
}
