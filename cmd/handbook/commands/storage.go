package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/config"
	"github.com/inkforge/handbook/internal/persist"
)

// defaultTimeout bounds storage operations issued directly by CLI commands.
const defaultTimeout = 30 * time.Second

// latestLoader is implemented by backends that can find the most recently
// saved snapshot without knowing its id.
type latestLoader interface {
	LoadAny(ctx context.Context) (string, []byte, error)
}

// openBackend builds the configured storage backend, wrapped with retries.
func openBackend(cfg *config.Config) (persist.Store, error) {
	var (
		inner persist.Store
		err   error
	)
	switch cfg.Storage.Type {
	case "", "sqlite":
		inner, err = persist.NewSQLiteStore(cfg.Storage.Path)
	case "postgres":
		inner, err = persist.NewPostgresStore(cfg.Storage.DSN)
	case "file":
		inner, err = persist.NewFileStore(cfg.Storage.Dir)
	case "memory":
		inner = persist.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}
	return persist.NewRetrying(inner, persist.DefaultRetryConfig()), nil
}

// openStore builds a store bound to the configured backend and loads the
// most recent stored snapshot, if any.
func openStore(cfg *config.Config) (*handbook.Store, persist.Store, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	interval, err := cfg.DebounceInterval()
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	store := handbook.NewStore(handbook.WithPersister(backend, interval))

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := loadLatest(ctx, store, backend); err != nil {
		backend.Close()
		return nil, nil, err
	}
	return store, backend, nil
}

func loadLatest(ctx context.Context, store *handbook.Store, backend persist.Store) error {
	loader := unwrapLatest(backend)
	if loader == nil {
		return nil
	}
	_, blob, err := loader.LoadAny(ctx)
	if errors.Is(err, persist.ErrNotFound) {
		return nil // fresh storage, keep the default handbook
	}
	if err != nil {
		return err
	}
	if err := store.LoadSnapshotJSON(blob); err != nil {
		return fmt.Errorf("stored snapshot is invalid: %w", err)
	}
	return nil
}

func unwrapLatest(s persist.Store) latestLoader {
	type unwrapper interface{ Unwrap() persist.Store }
	for {
		if l, ok := s.(latestLoader); ok {
			return l
		}
		u, ok := s.(unwrapper)
		if !ok {
			return nil
		}
		s = u.Unwrap()
	}
}

// parseFlags splits --key=value / --key value / bare flags out of args.
func parseFlags(args []string) map[string]string {
	opts := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		key := strings.TrimLeft(arg, "-")
		if eq := strings.IndexByte(key, '='); eq >= 0 {
			opts[key[:eq]] = key[eq+1:]
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			opts[key] = args[i+1]
			i++
			continue
		}
		opts[key] = "true"
	}
	return opts
}
