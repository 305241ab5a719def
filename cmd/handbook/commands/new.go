package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/config"
	"github.com/inkforge/handbook/internal/persist"
)

// NewCommand creates a fresh handbook and stores it, replacing any
// previously stored one after confirmation.
func NewCommand(args []string) error {
	opts := parseFlags(args)

	cfg, err := config.Load(opts["config"])
	if err != nil {
		return err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	if stored, title := storedHandbook(backend); stored && opts["y"] != "true" && opts["yes"] != "true" {
		fmt.Printf("A handbook %q is already stored. Replace it? [y/N] ", title)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	interval, err := cfg.DebounceInterval()
	if err != nil {
		return err
	}
	store := handbook.NewStore(handbook.WithPersister(backend, interval))
	handbookID, moduleID := store.CreateHandbook()
	if title := opts["title"]; title != "" {
		if err := store.SetTitle(title); err != nil {
			return err
		}
	}
	if err := store.Flush(); err != nil {
		return err
	}

	fmt.Printf("Created handbook %s (first module %s)\n", handbookID, moduleID)
	return nil
}

// storedHandbook reports whether the backend already holds a snapshot, and
// its title when it does.
func storedHandbook(backend persist.Store) (bool, string) {
	loader := unwrapLatest(backend)
	if loader == nil {
		return false, ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	_, blob, err := loader.LoadAny(ctx)
	if err != nil {
		return false, ""
	}
	var h handbook.Handbook
	if err := json.Unmarshal(blob, &h); err != nil {
		return true, "(unreadable)"
	}
	return true, h.Title
}
