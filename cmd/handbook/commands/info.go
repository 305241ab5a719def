package commands

import (
	"fmt"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/config"
)

// InfoCommand prints a summary of the stored handbook.
func InfoCommand(args []string) error {
	opts := parseFlags(args)

	cfg, err := config.Load(opts["config"])
	if err != nil {
		return err
	}

	store, backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	snap := store.Snapshot()

	fmt.Printf("Handbook: %s\n", snap.Title)
	if snap.Description != "" {
		fmt.Printf("Description: %s\n", snap.Description)
	}
	fmt.Printf("ID: %s\n", snap.ID)
	fmt.Printf("Updated: %s\n", snap.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Modules: %d\n", len(snap.Modules))
	for i, m := range snap.Modules {
		fmt.Printf("  %d. %s (%s): %d blocks, v%d\n", i+1, m.Title, m.Slug, len(m.Blocks), m.Version)
		counts := blockCounts(m)
		if len(counts) > 0 {
			fmt.Printf("     %s\n", counts)
		}
	}
	return nil
}

func blockCounts(m *handbook.Module) string {
	tally := make(map[handbook.BlockType]int)
	for _, b := range m.Blocks {
		tally[b.Type]++
	}
	out := ""
	for _, t := range handbook.BlockTypes {
		if n := tally[t]; n > 0 {
			if out != "" {
				out += ", "
			}
			out += fmt.Sprintf("%d %s", n, t)
		}
	}
	return out
}
