package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inkforge/handbook/internal/config"
	"github.com/inkforge/handbook/internal/export/offline"
	"github.com/inkforge/handbook/internal/export/pdfdoc"
)

// ExportCommand writes the stored handbook as an offline bundle or a
// paginated PDF, depending on the subcommand.
func ExportCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: handbook export offline|pdf [flags]")
	}
	format := args[0]
	opts := parseFlags(args[1:])

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

	switch format {
	case "offline":
		bundle, err := offline.NewGenerator().Generate(snap)
		if err != nil {
			return err
		}
		if zipPath := opts["zip"]; zipPath != "" {
			f, err := os.Create(zipPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := bundle.WriteArchive(f); err != nil {
				return err
			}
			fmt.Printf("Wrote offline bundle to %s\n", zipPath)
			return nil
		}
		dir := opts["out"]
		if dir == "" {
			dir = "handbook-offline"
		}
		if err := bundle.WriteDir(dir); err != nil {
			return err
		}
		fmt.Printf("Wrote offline bundle to %s%c\n", dir, filepath.Separator)
		return nil

	case "pdf":
		out := opts["out"]
		if out == "" {
			out = "handbook.pdf"
		}
		answerKey := cfg.Export.AnswerKey
		if v, ok := opts["answer-key"]; ok {
			answerKey = v == "true"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		gen := pdfdoc.NewGenerator(pdfdoc.Options{AnswerKey: answerKey})
		if err := gen.Generate(snap, f); err != nil {
			return err
		}
		fmt.Printf("Wrote PDF to %s\n", out)
		return nil

	default:
		return fmt.Errorf("unknown export format %q (want offline or pdf)", format)
	}
}
