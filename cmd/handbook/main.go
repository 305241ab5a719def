// Command handbook is the CLI for authoring, previewing and exporting
// handbooks.
package main

import (
	"fmt"
	"os"

	"github.com/inkforge/handbook/cmd/handbook/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "new":
		err = commands.NewCommand(args)
	case "serve":
		err = commands.ServeCommand(args)
	case "export":
		err = commands.ExportCommand(args)
	case "info":
		err = commands.InfoCommand(args)
	case "version":
		fmt.Printf("handbook version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("handbook - assemble, preview and export handbooks")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  handbook new [-y]                 Create a fresh handbook (replaces the stored one)")
	fmt.Println("  handbook serve [--port=N]         Start the live preview server")
	fmt.Println("  handbook export offline [--out=DIR|--zip=FILE]")
	fmt.Println("                                    Write the self-contained offline bundle")
	fmt.Println("  handbook export pdf [--out=FILE]  Write the paginated PDF document")
	fmt.Println("  handbook info                     Show the stored handbook summary")
	fmt.Println("  handbook version                  Show version")
	fmt.Println()
	fmt.Println("All commands read handbook.yml from the working directory when present;")
	fmt.Println("pass --config=PATH to use another file.")
}
