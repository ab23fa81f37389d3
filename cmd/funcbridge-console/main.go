// cmd/funcbridge-console/main.go
//
// Interactive console: spawns a bridge process for the given extension
// module and lets you browse and call its functions and assertions the way
// an orchestrator would.

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/kingrea/funcbridge/internal/client"
	"github.com/kingrea/funcbridge/internal/logbook"
	"github.com/kingrea/funcbridge/internal/tui"
)

func main() {
	bridgeBinary := flag.String("bridge", "funcbridge", "bridge binary to spawn")
	registryPath := flag.String("registry", "", "path to the extension module (.go file or directory)")
	journalPath := flag.String("journal", "", "request journal file, shared with the bridge and shown in the console")
	flag.Parse()

	_ = godotenv.Load()

	if *registryPath == "" {
		die("--registry is required")
	}

	args := []string{"--registry", *registryPath}
	var appOpts []tui.AppOption
	if *journalPath != "" {
		journal, err := logbook.New(*journalPath)
		if err != nil {
			die("open journal: %v", err)
		}
		args = append(args, "--journal", *journalPath)
		appOpts = append(appOpts, tui.WithJournal(journal))
	}

	bridge, err := client.Spawn(*bridgeBinary, args...)
	if err != nil {
		die("spawn bridge: %v", err)
	}

	p := tea.NewProgram(tui.NewApp(bridge, appOpts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		_ = bridge.Close()
		die("run console: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
