// cmd/funcbridge/main.go
//
// Entry point for the bridge binary. An orchestrator spawns this process,
// streams JSON-RPC requests on stdin, and reads one response per request on
// stdout. Flow:
// 1. Resolve settings (flags > FUNCBRIDGE_* env > funcbridge.yaml)
// 2. Interpret the extension module and harvest its registry
// 3. Serve the protocol loop until stdin closes
//
// Stdout carries protocol envelopes exclusively; all diagnostics go to
// stderr (and the optional rotating log file).

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kingrea/funcbridge/extension"
	"github.com/kingrea/funcbridge/internal/config"
	"github.com/kingrea/funcbridge/internal/logbook"
	"github.com/kingrea/funcbridge/internal/logging"
	"github.com/kingrea/funcbridge/internal/rpc"
	"github.com/kingrea/funcbridge/plugins"
)

func main() {
	registryPath := flag.String("registry", "", "path to the extension module (.go file or directory)")
	configFile := flag.String("config-file", "", "path to a YAML settings file (defaults to funcbridge.yaml if present)")
	logFile := flag.String("log-file", "", "rotating diagnostic log file (stderr is always written)")
	journalPath := flag.String("journal", "", "request journal file")
	flag.Parse()

	// A .env next to the binary is a supported way to set FUNCBRIDGE_* vars.
	_ = godotenv.Load()

	settings, err := config.Load(*configFile)
	if err != nil {
		die("%v", err)
	}
	if *registryPath != "" {
		settings.RegistryPath = *registryPath
	}
	if *logFile != "" {
		settings.LogFile = *logFile
	}
	if *journalPath != "" {
		settings.JournalPath = *journalPath
	}
	if err := settings.Validate(); err != nil {
		die("%v", err)
	}

	logger := logging.New(logging.FileConfig{
		Path:       settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
	})
	defer logger.Close()

	// Load-phase failures are fatal: the bridge must not serve a partial
	// registry.
	registry, err := plugins.Load(settings.RegistryPath)
	if err != nil {
		logger.Printf("funcbridge: load extension module: %v", err)
		os.Exit(1)
	}
	logger.Printf("funcbridge: loaded registry from %s", settings.RegistryPath)
	logger.Printf("funcbridge: functions: %s", nameList(registry.FunctionNames()))
	logger.Printf("funcbridge: assertions: %s", nameList(registry.AssertionNames()))
	logger.Printf("funcbridge: hooks: %s", nameList(registry.HookNames()))

	opts := []rpc.Option{
		rpc.WithLogger(logger),
		rpc.WithMaxLineBytes(settings.MaxLineBytes),
	}
	if settings.JournalPath != "" {
		journal, err := logbook.New(settings.JournalPath)
		if err != nil {
			logger.Printf("funcbridge: open journal: %v", err)
			os.Exit(1)
		}
		opts = append(opts, rpc.WithJournal(journal))
	}

	server := rpc.NewServer(rpc.NewDispatcher(registry, extension.NewContext()), opts...)
	logger.Printf("funcbridge: serving on stdio")
	if err := server.Serve(context.Background()); err != nil {
		logger.Printf("funcbridge: serve: %v", err)
		os.Exit(1)
	}
}

func nameList(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
