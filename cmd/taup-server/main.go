package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/taup/internal/app"
	"github.com/chrissnell/taup/internal/log"
	"github.com/chrissnell/taup/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "", "Path to configuration source:\n\t\t\t  YAML: taup.yaml\n\t\t\t  SQLite: taup.db\n\t\t\t  Built-in defaults are used when empty\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	listen := flag.String("listen", "", "Listen address (overrides the configured address)")
	port := flag.Int("port", 0, "Listen port (overrides the configured port)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("taup-server %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init("taup-server", *debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename := *cfgFile
	if filename != "" {
		filename, _ = filepath.Abs(filename)
	}
	cfgData, err := config.Load(filename, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfgData.Server.ListenAddr = *listen
	}
	if *port != 0 {
		cfgData.Server.Port = *port
	}

	// Create and run the application
	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
