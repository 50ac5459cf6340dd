package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/taup/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <taup.yaml> -sqlite <taup.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	sections := []struct {
		name         string
		yaml, sqlite any
	}{
		{"Model", yamlConfig.Model, sqliteConfig.Model},
		{"Sampling", yamlConfig.Sampling, sqliteConfig.Sampling},
		{"Phases", yamlConfig.Phases, sqliteConfig.Phases},
		{"Server", yamlConfig.Server, sqliteConfig.Server},
	}

	mismatches := 0
	for _, s := range sections {
		if reflect.DeepEqual(s.yaml, s.sqlite) {
			fmt.Printf("✓ %s matches\n", s.name)
			continue
		}
		mismatches++
		fmt.Printf("✗ %s differs\n", s.name)
		fmt.Printf("  YAML:   %+v\n", s.yaml)
		fmt.Printf("  SQLite: %+v\n", s.sqlite)
	}

	if mismatches > 0 {
		fmt.Printf("\n%d section(s) differ\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\nAll sections match")
}
