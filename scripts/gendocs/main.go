// Package main generates the CLI and configuration reference for LeapLineage
// from the command tree and config defaults.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=config -outdir=docs/concepts
//	go run ./scripts/gendocs -gen=all
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
)

var (
	genFlag    = flag.String("gen", "all", "what to generate: cli, config, all")
	outDirFlag = flag.String("outdir", "", "output directory (defaults based on gen type)")
)

func main() {
	flag.Parse()

	projectRoot, err := findProjectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}
	log.Printf("Project root: %s", projectRoot)

	outDir := func(def string) string {
		if *outDirFlag != "" {
			return *outDirFlag
		}
		return def
	}

	switch *genFlag {
	case "cli":
		if err := generateCLIDocs(outDir(filepath.Join(projectRoot, "docs", "cli"))); err != nil {
			log.Fatalf("failed to generate CLI docs: %v", err)
		}
	case "config":
		if err := generateConfigDocs(outDir(configDocPath(projectRoot))); err != nil {
			log.Fatalf("failed to generate configuration docs: %v", err)
		}
	case "all":
		if err := generateCLIDocs(filepath.Join(projectRoot, "docs", "cli")); err != nil {
			log.Fatalf("failed to generate CLI docs: %v", err)
		}
		if err := generateConfigDocs(configDocPath(projectRoot)); err != nil {
			log.Fatalf("failed to generate configuration docs: %v", err)
		}
	default:
		log.Fatalf("unknown -gen value: %s (use: cli, config, all)", *genFlag)
	}

	log.Println("Done!")
}

// findProjectRoot walks up from the working directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
