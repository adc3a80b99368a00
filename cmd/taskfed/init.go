package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"taskfed/internal/config"
	"taskfed/internal/registry"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskfed configuration",
	Long:  "Creates a .taskfed/ directory with a default configuration and source registry",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing .taskfed directory")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := mustGetRoot()
	dir := filepath.Join(root, ".taskfed")

	if _, err := os.Stat(dir); err == nil && !initForce {
		return fmt.Errorf(".taskfed already exists (use --force to overwrite)")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	reg := &registry.Registry{
		Sources: []registry.SourceConfig{
			{
				ID:       "local",
				Name:     "Local file store",
				Kind:     registry.KindFile,
				Priority: 100,
				Enabled:  true,
				Options:  registry.Options{Path: filepath.Join(dir, "data")},
				AddedAt:  time.Now().UTC(),
			},
			{
				ID:       "archive",
				Name:     "Local archive",
				Kind:     registry.KindSQLite,
				Priority: 50,
				Enabled:  false,
				Options:  registry.Options{Path: filepath.Join(dir, "archive.db")},
				AddedAt:  time.Now().UTC(),
			},
		},
	}
	if err := reg.Save(filepath.Join(dir, cfg.RegistryPath)); err != nil {
		return fmt.Errorf("failed to write source registry: %w", err)
	}

	fmt.Printf("Initialized taskfed in %s\n", dir)
	fmt.Println("Edit sources.toml to configure additional storage sources.")
	return nil
}
