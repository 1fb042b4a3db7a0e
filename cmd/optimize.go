package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "File cache maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run an integrity check on the file cache",
				Action: func(ctx context.Context, c *cli.Command) error {
					return maintainCache(c.String("config"), "integrity check", (*files.Store).IntegrityCheck)
				},
			},
			{
				Name:  "analyze",
				Usage: "Run ANALYZE to update query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return maintainCache(c.String("config"), "ANALYZE", (*files.Store).Analyze)
				},
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment the file cache",
				Action: func(ctx context.Context, c *cli.Command) error {
					return maintainCache(c.String("config"), "VACUUM", (*files.Store).Vacuum)
				},
			},
			{
				Name:  "checkpoint",
				Usage: "Run WAL checkpoint to flush changes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return maintainCache(c.String("config"), "WAL checkpoint", (*files.Store).WALCheckpoint)
				},
			},
			{
				Name:  "all",
				Usage: "Run all optimization operations (optimize, analyze, checkpoint)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return maintainCache(c.String("config"), "all optimization operations", optimizeAll)
				},
			},
		},
	}
}

func optimizeAll(store *files.Store) error {
	steps := []struct {
		name string
		run  func(*files.Store) error
	}{
		{"PRAGMA optimize", (*files.Store).Optimize},
		{"ANALYZE", (*files.Store).Analyze},
		{"WAL checkpoint", (*files.Store).WALCheckpoint},
	}
	for _, step := range steps {
		fmt.Printf("  %s... ", step.name)
		if err := step.run(store); err != nil {
			fmt.Println("✗ FAILED")
			return fmt.Errorf("%s: %w", step.name, err)
		}
		fmt.Println("✓ OK")
	}
	return nil
}

// maintainCache opens the file cache directly, without probing the
// search backends, and runs op against it.
func maintainCache(configPath, name string, op func(*files.Store) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := files.OpenStore(cfg.Files.DBPath)
	if err != nil {
		return fmt.Errorf("opening file cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close file cache: %v\n", err)
		}
	}()

	fmt.Printf("Running %s on %s...\n", name, cfg.Files.DBPath)
	if err := op(store); err != nil {
		return err
	}
	fmt.Printf("✓ %s completed successfully\n", name)
	return nil
}
