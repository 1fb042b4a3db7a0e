package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rubiojr/filefinder/pkg/index"
	"github.com/urfave/cli/v3"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show file cache and index statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, c.String("config"))
		},
	}
}

func showStats(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	stack, err := openSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	fmt.Println(titleStyle.Render("filefinder statistics"))
	fmt.Printf("Search backend: %s (full-text: %v)\n", stack.backend.Name(), stack.fullText)

	if stack.bleveIdx != nil {
		docs, err := index.NewIndexer(stack.bleveIdx).Count()
		if err != nil {
			return fmt.Errorf("counting indexed documents: %w", err)
		}
		fmt.Printf("Indexed documents: %s\n", formatNumber(int(docs)))
	}

	users := make([]string, 0, len(cfg.Files.Homes))
	for user := range cfg.Files.Homes {
		users = append(users, user)
	}
	sort.Strings(users)

	if len(users) == 0 {
		fmt.Println(noDataStyle.Render("No home directories configured yet."))
		return nil
	}

	fmt.Println()
	for _, user := range users {
		count, err := stack.store.Count(ctx, user)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", nameStyle.Render(user), metaStyle.Render(cfg.Files.Homes[user]))
		fmt.Printf("   Entries: %s\n", formatNumber(count))

		scan, err := stack.store.LastScan(ctx, user)
		if err != nil {
			return err
		}
		if scan == nil {
			fmt.Printf("   Never scanned\n")
			continue
		}
		fmt.Printf("   Last scan: %s (took %s)\n", formatTime(scan.FinishedAt), formatDuration(scan.FinishedAt.Sub(scan.StartedAt).Round(time.Second)))
	}
	return nil
}
