package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/urfave/cli/v3"
)

func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan home directories into the file cache",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "user",
				Usage: "Only scan the home of this user",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return scanHomes(ctx, c.String("config"), c.StringSlice("user"))
		},
	}
}

func scanHomes(ctx context.Context, configPath string, users []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Files.Homes) == 0 {
		return fmt.Errorf("no home directories configured in %s", configPath)
	}

	stack, err := openSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	scanner := stack.scanner()
	if len(users) == 0 {
		users = scanner.Users()
		sort.Strings(users)
	}

	for _, user := range users {
		start := time.Now()
		n, err := scanner.Scan(ctx, user)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s entries in %s\n", user, formatNumber(n), formatDuration(time.Since(start)))
	}

	if err := stack.store.Optimize(); err != nil {
		fmt.Printf("Warning: failed to optimize file cache: %v\n", err)
	}
	return nil
}
