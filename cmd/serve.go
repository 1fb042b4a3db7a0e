package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rubiojr/filefinder/pkg/api"
	"github.com/rubiojr/filefinder/pkg/auth"
	"github.com/rubiojr/filefinder/pkg/config"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/urfave/cli/v3"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search API and keep the file cache up to date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the config)",
			},
			&cli.BoolFlag{
				Name:  "no-scan",
				Usage: "Do not scan home directories",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"), c.Bool("no-scan"))
		},
	}
}

func serve(ctx context.Context, configPath, listen string, noScan bool) error {
	logger := log.ForService("serve")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := openSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	svc, err := stack.service(auth.ContextIdentity{})
	if err != nil {
		return err
	}

	if !noScan && len(cfg.Files.Homes) > 0 {
		scheduler := files.NewScheduler(files.SchedulerConfig{
			ScanInterval:     cfg.Files.ScanInterval.Duration,
			OptimizeInterval: 24 * time.Hour,
		}, stack.scanner(), stack.store)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer scheduler.Stop()

		if cfg.Files.Watch {
			watcher, err := files.NewWatcher(cfg.Files.Homes, scheduler, files.DefaultDebounce)
			if err != nil {
				logger.Warnf("file watching disabled: %v", err)
			} else {
				go func() {
					if err := watcher.Run(ctx); err != nil {
						logger.Errorf("watcher stopped: %v", err)
					}
				}()
			}
		}
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(svc, stack.fullText).Handler(authChain(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting API server on http://%s (backend: %s)", cfg.Listen, stack.backend.Name())
		logger.Infof("  GET  /api/search - Search files")
		logger.Infof("  POST /api/search - Search files with a JSON body")
		logger.Infof("  GET  /api/capabilities - Search capabilities")
		logger.Infof("  GET  /health - Health check")
		logger.Infof("  GET  /metrics - Prometheus metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// authChain builds the authenticators enabled in cfg.
func authChain(cfg *config.Config) auth.Chain {
	var chain auth.Chain
	if keys := cfg.APIKeyUsers(); len(keys) > 0 {
		chain = append(chain, auth.NewAPIKeys(keys))
	}
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.JWTUserClaim))
	}
	if cfg.Auth.TrustedHeader != "" {
		chain = append(chain, auth.TrustedHeader(cfg.Auth.TrustedHeader))
	}
	return chain
}
