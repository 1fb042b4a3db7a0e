package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/rubiojr/filefinder/pkg/config"
	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/index"
	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/search"
)

// pingTimeout bounds the Elasticsearch probe done at startup.
const pingTimeout = 5 * time.Second

// searchStack holds everything a search needs, built from the config.
type searchStack struct {
	cfg      *config.Config
	store    *files.Store
	bleveIdx bleve.Index
	backend  search.Backend
	fullText bool
	mime     *enrich.MimeResolver
}

// openSearchStack opens the file cache and picks the search backend: the
// configured full-text index when it answers, the file cache otherwise.
func openSearchStack(ctx context.Context, cfg *config.Config) (*searchStack, error) {
	logger := log.ForService("filefinder")

	store, err := files.OpenStore(cfg.Files.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening file cache: %w", err)
	}

	s := &searchStack{
		cfg:   cfg,
		store: store,
		mime:  enrich.NewMimeResolver(cfg.BaseURL),
	}
	links := enrich.NewLinkBuilder(cfg.BaseURL)

	switch cfg.Index.Backend {
	case config.BackendElasticsearch:
		exec, err := index.NewElasticExecutor(index.ElasticConfig{
			Hosts:           cfg.Index.Hosts,
			Index:           cfg.Index.Index,
			Username:        cfg.Index.Username,
			Password:        cfg.Index.Password,
			AllowSelfSigned: cfg.Index.AllowSelfSigned,
			Retries:         cfg.Index.Retries,
			Timeout:         cfg.Index.Timeout.Duration,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("configuring elasticsearch: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = exec.Ping(pingCtx)
		cancel()
		if err == nil {
			s.backend = index.NewBackend(exec, s.mime, links)
			s.fullText = true
			break
		}
		logger.Warnf("elasticsearch unavailable, falling back to the file cache: %v", err)
	case config.BackendBleve:
		idx, err := index.OpenBleve(cfg.Index.BlevePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.bleveIdx = idx
		s.backend = index.NewBackend(index.NewBleveExecutor(idx), s.mime, links)
		s.fullText = true
	}

	if s.backend == nil {
		s.backend = files.NewBackend(store, s.mime, links)
	}
	logger.Debugf("using %s search backend", s.backend.Name())
	return s, nil
}

// service returns a search service acting for the users resolved by identity.
func (s *searchStack) service(identity search.IdentityProvider) (*search.Service, error) {
	dates, err := search.NewDateParser(s.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	svc := search.NewService(s.backend, identity, dates)
	svc.SetMaxPageSize(s.cfg.MaxPageSize)
	return svc, nil
}

func (s *searchStack) scanner() *files.Scanner {
	return files.NewScanner(s.store, s.mime, s.cfg.Files.Homes)
}

func (s *searchStack) Close() {
	logger := log.ForService("filefinder")
	if s.bleveIdx != nil {
		if err := s.bleveIdx.Close(); err != nil {
			logger.Warnf("failed to close index: %v", err)
		}
	}
	if err := s.store.Close(); err != nil {
		logger.Warnf("failed to close file cache: %v", err)
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
