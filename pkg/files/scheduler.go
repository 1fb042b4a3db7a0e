package files

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/filefinder/pkg/log"
)

// SchedulerConfig controls how often homes are rescanned.
type SchedulerConfig struct {
	// ScanInterval of 0 disables periodic scans. Triggered scans still run.
	ScanInterval     time.Duration
	OptimizeInterval time.Duration
}

// Scheduler rescans every home periodically and on demand.
type Scheduler struct {
	config   SchedulerConfig
	scanner  *Scanner
	store    *Store
	triggers map[string]chan struct{}
	stopCh   chan struct{}
	cancel   context.CancelFunc
	mu       sync.RWMutex
	wg       sync.WaitGroup
	running  bool
	logger   *log.Logger
}

func NewScheduler(config SchedulerConfig, scanner *Scanner, store *Store) *Scheduler {
	triggers := make(map[string]chan struct{})
	for _, user := range scanner.Users() {
		triggers[user] = make(chan struct{}, 1)
	}
	return &Scheduler{
		config:   config,
		scanner:  scanner,
		store:    store,
		triggers: triggers,
		stopCh:   make(chan struct{}),
		logger:   log.ForService("scheduler"),
	}
}

// Start scans every home once and keeps them fresh until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.triggers) == 0 {
		return fmt.Errorf("no homes configured")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for user, trigger := range s.triggers {
		s.wg.Add(1)
		go s.runUser(ctx, user, trigger)
	}

	if s.config.OptimizeInterval > 0 {
		s.wg.Add(1)
		go s.runOptimization(ctx)
	}

	s.logger.Infof("scheduler started for %d homes, scan interval: %v", len(s.triggers), s.config.ScanInterval)
	return nil
}

func (s *Scheduler) runUser(ctx context.Context, user string, trigger <-chan struct{}) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.config.ScanInterval > 0 {
		ticker := time.NewTicker(s.config.ScanInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.scan(ctx, user)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-tick:
			s.scan(ctx, user)
		case <-trigger:
			s.scan(ctx, user)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context, user string) {
	n, err := s.scanner.Scan(ctx, user)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Errorf("scan of %s failed: %v", user, err)
		}
		return
	}
	s.logger.Debugf("home of %s has %d entries", user, n)
}

func (s *Scheduler) runOptimization(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.OptimizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.store.Optimize(); err != nil {
				s.logger.Warnf("file cache optimization failed: %v", err)
			}
		}
	}
}

// Trigger requests a rescan of user. Requests made while one is pending
// are coalesced. It returns false for unknown users.
func (s *Scheduler) Trigger(user string) bool {
	s.mu.RLock()
	trigger, ok := s.triggers[user]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
	return true
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	s.logger.Infof("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
