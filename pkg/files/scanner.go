package files

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/metrics"
	"github.com/rubiojr/filefinder/pkg/search"
)

// Scanner walks home directories and refreshes the file cache.
type Scanner struct {
	store *Store
	mime  search.MimeResolver
	// homes maps user names to their home directory on disk.
	homes  map[string]string
	logger *log.Logger
}

// NewScanner returns a scanner for homes, a map of user name to directory.
func NewScanner(store *Store, mime search.MimeResolver, homes map[string]string) *Scanner {
	h := make(map[string]string, len(homes))
	for user, dir := range homes {
		h[user] = dir
	}
	return &Scanner{store: store, mime: mime, homes: h, logger: log.ForService("scanner")}
}

// Users returns the users with a configured home.
func (s *Scanner) Users() []string {
	users := make([]string, 0, len(s.homes))
	for u := range s.homes {
		users = append(users, u)
	}
	return users
}

// Home returns the directory of user.
func (s *Scanner) Home(user string) (string, bool) {
	dir, ok := s.homes[user]
	return dir, ok
}

// Walk lists everything below root. Hidden entries are skipped.
func (s *Scanner) Walk(ctx context.Context, root string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			s.logger.Warnf("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warnf("skipping %s: %v", p, err)
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		e := Entry{Path: rel, MTime: info.ModTime().Unix(), IsDir: d.IsDir()}
		if !d.IsDir() {
			e.Size = info.Size()
			if mt, err := s.mime.Detect(rel); err == nil {
				e.MimeType = mt
			}
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Scan refreshes the cache of user.
func (s *Scanner) Scan(ctx context.Context, user string) (int, error) {
	root, ok := s.homes[user]
	if !ok {
		return 0, fmt.Errorf("no home configured for %q", user)
	}

	started := time.Now()
	entries, err := s.Walk(ctx, root)
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", root, err)
	}
	if err := s.store.Replace(ctx, user, root, entries, started); err != nil {
		return 0, fmt.Errorf("storing scan of %s: %w", user, err)
	}

	metrics.ScannedFilesTotal.WithLabelValues(user).Add(float64(len(entries)))
	s.logger.Debugf("scanned %d entries for %s in %v", len(entries), user, time.Since(started))
	return len(entries), nil
}

// ScanAll refreshes the cache of every user. It keeps going when a user
// fails and returns the first error.
func (s *Scanner) ScanAll(ctx context.Context) error {
	var first error
	for _, user := range s.Users() {
		if _, err := s.Scan(ctx, user); err != nil {
			s.logger.Errorf("scan of %s failed: %v", user, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
