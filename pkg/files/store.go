package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/filefinder/pkg/db"
	"github.com/rubiojr/filefinder/pkg/log"
)

// Entry is a file or directory found by a scan. Path is relative to the
// home directory and uses forward slashes.
type Entry struct {
	Path     string
	MimeType string
	MTime    int64
	Size     int64
	IsDir    bool
}

// ScanInfo describes the last completed scan of a home directory.
type ScanInfo struct {
	User       string
	Root       string
	Files      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the sqlite file cache.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenStore opens the cache at dbPath and applies pending migrations.
func OpenStore(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating file cache: %w", err)
	}

	return &Store{db: conn, logger: log.ForService("files")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Optimize runs sqlite's query planner maintenance.
func (s *Store) Optimize() error {
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

func (s *Store) Analyze() error {
	_, err := s.db.Exec("ANALYZE")
	return err
}

func (s *Store) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

func (s *Store) WALCheckpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// IntegrityCheck returns an error listing the problems sqlite reports
// for the cache database, or nil when it is consistent.
func (s *Store) IntegrityCheck() error {
	rows, err := s.db.Query("PRAGMA integrity_check")
	if err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("reading integrity check result: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Replace stores entries as the complete content of user's home. Rows
// for paths no longer present are removed. File IDs of paths that were
// already known are preserved.
func (s *Store) Replace(ctx context.Context, user, root string, entries []Entry, startedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (user_id, path, name, mimetype, mtime, size, is_dir, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, path) DO UPDATE SET
			name = excluded.name,
			mimetype = excluded.mimetype,
			mtime = excluded.mtime,
			size = excluded.size,
			is_dir = excluded.is_dir,
			scanned_at = excluded.scanned_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			s.logger.Warnf("failed to close statement: %v", err)
		}
	}()

	generation := startedAt.UnixNano()
	for _, e := range entries {
		if e.Path == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx, user, e.Path, path.Base(e.Path), e.MimeType, e.MTime, e.Size, e.IsDir, generation)
		if err != nil {
			return fmt.Errorf("storing %s: %w", e.Path, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE user_id = ? AND scanned_at <> ?`, user, generation); err != nil {
		return fmt.Errorf("removing stale entries: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE user_id = ?`, user).Scan(&stored); err != nil {
		return fmt.Errorf("counting stored entries: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO scans (user_id, root, files, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, user, root, stored, startedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// LastScan returns the last scan of user's home, or nil when it was never
// scanned.
func (s *Store) LastScan(ctx context.Context, user string) (*ScanInfo, error) {
	var info ScanInfo
	var started, finished int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, root, files, started_at, finished_at FROM scans WHERE user_id = ?
	`, user).Scan(&info.User, &info.Root, &info.Files, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scan of %s: %w", user, err)
	}
	info.StartedAt = time.Unix(started, 0)
	info.FinishedAt = time.Unix(finished, 0)
	return &info, nil
}

// Count returns the number of cached entries of user.
func (s *Store) Count(ctx context.Context, user string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE user_id = ?`, user).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files of %s: %w", user, err)
	}
	return n, nil
}

var columns = map[Field]string{
	FieldPath:  "path",
	FieldName:  "name",
	FieldMtime: "mtime",
}

// Search runs q and returns the matching nodes with their virtual paths.
func (s *Store) Search(ctx context.Context, q *Query) ([]Node, error) {
	if q.User == "" {
		return nil, errors.New("query has no user")
	}

	where := "user_id = ?"
	args := []any{q.User}
	if q.Root != nil {
		cond, condArgs, err := renderSQL(q.Root)
		if err != nil {
			return nil, err
		}
		where += " AND " + cond
		args = append(args, condArgs...)
	}

	var order []string
	for _, o := range q.Order {
		col, ok := columns[o.Field]
		if !ok {
			return nil, fmt.Errorf("unknown sort field %q", o.Field)
		}
		order = append(order, col+" "+strings.ToUpper(string(o.Direction)))
	}
	order = append(order, "fileid ASC")

	sqlQuery := `
		SELECT fileid, path, mimetype, mtime, size, is_dir
		FROM files
		WHERE ` + where + `
		ORDER BY ` + strings.Join(order, ", ")
	if q.Size > 0 {
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, q.Size, q.From)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	home := HomePath(q.User)
	var nodes []Node
	for rows.Next() {
		var n Node
		var rel string
		if err := rows.Scan(&n.FileID, &rel, &n.MimeType, &n.MTime, &n.Size, &n.IsDir); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		n.Path = home + "/" + rel
		n.Name = path.Base(rel)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// renderSQL renders op as a SQL condition with positional arguments.
func renderSQL(op Operator) (string, []any, error) {
	switch o := op.(type) {
	case *Comparison:
		col, ok := columns[o.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown field %q", o.Field)
		}
		switch o.Type {
		case Like:
			return col + ` LIKE ? ESCAPE '\'`, []any{o.Value}, nil
		case LessThanEqual:
			return col + " <= ?", []any{o.Value}, nil
		case GreaterThanEqual:
			return col + " >= ?", []any{o.Value}, nil
		}
		return "", nil, fmt.Errorf("unknown comparison %q", o.Type)
	case *Binary:
		if o.Type == OpNot {
			if len(o.Args) != 1 {
				return "", nil, fmt.Errorf("not takes one operand, got %d", len(o.Args))
			}
			cond, args, err := renderSQL(o.Args[0])
			if err != nil {
				return "", nil, err
			}
			return "NOT (" + cond + ")", args, nil
		}

		var sep string
		switch o.Type {
		case OpAnd:
			sep = " AND "
		case OpOr:
			sep = " OR "
		default:
			return "", nil, fmt.Errorf("unknown operator %q", o.Type)
		}
		if len(o.Args) == 0 {
			if o.Type == OpOr {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(o.Args))
		var args []any
		for _, a := range o.Args {
			cond, condArgs, err := renderSQL(a)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, cond)
			args = append(args, condArgs...)
		}
		return "(" + strings.Join(parts, sep) + ")", args, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %T", op)
}
