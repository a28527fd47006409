// Package store handles SQLite persistence of banner types and wish history.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/wishwell/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SchemaVersion is the only on-disk version this build reads and writes.
const SchemaVersion = 1

//go:embed migrations/*.sql
var migrationsFS embed.FS

const driver = "sqlite"

// Options configures Open.
type Options struct {
	// Path of the SQLite database file.
	Path string
	// LegacyPath of the old whole-file JSON snapshot. Empty disables import.
	LegacyPath string
	Logger     zerolog.Logger
}

// Store wraps SQLite access for wish data.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Open opens an existing store after checking its version marker, or creates
// a new one and imports the legacy snapshot if present.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	info, err := os.Stat(opts.Path)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s is not a regular file", ErrStoreCorrupt, opts.Path)
		}
		return openExisting(ctx, opts)
	case errors.Is(err, os.ErrNotExist):
		return create(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: failed to stat %s: %v", ErrStoreCorrupt, opts.Path, err)
	}
}

func openExisting(ctx context.Context, opts Options) (*Store, error) {
	if err := checkVersion(ctx, opts.Path); err != nil {
		return nil, err
	}
	s, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	if err := s.backup(ctx); err != nil {
		s.closeQuietly()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		s.closeQuietly()
		return nil, err
	}
	s.log.Debug().Str("path", s.path).Msg("store opened")
	return s, nil
}

func create(ctx context.Context, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	s, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("path", s.path).Msg("no existing store found, creating new one")
	if err := s.migrate(ctx); err != nil {
		s.discard()
		return nil, err
	}
	if opts.LegacyPath == "" {
		return s, nil
	}
	if err := s.importLegacy(ctx, opts.LegacyPath); err != nil {
		// The next start should retry the import against a fresh file.
		s.discard()
		return nil, err
	}
	return s, nil
}

func openDB(opts Options) (*Store, error) {
	db, err := sql.Open(driver, dsn(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Store{db: db, path: opts.Path, log: opts.Logger}, nil
}

func dsn(path string) string {
	values := url.Values{}
	values.Add("_pragma", "busy_timeout(5000)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "foreign_keys(ON)")
	return fmt.Sprintf("file:%s?%s", path, values.Encode())
}

// readOnlyDSN opens without journal pragmas so the file is never written.
func readOnlyDSN(path string) string {
	values := url.Values{}
	values.Add("mode", "ro")
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s?%s", path, values.Encode())
}

// checkVersion reads the version marker over a read-only handle, before
// anything touches the file.
func checkVersion(ctx context.Context, path string) error {
	db, err := sql.Open(driver, readOnlyDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close of the read-only handle.
			_ = cerr
		}
	}()

	var version int
	err = db.QueryRowContext(ctx, `SELECT version FROM meta LIMIT 1`).Scan(&version)
	if err != nil {
		return fmt.Errorf("%w: failed to read version marker: %v", ErrStoreCorrupt, err)
	}
	if version != SchemaVersion {
		return &VersionMismatchError{Found: version, Expected: SchemaVersion}
	}
	return nil
}

func (s *Store) backup(ctx context.Context) error {
	bakPath := s.path + ".bak"
	if err := os.Remove(bakPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old backup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, bakPath); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	s.log.Info().Str("path", bakPath).Msg("wrote store backup")
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) closeQuietly() {
	if cerr := s.db.Close(); cerr != nil {
		// Best-effort close on a failed open.
		_ = cerr
	}
}

func (s *Store) discard() {
	s.closeQuietly()
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", s.path+suffix).Msg("failed to remove partial store")
		}
	}
}

// BannerTypes returns all known banner types keyed by id.
func (s *Store) BannerTypes(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM banner_types`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertBannerTypes inserts banner ids that are not stored yet. Existing ids
// keep their first name.
func (s *Store) UpsertBannerTypes(ctx context.Context, banners map[int64]string) (err error) {
	if len(banners) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO banner_types (id, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for id, name := range banners {
		if _, err = stmt.ExecContext(ctx, id, name); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.log.Debug().Int("count", len(banners)).Msg("stored banner types")
	return nil
}

// OwnerIDs returns every uid with stored history, ascending.
func (s *Store) OwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT uid FROM wish_history ORDER BY uid ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var uids []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uids, nil
}

// History returns all wishes of an owner across banners, oldest first.
func (s *Store) History(ctx context.Context, uid int64) ([]model.Wish, error) {
	wishes, err := s.queryWishes(ctx,
		`SELECT id, uid, banner_type, type, rarity, time, name
		 FROM wish_history
		 WHERE uid = ?
		 ORDER BY time ASC, id ASC`, uid)
	if err != nil {
		return nil, err
	}
	if len(wishes) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOwner, uid)
	}
	return wishes, nil
}

// BannerHistory returns the wishes of an owner in one banner, oldest first.
func (s *Store) BannerHistory(ctx context.Context, uid, bannerType int64) ([]model.Wish, error) {
	wishes, err := s.queryWishes(ctx,
		`SELECT id, uid, banner_type, type, rarity, time, name
		 FROM wish_history
		 WHERE uid = ? AND banner_type = ?
		 ORDER BY time ASC, id ASC`, uid, bannerType)
	if err != nil {
		return nil, err
	}
	if len(wishes) > 0 {
		return wishes, nil
	}
	count, err := s.CountWishes(ctx, uid)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOwner, uid)
	}
	return nil, fmt.Errorf("%w: banner type %d", ErrNoHistory, bannerType)
}

// CountWishes returns how many wishes are stored for an owner.
func (s *Store) CountWishes(ctx context.Context, uid int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wish_history WHERE uid = ?`, uid).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LatestWishID returns the highest stored wish id for an owner and banner.
func (s *Store) LatestWishID(ctx context.Context, uid, bannerType int64) (int64, bool, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(id) FROM wish_history WHERE uid = ? AND banner_type = ?`,
		uid, bannerType).Scan(&latest)
	if err != nil {
		return 0, false, err
	}
	if !latest.Valid {
		return 0, false, nil
	}
	return latest.Int64, true, nil
}

// StoreWishes inserts wishes, skipping any (id, uid) pair already stored. It
// returns the number of rows actually inserted.
func (s *Store) StoreWishes(ctx context.Context, wishes []model.Wish) (inserted int, err error) {
	if len(wishes) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO wish_history (id, uid, banner_type, type, rarity, time, name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, w := range wishes {
		res, execErr := stmt.ExecContext(ctx, w.ID, w.UID, w.BannerType, int(w.Category), w.Rarity, w.Time, w.Name)
		if execErr != nil {
			err = execErr
			return 0, err
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			err = raErr
			return 0, err
		}
		inserted += int(n)
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Debug().Int("offered", len(wishes)).Int("inserted", inserted).Msg("stored wishes")
	return inserted, nil
}

func (s *Store) queryWishes(ctx context.Context, query string, args ...any) ([]model.Wish, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var wishes []model.Wish
	for rows.Next() {
		var w model.Wish
		var code int
		if err := rows.Scan(&w.ID, &w.UID, &w.BannerType, &code, &w.Rarity, &w.Time, &w.Name); err != nil {
			return nil, err
		}
		category, err := model.DecodeCategory(code)
		if err != nil {
			return nil, fmt.Errorf("%w: wish %d: %v", ErrStoreCorrupt, w.ID, err)
		}
		w.Category = category
		wishes = append(wishes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return wishes, nil
}
