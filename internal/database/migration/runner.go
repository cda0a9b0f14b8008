package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// lockKey serialises concurrent migrators (several replicas starting at once).
const lockKey int64 = 0x6e657874 // "next"

var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// Runner applies V<version>__<name>.sql files in version order. FS takes
// precedence; otherwise Dir is read from disk.
type Runner struct {
	FS     fs.FS
	Dir    string
	Logger *zap.Logger
}

// State pairs a migration file with whether it has been applied.
type State struct {
	Migration
	Applied bool
}

func (r Runner) Run(ctx context.Context, db *sql.DB) error {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return r.withConn(ctx, db, true, func(conn *sql.Conn, states []State) error {
		if len(states) == 0 {
			log.Warn("no migrations found")
			return nil
		}
		applied := 0
		for _, st := range states {
			if st.Applied {
				continue
			}
			if err := applyOne(ctx, conn, st.Migration); err != nil {
				return err
			}
			applied++
			log.Info("migration applied", zap.Int64("version", st.Version), zap.String("file", st.Filename))
		}
		log.Info("migrations complete", zap.Int("applied", applied), zap.Int("total", len(states)))
		return nil
	})
}

// Status reports every known migration and whether it has been applied,
// without changing the database beyond creating the bookkeeping table.
func (r Runner) Status(ctx context.Context, db *sql.DB) ([]State, error) {
	var out []State
	err := r.withConn(ctx, db, false, func(_ *sql.Conn, states []State) error {
		out = states
		return nil
	})
	return out, err
}

// withConn pins one pooled connection, since session advisory locks belong to
// a single connection, and hands fn the migration plan.
func (r Runner) withConn(ctx context.Context, db *sql.DB, lock bool, fn func(*sql.Conn, []State) error) error {
	if db == nil {
		return errors.New("nil db")
	}

	fsys, err := r.source()
	if err != nil {
		return err
	}
	migs, err := loadMigrations(fsys)
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := ensureSchemaMigrations(ctx, conn); err != nil {
		return err
	}

	if lock {
		if err := advisoryLock(ctx, conn, lockKey); err != nil {
			return err
		}
		defer func() {
			_ = advisoryUnlock(context.Background(), conn, lockKey)
		}()
	}

	applied, err := getApplied(ctx, conn)
	if err != nil {
		return err
	}
	states, err := plan(migs, applied)
	if err != nil {
		return err
	}
	return fn(conn, states)
}

// plan marks which migrations are applied and rejects edited files.
func plan(migs []Migration, applied map[int64]appliedMigration) ([]State, error) {
	states := make([]State, 0, len(migs))
	for _, m := range migs {
		a, ok := applied[m.Version]
		if ok && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("%w: version=%d name=%s", ErrChecksumMismatch, m.Version, m.Name)
		}
		states = append(states, State{Migration: m, Applied: ok})
	}
	return states, nil
}

type Migration struct {
	Version  int64
	Name     string
	Filename string
	SQL      string
	Checksum string
}

type appliedMigration struct {
	Version  int64
	Checksum string
}

var fileRe = regexp.MustCompile(`^V(\d+)__([A-Za-z0-9_.-]+)\.sql$`)

func (r Runner) source() (fs.FS, error) {
	if r.FS != nil {
		return r.FS, nil
	}
	dir := strings.TrimSpace(r.Dir)
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(filepath.Dir(exe), "migrations")
	}
	return os.DirFS(dir), nil
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	migs := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		m := fileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version: %s", name)
		}

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		sqlText := strings.TrimSpace(string(b))
		if sqlText == "" {
			return nil, fmt.Errorf("empty migration file: %s", name)
		}

		h := sha256.Sum256([]byte(sqlText))
		migs = append(migs, Migration{
			Version:  v,
			Name:     m[2],
			Filename: name,
			SQL:      sqlText,
			Checksum: hex.EncodeToString(h[:]),
		})
	}

	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	for i := 1; i < len(migs); i++ {
		if migs[i].Version == migs[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version: %d", migs[i].Version)
		}
	}

	return migs, nil
}

func ensureSchemaMigrations(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

func advisoryLock(ctx context.Context, conn *sql.Conn, key int64) error {
	_, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key)
	return err
}

func advisoryUnlock(ctx context.Context, conn *sql.Conn, key int64) error {
	_, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, key)
	return err
}

func getApplied(ctx context.Context, conn *sql.Conn) (map[int64]appliedMigration, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]appliedMigration{}
	for rows.Next() {
		var v int64
		var c string
		if err := rows.Scan(&v, &c); err != nil {
			return nil, err
		}
		out[v] = appliedMigration{Version: v, Checksum: c}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func applyOne(ctx context.Context, conn *sql.Conn, m Migration) error {
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply migration failed: version=%d file=%s: %w", m.Version, m.Filename, err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES ($1, $2, $3, $4)`,
		m.Version,
		m.Name,
		m.Checksum,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
