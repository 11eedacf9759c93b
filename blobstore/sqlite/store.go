package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/linkedseq/blobstore"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS blobs (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// Store implements blobstore.BlobStore over a SQLite table.
type Store struct {
	db *sql.DB
}

var _ blobstore.BlobStore = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, `SELECT length(data) FROM blobs WHERE name = ?`, name).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &blob{db: s.db, name: name, size: size}, nil
}

func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &writer{ctx: ctx, store: s, name: name}, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		name, data)
	return err
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, name)
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM blobs WHERE substr(name, 1, length(?1)) = ?1 ORDER BY name`, prefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type blob struct {
	db   *sql.DB
	name string
	size int64
}

func (b *blob) Size() int64 { return b.size }

func (b *blob) Close() error { return nil }

func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	data, err := b.read(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size || length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	data, err := b.read(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// read fetches [off, off+length) clipped to the blob. substr is 1-based.
func (b *blob) read(ctx context.Context, off, length int64) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT substr(data, ?, ?) FROM blobs WHERE name = ?`, off+1, length, b.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blobstore.ErrNotFound
	}
	return data, err
}

// writer buffers the blob and stores it in one statement on Close.
type writer struct {
	ctx   context.Context
	store *Store
	name  string
	buf   bytes.Buffer

	mu     sync.Mutex
	closed bool
	err    error
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, blobstore.ErrClosed
	}
	return w.buf.Write(p)
}

// Sync is a no-op; nothing is visible before Close.
func (w *writer) Sync() error { return nil }

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.err
	}
	w.closed = true
	w.err = w.store.Put(w.ctx, w.name, w.buf.Bytes())
	return w.err
}
