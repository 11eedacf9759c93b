// Package wal implements the write-ahead log of list mutations.
package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/linkedseq/internal/fs"
)

// Durability controls the durability guarantees of the WAL.
type Durability int

const (
	// DurabilityAsync relies on OS page cache. Fast but risky.
	DurabilityAsync Durability = iota
	// DurabilitySync fsyncs before Append returns. Concurrent appenders share
	// one fsync (group commit).
	DurabilitySync
)

func (d Durability) String() string {
	if d == DurabilitySync {
		return "sync"
	}
	return "async"
}

const (
	walMagic      = "LSEQWAL\x00" // 8 bytes
	walVersion    = 1             // 4 bytes
	walHeaderSize = 12
)

var (
	ErrIncompatibleVersion = errors.New("incompatible WAL version")
	ErrInvalidHeader       = errors.New("invalid WAL header")
	// ErrTornTail is returned by Open when the log ends in a partial or
	// corrupt record and Repair is disabled.
	ErrTornTail = errors.New("WAL ends in a torn record")
)

type Options struct {
	Durability Durability
	// Repair truncates a torn tail on Open instead of failing.
	Repair bool
}

func DefaultOptions() Options {
	return Options{Durability: DurabilitySync, Repair: true}
}

// WAL manages the write-ahead log file.
type WAL struct {
	mu       sync.Mutex
	fs       fs.FileSystem
	file     fs.File
	cw       *countingWriter
	path     string
	opts     Options
	lastLSN  uint64
	repaired int64

	// Group commit state
	syncedOffset int64      // Offset known to be fsync'd
	syncCond     *sync.Cond // Signals the syncer that there is data to sync
	doneCond     *sync.Cond // Signals waiters that a sync completed
	closed       bool
	lastErr      error // Terminal error encountered by background syncer
	wg           sync.WaitGroup
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (cw *countingWriter) Flush() error {
	return cw.w.Flush()
}

// Open opens or creates a WAL at the given path.
func Open(fsys fs.FileSystem, path string, opts Options) (*WAL, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	offset := stat.Size()

	var (
		lastLSN  uint64
		repaired int64
	)
	if offset == 0 {
		if err := writeHeader(f); err != nil {
			f.Close()
			return nil, err
		}
		offset = walHeaderSize
	} else {
		if err := checkHeader(f, offset); err != nil {
			f.Close()
			return nil, err
		}

		end, lsn, err := scan(f, offset)
		if err != nil {
			f.Close()
			return nil, err
		}
		lastLSN = lsn
		if end < offset {
			if !opts.Repair {
				f.Close()
				return nil, fmt.Errorf("%w: valid up to %d of %d bytes", ErrTornTail, end, offset)
			}
			if err := f.Truncate(end); err != nil {
				f.Close()
				return nil, err
			}
			if err := f.Sync(); err != nil {
				f.Close()
				return nil, err
			}
			repaired = offset - end
			offset = end
		}
	}

	cw := &countingWriter{
		w: bufio.NewWriter(f),
		n: offset,
	}

	w := &WAL{
		fs:           fsys,
		file:         f,
		cw:           cw,
		path:         path,
		opts:         opts,
		lastLSN:      lastLSN,
		repaired:     repaired,
		syncedOffset: offset,
	}
	w.syncCond = sync.NewCond(&w.mu)
	w.doneCond = sync.NewCond(&w.mu)

	if opts.Durability == DurabilitySync {
		w.wg.Add(1)
		go w.runSyncer()
	}

	return w, nil
}

func writeHeader(f fs.File) error {
	header := make([]byte, walHeaderSize)
	copy(header[0:8], walMagic)
	binary.LittleEndian.PutUint32(header[8:12], uint32(walVersion))
	if _, err := f.Write(header); err != nil {
		return err
	}
	return f.Sync()
}

func checkHeader(f fs.File, size int64) error {
	if size < walHeaderSize {
		return fmt.Errorf("%w: file too small (%d < %d)", ErrInvalidHeader, size, walHeaderSize)
	}
	header := make([]byte, walHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return err
	}
	if string(header[0:8]) != walMagic {
		return fmt.Errorf("%w: invalid magic %q", ErrInvalidHeader, header[0:8])
	}
	ver := binary.LittleEndian.Uint32(header[8:12])
	if ver != walVersion {
		return fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, ver, walVersion)
	}
	return nil
}

// scan walks the records after the header and returns the end offset of the
// last intact record and its LSN.
func scan(f fs.File, size int64) (int64, uint64, error) {
	r := bufio.NewReader(io.NewSectionReader(f, walHeaderSize, size-walHeaderSize))
	end := int64(walHeaderSize)
	var lsn uint64
	for {
		rec, n, err := Decode(r)
		switch {
		case err == nil:
			end += n
			lsn = rec.LSN
		case errors.Is(err, io.EOF):
			return end, lsn, nil
		case isTorn(err):
			return end, lsn, nil
		default:
			return 0, 0, err
		}
	}
}

func isTorn(err error) bool {
	return errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrInvalidCRC) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrRecordTooLarge)
}

// Size returns the current size of the WAL in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cw.n
}

// LastLSN returns the LSN of the most recently appended record, or of the
// last intact record found on Open.
func (w *WAL) LastLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastLSN
}

// Repaired returns the number of torn tail bytes dropped by Open.
func (w *WAL) Repaired() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.repaired
}

// Durability returns the configured durability mode.
func (w *WAL) Durability() Durability { return w.opts.Durability }

func (w *WAL) runSyncer() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		for w.cw.n <= w.syncedOffset && !w.closed {
			w.syncCond.Wait()
		}

		if w.closed && w.cw.n <= w.syncedOffset {
			return
		}

		target := w.cw.n

		w.mu.Unlock()
		err := w.file.Sync()
		w.mu.Lock()

		if err != nil {
			w.lastErr = fmt.Errorf("wal sync failed: %w", err)
			w.doneCond.Broadcast()
			return
		}

		if target > w.syncedOffset {
			w.syncedOffset = target
		}
		w.doneCond.Broadcast()
	}
}

// Append writes a record to the WAL.
// It respects the configured durability mode.
func (w *WAL) Append(rec *Record) error {
	offset, err := w.AppendAsync(rec)
	if err != nil {
		return err
	}
	if w.opts.Durability == DurabilitySync {
		return w.WaitFor(offset)
	}
	return nil
}

// AppendAsync writes a record to the WAL buffer but does not wait for sync.
// It returns the file offset of the end of the record.
func (w *WAL) AppendAsync(rec *Record) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}
	if w.lastErr != nil {
		return 0, w.lastErr
	}

	if err := rec.Encode(w.cw); err != nil {
		return 0, err
	}
	if err := w.cw.Flush(); err != nil {
		return 0, err
	}
	w.lastLSN = rec.LSN

	endOffset := w.cw.n

	if w.opts.Durability == DurabilitySync {
		w.syncCond.Signal()
	}
	return endOffset, nil
}

// WaitFor waits until the WAL is synced up to the given offset.
func (w *WAL) WaitFor(offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.syncedOffset < offset && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if w.closed && w.syncedOffset < offset {
		return os.ErrClosed
	}
	return nil
}

// Sync ensures all buffered writes are committed to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}

	if err := w.cw.Flush(); err != nil {
		return err
	}

	// The syncer only runs in sync mode.
	if w.opts.Durability == DurabilityAsync {
		return w.file.Sync()
	}

	target := w.cw.n
	w.syncCond.Signal()
	for w.syncedOffset < target && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	return w.lastErr
}

// Truncate drops every record, leaving only the file header. It is called
// once a checkpoint covering all logged records has been committed.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if err := w.cw.Flush(); err != nil {
		return err
	}
	if err := w.file.Truncate(walHeaderSize); err != nil {
		return fmt.Errorf("wal truncate: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal truncate sync: %w", err)
	}
	w.cw.n = walHeaderSize
	w.syncedOffset = walHeaderSize
	return nil
}

// Close closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return os.ErrClosed
	}

	if err := w.cw.Flush(); err != nil {
		w.closed = true
		w.syncCond.Signal()
		w.mu.Unlock()
		w.wg.Wait()
		w.file.Close()
		return err
	}

	w.closed = true
	w.syncCond.Signal()
	w.mu.Unlock()

	w.wg.Wait()

	return w.file.Close()
}

// Reader returns a reader for replaying the WAL.
// The caller is responsible for closing the returned reader.
func (w *WAL) Reader() (*Reader, error) {
	w.mu.Lock()
	err := w.cw.Flush()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	f, err := w.fs.OpenFile(w.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(walHeaderSize, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{f: f, r: bufio.NewReader(f), offset: walHeaderSize}, nil
}

// Replay calls fn for every intact record in log order. It stops silently at
// a torn tail.
func (w *WAL) Replay(fn func(*Record) error) error {
	r, err := w.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || isTorn(err) {
				return nil
			}
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Reader iterates over WAL records.
type Reader struct {
	f      fs.File
	r      *bufio.Reader
	offset int64
}

// Next reads the next record. Returns io.EOF when done.
func (r *Reader) Next() (*Record, error) {
	rec, n, err := Decode(r.r)
	if err == nil {
		r.offset += n
	}
	return rec, err
}

// Offset returns the end offset of the last record read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
