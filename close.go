package linkedseq

import "context"

// Close flushes and closes the WAL. Further operations fail with ErrClosed,
// and so does a second Close. Close does not checkpoint; call Checkpoint
// first to make the next Open skip replay.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.closed = true

	if db.wal == nil {
		return nil
	}
	err := db.wal.Close()
	db.logger.DebugContext(context.Background(), "closed", "lsn", db.lsn, "error", err)
	return err
}
