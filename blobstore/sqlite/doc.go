// Package sqlite provides a BlobStore kept in a single SQLite database file.
//
// It suits deployments that want checkpoints next to the WAL without a
// directory tree of snapshot files, e.g. an embedded device or a test rig
// that copies one file around.
//
//	store, err := sqlite.Open("/var/lib/lseq/blobs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// The package registers nothing itself; it relies on the mattn/go-sqlite3
// driver, which requires cgo.
package sqlite
