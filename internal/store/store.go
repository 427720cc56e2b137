// Package store implements the durable, single-writer event store: a
// per-repo cursor table and a dedup-constrained event log, backed by
// go.etcd.io/bbolt with a bucket-per-table layout and a directory/file
// permission-hardening contract on open.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCursor         = []byte("cursor")
	bucketEventLog       = []byte("event_log")
	bucketEventLogByRepo = []byte("event_log_by_repo")
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

// Store is the bbolt-backed Event Store.
type Store struct {
	db *bolt.DB
}

// Open creates the backing directory and file (mode 0700/0600, tightening
// and warning on looser pre-existing permissions) and opens the database.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := ensureSecureDir(dir); err != nil {
		return nil, errs.NewEventStoreError("failed to prepare store directory", err)
	}
	if err := tightenExistingFile(path); err != nil {
		return nil, errs.NewEventStoreError("failed to secure existing store file", err)
	}

	db, err := bolt.Open(path, fileMode, nil)
	if err != nil {
		return nil, errs.NewEventStoreError(fmt.Sprintf("failed to open store at %s", path), err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketCursor, bucketEventLog, bucketEventLogByRepo} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errs.NewEventStoreError("failed to initialize store schema", err)
	}

	if err := os.Chmod(path, fileMode); err != nil {
		_ = db.Close()
		return nil, errs.NewEventStoreError("failed to set store file permissions", err)
	}

	return &Store{db: db}, nil
}

func ensureSecureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, dirMode)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != dirMode {
		return os.Chmod(dir, dirMode)
	}
	return nil
}

func tightenExistingFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o077 != 0 {
		fmt.Fprintf(os.Stderr, "warning: store file %s had permissive permissions %o, tightening to 0600\n", path, info.Mode().Perm())
		return os.Chmod(path, fileMode)
	}
	return nil
}

// Close releases the underlying bbolt handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func remoteIDKey(remoteID int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(remoteID))
	return b
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
