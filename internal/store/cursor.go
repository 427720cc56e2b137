package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/types"
	bolt "go.etcd.io/bbolt"
)

// GetCursor returns the current cursor for repo, or nil if never set.
func (s *Store) GetCursor(repo string) (*types.CursorPosition, error) {
	var pos *types.CursorPosition
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCursor).Get([]byte(repo))
		if data == nil {
			return nil
		}
		var p types.CursorPosition
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		pos = &p
		return nil
	})
	if err != nil {
		return nil, errs.NewEventStoreError(fmt.Sprintf("failed to read cursor for %s", repo), err)
	}
	return pos, nil
}

// SetCursor upserts the cursor for repo. Durable before return, as bbolt's
// Update commits and fsyncs the transaction by default.
func (s *Store) SetCursor(repo string, lastEventID int64) error {
	pos := types.CursorPosition{Repo: repo, LastEventID: lastEventID, UpdatedAt: time.Now().UTC()}
	data, err := marshal(pos)
	if err != nil {
		return errs.NewEventStoreError("failed to encode cursor", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCursor).Put([]byte(repo), data)
	})
	if err != nil {
		return errs.NewEventStoreError(fmt.Sprintf("failed to persist cursor for %s", repo), err)
	}
	return nil
}
