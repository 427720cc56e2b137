package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/types"
	bolt "go.etcd.io/bbolt"
)

// LogEvent records the outcome of processing event. If remote_id is
// already present, this silently succeeds — the event was already recorded
// in this or a prior run — using a Get-before-Put inside one transaction
// in place of a UNIQUE-constraint violation.
func (s *Store) LogEvent(event *types.Event, result types.HandlerResult) error {
	key := remoteIDKey(event.ID)
	entry := types.EventLogEntry{
		RemoteID:      event.ID,
		Repo:          event.Repo,
		EventType:     event.EventType,
		Action:        event.Action,
		Summary:       event.Summary,
		HandlerName:   result.HandlerName,
		HandlerStatus: result.Status,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEventLog)
		if b.Get(key) != nil {
			return nil
		}
		data, err := marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketEventLogByRepo).Put(repoIndexKey(event.Repo, event.ID), key)
	})
	if err != nil {
		return errs.NewEventStoreError(fmt.Sprintf("failed to log event %d", event.ID), err)
	}
	return nil
}

// HasEvent reports whether remoteID has already been processed, the dedup
// gate consulted before any dispatch.
func (s *Store) HasEvent(remoteID int64) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketEventLog).Get(remoteIDKey(remoteID)) != nil
		return nil
	})
	if err != nil {
		return false, errs.NewEventStoreError(fmt.Sprintf("failed to check dedup state for %d", remoteID), err)
	}
	return found, nil
}

// RecentEventsForRepo returns the event-log entries for repo in ascending
// remote-id order, used by the "status" CLI command for diagnostics.
func (s *Store) RecentEventsForRepo(repo string) ([]types.EventLogEntry, error) {
	var entries []types.EventLogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketEventLogByRepo)
		log := tx.Bucket(bucketEventLog)
		c := idx.Cursor()
		prefix := []byte(repo + "\x00")
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			data := log.Get(v)
			if data == nil {
				continue
			}
			var entry types.EventLogEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, errs.NewEventStoreError(fmt.Sprintf("failed to list events for %s", repo), err)
	}
	return entries, nil
}

func repoIndexKey(repo string, remoteID int64) []byte {
	key := append([]byte(repo), 0)
	return append(key, remoteIDKey(remoteID)...)
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
