package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveEntry stores an entry, overwriting any previous state
func (s *Store) SaveEntry(ctx context.Context, e domain.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, EntryKey(e.ID), data, 0)
		pipe.SAdd(ctx, AllEntriesKey(), e.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// CreateEntry stores e only if no entry with that ID exists yet.
// It reports whether the entry was created.
func (s *Store) CreateEntry(ctx context.Context, e domain.Entry) (bool, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entry: %w", err)
	}

	created, err := s.client.SetNX(ctx, EntryKey(e.ID), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create entry: %w", err)
	}
	if !created {
		return false, nil
	}
	if err := s.client.SAdd(ctx, AllEntriesKey(), e.ID).Err(); err != nil {
		return true, fmt.Errorf("failed to add entry to set: %w", err)
	}
	return true, nil
}

// GetEntry retrieves an entry by ID
func (s *Store) GetEntry(ctx context.Context, id string) (domain.Entry, error) {
	return getEntry(ctx, s.client, id)
}

func getEntry(ctx context.Context, c redis.Cmdable, id string) (domain.Entry, error) {
	data, err := c.Get(ctx, EntryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Entry{}, &domain.NotFoundError{Kind: "entry", Identity: id}
		}
		return domain.Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}

	var e domain.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.Entry{}, fmt.Errorf("failed to unmarshal entry %s: %w", id, err)
	}
	return e, nil
}

// ListEntryIDs returns every stored entry ID in lexical order
func (s *Store) ListEntryIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, AllEntriesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry IDs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateEntry applies fn to the current state of an entry and stores the
// result atomically. Errors returned by fn are passed through unchanged and
// nothing is written.
func (s *Store) UpdateEntry(ctx context.Context, id string, fn func(domain.Entry) (domain.Entry, error)) (domain.Entry, error) {
	key := EntryKey(id)
	var updated domain.Entry

	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next.ID != id {
			return fmt.Errorf("entry id changed from %s to %s", id, next.ID)
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}, key)
	if err != nil {
		return domain.Entry{}, err
	}
	return updated, nil
}

// UpdateVersion applies fn to one version of an entry under the same
// transaction rules as UpdateEntry.
func (s *Store) UpdateVersion(ctx context.Context, entryID, versionName string, fn func(domain.Version) (domain.Version, error)) (domain.Entry, error) {
	return s.UpdateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		v, ok := e.Version(versionName)
		if !ok {
			return e, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
		}
		next, err := fn(v)
		if err != nil {
			return e, err
		}
		return e.ReplaceVersion(next)
	})
}
