package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SubmitMetrics merges one batch into the (version, partner) row and the ALL
// row of the same version in a single transaction. The entry key is watched
// too, so a freeze or any other entry write that commits first forces a retry
// against the new state.
func (s *Store) SubmitMetrics(ctx context.Context, entryID, versionName string, p domain.Partner, b domain.Batch, at time.Time) error {
	if !p.IsActualPartner() {
		return domain.NewValidationError("platform", "metrics cannot be submitted for %s", p)
	}

	entryKey := EntryKey(entryID)
	rowKey := MetricsKey(entryID, versionName, p)
	allKey := MetricsKey(entryID, versionName, domain.PartnerAll)

	return s.watch(ctx, func(tx *redis.Tx) error {
		entry, err := getEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		v, ok := entry.Version(versionName)
		if !ok {
			return &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
		}

		row, err := getMetrics(ctx, tx, rowKey)
		if err != nil {
			return err
		}
		all, err := getMetrics(ctx, tx, allKey)
		if err != nil {
			return err
		}
		if row == nil {
			row = &domain.Metrics{}
		}
		if all == nil {
			all = &domain.Metrics{}
		}
		if err := row.Apply(b); err != nil {
			return err
		}
		if err := all.Apply(b); err != nil {
			return err
		}

		submitted := at.UTC()
		v.LatestMetricsSubmissionDate = &submitted
		entry, err = entry.ReplaceVersion(v)
		if err != nil {
			return err
		}

		entryData, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		rowData, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		allData, err := json.Marshal(all)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey, entryData, 0)
			pipe.Set(ctx, rowKey, rowData, 0)
			pipe.Set(ctx, allKey, allData, 0)
			pipe.SAdd(ctx, VersionPartnersKey(entryID, versionName), string(p))
			if b.HasExecutions() {
				pipe.SAdd(ctx, ExecutionPartnersKey(entryID), string(p))
			}
			if b.HasValidations() {
				pipe.SAdd(ctx, ValidationPartnersKey(entryID), string(p))
			}
			pipe.SAdd(ctx, KeyPending, pendingMember(entryID, versionName))
			return nil
		})
		return err
	}, entryKey, rowKey, allKey)
}

// GetVersionMetrics returns every partner row of a version plus its ALL row.
func (s *Store) GetVersionMetrics(ctx context.Context, entryID, versionName string) (domain.VersionMetrics, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return domain.VersionMetrics{}, err
	}
	if _, ok := entry.Version(versionName); !ok {
		return domain.VersionMetrics{}, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
	}

	partners, err := s.partnerSet(ctx, VersionPartnersKey(entryID, versionName))
	if err != nil {
		return domain.VersionMetrics{}, err
	}

	keys := make([]string, 0, len(partners)+1)
	for _, p := range partners {
		keys = append(keys, MetricsKey(entryID, versionName, p))
	}
	keys = append(keys, MetricsKey(entryID, versionName, domain.PartnerAll))

	rows, err := mgetMetrics(ctx, s.client, keys)
	if err != nil {
		return domain.VersionMetrics{}, err
	}

	out := domain.VersionMetrics{
		EntryID:     entryID,
		VersionName: versionName,
		Partners:    make(map[domain.Partner]*domain.Metrics, len(partners)),
		All:         rows[len(rows)-1],
	}
	for i, p := range partners {
		if rows[i] != nil {
			out.Partners[p] = rows[i]
		}
	}
	return out, nil
}

// GetPartnerMetrics returns one row. A partner without a row is NotFound.
func (s *Store) GetPartnerMetrics(ctx context.Context, entryID, versionName string, p domain.Partner) (*domain.Metrics, error) {
	m, err := getMetrics(ctx, s.client, MetricsKey(entryID, versionName, p))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &domain.NotFoundError{Kind: "metrics", Identity: entryID + ":" + versionName + ":" + string(p)}
	}
	return m, nil
}

// ExecutionPartners lists the partners that submitted run executions for the entry.
func (s *Store) ExecutionPartners(ctx context.Context, entryID string) (domain.PartnerSet, error) {
	return s.partnerSet(ctx, ExecutionPartnersKey(entryID))
}

// ValidationPartners lists the partners that submitted validations for the entry.
func (s *Store) ValidationPartners(ctx context.Context, entryID string) (domain.PartnerSet, error) {
	return s.partnerSet(ctx, ValidationPartnersKey(entryID))
}

func (s *Store) partnerSet(ctx context.Context, key string) (domain.PartnerSet, error) {
	return partnerSet(ctx, s.client, key)
}

func partnerSet(ctx context.Context, c redis.Cmdable, key string) (domain.PartnerSet, error) {
	members, err := c.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read partner set %s: %w", key, err)
	}
	ps := make([]domain.Partner, 0, len(members))
	for _, m := range members {
		p, err := domain.ParsePartner(m)
		if err != nil {
			// Skip partners removed from the enum since they were stored
			continue
		}
		ps = append(ps, p)
	}
	return domain.NewPartnerSet(ps...), nil
}

// PendingAggregation lists the versions that received metrics since they were last aggregated.
func (s *Store) PendingAggregation(ctx context.Context) ([]VersionRef, error) {
	members, err := s.client.SMembers(ctx, KeyPending).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending set: %w", err)
	}
	refs := make([]VersionRef, 0, len(members))
	for _, m := range members {
		ref, err := ParsePendingMember(m)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs, nil
}

// PendingCount is the size of the pending set.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, KeyPending).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count pending set: %w", err)
	}
	return n, nil
}

// MarkAggregated stamps the aggregation date of a version. The version
// leaves the pending set unless a submission newer than at arrived.
// A missing entry or version is dropped from the pending set and reported.
func (s *Store) MarkAggregated(ctx context.Context, ref VersionRef, at time.Time) error {
	entryKey := EntryKey(ref.EntryID)
	member := pendingMember(ref.EntryID, ref.VersionName)

	err := s.watch(ctx, func(tx *redis.Tx) error {
		entry, err := getEntry(ctx, tx, ref.EntryID)
		if err != nil {
			return err
		}
		v, ok := entry.Version(ref.VersionName)
		if !ok {
			return &domain.NotFoundError{Kind: "version", Identity: ref.String()}
		}

		aggregated := at.UTC()
		v.LatestMetricsAggregationDate = &aggregated
		entry, err = entry.ReplaceVersion(v)
		if err != nil {
			return err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey, data, 0)
			if !v.NeedsAggregation() {
				pipe.SRem(ctx, KeyPending, member)
			}
			return nil
		})
		return err
	}, entryKey)

	if errors.Is(err, domain.ErrNotFound) {
		if remErr := s.client.SRem(ctx, KeyPending, member).Err(); remErr != nil {
			return fmt.Errorf("failed to drop pending %s: %w", ref, remErr)
		}
	}
	return err
}

// RebuildAll recomputes the ALL row of a version from its partner rows.
// The partner set is read inside the transaction and every row is watched
// before it is read, so a partner submitting for the first time mid-rebuild
// forces a retry instead of being left out of the sum.
func (s *Store) RebuildAll(ctx context.Context, entryID, versionName string) (*domain.Metrics, error) {
	setKey := VersionPartnersKey(entryID, versionName)
	allKey := MetricsKey(entryID, versionName, domain.PartnerAll)

	var rebuilt *domain.Metrics
	err := s.watch(ctx, func(tx *redis.Tx) error {
		partners, err := partnerSet(ctx, tx, setKey)
		if err != nil {
			return err
		}
		all := &domain.Metrics{}
		if len(partners) == 0 {
			rebuilt = all
			return nil
		}

		rowKeys := make([]string, 0, len(partners))
		for _, p := range partners {
			rowKeys = append(rowKeys, MetricsKey(entryID, versionName, p))
		}
		if err := tx.Watch(ctx, rowKeys...).Err(); err != nil {
			return fmt.Errorf("failed to watch metrics rows: %w", err)
		}

		rows, err := mgetMetrics(ctx, tx, rowKeys)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := all.Combine(row); err != nil {
				return err
			}
		}
		data, err := json.Marshal(all)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, allKey, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		rebuilt = all
		return nil
	}, setKey, allKey)
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}

func getMetrics(ctx context.Context, c redis.Cmdable, key string) (*domain.Metrics, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metrics %s: %w", key, err)
	}
	var m domain.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics %s: %w", key, err)
	}
	return &m, nil
}

// mgetMetrics returns one element per key, nil where the key is missing.
func mgetMetrics(ctx context.Context, c redis.Cmdable, keys []string) ([]*domain.Metrics, error) {
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	out := make([]*domain.Metrics, len(keys))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var m domain.Metrics
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics %s: %w", keys[i], err)
		}
		out[i] = &m
	}
	return out, nil
}
