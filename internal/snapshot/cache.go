// Package snapshot caches the last computed qualification of a subject in
// Redis so read paths can skip the evidence store.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/metrics"
	"dd-qualification/internal/qualification"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "qualification:snapshot:"

// Snapshot is the cached outcome of one scoring run.
type Snapshot struct {
	SubjectID  string                         `json:"subjectId"`
	RunID      string                         `json:"runId,omitempty"`
	Vector     qualification.ScoreVector      `json:"scoreVector"`
	Validation qualification.ValidationResult `json:"validation"`
	ComputedAt time.Time                      `json:"computedAt"`
}

// FromRefresh builds the snapshot of a completed refresh.
func FromRefresh(r *qualification.RefreshResult) Snapshot {
	return Snapshot{
		SubjectID:  r.SubjectID,
		RunID:      r.RunID,
		Vector:     r.Vector,
		Validation: r.Validation,
		ComputedAt: r.ComputedAt,
	}
}

// Cache stores snapshots under prefix+subjectID. A nil *Cache behaves as an
// always-empty cache, which is how a deployment without Redis runs.
type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(client redis.Cmdable, prefix string, ttl time.Duration, log logger.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot-cache"}),
	}
}

func (c *Cache) Key(subjectID string) string {
	return c.prefix + subjectID
}

// Get returns the cached snapshot. A miss is (nil, false, nil). A corrupt
// entry is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, subjectID string) (*Snapshot, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	val, err := c.client.Get(ctx, c.Key(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.SnapshotCacheResults.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.SnapshotCacheResults.WithLabelValues("error").Inc()
		return nil, false, apperrors.NewSnapshotCacheFailedError(err).WithMetadata("subjectId", subjectID)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		metrics.SnapshotCacheResults.WithLabelValues("corrupt").Inc()
		c.logger.Warn("dropping unreadable snapshot", map[string]interface{}{
			"subjectId": subjectID,
			"error":     err.Error(),
		})
		_ = c.client.Del(ctx, c.Key(subjectID)).Err()
		return nil, false, nil
	}

	metrics.SnapshotCacheResults.WithLabelValues("hit").Inc()
	return &snap, true, nil
}

// Put stores a snapshot with the configured TTL.
func (c *Cache) Put(ctx context.Context, snap Snapshot) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return apperrors.NewSnapshotCacheFailedError(err)
	}
	if err := c.client.Set(ctx, c.Key(snap.SubjectID), data, c.ttl).Err(); err != nil {
		return apperrors.NewSnapshotCacheFailedError(err).WithMetadata("subjectId", snap.SubjectID)
	}
	c.logger.Debug("snapshot stored", map[string]interface{}{
		"subjectId": snap.SubjectID,
		"runId":     snap.RunID,
	})
	return nil
}

// Invalidate removes a subject's snapshot, for example after new evidence
// is recorded outside a refresh.
func (c *Cache) Invalidate(ctx context.Context, subjectID string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.Key(subjectID)).Err(); err != nil {
		return apperrors.NewSnapshotCacheFailedError(err).WithMetadata("subjectId", subjectID)
	}
	return nil
}
