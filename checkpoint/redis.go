// Package checkpoint persists execution snapshots in Redis so a process
// restart can report recent campaign progress while the store-derived
// rebuild runs. Snapshots are MessagePack-encoded and keyed by campaign;
// they expire on their own so an abandoned campaign does not leak keys.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/execution"
	"github.com/xraph/outdial/id"
)

// Keys are prefixed with "outdial:" to avoid collisions.
const keyPrefix = "outdial:"

// snapshotKey returns the key for a campaign's snapshot: outdial:checkpoint:{campaignID}
func snapshotKey(campaignID string) string {
	return keyPrefix + "checkpoint:" + campaignID
}

// DefaultTTL bounds how long a snapshot outlives its last save.
const DefaultTTL = 24 * time.Hour

var _ execution.Checkpointer = (*RedisCheckpointer)(nil)

// snapshotRecord is the MessagePack wire form of an execution snapshot.
// IDs travel as strings because their in-memory form has no stable
// MessagePack encoding.
type snapshotRecord struct {
	ExecutionID                 string             `msgpack:"execution_id"`
	CampaignID                  string             `msgpack:"campaign_id"`
	Status                      string             `msgpack:"status"`
	Counters                    execution.Counters `msgpack:"counters"`
	ConsecutiveSystemicFailures int                `msgpack:"consecutive_systemic_failures"`
	StartedAt                   time.Time          `msgpack:"started_at"`
	UpdatedAt                   time.Time          `msgpack:"updated_at"`
}

func toRecord(snap *execution.Snapshot) snapshotRecord {
	return snapshotRecord{
		ExecutionID:                 snap.ExecutionID.String(),
		CampaignID:                  snap.CampaignID.String(),
		Status:                      string(snap.Status),
		Counters:                    snap.Counters,
		ConsecutiveSystemicFailures: snap.ConsecutiveSystemicFailures,
		StartedAt:                   snap.StartedAt,
		UpdatedAt:                   snap.UpdatedAt,
	}
}

func fromRecord(rec snapshotRecord) (*execution.Snapshot, error) {
	executionID, err := id.ParseExecutionID(rec.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("outdial/checkpoint: parse execution id: %w", err)
	}
	campaignID, err := id.ParseCampaignID(rec.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("outdial/checkpoint: parse campaign id: %w", err)
	}
	return &execution.Snapshot{
		ExecutionID:                 executionID,
		CampaignID:                  campaignID,
		Status:                      execution.Status(rec.Status),
		Counters:                    rec.Counters,
		ConsecutiveSystemicFailures: rec.ConsecutiveSystemicFailures,
		StartedAt:                   rec.StartedAt,
		UpdatedAt:                   rec.UpdatedAt,
	}, nil
}

// Option configures the RedisCheckpointer.
type Option func(*RedisCheckpointer)

// WithTTL overrides the snapshot expiry. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCheckpointer) { c.ttl = ttl }
}

// RedisCheckpointer stores execution snapshots in Redis.
type RedisCheckpointer struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a checkpointer. The caller owns the Redis client
// lifecycle.
func NewRedis(client redis.Cmdable, opts ...Option) *RedisCheckpointer {
	c := &RedisCheckpointer{client: client, ttl: DefaultTTL}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Save overwrites the campaign's snapshot.
func (c *RedisCheckpointer) Save(ctx context.Context, snap *execution.Snapshot) error {
	data, err := msgpack.Marshal(toRecord(snap))
	if err != nil {
		return fmt.Errorf("outdial/checkpoint: encode snapshot: %w", err)
	}
	var ttl time.Duration
	if c.ttl > 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, snapshotKey(snap.CampaignID.String()), data, ttl).Err(); err != nil {
		return fmt.Errorf("outdial/checkpoint: save snapshot: %w", err)
	}
	return nil
}

// Load returns the campaign's last saved snapshot, or
// ErrExecutionNotFound when none exists.
func (c *RedisCheckpointer) Load(ctx context.Context, campaignID id.CampaignID) (*execution.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(campaignID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outdial.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("outdial/checkpoint: load snapshot: %w", err)
	}
	var rec snapshotRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("outdial/checkpoint: decode snapshot: %w", err)
	}
	return fromRecord(rec)
}

// Delete removes the campaign's snapshot. Deleting an absent snapshot is
// a no-op.
func (c *RedisCheckpointer) Delete(ctx context.Context, campaignID id.CampaignID) error {
	if err := c.client.Del(ctx, snapshotKey(campaignID.String())).Err(); err != nil {
		return fmt.Errorf("outdial/checkpoint: delete snapshot: %w", err)
	}
	return nil
}
