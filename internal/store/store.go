// Package store owns the Redis keyspace for cached presence snapshots,
// streak tables, tracked users, and stored API keys. It is a dumb
// persistence layer: all state transitions happen in the services that
// call it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/internal/streak"
)

const (
	activityKeyPrefix = "discord-activities:"
	streakKeyPrefix   = "discord-streaks:"
	apiKeyPrefix      = "discord-rawg-key:"
	trackedUsersKey   = "discord-activities:tracked-users"
)

// TTL is the sliding expiry applied on every snapshot/streak write.
const TTL = 90 * 24 * time.Hour

// ErrUnavailable marks operations attempted without a configured Redis
// connection. Write paths surface it to callers so they know nothing was
// persisted; read paths degrade to absent data.
var ErrUnavailable = errors.New("storage not configured")

// Store wraps an explicitly injected Redis client. Constructed once in
// main and passed to every service; never a package-level singleton.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Open parses a redis:// or rediss:// URL (TLS inferred from the scheme)
// and dials it with bounded retry backoff.
func Open(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opts.MaxRetries = 10
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 3 * time.Second
	opts.PoolSize = 25
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 30 * time.Minute

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return New(rdb), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.rdb == nil {
		return ErrUnavailable
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) available() bool {
	return s != nil && s.rdb != nil
}

// GetSnapshot returns the cached snapshot for a user, or nil when none is
// stored. Malformed or age-expired records are treated as absent; expired
// ones are deleted on the way out. Reads never refresh the TTL.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (*presence.Snapshot, error) {
	if !s.available() {
		return nil, ErrUnavailable
	}

	raw, err := s.rdb.Get(ctx, activityKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activity cache: %w", err)
	}

	var snap presence.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.UpdatedAt <= 0 {
		log.Printf("Discarding malformed activity cache for user %s", userID)
		return nil, nil
	}

	if time.Now().UnixMilli()-snap.UpdatedAt > TTL.Milliseconds() {
		_ = s.rdb.Del(ctx, activityKeyPrefix+userID).Err()
		return nil, nil
	}

	return &snap, nil
}

// SetSnapshot stores the snapshot with a refreshed sliding TTL.
func (s *Store) SetSnapshot(ctx context.Context, userID string, snap *presence.Snapshot) error {
	if !s.available() {
		return ErrUnavailable
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode activity snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, activityKeyPrefix+userID, payload, TTL).Err(); err != nil {
		return fmt.Errorf("failed to write activity cache: %w", err)
	}
	return nil
}

// GetStreaks returns the user's streak table. Absent or malformed data
// yields an empty table, never an error, so reads fail open.
func (s *Store) GetStreaks(ctx context.Context, userID string) (streak.Table, error) {
	if !s.available() {
		return nil, ErrUnavailable
	}

	raw, err := s.rdb.Get(ctx, streakKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return streak.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read streaks: %w", err)
	}

	var table streak.Table
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		log.Printf("Discarding malformed streak table for user %s", userID)
		return streak.Table{}, nil
	}
	if table == nil {
		// A stored JSON "null" unmarshals without error; callers write
		// into the returned table, so it must never be nil.
		return streak.Table{}, nil
	}
	return table, nil
}

// SetStreaks rewrites the whole streak table with a refreshed TTL. The
// table is one value per user; concurrent writers race at the whole-map
// level and the last writer wins.
func (s *Store) SetStreaks(ctx context.Context, userID string, table streak.Table) error {
	if !s.available() {
		return ErrUnavailable
	}

	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode streak table: %w", err)
	}
	if err := s.rdb.Set(ctx, streakKeyPrefix+userID, payload, TTL).Err(); err != nil {
		return fmt.Errorf("failed to write streaks: %w", err)
	}
	return nil
}

// TrackedUsers lists the user IDs eligible for the background sweep.
func (s *Store) TrackedUsers(ctx context.Context) ([]string, error) {
	if !s.available() {
		return nil, ErrUnavailable
	}

	ids, err := s.rdb.SMembers(ctx, trackedUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked users: %w", err)
	}
	return ids, nil
}

// TrackUser adds a user to the sweep registry. Idempotent.
func (s *Store) TrackUser(ctx context.Context, userID string) error {
	if !s.available() {
		return ErrUnavailable
	}
	if err := s.rdb.SAdd(ctx, trackedUsersKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to track user: %w", err)
	}
	return nil
}

// GetAPIKey returns the stored (still encrypted) API key for a user, or
// "" when none is stored.
func (s *Store) GetAPIKey(ctx context.Context, userID string) (string, error) {
	if !s.available() {
		return "", ErrUnavailable
	}

	raw, err := s.rdb.Get(ctx, apiKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	return raw, nil
}

// SetAPIKey stores an encrypted API key with no expiry; users delete it
// explicitly.
func (s *Store) SetAPIKey(ctx context.Context, userID, encrypted string) error {
	if !s.available() {
		return ErrUnavailable
	}
	if err := s.rdb.Set(ctx, apiKeyPrefix+userID, encrypted, 0).Err(); err != nil {
		return fmt.Errorf("failed to write api key: %w", err)
	}
	return nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, userID string) error {
	if !s.available() {
		return ErrUnavailable
	}
	if err := s.rdb.Del(ctx, apiKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}

// DeleteUser removes the user from the sweep registry and deletes every
// key owned by this service for that user.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	if !s.available() {
		return ErrUnavailable
	}

	if err := s.rdb.SRem(ctx, trackedUsersKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to untrack user: %w", err)
	}
	keys := []string{
		activityKeyPrefix + userID,
		streakKeyPrefix + userID,
		apiKeyPrefix + userID,
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user keys: %w", err)
	}
	return nil
}
