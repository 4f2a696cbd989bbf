package binder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/contentselect/internal/logger"
)

const mirrorKeyPrefix = "cs:binder:"

// RedisMirror replicates bound decisions into redis so operators can
// inspect in-flight state. Best effort: errors log and move on.
type RedisMirror struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisMirror(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisMirror {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisMirror{rdb: rdb, ttl: ttl, log: log}
}

func (m *RedisMirror) Store(ctx context.Context, correlationID string, s Snapshot) {
	raw, err := json.Marshal(s)
	if err != nil {
		m.log.Warn("Failed to marshal binder snapshot for mirror", "correlation_id", correlationID, "error", err)
		return
	}
	if err := m.rdb.Set(ctx, mirrorKeyPrefix+correlationID, raw, m.ttl).Err(); err != nil {
		m.log.Warn("Failed to mirror binder snapshot", "correlation_id", correlationID, "error", err)
	}
}

func (m *RedisMirror) Remove(ctx context.Context, correlationID string) {
	if err := m.rdb.Del(ctx, mirrorKeyPrefix+correlationID).Err(); err != nil {
		m.log.Warn("Failed to remove mirrored binder snapshot", "correlation_id", correlationID, "error", err)
	}
}
