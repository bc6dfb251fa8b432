package lock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	id := uuid.MustParse("6f1c2e0a-8a64-4f8e-9a52-0d5f1f0b7a11")
	assert.Equal(t, "season:6f1c2e0a-8a64-4f8e-9a52-0d5f1f0b7a11", Key(id))
}

func TestSeasonLocker_AcquireWithoutRedis(t *testing.T) {
	cfg := &config.RedisConfig{LockTTL: 10, LockWait: 100}

	t.Run("nil client is a no-op", func(t *testing.T) {
		l := NewSeasonLocker(nil, cfg, zap.NewNop())
		release := l.Acquire(context.Background(), uuid.New())
		assert.NotNil(t, release)
		assert.NotPanics(t, release)
	})

	t.Run("nil locker is a no-op", func(t *testing.T) {
		var l *SeasonLocker
		release := l.Acquire(context.Background(), uuid.New())
		assert.NotPanics(t, release)
	})
}
