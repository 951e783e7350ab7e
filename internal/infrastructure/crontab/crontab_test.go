package crontab

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

type MockTokenPurger struct {
	calls            atomic.Int32
	PurgeExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockTokenPurger) PurgeExpired(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	if m.PurgeExpiredFunc != nil {
		return m.PurgeExpiredFunc(ctx)
	}
	return 0, nil
}

func TestCrontab_PurgesOnStartAndStopsWithContext(t *testing.T) {
	purger := &MockTokenPurger{
		PurgeExpiredFunc: func(ctx context.Context) (int64, error) { return 3, nil },
	}
	cron := NewCrontab(&config.Config{ActionTokenPurgeCron: "*/15 * * * *"}, purger, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cron.Run(ctx) }()

	require.Eventually(t, func() bool { return purger.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("crontab did not stop after cancellation")
	}
}

func TestCrontab_PurgeFailureIsNotFatal(t *testing.T) {
	purger := &MockTokenPurger{
		PurgeExpiredFunc: func(ctx context.Context) (int64, error) { return 0, errors.New("db down") },
	}
	cron := NewCrontab(&config.Config{}, purger, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, cron.Run(ctx))
	assert.Equal(t, int32(1), purger.calls.Load())
}

func TestCrontab_RejectsInvalidSchedule(t *testing.T) {
	cron := NewCrontab(&config.Config{ActionTokenPurgeCron: "not a schedule"}, &MockTokenPurger{}, zerolog.Nop())
	assert.Error(t, cron.Run(context.Background()))
}
