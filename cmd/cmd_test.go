package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/microtemp-integration/internal/pkg/config"
)

type fakeRefresher struct {
	calls atomic.Int32
}

func (f *fakeRefresher) Refresh(_ context.Context) {
	f.calls.Add(1)
}

func TestRunCron_InvalidSchedule(t *testing.T) {
	cfg := &config.Config{RefreshSchedule: "not a schedule"}
	err := runCron(context.Background(), cfg, &fakeRefresher{}, nil)
	require.Error(t, err)
}

func TestRunCron_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{RefreshSchedule: "*/30 * * * *"}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runCron(ctx, cfg, &fakeRefresher{}, nil)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runCron did not stop after cancel")
	}
}

func TestRunCron_FiresRefresh(t *testing.T) {
	cfg := &config.Config{RefreshSchedule: "@every 100ms"}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	ref := &fakeRefresher{}
	err := runCron(ctx, cfg, ref, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, ref.calls.Load(), int32(1))
}
