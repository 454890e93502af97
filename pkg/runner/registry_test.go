package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StartRejectsSecondRun(t *testing.T) {
	release := make(chan struct{})
	registry := NewRegistry(func(ctx context.Context) error {
		<-release
		return nil
	})

	require.NoError(t, registry.Start())
	assert.ErrorIs(t, registry.Start(), ErrAlreadyRunning)
	assert.True(t, registry.Active())

	close(release)
	registry.Wait()
	assert.False(t, registry.Active())
}

func TestRegistry_RestartAfterFinish(t *testing.T) {
	var runs atomic.Int32
	registry := NewRegistry(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, registry.Start())
	registry.Wait()
	require.NoError(t, registry.Start())
	registry.Wait()

	assert.Equal(t, int32(2), runs.Load())
}

func TestRegistry_StopCancelsActiveRun(t *testing.T) {
	cancelled := make(chan struct{})
	registry := NewRegistry(func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	require.NoError(t, registry.Start())
	assert.True(t, registry.Stop())

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Run context was not cancelled")
	}
	registry.Wait()
}

func TestRegistry_StopWithoutActiveRun(t *testing.T) {
	registry := NewRegistry(func(ctx context.Context) error { return nil })
	assert.False(t, registry.Stop())
}

func TestScheduler_TriggersAfterInitialDelay(t *testing.T) {
	var runs atomic.Int32
	registry := NewRegistry(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	scheduler := NewScheduler(registry, time.Hour, 10*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopBeforeDelayPreventsTrigger(t *testing.T) {
	var runs atomic.Int32
	registry := NewRegistry(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	scheduler := NewScheduler(registry, time.Hour, 50*time.Millisecond)
	scheduler.Start()
	scheduler.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestScheduler_SkipsTickWhileRunActive(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	registry := NewRegistry(func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})

	// Occupy the registry with a manual run, then let the scheduler fire.
	require.NoError(t, registry.Start())

	scheduler := NewScheduler(registry, time.Hour, 10*time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "scheduled tick must not overlap the active run")

	close(release)
	registry.Wait()
}
