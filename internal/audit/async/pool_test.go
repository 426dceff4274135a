package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExecutor fails a fixed number of times before succeeding.
type scriptedExecutor struct {
	attempts atomic.Int32
	failures int32
	err      error
}

func (e *scriptedExecutor) Execute(context.Context, Task) (string, error) {
	n := e.attempts.Add(1)
	if n <= e.failures {
		return "", e.err
	}
	return "audit-id", nil
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, IsRetryable: IsTransient}
}

func startPool(t *testing.T, exec Executor, policy RetryPolicy) *Pool {
	t.Helper()
	pool := NewPool(exec, 2, 16, policy, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Start(ctx)
	t.Cleanup(pool.Close)
	return pool
}

func TestPool_ExecutesTask(t *testing.T) {
	exec := &scriptedExecutor{}
	pool := startPool(t, exec, testPolicy())

	handle, err := pool.Enqueue(context.Background(), NewCreateTask(CreateRequest{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	auditID, err := handle.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "audit-id", auditID)
	assert.Equal(t, int32(1), exec.attempts.Load())
}

func TestPool_RetriesTransientErrors(t *testing.T) {
	exec := &scriptedExecutor{failures: 2, err: context.DeadlineExceeded}
	pool := startPool(t, exec, testPolicy())

	handle, err := pool.Enqueue(context.Background(), NewCreateTask(CreateRequest{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	auditID, err := handle.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "audit-id", auditID)
	assert.Equal(t, int32(3), exec.attempts.Load(), "two retries then success")
}

func TestPool_GivesUpAfterMaxRetries(t *testing.T) {
	exec := &scriptedExecutor{failures: 10, err: context.DeadlineExceeded}
	pool := startPool(t, exec, testPolicy())

	handle, err := pool.Enqueue(context.Background(), NewCreateTask(CreateRequest{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = handle.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(3), exec.attempts.Load(), "initial attempt plus MaxRetries")
}

func TestPool_TerminalErrorsNotRetried(t *testing.T) {
	exec := &scriptedExecutor{failures: 10, err: errors.New("constraint violation")}
	pool := startPool(t, exec, testPolicy())

	handle, err := pool.Enqueue(context.Background(), NewCreateTask(CreateRequest{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = handle.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), exec.attempts.Load())
}

func TestPool_CloseResolvesQueuedTasks(t *testing.T) {
	exec := &scriptedExecutor{}
	pool := NewPool(exec, 1, 16, testPolicy(), testLogger(), nil)
	// Never started: enqueue then close, the handle must still resolve.
	handle, err := pool.Enqueue(context.Background(), NewCreateTask(CreateRequest{}))
	require.NoError(t, err)

	pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = handle.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_ResolveOnce(t *testing.T) {
	h := NewHandle()
	h.Resolve("first", nil)
	h.Resolve("second", errors.New("ignored"))

	id, err := h.Result()
	assert.Equal(t, "first", id)
	assert.NoError(t, err)
}
