package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoRunnerRunsStepOnce(t *testing.T) {
	r := NewMemoRunner()
	calls := 0

	for range 3 {
		result, err := r.Run(context.Background(), "send-sms", func(context.Context) (any, error) {
			calls++

			return "msg-1", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "msg-1", result)
	}

	assert.Equal(t, 1, calls)
	assert.True(t, r.Completed("send-sms"))
}

func TestMemoRunnerStepsAreIndependent(t *testing.T) {
	r := NewMemoRunner()

	first, err := r.Run(context.Background(), "load-contact", func(context.Context) (any, error) {
		return "contact", nil
	})
	require.NoError(t, err)

	second, err := r.Run(context.Background(), "send-email", func(context.Context) (any, error) {
		return "email", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "contact", first)
	assert.Equal(t, "email", second)
	assert.True(t, r.Completed("load-contact"))
	assert.True(t, r.Completed("send-email"))
}

func TestMemoRunnerDoesNotMemoizeErrors(t *testing.T) {
	r := NewMemoRunner()
	calls := 0
	boom := errors.New("transport unavailable")

	_, err := r.Run(context.Background(), "send-sms", func(context.Context) (any, error) {
		calls++

		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, r.Completed("send-sms"))

	result, err := r.Run(context.Background(), "send-sms", func(context.Context) (any, error) {
		calls++

		return "msg-2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-2", result)
	assert.Equal(t, 2, calls)
	assert.True(t, r.Completed("send-sms"))
}

func TestMemoRunnerConcurrentDistinctSteps(t *testing.T) {
	r := NewMemoRunner()

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			name := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}[n]
			_, err := r.Run(context.Background(), name, func(context.Context) (any, error) {
				return name, nil
			})
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		assert.True(t, r.Completed(name))
	}
}

func TestPassthroughAlwaysRuns(t *testing.T) {
	calls := 0

	for range 3 {
		result, err := Passthrough{}.Run(context.Background(), "send-sms", func(context.Context) (any, error) {
			calls++

			return calls, nil
		})
		require.NoError(t, err)
		assert.Equal(t, calls, result)
	}

	assert.Equal(t, 3, calls)
}
