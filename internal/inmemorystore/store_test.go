package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get status of a task that doesn't exist yet
	status, err := s.GetStatus(ctx, "build.web")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	err = s.SetStatus(ctx, "build.web", StatusProcessing)
	require.NoError(t, err)

	status, err = s.GetStatus(ctx, "build.web")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)
	assert.Equal(t, "processing", status.String())
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()

	output, err := s.GetOutput(ctx, "build.web")
	require.NoError(t, err)
	assert.Nil(t, output)

	expectedOutput := map[string]any{"fresh": true}
	require.NoError(t, s.SetOutput(ctx, "build.web", expectedOutput))

	retrievedOutput, err := s.GetOutput(ctx, "build.web")
	require.NoError(t, err)
	assert.Equal(t, expectedOutput, retrievedOutput)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()

	retrievedErr, err := s.GetError(ctx, "build.web")
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	require.NoError(t, s.SetOutput(ctx, "build.web", "old"))
	expectedErr := errors.New("a test error occurred")
	require.NoError(t, s.SetError(ctx, "build.web", expectedErr))

	retrievedErr, err = s.GetError(ctx, "build.web")
	require.NoError(t, err)
	assert.Equal(t, expectedErr, retrievedErr)

	output, err := s.GetOutput(ctx, "build.web")
	require.NoError(t, err)
	assert.Nil(t, output, "a failure drops the previous output")
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("task.t%d", i)
			_ = s.SetStatus(ctx, key, StatusComplete)
			_ = s.SetOutput(ctx, key, i)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("task.t%d", i)
		status, err := s.GetStatus(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, status)
		out, err := s.GetOutput(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, i, out)
	}

	s.Reset()
	status, err := s.GetStatus(ctx, "task.t0")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
}
