package copypipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelinePreservesFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var got []uint64

	p := New(context.Background(), 4, func(j Job) error {
		mu.Lock()
		got = append(got, j.Offset)
		mu.Unlock()
		return nil
	})

	for i := uint64(0); i < 20; i++ {
		require.NoError(t, p.Submit(Job{Offset: i}))
	}
	require.NoError(t, p.Cleanup())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, uint64(i), v)
	}
}

func TestPipelineFlushWaitsForQueueDrain(t *testing.T) {
	var mu sync.Mutex
	processed := 0

	release := make(chan struct{})
	p := New(context.Background(), 8, func(j Job) error {
		<-release
		mu.Lock()
		processed++
		mu.Unlock()
		return nil
	})

	require.NoError(t, p.Submit(Job{Offset: 1}))
	require.NoError(t, p.Submit(Job{Offset: 2}))

	flushDone := make(chan error, 1)
	go func() { flushDone <- p.Flush() }()

	select {
	case <-flushDone:
		t.Fatal("flush returned before jobs were consumed")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-flushDone)

	mu.Lock()
	assert.Equal(t, 2, processed)
	mu.Unlock()

	require.NoError(t, p.Cleanup())
}

func TestPipelinePropagatesConsumerError(t *testing.T) {
	wantErr := errors.New("boom")
	p := New(context.Background(), 2, func(j Job) error {
		return wantErr
	})

	require.NoError(t, p.Submit(Job{Offset: 0}))

	err := p.Cleanup()
	assert.ErrorIs(t, err, wantErr)
}
