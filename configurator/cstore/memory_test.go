package cstore

import (
	"context"
	"sync"
	"testing"
	"time"

	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIfAbsent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created, err := s.CreateIfAbsent(ctx, "/a", "1")
	require.Nil(t, err)
	assert.True(t, created)

	created, err = s.CreateIfAbsent(ctx, "/a", "2")
	require.Nil(t, err)
	assert.False(t, created)

	v, ok, err := s.Value(ctx, "/a")
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok, err = s.Value(ctx, "/b")
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	s := NewMemory()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.CreateIfAbsent(context.Background(), "/race", "x")
			assert.Nil(t, err)
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestDeleteTree(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	existed, err := s.DeleteTree(ctx, "/base", "/base/done")
	require.Nil(t, err)
	assert.False(t, existed)

	s.CreateIfAbsent(ctx, "/base", "")
	s.CreateIfAbsent(ctx, "/base/done", "")

	existed, err = s.DeleteTree(ctx, "/base", "/base/done")
	require.Nil(t, err)
	assert.True(t, existed)

	for _, k := range []string{"/base", "/base/done"} {
		ok, _ := s.Exists(ctx, k)
		assert.False(t, ok, k)
	}
}

func TestWatchCreate(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ch, err := s.WatchCreate(ctx, "/done")
	require.Nil(t, err)

	select {
	case <-ch:
		t.Fatal("watch fired before key was created")
	default:
	}

	s.CreateIfAbsent(ctx, "/done", "")

	select {
	case err, ok := <-ch:
		assert.True(t, ok)
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not fire")
	}

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after firing once")
}

func TestWatchCreateExistingKey(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.CreateIfAbsent(ctx, "/done", "")

	ch, err := s.WatchCreate(ctx, "/done")
	require.Nil(t, err)
	assert.Nil(t, <-ch)
}

func TestWatchCreateCancel(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.WatchCreate(ctx, "/done")
	require.Nil(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch not closed on cancel")
	}
}

func TestCloseFailsWatchesAndOps(t *testing.T) {
	s := NewMemory()
	ch, err := s.WatchCreate(context.Background(), "/done")
	require.Nil(t, err)

	require.Nil(t, s.Close())

	err = <-ch
	assert.True(t, cerrors.IsKind(err, cerrors.CoordinationUnavailable))

	_, err = s.Exists(context.Background(), "/done")
	assert.True(t, cerrors.IsKind(err, cerrors.CoordinationUnavailable))
}

func TestMemLocker(t *testing.T) {
	s := NewMemory()
	l1 := s.NewLocker("reconfig")
	l2 := s.NewLocker("reconfig")
	ctx := context.Background()

	require.Nil(t, l1.Lock(ctx))

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, ErrLockTimeout, l2.Lock(short))

	require.Nil(t, l1.Unlock(ctx))
	assert.Nil(t, l2.Lock(ctx))
	assert.Nil(t, l2.Unlock(ctx))
}
