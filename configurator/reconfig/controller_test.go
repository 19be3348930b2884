package reconfig

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/cstore"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRS struct {
	mu       sync.Mutex
	primary  bool
	members  map[string]bool
	calls    int
	inflight int32
	overlap  int32
	delay    time.Duration
	err      error
}

func newFakeRS(primary bool) *fakeRS {
	return &fakeRS{primary: primary, members: map[string]bool{}}
}

func (f *fakeRS) IsMaster(ctx context.Context) (api.MasterStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.MasterStatus{Status: api.Initialized, IsPrimary: f.primary}, nil
}

func (f *fakeRS) mutate(key string, add bool) (bool, error) {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inflight, -1)
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.members[key] == add {
		return false, nil
	}
	f.members[key] = add
	return true, nil
}

func (f *fakeRS) AddMember(ctx context.Context, node api.Node) (bool, error) {
	return f.mutate(node.Key(), true)
}

func (f *fakeRS) RemoveMember(ctx context.Context, node api.Node) (bool, error) {
	return f.mutate(node.Key(), false)
}

func (f *fakeRS) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func addEvent(host string) api.ScalingEvent {
	return api.ScalingEvent{Host: host, Port: 27017, Action: api.ActionAdd}
}

func TestApplyNotPrimary(t *testing.T) {
	rs := newFakeRS(false)
	c := New(rs, state.New())

	require.Nil(t, c.Apply(context.Background(), addEvent("a")))
	require.Nil(t, c.Apply(context.Background(), api.ScalingEvent{Host: "b", Port: 1, Action: api.ActionRemove}))
	assert.Equal(t, 0, rs.callCount())
}

func TestApplyPrimary(t *testing.T) {
	rs := newFakeRS(true)
	c := New(rs, state.New())

	require.Nil(t, c.Apply(context.Background(), addEvent("a")))
	assert.True(t, rs.members["a:27017"])

	ev := addEvent("a")
	ev.Action = api.ActionRemove
	require.Nil(t, c.Apply(context.Background(), ev))
	assert.False(t, rs.members["a:27017"])
	assert.Equal(t, 2, rs.callCount())
}

func TestApplyErrorIsReturned(t *testing.T) {
	rs := newFakeRS(true)
	rs.err = cerrors.E(cerrors.StoreCommandFailed, "replSetReconfig", errors.New("version mismatch"))
	c := New(rs, state.New())

	err := c.Apply(context.Background(), addEvent("a"))
	assert.True(t, cerrors.IsKind(err, cerrors.StoreCommandFailed))
	assert.Equal(t, 1, rs.callCount(), "not retried")
}

func TestApplyWithLocker(t *testing.T) {
	store := cstore.NewMemory()
	rs := newFakeRS(true)
	c := New(rs, state.New(), WithLocker(store.NewLocker("reconfig")))

	require.Nil(t, c.Apply(context.Background(), addEvent("a")))
	require.Nil(t, c.Apply(context.Background(), addEvent("b")))
	assert.Equal(t, 2, rs.callCount())
}

func TestOnScalingEventBuffersUntilReady(t *testing.T) {
	rs := newFakeRS(true)
	st := state.New()
	c := New(rs, st)

	require.Nil(t, c.OnScalingEvent(addEvent("a")))
	assert.Equal(t, 1, st.Buffer().Len())
	assert.Len(t, c.queue, 0, "not applied before ready")

	c.MarkReady()
	assert.Equal(t, 0, st.Buffer().Len())
	assert.Len(t, c.queue, 1, "leftover buffered event handed over")

	require.Nil(t, c.OnScalingEvent(addEvent("b")))
	assert.Equal(t, 0, st.Buffer().Len())
	assert.Len(t, c.queue, 2)
}

func TestOnScalingEventQueueFull(t *testing.T) {
	st := state.New()
	st.SetReady()
	c := New(newFakeRS(true), st, WithQueueSize(1))

	require.Nil(t, c.OnScalingEvent(addEvent("a")))
	err := c.OnScalingEvent(addEvent("b"))
	assert.Equal(t, cerrors.ErrQueueFull, err)
}

func TestServeSerializesMutations(t *testing.T) {
	rs := newFakeRS(true)
	rs.delay = 2 * time.Millisecond
	st := state.New()
	c := New(rs, st)
	c.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- c.Serve(ctx)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Nil(t, c.OnScalingEvent(addEvent("h"+strconv.Itoa(i))))
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return rs.callCount() == 20
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&rs.overlap))

	cancel()
	assert.Equal(t, context.Canceled, <-done)
}
