package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/cstore"
	"github.com/marathon-tools/mongodb-configurator/configurator/gate"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	"github.com/marathon-tools/mongodb-configurator/pkg/backoff"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu          sync.Mutex
	tasks       []api.Task
	subscribed  []string
	subscribeFn func()
	err         error
}

func (f *fakeScheduler) AppTasks(ctx context.Context, appID string) ([]api.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, f.err
}

func (f *fakeScheduler) Subscribe(ctx context.Context, callbackURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subscribed = append(f.subscribed, callbackURL)
	return nil
}

type fakeRS struct {
	mu        sync.Mutex
	status    api.ReplicaSetStatus
	initiated int
	added     [][]api.Node
}

func (f *fakeRS) IsMaster(ctx context.Context) (api.MasterStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.MasterStatus{Status: f.status, IsPrimary: f.status == api.Initialized}, nil
}

func (f *fakeRS) Initiate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiated++
	f.status = api.Initialized
	return nil
}

func (f *fakeRS) AddNodes(ctx context.Context, nodes []api.Node) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, nodes)
	return true, nil
}

type fakeCtrl struct {
	st       *state.ControllerState
	leftover []api.ScalingEvent
}

func (f *fakeCtrl) MarkReady() {
	f.leftover = f.st.SetReady()
}

type harness struct {
	b     *Bootstrapper
	sched *fakeScheduler
	rs    *fakeRS
	ctrl  *fakeCtrl
	st    *state.ControllerState
	g     *gate.Gate
	// sleeps records the fixed delays, duringSleep runs inside them
	sleeps      []time.Duration
	duringSleep func(d time.Duration)
}

func newHarness(store cstore.Store) *harness {
	h := &harness{
		sched: &fakeScheduler{},
		rs:    &fakeRS{status: api.Uninitialized},
		st:    state.New(),
		g:     gate.New(store, "/c", "/mongodb"),
	}
	h.ctrl = &fakeCtrl{st: h.st}
	h.b = New(Config{
		AppID:             "/mongodb",
		CallbackURL:       "http://me:3000/events",
		InitTimeout:       5 * time.Second,
		ReplicaSetTimeout: 10 * time.Second,
	}, h.g, h.sched, h.rs, h.ctrl, h.st)
	h.b.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		if h.duringSleep != nil {
			h.duringSleep(d)
		}
		return nil
	}
	h.b.newBackOff = func() *backoff.BackOff {
		return &backoff.BackOff{Duration: time.Millisecond, MaxDuration: time.Millisecond, Factor: 1}
	}
	return h
}

func TestLeaderBootstrap(t *testing.T) {
	h := newHarness(cstore.NewMemory())
	h.sched.tasks = []api.Task{
		{ID: "1", Host: "a", Ports: []int{3000, 1}},
		{ID: "2", Host: "b", Ports: []int{3000, 2}},
	}
	h.duringSleep = func(d time.Duration) {
		if d != 10*time.Second {
			return
		}
		// scaling events delivered during the quorum window
		assert.True(t, h.st.BufferIfNotReady(ev(nodeC, api.ActionAdd)))
		assert.True(t, h.st.BufferIfNotReady(ev(nodeB, api.ActionRemove)))
	}

	require.Nil(t, h.b.Run(context.Background()))

	assert.Equal(t, Ready, h.b.Phase())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, h.sleeps)
	assert.Equal(t, []string{"http://me:3000/events"}, h.sched.subscribed)
	assert.Equal(t, 1, h.rs.initiated)
	require.Len(t, h.rs.added, 1)
	assert.Equal(t, []api.Node{nodeA, nodeC}, h.rs.added[0])

	finished, err := h.g.IsFinished(context.Background())
	require.Nil(t, err)
	assert.True(t, finished)
	assert.True(t, h.st.IsReady())
	assert.Empty(t, h.ctrl.leftover)
}

func TestLeaderSkipsInitiateWhenInitialized(t *testing.T) {
	h := newHarness(cstore.NewMemory())
	h.rs.status = api.Initialized
	require.Nil(t, h.b.Run(context.Background()))
	assert.Equal(t, 0, h.rs.initiated)
	assert.Equal(t, Ready, h.b.Phase())
}

func TestLeaderSchedulerFailure(t *testing.T) {
	h := newHarness(cstore.NewMemory())
	h.sched.err = cerrors.E(cerrors.SchedulerUnavailable, "subscribe", errors.New("refused"))

	err := h.b.Run(context.Background())
	assert.True(t, cerrors.IsKind(err, cerrors.SchedulerUnavailable))
	assert.Equal(t, Failed, h.b.Phase())
	assert.False(t, h.st.IsReady())
	assert.True(t, h.st.IsHealthy())
	assert.Equal(t, 0, h.rs.initiated)
}

func TestFollowerWaitsForLeader(t *testing.T) {
	store := cstore.NewMemory()
	leader := newHarness(store)
	follower := newHarness(store)

	ok, err := leader.g.ClaimBootstrap(context.Background())
	require.Nil(t, err)
	require.True(t, ok)

	done := make(chan error, 1)
	go func() {
		done <- follower.b.Run(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return follower.b.Phase() == AwaitingLeader
	}, time.Second, time.Millisecond)

	// buffered while waiting
	assert.True(t, follower.st.BufferIfNotReady(ev(nodeA, api.ActionAdd)))

	require.Nil(t, leader.g.SignalFinished(context.Background()))

	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not finish")
	}
	assert.Equal(t, Ready, follower.b.Phase())
	assert.Equal(t, []string{"http://me:3000/events"}, follower.sched.subscribed)
	assert.Equal(t, 0, follower.rs.initiated)
	assert.Empty(t, follower.rs.added)
	assert.Equal(t, []api.ScalingEvent{ev(nodeA, api.ActionAdd)}, follower.ctrl.leftover)
}

func TestFollowerCancelled(t *testing.T) {
	store := cstore.NewMemory()
	_, err := gate.New(store, "/c", "/mongodb").ClaimBootstrap(context.Background())
	require.Nil(t, err)

	h := newHarness(store)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err = h.b.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, Failed, h.b.Phase())
}

type downStore struct {
	*cstore.MemoryStore
	calls int
}

func (d *downStore) Value(ctx context.Context, key string) (string, bool, error) {
	d.calls++
	return "", false, cerrors.E(cerrors.CoordinationUnavailable, "exists", errors.New("no route to host"))
}

func TestClaimRetriedThenFails(t *testing.T) {
	store := &downStore{MemoryStore: cstore.NewMemory()}
	h := newHarness(store)
	h.b.conf.ClaimAttempts = 3

	err := h.b.Run(context.Background())
	assert.True(t, cerrors.IsKind(err, cerrors.CoordinationUnavailable))
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, Failed, h.b.Phase())
	assert.Empty(t, h.sched.subscribed, "never assumes leadership")
}

// lostAckStore commits the first create but fails it as a timed out call
type lostAckStore struct {
	*cstore.MemoryStore
	creates int
}

func (l *lostAckStore) CreateIfAbsent(ctx context.Context, key, value string) (bool, error) {
	l.creates++
	created, err := l.MemoryStore.CreateIfAbsent(ctx, key, value)
	if l.creates == 1 && err == nil {
		return false, cerrors.E(cerrors.CoordinationUnavailable, "create", context.DeadlineExceeded)
	}
	return created, err
}

func TestClaimRetriedAfterLostAcknowledgement(t *testing.T) {
	store := &lostAckStore{MemoryStore: cstore.NewMemory()}
	h := newHarness(store)

	require.Nil(t, h.b.Run(context.Background()))
	assert.Equal(t, Ready, h.b.Phase())
	assert.Equal(t, 1, h.rs.initiated, "remains the bootstrap leader")
	finished, err := h.g.IsFinished(context.Background())
	require.Nil(t, err)
	assert.True(t, finished)
}
