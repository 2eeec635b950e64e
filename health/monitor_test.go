// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/registry"
)

var errUnreachable = errors.New("connection refused")

// fakeRuntime plays the services: health answers and hosted actor ids.
type fakeRuntime struct {
	mu       sync.Mutex
	down     map[string]bool
	actors   map[string][]string
	listErr  error
	probes   int
	blocking bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{down: make(map[string]bool), actors: make(map[string][]string)}
}

func (f *fakeRuntime) Probe(ctx context.Context, service registry.ServiceInfo) error {
	f.mu.Lock()
	f.probes++
	down, blocking := f.down[service.ID], f.blocking
	f.mu.Unlock()
	if blocking {
		<-ctx.Done()
		return ctx.Err()
	}
	if down {
		return errUnreachable
	}
	return nil
}

func (f *fakeRuntime) ListActors(_ context.Context, service registry.ServiceInfo) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.actors[service.ID], nil
}

func (f *fakeRuntime) setDown(serviceID string, down bool) {
	f.mu.Lock()
	f.down[serviceID] = down
	f.mu.Unlock()
}

func (f *fakeRuntime) setActors(serviceID string, ids ...string) {
	f.mu.Lock()
	f.actors[serviceID] = ids
	f.mu.Unlock()
}

func (f *fakeRuntime) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func (f *fakeRuntime) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

type fixture struct {
	services *registry.ServiceRegistry
	actors   *registry.ActorRegistry
	runtime  *fakeRuntime
	monitor  *Monitor
	sub      eventstream.Subscriber
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	events := eventstream.New()
	sub := events.AddSubscriber()
	events.Subscribe(sub, ServicesTopic)
	t.Cleanup(events.Close)

	f := &fixture{
		services: registry.NewServiceRegistry(registry.WithLogger(log.DiscardLogger)),
		actors:   registry.NewActorRegistry(registry.WithLogger(log.DiscardLogger)),
		runtime:  newFakeRuntime(),
		sub:      sub,
	}
	opts = append([]Option{WithLogger(log.DiscardLogger), WithEventStream(events)}, opts...)
	monitor, err := New(f.services, f.actors, f.runtime, f.runtime, opts...)
	require.NoError(t, err)
	f.monitor = monitor
	return f
}

func (f *fixture) register(t *testing.T, serviceID string, actors map[string]actor.State) {
	t.Helper()
	ctx := context.Background()
	_, err := f.services.RegisterService(ctx, serviceID, "http://"+serviceID)
	require.NoError(t, err)
	for id, state := range actors {
		_, err := f.actors.RegisterActor(ctx, registry.ActorEntry{
			ActorID:    id,
			ActorType:  "Worker",
			ServiceID:  serviceID,
			ServiceURL: "http://" + serviceID,
			State:      state,
		})
		require.NoError(t, err)
	}
}

func (f *fixture) events() []any {
	var out []any
	for _, msg := range f.sub.Drain() {
		out = append(out, msg.Payload())
	}
	return out
}

func (f *fixture) state(t *testing.T, actorID string) actor.State {
	t.Helper()
	entry, err := f.actors.LookupActor(actorID)
	require.NoError(t, err)
	return entry.State
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil, nil, nil, WithInterval(0))
	require.Error(t, err)
}

func TestDownIsEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Running, "a2": actor.Running})
	f.register(t, "svc-b", map[string]actor.State{"b1": actor.Running})
	f.runtime.setDown("svc-a", true)

	require.NoError(t, f.monitor.CheckNow(ctx))
	require.NoError(t, f.monitor.CheckNow(ctx))

	events := f.events()
	require.Len(t, events, 1)
	down, ok := events[0].(*ServiceDown)
	require.True(t, ok)
	assert.Equal(t, "svc-a", down.ServiceID)
	assert.Equal(t, 2, down.ActorsMarked)
	assert.Equal(t, errUnreachable.Error(), down.Cause)

	assert.Equal(t, actor.Stopped, f.state(t, "a1"))
	assert.Equal(t, actor.Stopped, f.state(t, "a2"))
	assert.Equal(t, actor.Running, f.state(t, "b1"))

	service, err := f.services.GetService("svc-a")
	require.NoError(t, err)
	assert.False(t, service.Active)

	status, ok := f.monitor.Status("svc-a")
	require.True(t, ok)
	assert.Equal(t, StatusDown, status.Status)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Equal(t, errUnreachable.Error(), status.LastError)

	status, ok = f.monitor.Status("svc-b")
	require.True(t, ok)
	assert.Equal(t, StatusUp, status.Status)
}

// failingStore refuses writes of one service once armed.
type failingStore struct {
	*registry.MemoryStore
	mu      sync.Mutex
	service string
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) failFor(serviceID string) {
	s.mu.Lock()
	s.service = serviceID
	s.mu.Unlock()
}

func (s *failingStore) PutService(ctx context.Context, service registry.ServiceInfo) error {
	s.mu.Lock()
	failing := s.service == service.ID
	s.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return s.MemoryStore.PutService(ctx, service)
}

func TestRegistryFailureDoesNotAffectOtherServices(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: registry.NewMemoryStore()}
	services := registry.NewServiceRegistry(registry.WithStore(store), registry.WithLogger(log.DiscardLogger))
	actors := registry.NewActorRegistry(registry.WithLogger(log.DiscardLogger))
	runtime := newFakeRuntime()

	healthy := []string{"svc-ok1", "svc-ok2", "svc-ok3"}
	for _, id := range append([]string{"svc-bad"}, healthy...) {
		_, err := services.RegisterService(ctx, id, "http://"+id)
		require.NoError(t, err)
	}
	runtime.setDown("svc-bad", true)
	store.failFor("svc-bad")

	monitor, err := New(services, actors, runtime, runtime,
		WithLogger(log.DiscardLogger),
		WithMaxConcurrentProbes(1))
	require.NoError(t, err)

	err = monitor.CheckNow(ctx)
	require.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "svc-bad")
	assert.Equal(t, 4, runtime.probeCount())

	for _, id := range healthy {
		status, ok := monitor.Status(id)
		require.True(t, ok, id)
		assert.Equal(t, StatusUp, status.Status, id)
		assert.Zero(t, status.ConsecutiveFailures, id)
		assert.Empty(t, status.LastError, id)
	}
}

func TestRecoveryReconciles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Running, "a2": actor.Running, "a3": actor.Running})
	f.runtime.setDown("svc-a", true)
	require.NoError(t, f.monitor.CheckNow(ctx))

	// a2 came back on its own and reported RUNNING while the service was down.
	_, err := f.actors.UpdateActorState(ctx, "a2", actor.Running)
	require.NoError(t, err)

	f.runtime.setDown("svc-a", false)
	f.runtime.setActors("svc-a", "a1", "a2")
	require.NoError(t, f.monitor.CheckNow(ctx))
	require.NoError(t, f.monitor.CheckNow(ctx))

	events := f.events()
	require.Len(t, events, 2)
	recovered, ok := events[1].(*ServiceRecovered)
	require.True(t, ok)
	assert.True(t, recovered.Reconciled)
	assert.Equal(t, registry.ReconcileResult{Removed: 1, Restored: 1, Kept: 1}, recovered.Result)

	assert.Equal(t, actor.Running, f.state(t, "a1"))
	assert.Equal(t, actor.Running, f.state(t, "a2"))
	_, err = f.actors.LookupActor("a3")
	require.ErrorIs(t, err, gerrors.ErrActorNotFound)

	service, err := f.services.GetService("svc-a")
	require.NoError(t, err)
	assert.True(t, service.Active)
}

// When the actor list cannot be fetched the monitor restores every STOPPED
// actor. An actor the service lost while down is resurrected as RUNNING: this
// test pins that known trade-off.
func TestRecoveryFallbackRestoresBlindly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", map[string]actor.State{"kept": actor.Running, "lost": actor.Running})
	f.runtime.setDown("svc-a", true)
	require.NoError(t, f.monitor.CheckNow(ctx))

	f.runtime.setDown("svc-a", false)
	f.runtime.setActors("svc-a", "kept")
	f.runtime.setListErr(errors.New("actor list not ready"))
	require.NoError(t, f.monitor.CheckNow(ctx))

	events := f.events()
	require.Len(t, events, 2)
	recovered, ok := events[1].(*ServiceRecovered)
	require.True(t, ok)
	assert.False(t, recovered.Reconciled)
	assert.Equal(t, 2, recovered.Restored)
	assert.Zero(t, recovered.Result)

	assert.Equal(t, actor.Running, f.state(t, "kept"))
	assert.Equal(t, actor.Running, f.state(t, "lost"))
}

func TestRecoveryWithoutFallbackWaitsForActorList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithBlindRestoreFallback(false))
	f.register(t, "svc-a", map[string]actor.State{"kept": actor.Running, "lost": actor.Running})
	f.runtime.setDown("svc-a", true)
	require.NoError(t, f.monitor.CheckNow(ctx))

	f.runtime.setDown("svc-a", false)
	f.runtime.setActors("svc-a", "kept")
	f.runtime.setListErr(errors.New("actor list not ready"))
	require.NoError(t, f.monitor.CheckNow(ctx))

	require.Len(t, f.events(), 1)
	status, _ := f.monitor.Status("svc-a")
	assert.Equal(t, StatusDown, status.Status)
	assert.Equal(t, actor.Stopped, f.state(t, "kept"))

	f.runtime.setListErr(nil)
	require.NoError(t, f.monitor.CheckNow(ctx))

	events := f.events()
	require.Len(t, events, 1)
	recovered := events[0].(*ServiceRecovered)
	assert.Equal(t, registry.ReconcileResult{Removed: 1, Restored: 1}, recovered.Result)
}

func TestInactiveServiceIsReconciledOnFirstHealthyProbe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Stopped})
	_, err := f.services.SetActive(ctx, "svc-a", false)
	require.NoError(t, err)
	f.runtime.setActors("svc-a", "a1")

	require.NoError(t, f.monitor.CheckNow(ctx))

	events := f.events()
	require.Len(t, events, 1)
	assert.IsType(t, &ServiceRecovered{}, events[0])
	assert.Equal(t, actor.Running, f.state(t, "a1"))
}

func TestSteadyStateHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Running})

	for range 3 {
		require.NoError(t, f.monitor.CheckNow(ctx))
	}
	assert.Empty(t, f.events())
	assert.Equal(t, 3, f.runtime.probeCount())
	assert.Equal(t, actor.Running, f.state(t, "a1"))
}

func TestStaleHeartbeatIsOnlyReported(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	f := newFixture(t, WithHeartbeatTimeout(time.Second), WithClock(func() time.Time { return now.Add(time.Hour) }))
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Running})

	require.NoError(t, f.monitor.CheckNow(ctx))

	status, ok := f.monitor.Status("svc-a")
	require.True(t, ok)
	assert.True(t, status.Stale)
	assert.Equal(t, StatusUp, status.Status)
	assert.Empty(t, f.events())
	assert.Equal(t, actor.Running, f.state(t, "a1"))
}

func TestProbeTimeoutCountsAsUnhealthy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithProbeTimeout(50*time.Millisecond))
	f.register(t, "svc-a", nil)
	f.runtime.mu.Lock()
	f.runtime.blocking = true
	f.runtime.mu.Unlock()

	start := time.Now()
	require.NoError(t, f.monitor.CheckNow(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)

	status, _ := f.monitor.Status("svc-a")
	assert.Equal(t, StatusDown, status.Status)
}

func TestUnregisteredServiceIsForgotten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "svc-a", nil)
	require.NoError(t, f.monitor.CheckNow(ctx))
	require.Len(t, f.monitor.Statuses(), 1)

	require.NoError(t, f.services.UnregisterService(ctx, "svc-a"))
	require.NoError(t, f.monitor.CheckNow(ctx))
	assert.Empty(t, f.monitor.Statuses())
	_, ok := f.monitor.Status("svc-a")
	assert.False(t, ok)
}

func TestScheduledCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithInterval(20*time.Millisecond))
	f.register(t, "svc-a", map[string]actor.State{"a1": actor.Running})
	f.runtime.setDown("svc-a", true)

	require.ErrorIs(t, f.monitor.Stop(ctx), gerrors.ErrMonitorNotStarted)
	require.NoError(t, f.monitor.Start(ctx))
	require.NoError(t, f.monitor.Start(ctx))
	assert.True(t, f.monitor.Running())

	require.Eventually(t, func() bool {
		entry, err := f.actors.LookupActor("a1")
		return err == nil && entry.State == actor.Stopped
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return f.runtime.probeCount() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, f.monitor.Stop(stopCtx))
	assert.False(t, f.monitor.Running())

	// repeated failures while down produced a single event
	assert.Len(t, f.events(), 1)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "UP", StatusUp.String())
	assert.Equal(t, "DOWN", StatusDown.String())
	assert.Equal(t, "UNKNOWN", StatusUnknown.String())
	text, err := StatusDown.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DOWN", string(text))
}
