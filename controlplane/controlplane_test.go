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

package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/health"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/node"
	"github.com/actorgrid/actorgrid/registry"
)

func call(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func next[T any](t *testing.T, sub eventstream.Subscriber) T {
	t.Helper()
	for {
		select {
		case msg, ok := <-sub.Messages():
			require.True(t, ok)
			if event, ok := msg.Payload().(T); ok {
				return event
			}
		case <-time.After(5 * time.Second):
			require.FailNow(t, "no event received")
		}
	}
}

// cluster wires a control plane and one runtime "svc-a" reachable at
// http://svc-a. While down is set the runtime answers 503 to everything.
type cluster struct {
	cp      *ControlPlane
	base    string
	runtime *node.Node
	down    *atomic.Bool
}

func newCluster(t *testing.T) *cluster {
	t.Helper()
	ctx := context.Background()

	var runtimeAddr string
	dialer := &net.Dialer{}
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if addr == "svc-a:80" {
					addr = runtimeAddr
				}
				return dialer.DialContext(ctx, network, addr)
			},
		},
	}

	cp, err := New(
		WithLogger(log.DiscardLogger),
		WithHTTPClient(client),
		WithMonitorOptions(health.WithInterval(time.Hour), health.WithProbeTimeout(2*time.Second)),
	)
	require.NoError(t, err)
	require.NoError(t, cp.Start(ctx))
	cpServer := httptest.NewServer(ihttp.H2C(cp.Handler()))

	system, err := actor.NewSystem("svc-a", actor.WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	node.RegisterBuiltins(system)
	runtime, err := node.New("svc-a", "http://svc-a", system,
		node.WithLogger(log.DiscardLogger),
		node.WithControlPlane(cpServer.URL),
		node.WithHeartbeatInterval(time.Hour),
	)
	require.NoError(t, err)

	down := atomic.NewBool(false)
	handler := runtime.Handler()
	runtimeServer := httptest.NewServer(ihttp.H2C(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			ihttp.WriteError(w, gerrors.NewErrServiceUnavailable("svc-a"))
			return
		}
		handler.ServeHTTP(w, r)
	})))
	runtimeAddr = runtimeServer.Listener.Addr().String()
	require.NoError(t, runtime.Start(ctx))

	t.Cleanup(func() {
		require.NoError(t, runtime.Stop(ctx))
		runtimeServer.Close()
		cpServer.Close()
		require.NoError(t, cp.Stop(ctx))
	})

	require.Eventually(t, func() bool {
		service, err := cp.Service("svc-a")
		return err == nil && service.Active
	}, 5*time.Second, 10*time.Millisecond)

	return &cluster{cp: cp, base: cpServer.URL + PathPrefix, runtime: runtime, down: down}
}

type workerAnswer struct {
	Reply node.WorkerReply `json:"reply"`
}

func TestControlPlaneEndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newCluster(t)

	var created node.CreateActorResponse
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, c.base+"/actors", CreateActorRequest{ServiceID: "svc-a", ActorType: node.WorkerType, ActorID: "x"}, &created))
	assert.Equal(t, actor.Running, created.State)
	assert.Equal(t, "svc-a", created.ServiceID)

	var entry registry.ActorEntry
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/actors/x", nil, &entry))
	assert.Equal(t, actor.Running, entry.State)
	assert.Equal(t, "http://svc-a", entry.ServiceURL)

	t.Run("messaging through the control plane", func(t *testing.T) {
		assert.Equal(t, http.StatusAccepted, call(t, http.MethodPost, c.base+"/actors/x/tell", node.TellRequest{Message: "hello"}, nil))
		assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, c.base+"/actors/x/tell", node.TellRequest{TargetActorID: "y", Message: "hello"}, nil))
		assert.Equal(t, http.StatusNotFound, call(t, http.MethodPost, c.base+"/actors/ghost/tell", node.TellRequest{Message: "hello"}, nil))

		var answer workerAnswer
		require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.base+"/actors/x/ask", node.AskRequest{Message: "ping", TimeoutMillis: 1000}, &answer))
		assert.Equal(t, 2, answer.Reply.Count)
	})

	t.Run("listings", func(t *testing.T) {
		var entries []registry.ActorEntry
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/actors/by-service/svc-a", nil, &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "x", entries[0].ActorID)
		assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, c.base+"/actors/by-service/ghost", nil, nil))

		var services []registry.ServiceInfo
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/services", nil, &services))
		require.Len(t, services, 1)
		assert.True(t, services[0].Active)

		var health node.ActorHealth
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/actors/x/health", nil, &health))
		assert.True(t, health.Active)

		var breakers []map[string]any
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/services/breakers", nil, &breakers))
		require.Len(t, breakers, 1)
		assert.Equal(t, "svc-a", breakers[0]["name"])
		assert.Equal(t, "closed", breakers[0]["state"])
	})

	t.Run("service down and recovery", func(t *testing.T) {
		sub := c.cp.EventStream().AddSubscriber()
		c.cp.EventStream().Subscribe(sub, health.ServicesTopic)
		defer c.cp.EventStream().RemoveSubscriber(sub)

		c.down.Store(true)
		require.NoError(t, c.cp.Monitor().CheckNow(ctx))

		downEvent := next[*health.ServiceDown](t, sub)
		assert.Equal(t, 1, downEvent.ActorsMarked)
		entry, err := c.cp.Actor("x")
		require.NoError(t, err)
		assert.Equal(t, actor.Stopped, entry.State)

		service, err := c.cp.Service("svc-a")
		require.NoError(t, err)
		assert.False(t, service.Active)
		assert.Equal(t, http.StatusServiceUnavailable, call(t, http.MethodPost, c.base+"/actors/x/tell", node.TellRequest{Message: "lost"}, nil))

		var statuses []health.ServiceStatus
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.base+"/services/status", nil, &statuses))
		require.Len(t, statuses, 1)
		assert.Equal(t, health.StatusDown, statuses[0].Status)

		c.down.Store(false)
		require.NoError(t, c.cp.Monitor().CheckNow(ctx))

		recovered := next[*health.ServiceRecovered](t, sub)
		assert.True(t, recovered.Reconciled)
		assert.Equal(t, registry.ReconcileResult{Removed: 0, Restored: 1, Kept: 0}, recovered.Result)

		entry, err = c.cp.Actor("x")
		require.NoError(t, err)
		assert.Equal(t, actor.Running, entry.State)

		var answer workerAnswer
		require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.base+"/actors/x/ask", node.AskRequest{Message: "again"}, &answer))
		assert.Equal(t, 3, answer.Reply.Count)
	})

	t.Run("restart", func(t *testing.T) {
		var restarted registry.ActorEntry
		require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.base+"/actors/x/restart", nil, &restarted))
		assert.Equal(t, actor.Running, restarted.State)

		var answer workerAnswer
		require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.base+"/actors/x/ask", node.AskRequest{Message: "fresh"}, &answer))
		assert.Equal(t, 1, answer.Reply.Count)
	})

	t.Run("runtime side stop is reported", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, call(t, http.MethodPost, c.base+"/actors", CreateActorRequest{ServiceID: "svc-a", ActorType: node.WorkerType, ActorID: "y"}, nil))
		require.NoError(t, c.runtime.System().StopActor(ctx, "y"))
		require.Eventually(t, func() bool {
			_, err := c.cp.Actor("y")
			return err != nil
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call(t, http.MethodDelete, c.base+"/actors/x", nil, nil))
		assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, c.base+"/actors/x", nil, nil))
		_, err := c.runtime.System().Actor("x")
		assert.ErrorIs(t, err, gerrors.ErrActorNotFound)
	})

	t.Run("unregister", func(t *testing.T) {
		var resp UnregisterResponse
		require.Equal(t, http.StatusOK, call(t, http.MethodDelete, c.base+"/services/svc-a", nil, &resp))
		assert.Equal(t, 0, resp.RemovedActors)
		assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, c.base+"/services/svc-a", nil, nil))
	})
}

func TestControlPlaneRouting(t *testing.T) {
	ctx := context.Background()
	cp, err := New(WithLogger(log.DiscardLogger))
	require.NoError(t, err)

	_, err = cp.RegisterService(ctx, "svc-a", "http://svc-a")
	require.NoError(t, err)
	_, err = cp.ActorRegistry().RegisterActor(ctx, registry.ActorEntry{ActorID: "failed", ActorType: "Worker", ServiceID: "svc-a", ServiceURL: "http://svc-a", State: actor.Failed})
	require.NoError(t, err)

	t.Run("actors not running refuse messages", func(t *testing.T) {
		err := cp.Tell(ctx, "failed", node.TellRequest{Message: "m"})
		assert.ErrorIs(t, err, gerrors.ErrInvalidState)
	})

	t.Run("placement needs a live service", func(t *testing.T) {
		_, err := cp.CreateActor(ctx, CreateActorRequest{ServiceID: "ghost", ActorType: "Worker"})
		assert.ErrorIs(t, err, gerrors.ErrServiceNotFound)
		_, err = cp.CreateActor(ctx, CreateActorRequest{ServiceID: "svc-a"})
		assert.ErrorIs(t, err, gerrors.ErrInvalidMessage)
		_, err = cp.CreateActor(ctx, CreateActorRequest{ServiceID: "svc-a", ActorType: "Worker", ActorID: "failed"})
		assert.ErrorIs(t, err, gerrors.ErrActorAlreadyExists)

		_, err = cp.ServiceRegistry().SetActive(ctx, "svc-a", false)
		require.NoError(t, err)
		_, err = cp.CreateActor(ctx, CreateActorRequest{ServiceID: "svc-a", ActorType: "Worker"})
		assert.ErrorIs(t, err, gerrors.ErrServiceUnavailable)
	})

	t.Run("state reports", func(t *testing.T) {
		_, err := cp.ReportState(ctx, "failed", node.StateReport{ServiceID: "svc-b", State: actor.Running})
		assert.ErrorIs(t, err, gerrors.ErrInvalidMessage)

		entry, err := cp.ReportState(ctx, "failed", node.StateReport{ServiceID: "svc-a", State: actor.Blocked})
		require.NoError(t, err)
		assert.Equal(t, actor.Blocked, entry.State)

		_, err = cp.ReportState(ctx, "failed", node.StateReport{ServiceID: "svc-a", State: actor.Stopped})
		require.NoError(t, err)
		_, err = cp.Actor("failed")
		assert.ErrorIs(t, err, gerrors.ErrActorNotFound)
	})

	t.Run("unregister drops owned actors", func(t *testing.T) {
		_, err := cp.ActorRegistry().RegisterActor(ctx, registry.ActorEntry{ActorID: "a1", ActorType: "Worker", ServiceID: "svc-a", ServiceURL: "http://svc-a", State: actor.Running})
		require.NoError(t, err)
		removed, err := cp.UnregisterService(ctx, "svc-a")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Empty(t, cp.Actors())
		_, err = cp.UnregisterService(ctx, "svc-a")
		assert.ErrorIs(t, err, gerrors.ErrServiceNotFound)
	})
}

func TestControlPlaneRegistration(t *testing.T) {
	cp, err := New(WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	server := httptest.NewServer(cp.Handler())
	defer server.Close()
	base := server.URL + PathPrefix

	var info registry.ServiceInfo
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, base+"/services/register?serviceId=svc-a&serviceUrl=http://svc-a:8080/", nil, &info))
	assert.Equal(t, "http://svc-a:8080", info.URL)
	assert.True(t, info.Active)

	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, base+"/services/register?serviceId=svc-b&serviceUrl=ftp://svc-b", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, http.MethodPost, base+"/services/svc-a/heartbeat", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodPost, base+"/services/ghost/heartbeat", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, base+"/actors/x/unknown", nil, nil))
}

func TestControlPlaneReloadsItsStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	store, err := registry.NewBoltStore(path)
	require.NoError(t, err)
	cp, err := New(WithLogger(log.DiscardLogger), WithStore(store))
	require.NoError(t, err)
	require.NoError(t, cp.Start(ctx))
	_, err = cp.RegisterService(ctx, "svc-a", "http://svc-a")
	require.NoError(t, err)
	_, err = cp.ActorRegistry().RegisterActor(ctx, registry.ActorEntry{ActorID: "a1", ActorType: "Worker", ServiceID: "svc-a", ServiceURL: "http://svc-a", State: actor.Running})
	require.NoError(t, err)
	require.NoError(t, cp.Stop(ctx))

	store, err = registry.NewBoltStore(path)
	require.NoError(t, err)
	reloaded, err := New(WithLogger(log.DiscardLogger), WithStore(store))
	require.NoError(t, err)
	require.NoError(t, reloaded.Start(ctx))
	defer func() { require.NoError(t, reloaded.Stop(ctx)) }()

	service, err := reloaded.Service("svc-a")
	require.NoError(t, err)
	assert.Equal(t, "http://svc-a", service.URL)
	entry, err := reloaded.Actor("a1")
	require.NoError(t, err)
	assert.Equal(t, actor.Running, entry.State)
}
