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
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/actorgrid/actorgrid/actor"
	"github.com/actorgrid/actorgrid/breaker"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/health"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/node"
	"github.com/actorgrid/actorgrid/registry"
)

// CreateActorRequest asks the control plane to place an actor on a service.
// The actor id is generated when empty.
type CreateActorRequest struct {
	ServiceID string         `json:"serviceId"`
	ActorType string         `json:"actorType"`
	ActorID   string         `json:"actorId,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// ControlPlane tracks services and their actors, routes messages to the
// owning runtimes and keeps the registries consistent with the health monitor.
type ControlPlane struct {
	listenAddr  string
	store       registry.Store
	httpClient  *http.Client
	healthPath  string
	breakerOpts []breaker.Option
	monitorOpts []health.Option
	events      eventstream.Stream
	ownsEvents  bool
	logger      log.Logger

	services *registry.ServiceRegistry
	actors   *registry.ActorRegistry
	runtime  *RuntimeClient
	monitor  *health.Monitor

	mu      sync.Mutex
	server  *ihttp.Server
	started *atomic.Bool
}

// New creates a ControlPlane.
func New(opts ...Option) (*ControlPlane, error) {
	cp := &ControlPlane{
		logger:  log.DefaultLogger,
		started: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(cp)
	}

	if cp.store == nil {
		cp.store = registry.NewMemoryStore()
	}
	if cp.events == nil {
		cp.events = eventstream.New()
		cp.ownsEvents = true
	}

	cp.services = registry.NewServiceRegistry(registry.WithStore(cp.store), registry.WithLogger(cp.logger))
	cp.actors = registry.NewActorRegistry(registry.WithStore(cp.store), registry.WithLogger(cp.logger))
	cp.runtime = NewRuntimeClient(cp.httpClient, cp.healthPath, cp.breakerOpts...)

	monitorOpts := append([]health.Option{
		health.WithLogger(cp.logger),
		health.WithEventStream(cp.events),
	}, cp.monitorOpts...)
	monitor, err := health.New(cp.services, cp.actors, cp.runtime, cp.runtime, monitorOpts...)
	if err != nil {
		return nil, err
	}
	cp.monitor = monitor
	return cp, nil
}

// ServiceRegistry returns the service registry.
func (cp *ControlPlane) ServiceRegistry() *registry.ServiceRegistry { return cp.services }

// ActorRegistry returns the distributed actor registry.
func (cp *ControlPlane) ActorRegistry() *registry.ActorRegistry { return cp.actors }

// Monitor returns the health monitor.
func (cp *ControlPlane) Monitor() *health.Monitor { return cp.monitor }

// Runtime returns the client used toward the runtimes.
func (cp *ControlPlane) Runtime() *RuntimeClient { return cp.runtime }

// EventStream returns the stream carrying health events.
func (cp *ControlPlane) EventStream() eventstream.Stream { return cp.events }

// Addr returns the address of the /api/v1 surface when served by the control plane.
func (cp *ControlPlane) Addr() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.server == nil {
		return cp.listenAddr
	}
	return cp.server.Addr()
}

// Start reloads the registries from the store, starts the health monitor
// and, when configured, the HTTP server.
func (cp *ControlPlane) Start(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.started.Load() {
		return nil
	}

	if err := cp.services.Load(ctx); err != nil {
		return err
	}
	if err := cp.actors.Load(ctx); err != nil {
		return err
	}
	if err := cp.monitor.Start(ctx); err != nil {
		return err
	}
	if cp.listenAddr != "" {
		server := ihttp.NewServer(cp.listenAddr, cp.Handler(), cp.logger)
		if err := server.Start(ctx); err != nil {
			return multierr.Append(err, cp.monitor.Stop(ctx))
		}
		cp.server = server
	}

	cp.started.Store(true)
	cp.logger.Infof("control plane started with %d services and %d actors", len(cp.services.GetAllServices()), cp.actors.Count())
	return nil
}

// Stop stops the HTTP server and the monitor, then closes the store.
func (cp *ControlPlane) Stop(ctx context.Context) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if !cp.started.Load() {
		return nil
	}
	cp.started.Store(false)

	var err error
	if cp.server != nil {
		err = multierr.Append(err, cp.server.Shutdown(ctx))
		cp.server = nil
	}
	err = multierr.Append(err, cp.monitor.Stop(ctx))
	err = multierr.Append(err, cp.store.Close())
	if cp.ownsEvents {
		cp.events.Close()
	}
	cp.logger.Info("control plane stopped")
	return err
}

// RegisterService registers a service or refreshes its URL.
func (cp *ControlPlane) RegisterService(ctx context.Context, serviceID, serviceURL string) (registry.ServiceInfo, error) {
	return cp.services.RegisterService(ctx, serviceID, serviceURL)
}

// Heartbeat refreshes the liveness of a service.
func (cp *ControlPlane) Heartbeat(ctx context.Context, serviceID string) (registry.ServiceInfo, error) {
	return cp.services.UpdateHeartbeat(ctx, serviceID)
}

// UnregisterService forgets a service and the actors it owned. It returns
// the number of removed actor entries.
func (cp *ControlPlane) UnregisterService(ctx context.Context, serviceID string) (int, error) {
	if _, err := cp.services.GetService(serviceID); err != nil {
		return 0, err
	}
	var err error
	removed := 0
	for _, entry := range cp.actors.GetActorsByService(serviceID) {
		if rerr := cp.actors.RemoveActor(ctx, entry.ActorID); rerr != nil {
			err = multierr.Append(err, rerr)
			continue
		}
		removed++
	}
	err = multierr.Append(err, cp.services.UnregisterService(ctx, serviceID))
	cp.runtime.Breakers().Remove(serviceID)
	return removed, err
}

// Services returns every registered service.
func (cp *ControlPlane) Services() []registry.ServiceInfo {
	return cp.services.GetAllServices()
}

// Service returns one registered service.
func (cp *ControlPlane) Service(serviceID string) (registry.ServiceInfo, error) {
	return cp.services.GetService(serviceID)
}

// ServiceStatuses returns the health of every probed service.
func (cp *ControlPlane) ServiceStatuses() []health.ServiceStatus {
	return cp.monitor.Statuses()
}

// CreateActor spawns an actor on the requested service and registers it
// with the state the runtime reported.
func (cp *ControlPlane) CreateActor(ctx context.Context, req CreateActorRequest) (node.CreateActorResponse, error) {
	if req.ActorType == "" {
		return node.CreateActorResponse{}, gerrors.NewErrInvalidMessage(errors.New("actorType is required"))
	}
	service, err := cp.activeService(req.ServiceID)
	if err != nil {
		return node.CreateActorResponse{}, err
	}

	actorID := req.ActorID
	if actorID == "" {
		actorID = uuid.NewString()
	}
	if _, err := cp.actors.LookupActor(actorID); err == nil {
		return node.CreateActorResponse{}, gerrors.NewErrActorAlreadyExists(actorID)
	}

	resp, err := cp.runtime.CreateActor(ctx, service, node.CreateActorRequest{
		ActorType:          req.ActorType,
		ActorID:            actorID,
		Params:             req.Params,
		RequesterServiceID: "control-plane",
	})
	if err != nil {
		return resp, err
	}

	_, err = cp.actors.RegisterActor(ctx, registry.ActorEntry{
		ActorID:    resp.ActorID,
		ActorType:  resp.ActorType,
		ServiceID:  service.ID,
		ServiceURL: service.URL,
		State:      resp.State,
	})
	if err != nil {
		return resp, err
	}
	cp.logger.Infof("actor %s of type %s created on %s in state %s", resp.ActorID, resp.ActorType, service.ID, resp.State)
	return resp, nil
}

// Tell forwards a message to the runtime owning actorID.
func (cp *ControlPlane) Tell(ctx context.Context, actorID string, req node.TellRequest) error {
	service, err := cp.route(actorID, req.TargetActorID)
	if err != nil {
		return err
	}
	req.TargetActorID = actorID
	return cp.runtime.Tell(ctx, service, req)
}

// Ask forwards a request to the runtime owning actorID and returns the reply.
func (cp *ControlPlane) Ask(ctx context.Context, actorID string, req node.AskRequest) (any, error) {
	service, err := cp.route(actorID, req.TargetActorID)
	if err != nil {
		return nil, err
	}
	req.TargetActorID = actorID
	return cp.runtime.Ask(ctx, service, req)
}

// Actor returns one registered actor.
func (cp *ControlPlane) Actor(actorID string) (registry.ActorEntry, error) {
	return cp.actors.LookupActor(actorID)
}

// Actors returns every registered actor.
func (cp *ControlPlane) Actors() []registry.ActorEntry {
	return cp.actors.All()
}

// ActorsByService returns the actors owned by a service.
func (cp *ControlPlane) ActorsByService(serviceID string) []registry.ActorEntry {
	return cp.actors.GetActorsByService(serviceID)
}

// ActorHealth returns the runtime view of an actor.
func (cp *ControlPlane) ActorHealth(ctx context.Context, actorID string) (node.ActorHealth, error) {
	entry, err := cp.actors.LookupActor(actorID)
	if err != nil {
		return node.ActorHealth{}, err
	}
	service, err := cp.activeService(entry.ServiceID)
	if err != nil {
		return node.ActorHealth{}, err
	}
	return cp.runtime.ActorHealth(ctx, service, actorID)
}

// DeleteActor stops the actor on its runtime and removes it from the
// registry. An actor whose service is down is only removed from the registry.
func (cp *ControlPlane) DeleteActor(ctx context.Context, actorID string) error {
	entry, err := cp.actors.LookupActor(actorID)
	if err != nil {
		return err
	}
	service, err := cp.activeService(entry.ServiceID)
	switch {
	case err == nil:
		if err := cp.runtime.StopActor(ctx, service, actorID); err != nil && !errors.Is(err, gerrors.ErrActorNotFound) {
			return err
		}
	case errors.Is(err, gerrors.ErrServiceUnavailable), errors.Is(err, gerrors.ErrServiceNotFound):
		cp.logger.Warnf("removing actor %s without stopping it: %v", actorID, err)
	default:
		return err
	}
	// the runtime STOPPED report may have removed the entry already
	if err := cp.actors.RemoveActor(ctx, actorID); err != nil && !errors.Is(err, gerrors.ErrActorNotFound) {
		return err
	}
	return nil
}

// RestartActor restarts the actor on its runtime and records the resulting state.
func (cp *ControlPlane) RestartActor(ctx context.Context, actorID string) (registry.ActorEntry, error) {
	entry, err := cp.actors.LookupActor(actorID)
	if err != nil {
		return entry, err
	}
	service, err := cp.activeService(entry.ServiceID)
	if err != nil {
		return entry, err
	}
	health, err := cp.runtime.RestartActor(ctx, service, actorID)
	if err != nil {
		return entry, err
	}
	return cp.actors.UpdateActorState(ctx, actorID, health.State)
}

// ReportState records a state transition reported by the owning runtime.
// A STOPPED actor no longer exists on its runtime and is removed.
func (cp *ControlPlane) ReportState(ctx context.Context, actorID string, report node.StateReport) (registry.ActorEntry, error) {
	entry, err := cp.actors.LookupActor(actorID)
	if err != nil {
		return entry, err
	}
	if report.ServiceID != "" && report.ServiceID != entry.ServiceID {
		return entry, gerrors.NewErrInvalidMessage(errors.New("actor " + actorID + " is not owned by " + report.ServiceID))
	}
	if report.State == actor.Stopped {
		entry.State = actor.Stopped
		return entry, cp.actors.RemoveActor(ctx, actorID)
	}
	return cp.actors.UpdateActorState(ctx, actorID, report.State)
}

// route resolves the service owning a deliverable actor.
func (cp *ControlPlane) route(actorID, bodyTarget string) (registry.ServiceInfo, error) {
	if bodyTarget != "" && bodyTarget != actorID {
		return registry.ServiceInfo{}, gerrors.NewErrInvalidMessage(errors.New("targetActorId does not match the path"))
	}
	entry, err := cp.actors.LookupActor(actorID)
	if err != nil {
		return registry.ServiceInfo{}, err
	}
	service, err := cp.activeService(entry.ServiceID)
	if err != nil {
		return service, err
	}
	if entry.State != actor.Running && entry.State != actor.Blocked {
		return service, gerrors.NewErrInvalidState(actorID, entry.State)
	}
	return service, nil
}

func (cp *ControlPlane) activeService(serviceID string) (registry.ServiceInfo, error) {
	service, err := cp.services.GetService(serviceID)
	if err != nil {
		return service, err
	}
	if !service.Active {
		return service, gerrors.NewErrServiceUnavailable(serviceID)
	}
	return service, nil
}
