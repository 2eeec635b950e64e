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

package registry

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/log"
)

// ActorRegistry tracks which service owns each remote actor and its last
// known lifecycle state.
//
// Single entry operations are atomic. MarkActorsUnavailable, ReconcileActors
// and RestoreActors hold the write lock for the whole sweep, so a concurrent
// registration is applied either before or after it, never in the middle.
type ActorRegistry struct {
	mu     sync.RWMutex
	actors map[string]ActorEntry
	store  Store
	logger log.Logger
	clock  func() time.Time
}

// NewActorRegistry creates an ActorRegistry.
func NewActorRegistry(opts ...Option) *ActorRegistry {
	c := newConfig(opts...)
	return &ActorRegistry{
		actors: make(map[string]ActorEntry),
		store:  c.store,
		logger: c.logger,
		clock:  c.clock,
	}
}

// Load replaces the in-memory view with the store content.
func (r *ActorRegistry) Load(ctx context.Context) error {
	entries, err := r.store.Actors(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.actors)
	for _, entry := range entries {
		r.actors[entry.ActorID] = entry
	}
	return nil
}

// RegisterActor records an actor. An existing entry with the same id is
// replaced and keeps its creation time.
func (r *ActorRegistry) RegisterActor(ctx context.Context, entry ActorEntry) (ActorEntry, error) {
	if err := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("actorId", entry.ActorID)).
		AddValidator(validation.NewEmptyStringValidator("actorType", entry.ActorType)).
		AddValidator(validation.NewIDValidator("serviceId", entry.ServiceID)).
		Validate(); err != nil {
		return ActorEntry{}, gerrors.NewErrInvalidMessage(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	if previous, ok := r.actors[entry.ActorID]; ok {
		entry.CreatedAt = previous.CreatedAt
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if err := r.store.PutActor(ctx, entry); err != nil {
		return ActorEntry{}, err
	}
	r.actors[entry.ActorID] = entry
	r.logger.Debugf("actor %s (%s) registered on service %s", entry.ActorID, entry.ActorType, entry.ServiceID)
	return entry, nil
}

// LookupActor returns an actor entry.
func (r *ActorRegistry) LookupActor(actorID string) (ActorEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.actors[actorID]
	if !ok {
		return ActorEntry{}, gerrors.NewErrActorNotFound(actorID)
	}
	return entry, nil
}

// UpdateActorState records a reported state.
func (r *ActorRegistry) UpdateActorState(ctx context.Context, actorID string, state actor.State) (ActorEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.actors[actorID]
	if !ok {
		return ActorEntry{}, gerrors.NewErrActorNotFound(actorID)
	}
	entry.State = state
	entry.UpdatedAt = r.clock().UTC()
	if err := r.store.PutActor(ctx, entry); err != nil {
		return ActorEntry{}, err
	}
	r.actors[actorID] = entry
	return entry, nil
}

// RemoveActor deletes an actor entry.
func (r *ActorRegistry) RemoveActor(ctx context.Context, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[actorID]; !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	if err := r.store.DeleteActor(ctx, actorID); err != nil {
		return err
	}
	delete(r.actors, actorID)
	return nil
}

// GetActorsByService returns the actors owned by a service, sorted by id.
func (r *ActorRegistry) GetActorsByService(serviceID string) []ActorEntry {
	return r.filter(func(entry ActorEntry) bool { return entry.ServiceID == serviceID })
}

// GetActiveActors returns the actors whose last known state is RUNNING.
func (r *ActorRegistry) GetActiveActors() []ActorEntry {
	return r.filter(func(entry ActorEntry) bool { return entry.State == actor.Running })
}

// All returns every actor entry sorted by id.
func (r *ActorRegistry) All() []ActorEntry {
	return r.filter(func(ActorEntry) bool { return true })
}

// Count returns the number of registered actors.
func (r *ActorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// MarkActorsUnavailable moves every actor of a service to STOPPED and returns
// how many entries changed.
func (r *ActorRegistry) MarkActorsUnavailable(ctx context.Context, serviceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	count := 0
	for _, entry := range r.ownedBy(serviceID) {
		if entry.State == actor.Stopped {
			continue
		}
		entry.State = actor.Stopped
		entry.UpdatedAt = now
		if err := r.store.PutActor(ctx, entry); err != nil {
			return count, err
		}
		r.actors[entry.ActorID] = entry
		count++
	}

	r.logger.Infof("marked %d actor(s) of service %s unavailable", count, serviceID)
	return count, nil
}

// ReconcileActors aligns the entries of a service with the actor ids the
// service actually hosts:
//
//   - an entry whose id is missing from actualIDs is removed
//   - a STOPPED entry whose id is present is restored to RUNNING
//   - any other present entry is kept as is
//
// Ids in actualIDs that the registry does not know are ignored.
func (r *ActorRegistry) ReconcileActors(ctx context.Context, serviceID string, actualIDs []string) (ReconcileResult, error) {
	actual := mapset.NewThreadUnsafeSet(actualIDs...)

	r.mu.Lock()
	defer r.mu.Unlock()

	var result ReconcileResult
	now := r.clock().UTC()
	for _, entry := range r.ownedBy(serviceID) {
		switch {
		case !actual.Contains(entry.ActorID):
			if err := r.store.DeleteActor(ctx, entry.ActorID); err != nil {
				return result, err
			}
			delete(r.actors, entry.ActorID)
			result.Removed++
		case entry.State == actor.Stopped:
			entry.State = actor.Running
			entry.UpdatedAt = now
			if err := r.store.PutActor(ctx, entry); err != nil {
				return result, err
			}
			r.actors[entry.ActorID] = entry
			result.Restored++
		default:
			result.Kept++
		}
	}

	r.logger.Infof("reconciled service %s: removed=%d restored=%d kept=%d",
		serviceID, result.Removed, result.Restored, result.Kept)
	return result, nil
}

// RestoreActors moves every STOPPED actor of a service back to RUNNING
// without checking that the service still hosts it. Entries for actors lost
// by a service restart come back as RUNNING too; prefer ReconcileActors.
func (r *ActorRegistry) RestoreActors(ctx context.Context, serviceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	count := 0
	for _, entry := range r.ownedBy(serviceID) {
		if entry.State != actor.Stopped {
			continue
		}
		entry.State = actor.Running
		entry.UpdatedAt = now
		if err := r.store.PutActor(ctx, entry); err != nil {
			return count, err
		}
		r.actors[entry.ActorID] = entry
		count++
	}
	r.logger.Warnf("restored %d actor(s) of service %s without reconciliation", count, serviceID)
	return count, nil
}

// ownedBy must be called with the lock held.
func (r *ActorRegistry) ownedBy(serviceID string) []ActorEntry {
	var out []ActorEntry
	for _, entry := range r.actors {
		if entry.ServiceID == serviceID {
			out = append(out, entry)
		}
	}
	sortEntries(out)
	return out
}

func (r *ActorRegistry) filter(keep func(ActorEntry) bool) []ActorEntry {
	r.mu.RLock()
	out := make([]ActorEntry, 0, len(r.actors))
	for _, entry := range r.actors {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	r.mu.RUnlock()
	sortEntries(out)
	return out
}

func sortEntries(entries []ActorEntry) {
	slices.SortFunc(entries, func(a, b ActorEntry) int { return strings.Compare(a.ActorID, b.ActorID) })
}
