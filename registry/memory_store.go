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
	"sync"
)

// MemoryStore keeps entries in mutex protected maps. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	services map[string]ServiceInfo
	actors   map[string]ActorEntry
}

var _ Store = (*MemoryStore)(nil) // enforce compilation error

// NewMemoryStore returns a new in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		services: make(map[string]ServiceInfo),
		actors:   make(map[string]ActorEntry),
	}
}

// PutService implements Store.
func (m *MemoryStore) PutService(ctx context.Context, service ServiceInfo) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.services[service.ID] = service
	m.mu.Unlock()
	return nil
}

// DeleteService implements Store.
func (m *MemoryStore) DeleteService(ctx context.Context, serviceID string) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.services, serviceID)
	m.mu.Unlock()
	return nil
}

// Services implements Store.
func (m *MemoryStore) Services(ctx context.Context) ([]ServiceInfo, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServiceInfo, 0, len(m.services))
	for _, service := range m.services {
		out = append(out, service)
	}
	return out, nil
}

// PutActor implements Store.
func (m *MemoryStore) PutActor(ctx context.Context, entry ActorEntry) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.actors[entry.ActorID] = entry
	m.mu.Unlock()
	return nil
}

// DeleteActor implements Store.
func (m *MemoryStore) DeleteActor(ctx context.Context, actorID string) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.actors, actorID)
	m.mu.Unlock()
	return nil
}

// Actors implements Store.
func (m *MemoryStore) Actors(ctx context.Context) ([]ActorEntry, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ActorEntry, 0, len(m.actors))
	for _, entry := range m.actors {
		out = append(out, entry)
	}
	return out, nil
}

// Close clears the maps. The store remains usable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	clear(m.services)
	clear(m.actors)
	m.mu.Unlock()
	return nil
}
