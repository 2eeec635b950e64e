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
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/log"
)

// ServiceRegistry tracks the known service instances.
//
// There is no expiry: staleness is reported by Stale and acted upon by the
// health monitor, which flips the active flag.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]ServiceInfo
	store    Store
	logger   log.Logger
	clock    func() time.Time
}

// NewServiceRegistry creates a ServiceRegistry.
func NewServiceRegistry(opts ...Option) *ServiceRegistry {
	c := newConfig(opts...)
	return &ServiceRegistry{
		services: make(map[string]ServiceInfo),
		store:    c.store,
		logger:   c.logger,
		clock:    c.clock,
	}
}

// Load replaces the in-memory view with the store content.
func (r *ServiceRegistry) Load(ctx context.Context) error {
	services, err := r.store.Services(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.services)
	for _, service := range services {
		r.services[service.ID] = service
	}
	return nil
}

// RegisterService registers a service or refreshes an existing registration.
// A registered service is active and its heartbeat is now.
func (r *ServiceRegistry) RegisterService(ctx context.Context, serviceID, serviceURL string) (ServiceInfo, error) {
	serviceURL = strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	if err := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("serviceId", serviceID)).
		AddValidator(validation.NewURLValidator(serviceURL)).
		Validate(); err != nil {
		return ServiceInfo{}, gerrors.NewErrInvalidMessage(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	service, exists := r.services[serviceID]
	if !exists {
		service = ServiceInfo{ID: serviceID, RegisteredAt: now}
	}
	service.URL = serviceURL
	service.LastHeartbeat = now
	service.Active = true

	if err := r.store.PutService(ctx, service); err != nil {
		return ServiceInfo{}, err
	}
	r.services[serviceID] = service
	r.logger.Infof("service %s registered at %s", serviceID, serviceURL)
	return service, nil
}

// UnregisterService removes a service.
func (r *ServiceRegistry) UnregisterService(ctx context.Context, serviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[serviceID]; !ok {
		return gerrors.NewErrServiceNotFound(serviceID)
	}
	if err := r.store.DeleteService(ctx, serviceID); err != nil {
		return err
	}
	delete(r.services, serviceID)
	r.logger.Infof("service %s unregistered", serviceID)
	return nil
}

// UpdateHeartbeat refreshes the last seen time of a service.
func (r *ServiceRegistry) UpdateHeartbeat(ctx context.Context, serviceID string) (ServiceInfo, error) {
	return r.update(ctx, serviceID, func(service *ServiceInfo) bool {
		service.LastHeartbeat = r.clock().UTC()
		return true
	})
}

// SetActive sets the active flag and reports whether it changed.
func (r *ServiceRegistry) SetActive(ctx context.Context, serviceID string, active bool) (bool, error) {
	changed := false
	_, err := r.update(ctx, serviceID, func(service *ServiceInfo) bool {
		changed = service.Active != active
		service.Active = active
		return changed
	})
	return changed, err
}

// GetService returns a service by id.
func (r *ServiceRegistry) GetService(serviceID string) (ServiceInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, ok := r.services[serviceID]
	if !ok {
		return ServiceInfo{}, gerrors.NewErrServiceNotFound(serviceID)
	}
	return service, nil
}

// GetAllServices returns every service sorted by id.
func (r *ServiceRegistry) GetAllServices() []ServiceInfo {
	r.mu.RLock()
	out := make([]ServiceInfo, 0, len(r.services))
	for _, service := range r.services {
		out = append(out, service)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b ServiceInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Stale returns the services whose last heartbeat is older than timeout.
func (r *ServiceRegistry) Stale(timeout time.Duration) []ServiceInfo {
	now := r.clock()
	var out []ServiceInfo
	for _, service := range r.GetAllServices() {
		if now.Sub(service.LastHeartbeat) > timeout {
			out = append(out, service)
		}
	}
	return out
}

// IsStale reports whether a service heartbeat is older than timeout.
func (r *ServiceRegistry) IsStale(service ServiceInfo, timeout time.Duration) bool {
	return r.clock().Sub(service.LastHeartbeat) > timeout
}

func (r *ServiceRegistry) update(ctx context.Context, serviceID string, mutate func(*ServiceInfo) bool) (ServiceInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.services[serviceID]
	if !ok {
		return ServiceInfo{}, gerrors.NewErrServiceNotFound(serviceID)
	}
	if !mutate(&service) {
		return service, nil
	}
	if err := r.store.PutService(ctx, service); err != nil {
		return ServiceInfo{}, err
	}
	r.services[serviceID] = service
	return service, nil
}

// ParseServiceURL parses a registered service URL.
func ParseServiceURL(service ServiceInfo) (*url.URL, error) {
	return url.Parse(service.URL)
}
