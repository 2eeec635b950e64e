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

// Package health runs the service health control loop: it probes every
// registered service, marks the actors of a failing service unavailable and
// reconciles them once the service answers again.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/internal/metric"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/registry"
)

const jobKey = "actorgrid-health-cycle"

// Monitor probes registered services on a fixed interval.
//
// Transitions are edge triggered: the down workflow runs once when a service
// that was not down fails a probe, and the recovery workflow runs once when a
// down service passes one. Probes of different services run concurrently.
type Monitor struct {
	services *registry.ServiceRegistry
	actors   *registry.ActorRegistry
	prober   Prober
	lister   ActorLister

	interval         time.Duration
	probeTimeout     time.Duration
	heartbeatTimeout time.Duration
	maxConcurrency   int
	blindRestore     bool

	logger         log.Logger
	events         eventstream.Stream
	metricProvider *metric.Provider
	metric         *metric.MonitorMetric
	clock          func() time.Time

	// serializes cycles
	cycleMu sync.Mutex

	statusMu sync.RWMutex
	statuses map[string]*ServiceStatus

	lifecycleMu sync.Mutex
	scheduler   quartz.Scheduler
	cancel      context.CancelFunc
	started     *atomic.Bool
}

// New creates a Monitor.
func New(services *registry.ServiceRegistry, actors *registry.ActorRegistry, prober Prober, lister ActorLister, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		services:         services,
		actors:           actors,
		prober:           prober,
		lister:           lister,
		interval:         DefaultInterval,
		probeTimeout:     DefaultProbeTimeout,
		heartbeatTimeout: DefaultHeartbeatTimeout,
		maxConcurrency:   DefaultMaxConcurrentProbes,
		blindRestore:     true,
		logger:           log.DefaultLogger,
		clock:            time.Now,
		statuses:         make(map[string]*ServiceStatus),
		started:          atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(m)
	}

	if err := validation.New(validation.AllErrors()).
		AddAssertion(services != nil, "service registry is required").
		AddAssertion(actors != nil, "actor registry is required").
		AddAssertion(prober != nil, "prober is required").
		AddAssertion(lister != nil, "actor lister is required").
		AddAssertion(m.interval > 0, "interval must be positive").
		AddAssertion(m.probeTimeout > 0, "probe timeout must be positive").
		AddAssertion(m.heartbeatTimeout > 0, "heartbeat timeout must be positive").
		AddAssertion(m.maxConcurrency > 0, "max concurrent probes must be positive").
		Validate(); err != nil {
		return nil, err
	}

	if m.metricProvider == nil {
		m.metricProvider = metric.New()
	}
	instruments, err := metric.NewMonitorMetric(m.metricProvider.Meter())
	if err != nil {
		return nil, err
	}
	m.metric = instruments
	m.logger = m.logger.With(log.FieldComponent, "health")
	return m, nil
}

// Start schedules the monitoring cycle. The first cycle runs one interval
// after Start.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.started.Load() {
		return nil
	}

	scheduler, err := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	scheduler.Start(ctx)

	cycle := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		if !m.cycleMu.TryLock() {
			m.logger.Warn("previous health cycle still running, skipping")
			return false, nil
		}
		defer m.cycleMu.Unlock()
		return true, m.check(ctx)
	})

	if err := scheduler.ScheduleJob(quartz.NewJobDetail(cycle, quartz.NewJobKey(jobKey)), quartz.NewSimpleTrigger(m.interval)); err != nil {
		cancel()
		scheduler.Stop()
		return err
	}

	m.scheduler = scheduler
	m.cancel = cancel
	m.started.Store(true)
	m.logger.Infof("health monitor started, interval=%s probeTimeout=%s", m.interval, m.probeTimeout)
	return nil
}

// Stop cancels the schedule and waits for a running cycle to finish or for
// ctx to be done.
func (m *Monitor) Stop(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if !m.started.Load() {
		return gerrors.ErrMonitorNotStarted
	}

	_ = m.scheduler.Clear()
	m.scheduler.Stop()
	m.cancel()
	m.scheduler.Wait(ctx)

	m.started.Store(false)
	m.logger.Info("health monitor stopped")
	return nil
}

// Running reports whether the cycle is scheduled.
func (m *Monitor) Running() bool {
	return m.started.Load()
}

// CheckNow runs one cycle synchronously. It waits for a scheduled cycle in
// progress to finish first.
func (m *Monitor) CheckNow(ctx context.Context) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.check(ctx)
}

// Status returns the monitor view of a service.
func (m *Monitor) Status(serviceID string) (ServiceStatus, bool) {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	status, ok := m.statuses[serviceID]
	if !ok {
		return ServiceStatus{ServiceID: serviceID}, false
	}
	return *status, true
}

// Statuses returns the monitor view of every probed service.
func (m *Monitor) Statuses() []ServiceStatus {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	out := make([]ServiceStatus, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, *status)
	}
	return out
}

func (m *Monitor) check(ctx context.Context) error {
	services := m.services.GetAllServices()
	m.forgetUnregistered(services)

	// checks share the caller context only: a registry failure for one
	// service must not cancel the checks of the others
	var (
		eg   errgroup.Group
		mu   sync.Mutex
		errs error
	)
	eg.SetLimit(m.maxConcurrency)
	for _, service := range services {
		eg.Go(func() error {
			if err := m.checkService(ctx, service); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("service %s: %w", service.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errs
}

// checkService only returns registry errors; probe failures are outcomes.
func (m *Monitor) checkService(ctx context.Context, service registry.ServiceInfo) error {
	logger := m.logger.With(log.FieldService, service.ID)

	stale := m.clock().Sub(service.LastHeartbeat) > m.heartbeatTimeout
	if stale {
		logger.Warnf("service %s heartbeat is stale, last seen at %s", service.ID, service.LastHeartbeat.Format(time.RFC3339))
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	probeErr := m.prober.Probe(probeCtx, service)
	cancel()

	healthy := probeErr == nil
	m.metric.Probe(ctx, service.ID, healthy)
	previous := m.record(service, healthy, stale, probeErr)

	if !healthy {
		if previous == StatusDown {
			logger.Debugf("service %s still down: %v", service.ID, probeErr)
			return nil
		}
		return m.markDown(ctx, logger, service, probeErr)
	}

	if previous == StatusDown {
		return m.recover(ctx, logger, service)
	}

	m.setStatus(service.ID, StatusUp)
	if !service.Active {
		if _, err := m.services.SetActive(ctx, service.ID, true); err != nil && !errors.Is(err, gerrors.ErrServiceNotFound) {
			return err
		}
	}
	return nil
}

func (m *Monitor) markDown(ctx context.Context, logger log.Logger, service registry.ServiceInfo, cause error) error {
	logger.Warnf("service %s is down: %v", service.ID, cause)

	if _, err := m.services.SetActive(ctx, service.ID, false); err != nil {
		if errors.Is(err, gerrors.ErrServiceNotFound) {
			return nil
		}
		return err
	}
	count, err := m.actors.MarkActorsUnavailable(ctx, service.ID)
	if err != nil {
		return err
	}

	m.setStatus(service.ID, StatusDown)
	m.metric.ServiceDown(ctx, service.ID)
	m.publish(&ServiceDown{
		ServiceID:    service.ID,
		ServiceURL:   service.URL,
		Cause:        cause.Error(),
		ActorsMarked: count,
		At:           m.clock().UTC(),
	})
	logger.Infof("service %s marked down, %d actor(s) unavailable", service.ID, count)
	return nil
}

func (m *Monitor) recover(ctx context.Context, logger log.Logger, service registry.ServiceInfo) error {
	event := &ServiceRecovered{ServiceID: service.ID, ServiceURL: service.URL}

	listCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	actual, listErr := m.lister.ListActors(listCtx, service)
	cancel()

	if listErr != nil && !m.blindRestore {
		logger.Warnf("service %s answers health probes but not the actor list, recovery postponed: %v", service.ID, listErr)
		return nil
	}

	if _, err := m.services.SetActive(ctx, service.ID, true); err != nil {
		if errors.Is(err, gerrors.ErrServiceNotFound) {
			return nil
		}
		return err
	}

	if listErr != nil {
		logger.Warnf("unable to fetch actors of service %s, reconciliation skipped and stopped actors restored: %v", service.ID, listErr)
		restored, err := m.actors.RestoreActors(ctx, service.ID)
		if err != nil {
			return err
		}
		event.Restored = restored
	} else {
		result, err := m.actors.ReconcileActors(ctx, service.ID, actual)
		if err != nil {
			return err
		}
		event.Reconciled = true
		event.Result = result
		event.Restored = result.Restored
		m.metric.Reconciled(ctx, service.ID, result.Removed, result.Restored, result.Kept)
	}

	event.At = m.clock().UTC()
	m.setStatus(service.ID, StatusUp)
	m.metric.ServiceRecovered(ctx, service.ID)
	m.publish(event)
	logger.Infof("service %s recovered", service.ID)
	return nil
}

// record stores the probe outcome and returns the status before this probe.
// A service never probed by this monitor but flagged inactive in the registry,
// as after a control plane restart, counts as down so that its actors are
// reconciled on the first healthy probe.
func (m *Monitor) record(service registry.ServiceInfo, healthy, stale bool, probeErr error) Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	status, ok := m.statuses[service.ID]
	if !ok {
		status = &ServiceStatus{ServiceID: service.ID}
		if !service.Active {
			status.Status = StatusDown
		}
		m.statuses[service.ID] = status
	}

	previous := status.Status
	status.LastProbe = m.clock().UTC()
	status.Stale = stale
	if healthy {
		status.LastError = ""
		status.ConsecutiveFailures = 0
	} else {
		status.LastError = probeErr.Error()
		status.ConsecutiveFailures++
	}
	return previous
}

func (m *Monitor) setStatus(serviceID string, value Status) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	if status, ok := m.statuses[serviceID]; ok {
		status.Status = value
	}
}

func (m *Monitor) forgetUnregistered(services []registry.ServiceInfo) {
	known := make(map[string]struct{}, len(services))
	for _, service := range services {
		known[service.ID] = struct{}{}
	}
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	for id := range m.statuses {
		if _, ok := known[id]; !ok {
			delete(m.statuses, id)
		}
	}
}

func (m *Monitor) publish(event any) {
	if m.events == nil {
		return
	}
	m.events.Publish(ServicesTopic, event)
}
