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

package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MonitorMetric groups the service health monitor instruments:
//
//   - monitor.probes.count           (Int64Counter)
//   - monitor.services.down          (Int64Counter)
//   - monitor.services.recovered     (Int64Counter)
//   - monitor.actors.reconciled      (Int64Counter)
type MonitorMetric struct {
	probes     metric.Int64Counter
	down       metric.Int64Counter
	recovered  metric.Int64Counter
	reconciled metric.Int64Counter
}

// NewMonitorMetric creates the monitor instruments using the provided Meter.
func NewMonitorMetric(meter metric.Meter) (*MonitorMetric, error) {
	instruments := new(MonitorMetric)
	var err error

	if instruments.probes, err = meter.Int64Counter(
		"monitor.probes.count",
		metric.WithDescription("Total number of health probes by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create probes instrument, %w", err)
	}

	if instruments.down, err = meter.Int64Counter(
		"monitor.services.down",
		metric.WithDescription("Total number of up to down transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create down instrument, %w", err)
	}

	if instruments.recovered, err = meter.Int64Counter(
		"monitor.services.recovered",
		metric.WithDescription("Total number of down to up transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create recovered instrument, %w", err)
	}

	if instruments.reconciled, err = meter.Int64Counter(
		"monitor.actors.reconciled",
		metric.WithDescription("Actors affected by reconciliation by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reconciled instrument, %w", err)
	}

	return instruments, nil
}

// Probe records a probe outcome.
func (x *MonitorMetric) Probe(ctx context.Context, serviceID string, healthy bool) {
	x.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service.id", serviceID),
		attribute.Bool("healthy", healthy)))
}

// ServiceDown records a down transition.
func (x *MonitorMetric) ServiceDown(ctx context.Context, serviceID string) {
	x.down.Add(ctx, 1, metric.WithAttributes(attribute.String("service.id", serviceID)))
}

// ServiceRecovered records a recovery transition.
func (x *MonitorMetric) ServiceRecovered(ctx context.Context, serviceID string) {
	x.recovered.Add(ctx, 1, metric.WithAttributes(attribute.String("service.id", serviceID)))
}

// Reconciled records reconciliation counts.
func (x *MonitorMetric) Reconciled(ctx context.Context, serviceID string, removed, restored, kept int) {
	service := attribute.String("service.id", serviceID)
	x.reconciled.Add(ctx, int64(removed), metric.WithAttributes(service, attribute.String("outcome", "removed")))
	x.reconciled.Add(ctx, int64(restored), metric.WithAttributes(service, attribute.String("outcome", "restored")))
	x.reconciled.Add(ctx, int64(kept), metric.WithAttributes(service, attribute.String("outcome", "kept")))
}
