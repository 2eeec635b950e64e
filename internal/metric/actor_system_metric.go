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

// ActorSystemMetric groups the instruments describing an actor system:
//
//   - actorsystem.actors.live        (Int64UpDownCounter)
//   - actorsystem.actors.spawned     (Int64Counter)
//   - actorsystem.actors.failed      (Int64Counter)
//   - actorsystem.actors.restarts    (Int64Counter)
//   - actorsystem.messages.processed (Int64Counter)
//   - actorsystem.messages.failures  (Int64Counter)
//   - actorsystem.deadletters.count  (Int64Counter)
type ActorSystemMetric struct {
	system      attribute.KeyValue
	live        metric.Int64UpDownCounter
	spawned     metric.Int64Counter
	failed      metric.Int64Counter
	restarts    metric.Int64Counter
	processed   metric.Int64Counter
	failures    metric.Int64Counter
	deadletters metric.Int64Counter
}

// NewActorSystemMetric creates the system level instruments using the provided Meter.
func NewActorSystemMetric(meter metric.Meter, systemName string) (*ActorSystemMetric, error) {
	instruments := &ActorSystemMetric{system: attribute.String("actor.system", systemName)}
	var err error

	if instruments.live, err = meter.Int64UpDownCounter(
		"actorsystem.actors.live",
		metric.WithDescription("Number of actors registered in the actor system"),
	); err != nil {
		return nil, fmt.Errorf("failed to create live actors instrument, %w", err)
	}

	if instruments.spawned, err = meter.Int64Counter(
		"actorsystem.actors.spawned",
		metric.WithDescription("Total number of actors spawned"),
	); err != nil {
		return nil, fmt.Errorf("failed to create spawned instrument, %w", err)
	}

	if instruments.failed, err = meter.Int64Counter(
		"actorsystem.actors.failed",
		metric.WithDescription("Total number of actors that reached the FAILED state"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failed instrument, %w", err)
	}

	if instruments.restarts, err = meter.Int64Counter(
		"actorsystem.actors.restarts",
		metric.WithDescription("Total number of actor restarts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create restarts instrument, %w", err)
	}

	if instruments.processed, err = meter.Int64Counter(
		"actorsystem.messages.processed",
		metric.WithDescription("Total number of messages processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processed instrument, %w", err)
	}

	if instruments.failures, err = meter.Int64Counter(
		"actorsystem.messages.failures",
		metric.WithDescription("Total number of messages whose processing failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failures instrument, %w", err)
	}

	if instruments.deadletters, err = meter.Int64Counter(
		"actorsystem.deadletters.count",
		metric.WithDescription("Total number of messages sent to dead letters"),
	); err != nil {
		return nil, fmt.Errorf("failed to create deadletters instrument, %w", err)
	}

	return instruments, nil
}

// ActorAdded records a registered actor.
func (x *ActorSystemMetric) ActorAdded(ctx context.Context, actorType string) {
	opts := metric.WithAttributes(x.system, attribute.String("actor.type", actorType))
	x.live.Add(ctx, 1, opts)
	x.spawned.Add(ctx, 1, opts)
}

// ActorRemoved records a removed actor.
func (x *ActorSystemMetric) ActorRemoved(ctx context.Context, actorType string) {
	x.live.Add(ctx, -1, metric.WithAttributes(x.system, attribute.String("actor.type", actorType)))
}

// ActorFailed records an actor entering the FAILED state.
func (x *ActorSystemMetric) ActorFailed(ctx context.Context, actorType string) {
	x.failed.Add(ctx, 1, metric.WithAttributes(x.system, attribute.String("actor.type", actorType)))
}

// ActorRestarted records a restart.
func (x *ActorSystemMetric) ActorRestarted(ctx context.Context, actorType string) {
	x.restarts.Add(ctx, 1, metric.WithAttributes(x.system, attribute.String("actor.type", actorType)))
}

// MessageProcessed records the outcome of a delivered message.
func (x *ActorSystemMetric) MessageProcessed(ctx context.Context, actorType string, failed bool) {
	opts := metric.WithAttributes(x.system, attribute.String("actor.type", actorType))
	x.processed.Add(ctx, 1, opts)
	if failed {
		x.failures.Add(ctx, 1, opts)
	}
}

// DeadLetter records a dead letter.
func (x *ActorSystemMetric) DeadLetter(ctx context.Context, reason string) {
	x.deadletters.Add(ctx, 1, metric.WithAttributes(x.system, attribute.String("reason", reason)))
}
