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
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type recorderMeterProvider struct {
	metric.MeterProvider
	meter  metric.Meter
	called []string
}

func (r *recorderMeterProvider) Meter(name string, _ ...metric.MeterOption) metric.Meter {
	r.called = append(r.called, name)
	return r.meter
}

func TestProviderUsesGlobalProvider(t *testing.T) {
	prevProvider := otel.GetMeterProvider()
	baseProvider := noop.NewMeterProvider()
	recorder := &recorderMeterProvider{
		MeterProvider: baseProvider,
		meter:         baseProvider.Meter("base"),
	}
	otel.SetMeterProvider(recorder)
	t.Cleanup(func() { otel.SetMeterProvider(prevProvider) })

	provider := New()
	require.NotNil(t, provider.Meter())
	require.Equal(t, []string{instrumentationName}, recorder.called)
}

func TestWithMeterProvider(t *testing.T) {
	custom := &recorderMeterProvider{
		MeterProvider: noop.NewMeterProvider(),
		meter:         noop.NewMeterProvider().Meter("custom"),
	}
	provider := New(WithMeterProvider(custom), WithMeterProvider(nil))
	require.Equal(t, custom.meter, provider.Meter())
	require.Equal(t, []string{instrumentationName}, custom.called)
}

func TestInstruments(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	ctx := context.Background()

	system, err := NewActorSystemMetric(meter, "sys")
	require.NoError(t, err)
	system.ActorAdded(ctx, "Worker")
	system.ActorRemoved(ctx, "Worker")
	system.ActorFailed(ctx, "Worker")
	system.ActorRestarted(ctx, "Worker")
	system.MessageProcessed(ctx, "Worker", true)
	system.DeadLetter(ctx, "mailbox full")

	monitor, err := NewMonitorMetric(meter)
	require.NoError(t, err)
	monitor.Probe(ctx, "svc-a", false)
	monitor.ServiceDown(ctx, "svc-a")
	monitor.ServiceRecovered(ctx, "svc-a")
	monitor.Reconciled(ctx, "svc-a", 1, 1, 1)
}
