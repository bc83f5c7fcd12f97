// Package telemetry wires the tracing and profiling stack for a running
// world: an otel text map propagator, a Datadog tracer provider, and the
// Datadog continuous profiler.
package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// Manager owns the telemetry subsystems enabled for one world and tears them
// down together.
type Manager struct {
	provider     *ddotel.TracerProvider
	stopProfiler func()
}

// New installs the propagator and starts the enabled subsystems. service
// names the world in traces and profiles; dispatch spans are emitted against
// the tracer provider registered here.
func New(service string, enableTrace bool, enableProfiler bool) (*Manager, error) {
	m := &Manager{}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if enableTrace {
		m.provider = ddotel.NewTracerProvider(
			tracer.WithService(service),
			tracer.WithRuntimeMetrics(),
		)
		otel.SetTracerProvider(m.provider)
	}

	if enableProfiler {
		err := profiler.Start(
			profiler.WithService(service),
			profiler.WithProfileTypes(
				profiler.CPUProfile,
				profiler.HeapProfile,
			),
		)
		if err != nil {
			return nil, errors.Join(err, m.Shutdown())
		}
		m.stopProfiler = profiler.Stop
	}

	return m, nil
}

// Shutdown stops everything New started and joins the errors. Subsequent
// calls are no-ops.
func (m *Manager) Shutdown() error {
	var errs []error
	if m.provider != nil {
		errs = append(errs, m.provider.Shutdown())
		m.provider = nil
	}
	if m.stopProfiler != nil {
		m.stopProfiler()
		m.stopProfiler = nil
	}
	return errors.Join(errs...)
}
