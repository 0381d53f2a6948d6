package orchestrator

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/crewd/internal/orchestrator"

var (
	metricsOnce sync.Once

	tickCounter        metric.Int64Counter
	dispatchCounter    metric.Int64Counter
	dispatchDuration   metric.Float64Histogram
	terminationCounter metric.Int64Counter
)

// initMetrics initializes OpenTelemetry metrics for the control loop.
// Called once on first engine construction.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	tickCounter, err = meter.Int64Counter(
		"crewd.orchestrator.ticks",
		metric.WithDescription("Total number of control loop ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create tick counter: %v", err))
	}

	dispatchCounter, err = meter.Int64Counter(
		"crewd.orchestrator.dispatches",
		metric.WithDescription("Total number of worker dispatches"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create dispatch counter: %v", err))
	}

	dispatchDuration, err = meter.Float64Histogram(
		"crewd.orchestrator.dispatch.duration",
		metric.WithDescription("Duration of worker invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create dispatch duration histogram: %v", err))
	}

	terminationCounter, err = meter.Int64Counter(
		"crewd.orchestrator.terminations",
		metric.WithDescription("Total number of session terminations"),
		metric.WithUnit("{termination}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create termination counter: %v", err))
	}
}
