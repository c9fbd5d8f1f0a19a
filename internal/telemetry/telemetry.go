// Package telemetry holds the OpenTelemetry instruments recorded by a worker.
package telemetry

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/signalnine/autotune/internal/errs"
)

// ScopeName is the instrumentation scope of every autotune instrument.
const ScopeName = "github.com/signalnine/autotune"

// Instrument names.
const (
	EvaluationsName    = "autotune.evaluations"
	EvalSecondsName    = "autotune.evaluation.duration"
	DuplicatesName     = "autotune.duplicates"
	ConfigurationsName = "autotune.configurations"
	CircuitBreaksName  = "autotune.circuit_breaks"
)

// Evaluation outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomePenalized = "penalized"
	OutcomeTimeout   = "timeout"
	OutcomeMemOut    = "memout"
)

// Metrics records worker activity.
type Metrics struct {
	evaluations    metric.Int64Counter
	evalSeconds    metric.Float64Histogram
	duplicates     metric.Int64Counter
	configurations metric.Int64Counter
	circuitBreaks  metric.Int64Counter
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error
	if m.evaluations, err = meter.Int64Counter(EvaluationsName,
		metric.WithDescription("Partition evaluations by outcome"),
		metric.WithUnit("1")); err != nil {
		return nil, errs.Wrap(err, "creating evaluations counter")
	}
	if m.evalSeconds, err = meter.Float64Histogram(EvalSecondsName,
		metric.WithDescription("Wall time charged per partition evaluation"),
		metric.WithUnit("s")); err != nil {
		return nil, errs.Wrap(err, "creating evaluation duration histogram")
	}
	if m.duplicates, err = meter.Int64Counter(DuplicatesName,
		metric.WithDescription("Sampled configurations skipped because they were already claimed"),
		metric.WithUnit("1")); err != nil {
		return nil, errs.Wrap(err, "creating duplicates counter")
	}
	if m.configurations, err = meter.Int64Counter(ConfigurationsName,
		metric.WithDescription("Configurations persisted"),
		metric.WithUnit("1")); err != nil {
		return nil, errs.Wrap(err, "creating configurations counter")
	}
	if m.circuitBreaks, err = meter.Int64Counter(CircuitBreaksName,
		metric.WithDescription("Configurations abandoned after repeated failures"),
		metric.WithUnit("1")); err != nil {
		return nil, errs.Wrap(err, "creating circuit break counter")
	}
	return &m, nil
}

// Global creates the instruments on the global meter provider.
func Global() (*Metrics, error) {
	return New(otel.Meter(ScopeName))
}

// Nop returns instruments that record nothing.
func Nop() *Metrics {
	m, _ := New(noop.NewMeterProvider().Meter(ScopeName))
	return m
}

func (m *Metrics) Evaluation(ctx context.Context, outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.evaluations.Add(ctx, 1, attrs)
	m.evalSeconds.Record(ctx, seconds, attrs)
}

func (m *Metrics) Duplicate(ctx context.Context) {
	m.duplicates.Add(ctx, 1)
}

func (m *Metrics) Configuration(ctx context.Context, complete bool) {
	m.configurations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("complete", complete)))
}

func (m *Metrics) CircuitBreak(ctx context.Context) {
	m.circuitBreaks.Add(ctx, 1)
}

// Collector is an in-process meter provider whose totals can be read back,
// used to print a summary when a worker exits.
type Collector struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewCollector returns a collector and the instruments bound to it.
func NewCollector() (*Collector, *Metrics, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(provider.Meter(ScopeName))
	if err != nil {
		return nil, nil, err
	}
	return &Collector{provider: provider, reader: reader}, m, nil
}

// Totals sums every counter and histogram count. Keys are the instrument
// name, suffixed with "{key=value,...}" when the data point has attributes.
func (c *Collector) Totals(ctx context.Context) (map[string]float64, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, errs.Wrap(err, "collecting metrics")
	}
	out := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[key(md.Name, dp.Attributes)] += float64(dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out[key(md.Name, dp.Attributes)+".sum"] += dp.Sum
					out[key(md.Name, dp.Attributes)+".count"] += float64(dp.Count)
				}
			}
		}
	}
	return out, nil
}

// Shutdown releases the provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func key(name string, set attribute.Set) string {
	if set.Len() == 0 {
		return name
	}
	kvs := set.ToSlice()
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	s := name + "{"
	for i, kv := range kvs {
		if i > 0 {
			s += ","
		}
		s += string(kv.Key) + "=" + kv.Value.Emit()
	}
	return s + "}"
}
