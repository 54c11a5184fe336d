package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/advice/internal/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentation = "github.com/viant/advice/service/advice/metrics"

// Collector starts measurements and records their durations to an
// OpenTelemetry histogram.
type Collector struct {
	histogram metric.Float64Histogram
	active    map[string]*Measurement
	mux       sync.Mutex
}

// Measurement is a live timing bracket.
type Measurement struct {
	Identifier string
	Tags       map[string]string
	Start      time.Time
	End        time.Time
	collector  *Collector
	record     *Record
}

// Start begins a measurement keyed by identifier.
func (c *Collector) Start(identifier string, tags map[string]string) *Measurement {
	ret := &Measurement{
		Identifier: identifier,
		Tags:       make(map[string]string, len(tags)),
		Start:      clock.Now(),
		collector:  c,
	}
	for k, v := range tags {
		ret.Tags[k] = v
	}
	c.mux.Lock()
	c.active[identifier] = ret
	c.mux.Unlock()
	return ret
}

// Active returns identifiers of measurements not yet stopped.
func (c *Collector) Active() []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	ret := make([]string, 0, len(c.active))
	for id := range c.active {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

// Stop ends the measurement and returns its record; repeated calls return the
// first record.
func (m *Measurement) Stop(ctx context.Context) *Record {
	if m.record != nil {
		return m.record
	}
	m.End = clock.Now()
	duration := m.End.Sub(m.Start)
	m.record = &Record{
		Identifier: m.Identifier,
		Tags:       m.Tags,
		Start:      m.Start.UTC(),
		End:        m.End.UTC(),
		Duration:   int64(duration),
	}
	if c := m.collector; c != nil {
		c.mux.Lock()
		delete(c.active, m.Identifier)
		c.mux.Unlock()
		if c.histogram != nil {
			attrs := make([]attribute.KeyValue, 0, len(m.Tags))
			for k, v := range m.Tags {
				attrs = append(attrs, attribute.String(k, v))
			}
			c.histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
		}
	}
	return m.record
}

// NewCollector creates a collector recording to meter; nil uses the global
// meter provider.
func NewCollector(meter metric.Meter) (*Collector, error) {
	if meter == nil {
		meter = otel.Meter(instrumentation)
	}
	histogram, err := meter.Float64Histogram("advice.session.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of the advice chain remainder wrapped by the metrics advice"))
	if err != nil {
		return nil, err
	}
	return &Collector{histogram: histogram, active: make(map[string]*Measurement)}, nil
}
