package flagcore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ObservabilityClient is the narrow interface the store and error
// boundary report health metrics through: sync failures, sync
// latency, ID list sizes, exception dedupe hits. Nothing in this
// package assumes a specific metrics backend.
type ObservabilityClient interface {
	IncrementCounter(name string, tags map[string]string)
	ObserveGauge(name string, value float64, tags map[string]string)
	ObserveDistribution(name string, value float64, tags map[string]string)
}

// NopObservabilityClient discards every call. It is the default when
// no ObservabilityClient is configured.
type NopObservabilityClient struct{}

func (NopObservabilityClient) IncrementCounter(string, map[string]string)          {}
func (NopObservabilityClient) ObserveGauge(string, float64, map[string]string)     {}
func (NopObservabilityClient) ObserveDistribution(string, float64, map[string]string) {}

// PrometheusObservabilityClient backs ObservabilityClient with
// counters/gauges/histograms registered against a caller-supplied
// registry, so multiple SDK instances in one process don't collide on
// metric names.
type PrometheusObservabilityClient struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusObservabilityClient builds a client registered against
// reg. Pass prometheus.NewRegistry() for isolation in tests, or
// prometheus.DefaultRegisterer's registry in production.
func NewPrometheusObservabilityClient(reg *prometheus.Registry) *PrometheusObservabilityClient {
	return &PrometheusObservabilityClient{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusObservabilityClient) counterFor(name string, tags map[string]string) prometheus.Counter {
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flagcore",
			Name:      name,
		}, tagKeys(tags))
		p.registry.MustRegister(c)
		p.counters[name] = c
	}
	p.mu.Unlock()
	return c.With(tags)
}

func (p *PrometheusObservabilityClient) gaugeFor(name string, tags map[string]string) prometheus.Gauge {
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flagcore",
			Name:      name,
		}, tagKeys(tags))
		p.registry.MustRegister(g)
		p.gauges[name] = g
	}
	p.mu.Unlock()
	return g.With(tags)
}

func (p *PrometheusObservabilityClient) histogramFor(name string, tags map[string]string) prometheus.Observer {
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flagcore",
			Name:      name,
		}, tagKeys(tags))
		p.registry.MustRegister(h)
		p.histograms[name] = h
	}
	p.mu.Unlock()
	return h.With(tags)
}

func (p *PrometheusObservabilityClient) IncrementCounter(name string, tags map[string]string) {
	p.counterFor(name, tags).Add(1)
}

func (p *PrometheusObservabilityClient) ObserveGauge(name string, value float64, tags map[string]string) {
	p.gaugeFor(name, tags).Set(value)
}

func (p *PrometheusObservabilityClient) ObserveDistribution(name string, value float64, tags map[string]string) {
	p.histogramFor(name, tags).Observe(value)
}

func tagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	return keys
}
