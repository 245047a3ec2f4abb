package reporter

import (
	"math"
	"net/http"

	"csb/client/stats"
	"csb/client/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusLogger exposes snapshots as Prometheus metrics. Period snapshots feed the
// counters; the final snapshot only refreshes the gauges so nothing is counted twice.
type PrometheusLogger struct {
	registry *prometheus.Registry

	transactions *prometheus.CounterVec
	exceptions   *prometheus.CounterVec
	buckets      *prometheus.CounterVec
	tps          *prometheus.GaugeVec
	latency      *prometheus.GaugeVec
	footprint    *prometheus.GaugeVec
	processRSS   prometheus.Gauge
}

func NewPrometheusLogger() *PrometheusLogger {
	labels := []string{"store", "category"}
	p := &PrometheusLogger{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvload",
			Name:      "transactions_total",
			Help:      "Completed store operations.",
		}, labels),
		exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvload",
			Name:      "exceptions_total",
			Help:      "Store operations that failed with a transient or timeout fault.",
		}, labels),
		buckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvload",
			Name:      "latency_bucket_total",
			Help:      "Operations per latency bucket.",
		}, append(labels, "bucket")),
		tps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvload",
			Name:      "transactions_per_second",
			Help:      "Throughput of the last snapshot.",
		}, labels),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvload",
			Name:      "latency_microseconds",
			Help:      "Latency of the last snapshot.",
		}, append(labels, "stat")),
		footprint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvload",
			Name:      "store_footprint_bytes",
			Help:      "Store memory and disk usage.",
		}, []string{"store", "kind"}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvload",
			Name:      "process_rss_bytes",
			Help:      "Resident set size of the load generator.",
		}),
	}
	p.registry.MustRegister(p.transactions, p.exceptions, p.buckets, p.tps, p.latency, p.footprint, p.processRSS)
	return p
}

// Registry returns the registry holding the metrics
func (p *PrometheusLogger) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the metrics
func (p *PrometheusLogger) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusLogger) LogMainHeader(_ []string, _ []string) {}

func (p *PrometheusLogger) Log(node *stats.Node) {
	final := node.Finalised()
	labels := stats.Labels()
	node.Each(func(cat stats.Category, name string, s *stats.Stats) {
		c := cat.String()
		if !final {
			p.transactions.WithLabelValues(name, c).Add(float64(s.TxnCount()))
			p.exceptions.WithLabelValues(name, c).Add(float64(s.Exceptions()))
			for i, count := range s.Histogram().Counts() {
				p.buckets.WithLabelValues(name, c, labels[i]).Add(float64(count))
			}
		}
		p.tps.WithLabelValues(name, c).Set(s.TPS())
		setIfDefined(p.latency.WithLabelValues(name, c, "avg"), s.Average())
		setIfDefined(p.latency.WithLabelValues(name, c, "min"), s.Min())
		setIfDefined(p.latency.WithLabelValues(name, c, "max"), s.Max())
	})
}

func (p *PrometheusLogger) LogFootprint(name string, fp store.Footprint, processRSS int64) {
	for kind, v := range map[string]int64{"heap": fp.Heap, "offheap": fp.OffHeap, "disk": fp.Disk} {
		if v != store.Unsupported {
			p.footprint.WithLabelValues(name, kind).Set(float64(v))
		}
	}
	if processRSS != store.Unsupported {
		p.processRSS.Set(float64(processRSS))
	}
}

func setIfDefined(g prometheus.Gauge, v float64) {
	if !math.IsNaN(v) {
		g.Set(v)
	}
}
