// Package metrics exports benchmark trial counters and timing histograms in
// the Prometheus text format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weiihann/cipherbench/harness"
)

const namespace = "cipherbench"

// Trial outcomes used as the status label.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// timingBuckets spans 1µs to roughly 4s.
var timingBuckets = prometheus.ExponentialBuckets(1e-6, 4, 12)

// Collector records trial outcomes on a private registry. It implements
// harness.Observer.
type Collector struct {
	registry *prometheus.Registry

	trials         *prometheus.CounterVec
	encryptSeconds *prometheus.HistogramVec
	decryptSeconds *prometheus.HistogramVec
	ciphertextSize *prometheus.HistogramVec
}

var _ harness.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		// Labels: algorithm, status (ok, failed)
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Benchmark trials by algorithm and outcome",
		}, []string{"algorithm", "status"}),

		encryptSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encryption_seconds",
			Help:      "Encryption time per successful trial",
			Buckets:   timingBuckets,
		}, []string{"algorithm"}),

		decryptSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decryption_seconds",
			Help:      "Decryption time per successful trial",
			Buckets:   timingBuckets,
		}, []string{"algorithm"}),

		ciphertextSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ciphertext_bytes",
			Help:      "Reported ciphertext size per successful trial",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 12),
		}, []string{"algorithm"}),
	}
}

// ObserveRecord counts a successful trial and its timings.
func (c *Collector) ObserveRecord(r harness.Record) {
	c.trials.WithLabelValues(r.Algorithm, StatusOK).Inc()
	c.encryptSeconds.WithLabelValues(r.Algorithm).Observe(r.EncryptionTime)
	c.decryptSeconds.WithLabelValues(r.Algorithm).Observe(r.DecryptionTime)
	c.ciphertextSize.WithLabelValues(r.Algorithm).Observe(float64(r.CiphertextSize))
}

// ObserveFailure counts a dropped trial.
func (c *Collector) ObserveFailure(f harness.TrialFailure) {
	c.trials.WithLabelValues(f.Algorithm, StatusFailed).Inc()
}

// Registry exposes the underlying registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all collected metrics to path in the text format
// read by the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
