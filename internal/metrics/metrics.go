// Package metrics records what a run did as Prometheus gauges and pushes
// them to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"pears-cleaning/internal/engine"
)

const namespace = "pears"

// Recorder holds one run's metrics in its own registry.
type Recorder struct {
	registry      *prometheus.Registry
	corrections   *prometheus.GaugeVec
	ruleHits      *prometheus.GaugeVec
	moduleErrors  *prometheus.GaugeVec
	notifications *prometheus.GaugeVec
	duration      *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		corrections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corrections",
			Help:      "Corrections rows produced per module.",
		}, []string{"kind", "module"}),
		ruleHits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rule_hits",
			Help:      "Entries flagged per rule.",
		}, []string{"kind", "module", "update"}),
		moduleErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_errors",
			Help:      "Modules that failed to evaluate.",
		}, []string{"kind", "module"}),
		notifications: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications",
			Help:      "Notifications by delivery outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}, []string{"kind"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}, []string{"kind"}),
	}
	r.registry.MustRegister(r.corrections, r.ruleHits, r.moduleErrors, r.notifications, r.duration, r.lastSuccess)
	return r
}

// ObserveModule records a module's corrections count and per rule hits.
// The summary Total row is skipped since it repeats the row count.
func (r *Recorder) ObserveModule(kind string, res *engine.Result) {
	r.corrections.WithLabelValues(kind, res.Module).Set(float64(len(res.Rows)))
	for _, s := range res.Summary {
		if s.Update == engine.TotalUpdate {
			continue
		}
		r.ruleHits.WithLabelValues(kind, s.Module, s.Update).Set(float64(s.Entries))
	}
}

// ModuleFailed marks a module that produced no result.
func (r *Recorder) ModuleFailed(kind, module string) {
	r.moduleErrors.WithLabelValues(kind, module).Set(1)
}

// ObserveDeliveries records the notification outcomes.
func (r *Recorder) ObserveDeliveries(kind string, sent, failed int) {
	r.notifications.WithLabelValues(kind, "sent").Set(float64(sent))
	r.notifications.WithLabelValues(kind, "failed").Set(float64(failed))
}

// ObserveRun records the run duration, and the finish time when it
// succeeded.
func (r *Recorder) ObserveRun(kind string, d time.Duration, succeeded bool, finished time.Time) {
	r.duration.WithLabelValues(kind).Set(d.Seconds())
	if succeeded {
		r.lastSuccess.WithLabelValues(kind).Set(float64(finished.Unix()))
	}
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// Push sends the run metrics to the Pushgateway at url, replacing the
// job's previous group. An empty url disables pushing.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
