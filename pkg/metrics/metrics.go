// Package metrics exposes Prometheus counters for the view policy layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "viewscope"

	// Fork kinds.
	KindWebsite = "website"
	KindTheme   = "theme"
	KindPage    = "page"
	KindMenu    = "menu"

	// Diversion reasons.
	DivertThemeFork   = "theme_fork"
	DivertWebsiteFork = "website_fork"
	DivertSameCall    = "same_call"

	// Copy-on-unlink actions.
	COURenamed = "renamed"
	COUForked  = "forked"
)

// Metrics holds the collectors of one Views instance.
type Metrics struct {
	// forks counts records created by specialization.
	// Labels: kind (website, theme, page, menu)
	forks *prometheus.CounterVec

	// diversions counts writes redirected to an existing fork.
	// Labels: reason (theme_fork, website_fork, same_call)
	diversions *prometheus.CounterVec

	// couCopies counts copies kept for other websites on delete.
	// Labels: action (renamed, forked)
	couCopies *prometheus.CounterVec

	// cacheLookups counts key cache lookups.
	// Labels: result (hit, miss)
	cacheLookups *prometheus.CounterVec

	// notFound counts keys that resolved to nothing.
	notFound prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		forks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cow",
			Name:      "forks_total",
			Help:      "Records created by copy-on-write specialization",
		}, []string{"kind"}),
		diversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cow",
			Name:      "diversions_total",
			Help:      "Writes redirected to an existing fork",
		}, []string{"reason"}),
		couCopies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cou",
			Name:      "copies_total",
			Help:      "Website copies kept when a generic template is deleted",
		}, []string{"action"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Key cache lookups by result",
		}, []string{"result"}),
		notFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "not_found_total",
			Help:      "Keys that resolved to no template",
		}),
	}
}

func (m *Metrics) Fork(kind string) {
	m.forks.WithLabelValues(kind).Inc()
}

func (m *Metrics) Diversion(reason string) {
	m.diversions.WithLabelValues(reason).Inc()
}

func (m *Metrics) COUCopy(action string) {
	m.couCopies.WithLabelValues(action).Inc()
}

// CacheLookup matches the cache observer signature.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) NotFound() {
	m.notFound.Inc()
}
