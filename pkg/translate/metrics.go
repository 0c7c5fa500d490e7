package translate

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess     = "success"
	statusNoDebugInfo = "no_debug_info"
	statusSkipped     = "skipped"
	statusFailed      = "failed"
)

type metrics struct {
	methodsTranslated   *prometheus.CounterVec
	diagnostics         *prometheus.CounterVec
	attributesEmitted   *prometheus.CounterVec
	decodeCacheHits     prometheus.Counter
	translationDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		methodsTranslated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexdebug",
			Name:      "methods_translated_total",
			Help:      "Number of methods whose debug info was translated, by outcome.",
		}, []string{"status"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexdebug",
			Name:      "diagnostics_total",
			Help:      "Number of advisory diagnostics reported while building debug tables.",
		}, []string{"kind"}),
		attributesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexdebug",
			Name:      "attributes_emitted_total",
			Help:      "Number of debug attributes written, by attribute name.",
		}, []string{"attribute"}),
		decodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dexdebug",
			Name:      "decode_cache_hits_total",
			Help:      "Number of debug_info_item decodes served from the cache.",
		}),
		translationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dexdebug",
			Name:      "method_translation_duration_seconds",
			Help:      "Time spent decoding and replaying the debug info of a method.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.methodsTranslated,
			m.diagnostics,
			m.attributesEmitted,
			m.decodeCacheHits,
			m.translationDuration,
		)
	}
	return m
}
