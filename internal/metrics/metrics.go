package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dialoguecraft/internal/flow"
)

var (
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialoguecraft_extractions_total",
		Help: "Total number of flow extractions, labelled by kind (dialogue, fragment) and status.",
	}, []string{"kind", "status"})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialoguecraft_diagnostics_total",
		Help: "Total number of non-fatal diagnostics raised while building or walking documents, labelled by code.",
	}, []string{"code"})

	FlowMessages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dialoguecraft_flow_messages",
		Help:    "Number of messages in one extracted flow.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	DocumentReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialoguecraft_document_reloads_total",
		Help: "Total number of document reloads while serving, labelled by status.",
	}, []string{"status"})

	DocumentFragments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dialoguecraft_document_fragments",
		Help: "Number of fragments in the document currently served.",
	})
)

func ObserveDiagnostics(diags []flow.Diagnostic) {
	for _, d := range diags {
		Diagnostics.WithLabelValues(d.Code).Inc()
	}
}

// ObserveDialogueFlow records a finished dialogue extraction; f is nil when
// it failed.
func ObserveDialogueFlow(f *flow.DialogueFlow) {
	if f == nil {
		Extractions.WithLabelValues("dialogue", "error").Inc()
		return
	}
	Extractions.WithLabelValues("dialogue", "ok").Inc()
	for _, segment := range f.Segments {
		FlowMessages.Observe(float64(len(segment)))
	}
	ObserveDiagnostics(f.Diagnostics)
}

func ObserveFragmentFlow(f *flow.FragmentFlow) {
	if f == nil {
		Extractions.WithLabelValues("fragment", "error").Inc()
		return
	}
	Extractions.WithLabelValues("fragment", "ok").Inc()
	FlowMessages.Observe(float64(len(f.Messages)))
	ObserveDiagnostics(f.Diagnostics)
}
