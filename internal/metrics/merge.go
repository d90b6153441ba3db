// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_merges_total",
		Help: "Merge requests by result",
	}, []string{"result"}) // result=success|validation|probe|render|merge|timeout|internal

	mergeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vmerge_merge_duration_seconds",
		Help:    "Wall-clock time of a merge request from validation to finished output",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
	}, []string{"result"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vmerge_stage_duration_seconds",
		Help:    "Duration of individual merge stages",
		Buckets: prometheus.ExponentialBuckets(0.01, 3, 12),
	}, []string{"stage"}) // stage=stage|probe|textcard|encode

	mergeItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vmerge_merge_items",
		Help:    "Number of timeline items per merge",
		Buckets: []float64{2, 3, 4, 6, 8, 12, 16, 24, 32},
	})

	textCardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_textcards_total",
		Help: "Text cards rendered by face kind",
	}, []string{"face"}) // face=scalable|bitmap

	validationRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_validation_rejects_total",
		Help: "Requests rejected before staging, by reason",
	}, []string{"reason"})

	outputsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vmerge_outputs_swept_total",
		Help: "Stale merged outputs removed by the sweeper",
	})
)

// ObserveMerge records the outcome of one merge request.
func ObserveMerge(result string, d time.Duration) {
	if result == "" {
		result = "unknown"
	}
	mergesTotal.WithLabelValues(result).Inc()
	mergeDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveItems records the timeline length of a merge.
func ObserveItems(n int) {
	mergeItems.Observe(float64(n))
}

// IncTextCard records a rendered text card.
func IncTextCard(scalable bool) {
	face := "bitmap"
	if scalable {
		face = "scalable"
	}
	textCardsTotal.WithLabelValues(face).Inc()
}

// IncValidationReject records a request rejected for reason.
func IncValidationReject(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	validationRejects.WithLabelValues(reason).Inc()
}

// AddOutputsSwept records removed stale outputs.
func AddOutputsSwept(n int) {
	if n > 0 {
		outputsSwept.Add(float64(n))
	}
}
