// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/logger"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/sentry"
)

const (
	// Component labels.
	ComponentSyncEngine = "sync_engine"
	ComponentOrdering   = "ordering"
	ComponentHistory    = "history"
	ComponentCascade    = "cascade"
	ComponentCRUD       = "crud"
	ComponentStore      = "store"
	ComponentPublisher  = "publisher"

	// Skip reasons for reverse edges.
	SkipTargetNotFound = "target_not_found"
	SkipExcludedType   = "excluded_type"
	SkipReferenceLeaf  = "reference_leaf"
	SkipUnchanged      = "unchanged"
	SkipNoRelations    = "no_relations"
)

var (
	namespace = "dams"
	subsystem = "relsync"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "operation"},
	)

	reverseEdges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reverse_edges_total",
			Help:      "Reverse relations written or removed on counterpart documents",
		},
		[]string{"action", "relation_type"},
	)

	reverseEdgesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reverse_edges_skipped_total",
			Help:      "Relations that did not produce a reverse edge write, by reason",
		},
		[]string{"reason"},
	)

	hookDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hook_duration_milliseconds",
			Help:      "Time taken by pre and post write hooks (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.01,
			},
		},
		[]string{"hook", "operation"},
	)

	historyEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_events_total",
			Help:      "History snapshots by outcome (published, dropped, failed)",
		},
		[]string{"outcome"},
	)

	historyQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_queue_length",
			Help:      "Snapshots waiting for the history dispatcher",
		},
	)

	cascadeDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cascade_deletes_total",
			Help:      "Documents hard-deleted as a side effect of another delete",
		},
		[]string{"kind"},
	)

	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of document store operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"driver", "operation"},
	)
)

// SetupMetricsEndpoint serves /metrics on addr in the background.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.ReportIssue(err, sentry.IssueTypeError, logger.For(logger.ComponentMetrics))
		}
	}()

	return server
}

// IncErrorCountAndLog increments the error counter and logs err at debug level.
func IncErrorCountAndLog(component, operation string, err error, log *zap.SugaredLogger) {
	IncErrorCount(component, operation)

	if log != nil {
		log.Debugf("Component %s operation %s failed: %v", component, operation, err)
	}
}

func IncErrorCount(component, operation string) {
	errorCounter.WithLabelValues(component, operation).Inc()
}

// RecordReverseEdge counts a reverse relation write; action is "added" or "removed".
func RecordReverseEdge(action, relationType string) {
	reverseEdges.WithLabelValues(action, relationType).Inc()
}

func RecordReverseEdgeSkipped(reason string) {
	reverseEdgesSkipped.WithLabelValues(reason).Inc()
}

func ObserveHookDuration(hook, operation string, duration time.Duration) {
	hookDuration.WithLabelValues(hook, operation).Observe(float64(duration.Milliseconds()))
}

func RecordHistoryEvent(outcome string) {
	historyEvents.WithLabelValues(outcome).Inc()
}

func SetHistoryQueueLength(n int) {
	historyQueueLength.Set(float64(n))
}

func RecordCascadeDelete(kind string) {
	cascadeDeletes.WithLabelValues(kind).Inc()
}

func ObserveStoreOp(driver, operation string, duration time.Duration) {
	storeOpDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
}
