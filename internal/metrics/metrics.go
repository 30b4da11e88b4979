package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "gcm"

// Recorder holds the metrics of a single mirror run. A nil *Recorder records nothing.
//
// Available metrics are...
//   - gcm_groups_visited_total - (tags: host)
//   - gcm_projects_discovered_total - (tags: host)
//   - gcm_projects_excluded_total - (tags: host)
//   - gcm_clone_total - (tags: host,result) result is cloned|skipped|failed
//   - gcm_clone_duration_seconds - (tags: host) wall time of clone processes
//   - gcm_listing_errors_total - (tags: host)
//   - gcm_last_run_timestamp_seconds - end of the last run
type Recorder struct {
	registry         *prometheus.Registry
	groupsVisited    *prometheus.CounterVec
	projectsSeen     *prometheus.CounterVec
	projectsExcluded *prometheus.CounterVec
	cloneCount       *prometheus.CounterVec
	cloneLatency     *prometheus.HistogramVec
	listingErrors    *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		groupsVisited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "groups_visited_total",
			Help:      "Groups whose projects and subgroups were listed",
		}, []string{"host"}),
		projectsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "projects_discovered_total",
			Help:      "Projects returned by the listing API",
		}, []string{"host"}),
		projectsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "projects_excluded_total",
			Help:      "Projects skipped by the exclusion rule",
		}, []string{"host"}),
		cloneCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clone_total",
			Help:      "Clone tasks by result",
		}, []string{"host", "result"}),
		cloneLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "clone_duration_seconds",
			Help:      "Duration of clone processes",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 120, 300, 600, 1800},
		}, []string{"host"}),
		listingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "listing_errors_total",
			Help:      "Listing failures that aborted a group branch",
		}, []string{"host"}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}
	r.registry.MustRegister(
		r.groupsVisited,
		r.projectsSeen,
		r.projectsExcluded,
		r.cloneCount,
		r.cloneLatency,
		r.listingErrors,
		r.lastRunTimestamp,
	)
	return r
}

// ForHost scopes the recorder to one GitLab host label.
func (r *Recorder) ForHost(host string) *HostRecorder {
	return &HostRecorder{recorder: r, host: host}
}

func (r *Recorder) MarkRunFinished(at time.Time) {
	if r == nil {
		return
	}
	r.lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format, e.g. for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

type HostRecorder struct {
	recorder *Recorder
	host     string
}

func (h *HostRecorder) enabled() bool {
	return h != nil && h.recorder != nil
}

func (h *HostRecorder) GroupVisited() {
	if !h.enabled() {
		return
	}
	h.recorder.groupsVisited.WithLabelValues(h.host).Inc()
}

func (h *HostRecorder) ProjectDiscovered() {
	if !h.enabled() {
		return
	}
	h.recorder.projectsSeen.WithLabelValues(h.host).Inc()
}

func (h *HostRecorder) ProjectExcluded() {
	if !h.enabled() {
		return
	}
	h.recorder.projectsExcluded.WithLabelValues(h.host).Inc()
}

func (h *HostRecorder) ListingFailed() {
	if !h.enabled() {
		return
	}
	h.recorder.listingErrors.WithLabelValues(h.host).Inc()
}

// CloneFinished records a clone task result; duration is only observed for spawned processes.
func (h *HostRecorder) CloneFinished(result string, duration time.Duration) {
	if !h.enabled() {
		return
	}
	h.recorder.cloneCount.With(prometheus.Labels{
		"host":   h.host,
		"result": result,
	}).Inc()
	if duration > 0 {
		h.recorder.cloneLatency.WithLabelValues(h.host).Observe(duration.Seconds())
	}
}
