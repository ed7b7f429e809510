package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/hook"
	"github.com/xraph/outdial/id"
)

// Compile-time interface checks.
var (
	_ hook.Hook             = (*MetricsHook)(nil)
	_ hook.CampaignStarted  = (*MetricsHook)(nil)
	_ hook.CampaignDegraded = (*MetricsHook)(nil)
	_ hook.CampaignFinished = (*MetricsHook)(nil)
	_ hook.CallPlaced       = (*MetricsHook)(nil)
	_ hook.CallFinished     = (*MetricsHook)(nil)
	_ hook.CallRetrying     = (*MetricsHook)(nil)
)

// MetricsHook records system-wide lifecycle metrics to Prometheus.
// Register it as a hook to automatically track campaign starts and
// completions, call placement volume, per-outcome counts, retries, and
// campaign durations.
type MetricsHook struct {
	campaignsStarted  prometheus.Counter
	campaignsFinished *prometheus.CounterVec
	campaignsDegraded prometheus.Counter
	campaignDuration  prometheus.Histogram
	callsPlaced       prometheus.Counter
	callsFinished     *prometheus.CounterVec
	callRetries       prometheus.Counter
}

// NewMetricsHook creates a MetricsHook and registers its collectors with
// the given registerer. A nil registerer uses the Prometheus default.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	h := &MetricsHook{
		campaignsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "campaigns_started_total",
			Help:      "Total number of campaign executions started.",
		}),
		campaignsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "campaigns_finished_total",
			Help:      "Total number of campaign executions finished, by terminal status.",
		}, []string{"status"}),
		campaignsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "campaigns_degraded_total",
			Help:      "Total number of times an execution entered the degraded state.",
		}),
		campaignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outdial",
			Name:      "campaign_duration_seconds",
			Help:      "Wall-clock duration of finished campaign executions.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		callsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "calls_placed_total",
			Help:      "Total number of call attempts submitted to the provider.",
		}),
		callsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "calls_finished_total",
			Help:      "Total number of call attempts reaching a terminal outcome, by outcome.",
		}, []string{"outcome"}),
		callRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outdial",
			Name:      "call_retries_total",
			Help:      "Total number of call attempts scheduled for retry.",
		}),
	}

	reg.MustRegister(
		h.campaignsStarted,
		h.campaignsFinished,
		h.campaignsDegraded,
		h.campaignDuration,
		h.callsPlaced,
		h.callsFinished,
		h.callRetries,
	)
	return h
}

// Name implements hook.Hook.
func (h *MetricsHook) Name() string { return "observability-metrics" }

func (h *MetricsHook) OnCampaignStarted(_ context.Context, _ *campaign.Campaign, _ int) error {
	h.campaignsStarted.Inc()
	return nil
}

func (h *MetricsHook) OnCampaignDegraded(_ context.Context, _ id.CampaignID, _ int) error {
	h.campaignsDegraded.Inc()
	return nil
}

func (h *MetricsHook) OnCampaignFinished(_ context.Context, _ id.CampaignID, status campaign.Status, elapsed time.Duration) error {
	h.campaignsFinished.WithLabelValues(string(status)).Inc()
	h.campaignDuration.Observe(elapsed.Seconds())
	return nil
}

func (h *MetricsHook) OnCallPlaced(_ context.Context, _ *attempt.CallAttempt) error {
	h.callsPlaced.Inc()
	return nil
}

func (h *MetricsHook) OnCallFinished(_ context.Context, a *attempt.CallAttempt, _ error) error {
	h.callsFinished.WithLabelValues(string(a.Outcome)).Inc()
	return nil
}

func (h *MetricsHook) OnCallRetrying(_ context.Context, _ *attempt.CallAttempt, _ int, _ time.Time) error {
	h.callRetries.Inc()
	return nil
}
