// Package telemetry exposes prometheus counters for the scheduler and the
// moderation workflow, plus the /metrics HTTP handler.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsScheduled  = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_jobs_scheduled_total", Help: "Jobs accepted by the scheduler"})
	JobsConflicted = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_jobs_conflicted_total", Help: "Schedule calls rejected because the job id already existed"})
	JobsFired      = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_jobs_fired_total", Help: "Jobs whose timer matured and whose handler ran"})
	JobsCancelled  = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_jobs_cancelled_total", Help: "Jobs cancelled before firing"})
	JobsPending    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "gatekeep_jobs_pending", Help: "Jobs currently armed in the scheduler"})

	MembersChallenged = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_members_challenged_total", Help: "New members restricted and challenged"})
	MembersVerified   = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_members_verified_total", Help: "Members who confirmed in time"})
	MembersDeparted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_members_departed_total", Help: "Members who left before verifying"})
	MembersRemoved    = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_members_removed_total", Help: "Members removed by the kick job"})

	WebhookUpdates = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_webhook_updates_total", Help: "Webhook payloads accepted by the dispatcher"})
	WebhookErrors  = prometheus.NewCounter(prometheus.CounterOpts{Name: "gatekeep_webhook_errors_total", Help: "Webhook payloads whose handler failed"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsScheduled,
			JobsConflicted,
			JobsFired,
			JobsCancelled,
			JobsPending,
			MembersChallenged,
			MembersVerified,
			MembersDeparted,
			MembersRemoved,
			WebhookUpdates,
			WebhookErrors,
		)
	})
	return promhttp.Handler()
}
