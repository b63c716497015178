package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups pushed metrics on the Pushgateway
const JobName = "rancher_deploy"

var (
	// Poller metrics
	PollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rancher_deploy_poll_attempts_total",
			Help: "Total number of state fetches by resource collection and desired state",
		},
		[]string{"collection", "state"},
	)

	PollTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rancher_deploy_poll_timeouts_total",
			Help: "Total number of waits that exhausted their attempt budget",
		},
		[]string{"collection", "state"},
	)

	// Deployment metrics
	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rancher_deploy_step_duration_seconds",
			Help:    "Duration of each deployment step in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rancher_deploy_runs_total",
			Help: "Total number of deployment runs by outcome",
		},
		[]string{"outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rancher_deploy_api_requests_total",
			Help: "Total number of Rancher API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rancher_deploy_api_request_duration_seconds",
			Help:    "Rancher API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Outcome labels for RunsTotal
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

func init() {
	prometheus.MustRegister(PollAttemptsTotal)
	prometheus.MustRegister(PollTimeoutsTotal)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Push sends the collected metrics of a run to a Pushgateway
func Push(url, runID string) error {
	pusher := push.New(url, JobName).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID)

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
