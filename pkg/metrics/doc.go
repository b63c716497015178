/*
Package metrics exposes Prometheus metrics for deployment runs.

Collectors are registered on the default registry at init. A run is a short
lived process, so instead of serving /metrics the CLI pushes the registry to
a Pushgateway when one is configured, grouped by run id.

# Metrics Catalog

rancher_deploy_poll_attempts_total{collection, state}:
  - Type: Counter
  - State fetches made while waiting for a resource

rancher_deploy_poll_timeouts_total{collection, state}:
  - Type: Counter
  - Waits that ran out of attempts

rancher_deploy_step_duration_seconds{step}:
  - Type: Histogram
  - Duration of resolve_stack, resolve_service, pull_image, upgrade and finish_upgrade

rancher_deploy_runs_total{outcome}:
  - Type: Counter
  - Completed runs, outcome is success or failure

rancher_deploy_api_requests_total{method, status}:
  - Type: Counter
  - Rancher API requests; status is the HTTP code, or "error" when no response arrived

rancher_deploy_api_request_duration_seconds{method}:
  - Type: Histogram

# Timer

	timer := metrics.NewTimer()
	// ... perform step ...
	timer.ObserveDurationVec(metrics.StepDuration, "upgrade")
*/
package metrics
