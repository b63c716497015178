/*
Package deploy implements the in-place upgrade of a Rancher service.

The deploy package drives a strictly sequential flow against the Rancher
v2-beta API. Each step depends on the previous one succeeding and every
failure aborts the run; nothing is rolled back, so a service can be left
mid-upgrade when a later step fails.

# Architecture

	┌─────────────────── IN-PLACE UPGRADE ───────────────────────┐
	│                                                             │
	│  ┌──────────────────────────────────────────────┐          │
	│  │               Deployer                        │          │
	│  │  - Resolves stack and service by name         │          │
	│  │  - Rewrites the launch configuration image    │          │
	│  │  - Waits on each transition through Poller    │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │              Upgrade Flow                     │          │
	│  │                                                │          │
	│  │  1. GET  /stacks?name=                         │          │
	│  │  2. GET  /services?name=&stackId=              │          │
	│  │  3. POST /pulltasks          (pull only)       │          │
	│  │     wait pulltasks/{id} → active               │          │
	│  │  4. POST /service/{id}?action=upgrade          │          │
	│  │     wait services/{id}  → upgraded             │          │
	│  │  5. POST /service/{id}?action=finishupgrade    │          │
	│  │     wait services/{id}  → active               │          │
	│  └──────────────────────────────────────────────┘           │
	└─────────────────────────────────────────────────────────────┘

# Core Components

Deployer:
  - Holds the API client and the Poller used for every wait
  - Records the duration of each step in metrics.StepDuration
  - Logs through a component logger tagged with stack and service ids

Request / Result:
  - Request names the stack, service and image, and whether to pre-pull
  - Result reports the resolved ids and the image before and after

NotFoundError:
  - Returned when a stack or service name matches nothing
  - The first match is used when a name is ambiguous

# Launch Configuration

The upgrade sends back the launch configuration read during resolution with
only its image replaced. Members the package does not model are carried as
raw JSON (see types.LaunchConfig), so environment, labels, ports and every
other setting survive the upgrade unchanged. The snapshot is not re-read;
changes made to the service by someone else between resolution and upgrade
are overwritten.

# Usage

	c := client.New(client.Config{
		URL:       "https://rancher.example.com",
		AccessKey: access,
		SecretKey: secret,
		ProjectID: "1a5",
	})
	p := poller.New(c, 3, 5*time.Second)

	result, err := deploy.NewDeployer(c, p).Deploy(ctx, deploy.Request{
		StackName:   "web",
		ServiceName: "api",
		Image:       "registry.example.com/api:2.0",
		Pull:        true,
	})
	if err != nil {
		var notFound *deploy.NotFoundError
		if errors.As(err, &notFound) {
			// wrong stack_name or service_name input
		}
		return err
	}

# Errors

Only state waits retry. Transport failures, missing names and exhausted
waits propagate to the caller unchanged:

  - *NotFoundError: stack or service name did not resolve
  - *client.TransportError: network failure or non-2xx response
  - *poller.TimeoutError: a wait ran out of attempts
*/
package deploy
