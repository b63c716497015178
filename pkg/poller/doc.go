/*
Package poller waits for Rancher resources to reach a state.

A Target names a collection, a resource id and the desired state. The same
Poller serves pull tasks and services alike, since both are fetched from
/<collection>/<id> and expose a state field.

# Semantics

AwaitState fetches the resource and compares its state to the desired one
(exact, case-sensitive match):

  - a match returns nil immediately, no further fetch or sleep
  - a mismatch consumes one attempt and sleeps for the interval, unless the
    budget is now exhausted
  - an exhausted budget returns *TimeoutError
  - a budget of zero returns *TimeoutError without fetching at all
  - a fetch error is returned as is; only state mismatches are retried

So a resource matching on attempt k of N costs k fetches and k-1 sleeps,
and a resource that never matches costs N fetches and N-1 sleeps. The
effective ceiling of a wait is roughly attempts × interval.

Every attempt is logged at info level with the observed state, and counted
in metrics.PollAttemptsTotal.
*/
package poller
