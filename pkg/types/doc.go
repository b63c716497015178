// Package types defines the Rancher v2-beta API resources used by a deployment.
package types
