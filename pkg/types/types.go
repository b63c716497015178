package types

import "strings"

// Collection names used when addressing individual resources
const (
	CollectionStacks    = "stacks"
	CollectionServices  = "services"
	CollectionPullTasks = "pulltasks"
)

// Resource states observed during a deployment
const (
	StateActive   = "active"
	StateUpgraded = "upgraded"
)

// PullModeAll pulls the image on every host in the environment
const PullModeAll = "all"

// imageUUIDPrefix marks a launch configuration image as a docker image
const imageUUIDPrefix = "docker:"

// Collection is the envelope Rancher wraps list responses in
type Collection[T any] struct {
	Type         string `json:"type,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Data         []T    `json:"data"`
}

// First returns the first item of the collection, if any
func (c *Collection[T]) First() (T, bool) {
	var zero T
	if c == nil || len(c.Data) == 0 {
		return zero, false
	}
	return c.Data[0], true
}

// Resource holds the fields every Rancher resource carries
type Resource struct {
	ID                   string `json:"id"`
	Type                 string `json:"type,omitempty"`
	Name                 string `json:"name,omitempty"`
	State                string `json:"state"`
	Transitioning        string `json:"transitioning,omitempty"`
	TransitioningMessage string `json:"transitioningMessage,omitempty"`
}

// Stack groups services in a Rancher environment
type Stack struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	State string `json:"state,omitempty"`
}

// Service is a deployable unit inside a stack
type Service struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	StackID      string        `json:"stackId,omitempty"`
	State        string        `json:"state,omitempty"`
	LaunchConfig *LaunchConfig `json:"launchConfig,omitempty"`
}

// PullTask pre-pulls an image on the hosts of an environment
type PullTask struct {
	ID    string `json:"id"`
	Image string `json:"image,omitempty"`
	Mode  string `json:"mode,omitempty"`
	State string `json:"state,omitempty"`
}

// PullTaskRequest is the body of a pull task creation
type PullTaskRequest struct {
	Image string `json:"image"`
	Mode  string `json:"mode"`
}

// UpgradeRequest is the body of a service upgrade action
type UpgradeRequest struct {
	InServiceStrategy InServiceStrategy `json:"inServiceStrategy"`
}

// InServiceStrategy replaces the containers of a service in place
type InServiceStrategy struct {
	LaunchConfig *LaunchConfig `json:"launchConfig"`
}

// ImageUUID formats an image reference the way launch configurations store it
func ImageUUID(image string) string {
	return imageUUIDPrefix + image
}

// ImageFromUUID strips the docker prefix from a launch configuration image
func ImageFromUUID(uuid string) string {
	return strings.TrimPrefix(uuid, imageUUIDPrefix)
}
