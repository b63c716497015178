package deploy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/metrics"
	"github.com/cuemby/rancher-deploy/pkg/poller"
	"github.com/cuemby/rancher-deploy/pkg/types"
)

// Step names used in logs and the step duration histogram
const (
	StepResolveStack   = "resolve_stack"
	StepResolveService = "resolve_service"
	StepPullImage      = "pull_image"
	StepUpgrade        = "upgrade"
	StepFinishUpgrade  = "finish_upgrade"
)

// API is the subset of the Rancher API a deployment uses
type API interface {
	poller.Fetcher
	FindStacks(ctx context.Context, name string) (*types.Collection[types.Stack], error)
	FindServices(ctx context.Context, name, stackID string) (*types.Collection[types.Service], error)
	CreatePullTask(ctx context.Context, req *types.PullTaskRequest) (*types.PullTask, error)
	UpgradeService(ctx context.Context, serviceID string, req *types.UpgradeRequest) (*types.Service, error)
	FinishUpgrade(ctx context.Context, serviceID string) (*types.Service, error)
}

// NotFoundError is returned when a stack or service name matches nothing
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find %s name. Check the %s_name input. Deploy failed!", e.Kind, e.Kind)
}

// Request describes a single service upgrade
type Request struct {
	StackName   string
	ServiceName string
	Image       string
	Pull        bool
}

// Result summarizes a completed deployment
type Result struct {
	StackID       string
	ServiceID     string
	PreviousImage string
	Image         string
	Pulled        bool
}

// Deployer upgrades Rancher services in place
type Deployer struct {
	api    API
	poller *poller.Poller
	logger zerolog.Logger
}

// NewDeployer creates a new deployer
func NewDeployer(api API, p *poller.Poller) *Deployer {
	return &Deployer{
		api:    api,
		poller: p,
		logger: log.WithComponent("deploy"),
	}
}

// Deploy resolves the service, optionally pre-pulls the image, upgrades the
// service and finishes the upgrade. Any failure aborts the remaining steps
// and leaves the service in whatever state it reached.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	var stack types.Stack
	if err := d.step(StepResolveStack, func() (err error) {
		stack, err = d.resolveStack(ctx, req.StackName)
		return err
	}); err != nil {
		return nil, err
	}

	var service types.Service
	if err := d.step(StepResolveService, func() (err error) {
		service, err = d.resolveService(ctx, req.ServiceName, stack.ID)
		return err
	}); err != nil {
		return nil, err
	}
	if service.LaunchConfig == nil {
		return nil, fmt.Errorf("service %s has no launch configuration", service.ID)
	}

	result := &Result{
		StackID:       stack.ID,
		ServiceID:     service.ID,
		PreviousImage: types.ImageFromUUID(service.LaunchConfig.ImageUUID),
		Image:         req.Image,
	}

	logger := d.logger.With().Str("service_id", service.ID).Str("stack_id", stack.ID).Logger()
	logger.Info().
		Str("current_image", result.PreviousImage).
		Str("new_image", req.Image).
		Bool("pull", req.Pull).
		Msgf("Starting upgrade of service %s", req.ServiceName)

	if req.Pull {
		if err := d.step(StepPullImage, func() error {
			return d.pullImage(ctx, logger, req.Image)
		}); err != nil {
			return nil, err
		}
		result.Pulled = true
	}

	if err := d.step(StepUpgrade, func() error {
		return d.upgrade(ctx, logger, &service, req.Image)
	}); err != nil {
		return nil, err
	}

	if err := d.step(StepFinishUpgrade, func() error {
		return d.finishUpgrade(ctx, logger, service.ID)
	}); err != nil {
		return nil, err
	}

	logger.Info().Msg("Service is running, upgrade successful")
	return result, nil
}

func (d *Deployer) resolveStack(ctx context.Context, name string) (types.Stack, error) {
	stacks, err := d.api.FindStacks(ctx, name)
	if err != nil {
		return types.Stack{}, fmt.Errorf("failed to find stack: %w", err)
	}

	stack, ok := stacks.First()
	if !ok {
		return types.Stack{}, &NotFoundError{Kind: "stack", Name: name}
	}
	if len(stacks.Data) > 1 {
		d.logger.Warn().Int("matches", len(stacks.Data)).Msgf("Stack name %s is ambiguous, using %s", name, stack.ID)
	}
	return stack, nil
}

func (d *Deployer) resolveService(ctx context.Context, name, stackID string) (types.Service, error) {
	services, err := d.api.FindServices(ctx, name, stackID)
	if err != nil {
		return types.Service{}, fmt.Errorf("failed to find service: %w", err)
	}

	service, ok := services.First()
	if !ok {
		return types.Service{}, &NotFoundError{Kind: "service", Name: name}
	}
	if len(services.Data) > 1 {
		d.logger.Warn().Int("matches", len(services.Data)).Msgf("Service name %s is ambiguous, using %s", name, service.ID)
	}
	return service, nil
}

func (d *Deployer) pullImage(ctx context.Context, logger zerolog.Logger, image string) error {
	logger.Info().Str("image", image).Msg("Start pull image ...")

	task, err := d.api.CreatePullTask(ctx, &types.PullTaskRequest{Image: image, Mode: types.PullModeAll})
	if err != nil {
		return fmt.Errorf("failed to create pull task: %w", err)
	}
	if task.ID == "" {
		return fmt.Errorf("pull task for %s was created without an id", image)
	}

	logger.Info().Str("pull_task_id", task.ID).Msg("Waiting for pull image ...")
	return d.poller.AwaitState(ctx, poller.Target{
		Collection: types.CollectionPullTasks,
		ID:         task.ID,
		State:      types.StateActive,
	})
}

func (d *Deployer) upgrade(ctx context.Context, logger zerolog.Logger, service *types.Service, image string) error {
	service.LaunchConfig.ImageUUID = types.ImageUUID(image)

	req := &types.UpgradeRequest{
		InServiceStrategy: types.InServiceStrategy{LaunchConfig: service.LaunchConfig},
	}
	if _, err := d.api.UpgradeService(ctx, service.ID, req); err != nil {
		return fmt.Errorf("failed to upgrade service: %w", err)
	}

	logger.Info().Msg("Waiting for upgrade ...")
	return d.poller.AwaitState(ctx, poller.Target{
		Collection: types.CollectionServices,
		ID:         service.ID,
		State:      types.StateUpgraded,
	})
}

func (d *Deployer) finishUpgrade(ctx context.Context, logger zerolog.Logger, serviceID string) error {
	if _, err := d.api.FinishUpgrade(ctx, serviceID); err != nil {
		return fmt.Errorf("failed to finish upgrade: %w", err)
	}

	logger.Info().Msg("Waiting for service starting ...")
	return d.poller.AwaitState(ctx, poller.Target{
		Collection: types.CollectionServices,
		ID:         serviceID,
		State:      types.StateActive,
	})
}

func (d *Deployer) step(name string, fn func() error) error {
	timer := metrics.NewTimer()
	err := fn()
	timer.ObserveDurationVec(metrics.StepDuration, name)

	if err != nil {
		d.logger.Debug().Err(err).Str("step", name).Dur("duration", timer.Duration()).Msg("Step failed")
		return err
	}
	d.logger.Debug().Str("step", name).Dur("duration", timer.Duration()).Msg("Step complete")
	return nil
}
