package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/rancher-deploy/pkg/client"
	"github.com/cuemby/rancher-deploy/pkg/config"
	"github.com/cuemby/rancher-deploy/pkg/deploy"
	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/metrics"
	"github.com/cuemby/rancher-deploy/pkg/poller"
)

func runDeploy(cmd *cobra.Command, args []string) error {
	in, err := loadInputs(cmd, append(connectionInputs, deployInputs...))
	if err != nil {
		return err
	}
	defer pushMetrics(in.PushgatewayURL)

	cfg, err := in.Deploy()
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return err
	}

	result, err := deployService(cmd, cfg)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return err
	}
	metrics.RunsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	log.Logger.Info().
		Str("stack_id", result.StackID).
		Str("service_id", result.ServiceID).
		Str("previous_image", result.PreviousImage).
		Str("image", result.Image).
		Bool("pulled", result.Pulled).
		Msg("Deployment complete")

	reporter.Succeeded()
	return nil
}

func deployService(cmd *cobra.Command, cfg *config.Config) (*deploy.Result, error) {
	c := newClient(cfg.Connection)
	p := poller.New(c, cfg.Retry, cfg.Interval)

	log.Logger.Info().
		Str("url", client.BaseURL(cfg.RancherURL, cfg.ProjectID)).
		Str("stack", cfg.StackName).
		Str("service", cfg.ServiceName).
		Str("image", cfg.DockerImage).
		Int("retry", cfg.Retry).
		Dur("interval", cfg.Interval).
		Msg("Deploying service")

	return deploy.NewDeployer(c, p).Deploy(cmd.Context(), deploy.Request{
		StackName:   cfg.StackName,
		ServiceName: cfg.ServiceName,
		Image:       cfg.DockerImage,
		Pull:        cfg.Pull,
	})
}

func newClient(conn config.Connection) *client.Client {
	return client.New(client.Config{
		URL:       conn.RancherURL,
		AccessKey: conn.AccessKey,
		SecretKey: conn.SecretKey,
		ProjectID: conn.ProjectID,
		Timeout:   conn.RequestTimeout,
	})
}
