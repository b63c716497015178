package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/poller"
	"github.com/cuemby/rancher-deploy/pkg/types"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for a resource to reach a state",
	Long: `Poll a single Rancher resource until its state matches the desired one.

The number of checks and the pause between them come from the retry and
timeout inputs, exactly as for the waits of a deployment.

Examples:
  # Wait for a service to become active
  rancher-deploy wait --type services --id 1s1 --state active

  # Wait for a pull task
  rancher-deploy wait --type pulltasks --id 1pt4 --state active --retry 20`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func init() {
	waitCmd.Flags().String("type", types.CollectionServices, "Resource collection (services, pulltasks, stacks, ...)")
	waitCmd.Flags().String("id", "", "Resource id (required)")
	waitCmd.Flags().String("state", types.StateActive, "Desired state")
	_ = waitCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	in, err := loadInputs(cmd, connectionInputs)
	if err != nil {
		return err
	}
	defer pushMetrics(in.PushgatewayURL)

	conn, err := in.Connection()
	if err != nil {
		return err
	}

	collection, _ := cmd.Flags().GetString("type")
	id, _ := cmd.Flags().GetString("id")
	state, _ := cmd.Flags().GetString("state")
	target := poller.Target{Collection: collection, ID: id, State: state}

	c := newClient(*conn)
	if err := poller.New(c, in.RetryBudget(), in.PollInterval()).AwaitState(cmd.Context(), target); err != nil {
		return err
	}

	log.Logger.Info().Str("resource", target.String()).Msgf("Resource is %s", state)
	return nil
}
