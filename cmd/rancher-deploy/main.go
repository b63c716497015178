package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/rancher-deploy/pkg/action"
	"github.com/cuemby/rancher-deploy/pkg/config"
	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	reporter = action.New()

	// runID correlates the logs and pushed metrics of one invocation
	runID string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Errorf("Deploy failed", err)
		reporter.Failed(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rancher-deploy",
	Short: "Upgrade a Rancher service to a new image",
	Long: `rancher-deploy performs an in-place upgrade of a single service through
the Rancher v2-beta API: it resolves the stack and service by name,
optionally pre-pulls the image on every host, upgrades the service and
finishes the upgrade once the new containers are running.

Inputs are read from a YAML file (--config), from GitHub Actions input
variables (INPUT_RANCHER_URL, INPUT_STACK_NAME, ...) and from flags, with
flags taking precedence.

Examples:
  # Inside a GitHub Actions step, inputs come from the environment
  rancher-deploy

  # From a shell
  rancher-deploy --rancher-url https://rancher.example.com --project-id 1a5 \
    --rancher-access $ACCESS --rancher-key $SECRET \
    --stack-name web --service-name api --docker-image registry.example.com/api:2.0`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDeploy,
}

// connectionInputs are shared by every command
var connectionInputs = []string{
	config.InputRancherURL,
	config.InputRancherAccess,
	config.InputRancherKey,
	config.InputProjectID,
	config.InputRetry,
	config.InputTimeout,
	config.InputRequestTimeout,
	config.InputLogLevel,
	config.InputPushgatewayURL,
}

var deployInputs = []string{
	config.InputStackName,
	config.InputServiceName,
	config.InputDockerImage,
	config.InputPull,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"rancher-deploy version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML file with inputs keyed by input name")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String(flagName(config.InputRancherURL), "", "Rancher server address")
	flags.String(flagName(config.InputRancherAccess), "", "Rancher API access key")
	flags.String(flagName(config.InputRancherKey), "", "Rancher API secret key")
	flags.String(flagName(config.InputProjectID), "", "Rancher project (environment) id")
	flags.String(flagName(config.InputRetry), "", "State checks per wait (default 3)")
	flags.String(flagName(config.InputTimeout), "", "Seconds between state checks (default 5)")
	flags.String(flagName(config.InputRequestTimeout), "", "Timeout of a single API request (default 30s)")
	flags.String(flagName(config.InputLogLevel), "", "Log level: debug, info, warn, error")
	flags.String(flagName(config.InputPushgatewayURL), "", "Prometheus Pushgateway to push run metrics to")

	rootCmd.Flags().String(flagName(config.InputStackName), "", "Stack containing the service")
	rootCmd.Flags().String(flagName(config.InputServiceName), "", "Service to upgrade")
	rootCmd.Flags().String(flagName(config.InputDockerImage), "", "Image to upgrade the service to")
	rootCmd.Flags().String(flagName(config.InputPull), "", `Pre-pull the image on every host ("true" to enable)`)
}

// flagName maps an input name to its command-line flag
func flagName(input string) string {
	return strings.ReplaceAll(input, "_", "-")
}

// loadInputs merges the config file, environment and explicitly set flags
func loadInputs(cmd *cobra.Command, names []string) (*config.Inputs, error) {
	file, _ := cmd.Flags().GetString("config")

	overrides := make(map[string]string)
	for _, name := range names {
		f := cmd.Flags().Lookup(flagName(name))
		if f != nil && f.Changed {
			overrides[name] = f.Value.String()
		}
	}

	in, err := config.LoadInputs(config.LoadOptions{File: file, Overrides: overrides})
	if err != nil {
		return nil, err
	}

	jsonOutput, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.ParseLevel(in.LogLevel),
		JSONOutput: jsonOutput,
		Output:     os.Stdout,
	})

	runID = uuid.NewString()
	log.WithRunID(runID)
	reporter.Mask(in.RancherKey)

	return in, nil
}

// pushMetrics sends run metrics when a Pushgateway is configured; failures
// are logged only
func pushMetrics(url string) {
	if url == "" {
		return
	}
	if err := metrics.Push(url, runID); err != nil {
		log.Logger.Warn().Err(err).Msg("Failed to push metrics")
	}
}
