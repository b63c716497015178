package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/distribution/reference"
	"gopkg.in/yaml.v3"
)

// InputPrefix is the prefix GitHub Actions puts in front of input variables
const InputPrefix = "INPUT_"

// Defaults applied when an input is absent or unusable
const (
	DefaultRetry          = 3
	DefaultTimeout        = 5
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
)

// Input names
const (
	InputRancherURL     = "rancher_url"
	InputRancherAccess  = "rancher_access"
	InputRancherKey     = "rancher_key"
	InputProjectID      = "project_id"
	InputStackName      = "stack_name"
	InputServiceName    = "service_name"
	InputDockerImage    = "docker_image"
	InputPull           = "pull"
	InputRetry          = "retry"
	InputTimeout        = "timeout"
	InputRequestTimeout = "request_timeout"
	InputLogLevel       = "log_level"
	InputPushgatewayURL = "pushgateway_url"
)

// ConfigError reports a missing or invalid input
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return "Input required and not supplied: " + e.Name
	}
	return fmt.Sprintf("Invalid input %s: %s", e.Name, e.Reason)
}

// Inputs holds the raw, unvalidated input values
type Inputs struct {
	RancherURL     string `yaml:"rancher_url" env:"RANCHER_URL"`
	RancherAccess  string `yaml:"rancher_access" env:"RANCHER_ACCESS"`
	RancherKey     string `yaml:"rancher_key" env:"RANCHER_KEY"`
	ProjectID      string `yaml:"project_id" env:"PROJECT_ID"`
	StackName      string `yaml:"stack_name" env:"STACK_NAME"`
	ServiceName    string `yaml:"service_name" env:"SERVICE_NAME"`
	DockerImage    string `yaml:"docker_image" env:"DOCKER_IMAGE"`
	Pull           string `yaml:"pull" env:"PULL"`
	Retry          string `yaml:"retry" env:"RETRY"`
	Timeout        string `yaml:"timeout" env:"TIMEOUT"`
	RequestTimeout string `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
}

// Set assigns an input by name
func (in *Inputs) Set(name, value string) error {
	field, ok := in.fields()[name]
	if !ok {
		return fmt.Errorf("unknown input %q", name)
	}
	*field = value
	return nil
}

// Get returns an input by name
func (in *Inputs) Get(name string) string {
	if field, ok := in.fields()[name]; ok {
		return *field
	}
	return ""
}

func (in *Inputs) fields() map[string]*string {
	return map[string]*string{
		InputRancherURL:     &in.RancherURL,
		InputRancherAccess:  &in.RancherAccess,
		InputRancherKey:     &in.RancherKey,
		InputProjectID:      &in.ProjectID,
		InputStackName:      &in.StackName,
		InputServiceName:    &in.ServiceName,
		InputDockerImage:    &in.DockerImage,
		InputPull:           &in.Pull,
		InputRetry:          &in.Retry,
		InputTimeout:        &in.Timeout,
		InputRequestTimeout: &in.RequestTimeout,
		InputLogLevel:       &in.LogLevel,
		InputPushgatewayURL: &in.PushgatewayURL,
	}
}

// Connection holds the inputs needed to reach a Rancher project
type Connection struct {
	RancherURL     string
	AccessKey      string
	SecretKey      string
	ProjectID      string
	RequestTimeout time.Duration
}

// Config is the validated configuration of a run
type Config struct {
	Connection

	StackName   string
	ServiceName string
	DockerImage string
	Pull        bool

	// Retry is the attempt budget of every state wait
	Retry int
	// Interval separates two attempts of a state wait
	Interval time.Duration

	LogLevel       string
	PushgatewayURL string
}

// LoadOptions selects the sources Load reads
type LoadOptions struct {
	// File is an optional YAML file keyed by input name
	File string
	// Environment replaces the process environment when set
	Environment map[string]string
	// Overrides take precedence over every other source
	Overrides map[string]string
}

// LoadInputs merges the YAML file, INPUT_* variables and overrides, in that order
func LoadInputs(opts LoadOptions) (*Inputs, error) {
	in := &Inputs{}

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, in); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(in, env.Options{
		Prefix:      InputPrefix,
		Environment: opts.Environment,
	}); err != nil {
		return nil, fmt.Errorf("failed to read inputs from environment: %w", err)
	}

	for name, value := range opts.Overrides {
		if err := in.Set(name, value); err != nil {
			return nil, err
		}
	}

	return in, nil
}

// Load reads and validates the full deployment configuration
func Load(opts LoadOptions) (*Config, error) {
	in, err := LoadInputs(opts)
	if err != nil {
		return nil, err
	}
	return in.Deploy()
}

// Connection validates the inputs shared by every command
func (in *Inputs) Connection() (*Connection, error) {
	if err := in.require(InputRancherURL, InputRancherAccess, InputRancherKey, InputProjectID); err != nil {
		return nil, err
	}

	requestTimeout := DefaultRequestTimeout
	if v := strings.TrimSpace(in.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, &ConfigError{Name: InputRequestTimeout, Reason: fmt.Sprintf("%q is not a positive duration", v)}
		}
		requestTimeout = d
	}

	return &Connection{
		RancherURL:     in.RancherURL,
		AccessKey:      in.RancherAccess,
		SecretKey:      in.RancherKey,
		ProjectID:      in.ProjectID,
		RequestTimeout: requestTimeout,
	}, nil
}

// Deploy validates the inputs of a deployment run
func (in *Inputs) Deploy() (*Config, error) {
	conn, err := in.Connection()
	if err != nil {
		return nil, err
	}
	if err := in.require(InputStackName, InputServiceName, InputDockerImage); err != nil {
		return nil, err
	}

	if _, err := reference.ParseNormalizedNamed(in.DockerImage); err != nil {
		return nil, &ConfigError{Name: InputDockerImage, Reason: err.Error()}
	}

	return &Config{
		Connection:     *conn,
		StackName:      in.StackName,
		ServiceName:    in.ServiceName,
		DockerImage:    in.DockerImage,
		Pull:           strings.EqualFold(strings.TrimSpace(in.Pull), "true"),
		Retry:          in.RetryBudget(),
		Interval:       in.PollInterval(),
		LogLevel:       in.logLevel(),
		PushgatewayURL: in.PushgatewayURL,
	}, nil
}

// RetryBudget returns the retry input, or the default when it is not a positive integer
func (in *Inputs) RetryBudget() int {
	return positiveOr(in.Retry, DefaultRetry)
}

// PollInterval returns the timeout input in seconds, or the default when it is not a positive integer
func (in *Inputs) PollInterval() time.Duration {
	return time.Duration(positiveOr(in.Timeout, DefaultTimeout)) * time.Second
}

func (in *Inputs) logLevel() string {
	if in.LogLevel == "" {
		return DefaultLogLevel
	}
	return in.LogLevel
}

func (in *Inputs) require(names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(in.Get(name)) == "" {
			return &ConfigError{Name: name}
		}
	}
	return nil
}

func positiveOr(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
