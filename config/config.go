package config

import (
	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transfer"
	"github.com/vietddude/objstore/transport"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Retry    RetryConfig    `yaml:"retry"`
	Transfer TransferConfig `yaml:"transfer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig holds connection settings. Timeout applies to both the
// connect and response-wait phases; the split fields override it when set.
// All zero means unbounded waits.
type EndpointConfig struct {
	URL            string   `yaml:"url"`
	Protocol       string   `yaml:"protocol"` // http, grpc
	Timeout        Duration `yaml:"timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	ReadTimeout    Duration `yaml:"read_timeout"`
}

// TransportTimeout folds the timeout fields into the transport's pair form.
func (e EndpointConfig) TransportTimeout() transport.Timeout {
	t := transport.SingleTimeout(e.Timeout.Std())
	if e.ConnectTimeout > 0 {
		t.Connect = e.ConnectTimeout.Std()
	}
	if e.ReadTimeout > 0 {
		t.Read = e.ReadTimeout.Std()
	}
	return t
}

// RetryConfig holds backoff settings.
type RetryConfig struct {
	Disabled     bool     `yaml:"disabled"`
	InitialDelay Duration `yaml:"initial_delay"`
	Multiplier   float64  `yaml:"multiplier"`
	MaxDelay     Duration `yaml:"max_delay"`
	Deadline     Duration `yaml:"deadline"` // 0 = unbounded
}

// Policy builds the retry policy, nil when retries are disabled.
func (r RetryConfig) Policy() *retry.Policy {
	if r.Disabled {
		return nil
	}
	return retry.NewPolicy(nil, r.InitialDelay.Std(), r.Multiplier, r.MaxDelay.Std(), r.Deadline.Std())
}

// TransferConfig holds chunked-transfer settings.
type TransferConfig struct {
	PartSize      int64  `yaml:"part_size"`
	Concurrency   int    `yaml:"concurrency"`
	Checksum      string `yaml:"checksum"`       // auto, crc32c, md5, disabled
	FailurePolicy string `yaml:"failure_policy"` // default, fail_fast, best_effort
}

// Options expands the block into transfer manager options.
func (t TransferConfig) Options(policy *retry.Policy) ([]transfer.Option, error) {
	mode, err := transfer.ParseChecksumMode(t.Checksum)
	if err != nil {
		return nil, err
	}

	opts := []transfer.Option{
		transfer.WithPartSize(t.PartSize),
		transfer.WithConcurrency(t.Concurrency),
		transfer.WithChecksumMode(mode),
		transfer.WithRetryPolicy(policy),
	}
	switch t.FailurePolicy {
	case "", "default":
	case "fail_fast":
		opts = append(opts, transfer.WithFailurePolicy(transfer.FailFast))
	case "best_effort":
		opts = append(opts, transfer.WithFailurePolicy(transfer.BestEffort))
	default:
		return nil, errUnknownFailurePolicy(t.FailurePolicy)
	}
	return opts, nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
