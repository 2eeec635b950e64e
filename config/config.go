// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config holds the process configuration of the control plane and
// node binaries. Values come from ACTORGRID_ prefixed environment variables
// and may be overridden by command line flags.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/actorgrid/actorgrid/actor"
	"github.com/actorgrid/actorgrid/health"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/node"
	"github.com/actorgrid/actorgrid/transport"
)

// EnvPrefix prefixes every environment variable read by this package.
const EnvPrefix = "ACTORGRID_"

// Defaults not owned by the configured packages.
const (
	DefaultControlPlaneAddr        = "0.0.0.0:8080"
	DefaultNodeAddr                = "0.0.0.0:8081"
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerOpenTimeout      = 30 * time.Second
)

// ControlPlane configures the control plane process.
type ControlPlane struct {
	ListenAddr              string        `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8080"`
	HealthInterval          time.Duration `env:"HEALTH_INTERVAL" envDefault:"10s"`
	ProbeTimeout            time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
	HeartbeatTimeout        time.Duration `env:"HEARTBEAT_TIMEOUT" envDefault:"30s"`
	MaxConcurrentProbes     int           `env:"MAX_CONCURRENT_PROBES" envDefault:"16"`
	HealthPath              string        `env:"HEALTH_PATH" envDefault:"/runtime/health"`
	RegistryPath            string        `env:"REGISTRY_PATH"`
	BreakerFailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerOpenTimeout      time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Node configures a runtime process.
type Node struct {
	ServiceID         string        `env:"SERVICE_ID"`
	ServiceURL        string        `env:"SERVICE_URL"`
	ListenAddr        string        `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8081"`
	ControlPlaneURL   string        `env:"CONTROL_PLANE_URL"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"10s"`
	Workers           int           `env:"WORKERS"`
	Throughput        int           `env:"THROUGHPUT" envDefault:"50"`
	MailboxCapacity   int           `env:"MAILBOX_CAPACITY"`
	DropStrategy      string        `env:"DROP_STRATEGY" envDefault:"DROP_OLDEST"`
	NatsURL           string        `env:"NATS_URL"`
	Compression       string        `env:"COMPRESSION"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadControlPlane reads the control plane configuration. A nil environment
// reads the process environment.
func LoadControlPlane(environment map[string]string) (*ControlPlane, error) {
	config := new(ControlPlane)
	if err := parse(config, environment); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadNode reads the node configuration. A nil environment reads the
// process environment.
func LoadNode(environment map[string]string) (*Node, error) {
	config := new(Node)
	if err := parse(config, environment); err != nil {
		return nil, err
	}
	return config, nil
}

func parse(config any, environment map[string]string) error {
	return env.ParseWithOptions(config, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	})
}

// Sanitize replaces unset or out of range values with their defaults.
func (c *ControlPlane) Sanitize() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultControlPlaneAddr
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = health.DefaultInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = health.DefaultProbeTimeout
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = health.DefaultHeartbeatTimeout
	}
	if c.MaxConcurrentProbes <= 0 {
		c.MaxConcurrentProbes = health.DefaultMaxConcurrentProbes
	}
	if c.HealthPath == "" {
		c.HealthPath = node.PathHealth
	}
	if c.BreakerFailureThreshold <= 0 {
		c.BreakerFailureThreshold = DefaultBreakerFailureThreshold
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = DefaultBreakerOpenTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = log.InfoLevel.String()
	}
}

// Validate checks the configuration.
func (c *ControlPlane) Validate() error {
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewTCPAddressValidator(c.ListenAddr)).
		AddAssertion(c.ProbeTimeout <= c.HealthInterval, "probe timeout must not exceed the health interval").
		AddAssertion(c.HeartbeatTimeout > 0, "heartbeat timeout must be positive").
		AddAssertion(len(c.HealthPath) > 0 && c.HealthPath[0] == '/', "health path must start with /").
		AddAssertion(log.ParseLevel(c.LogLevel) != log.InvalidLevel, "unknown log level "+c.LogLevel).
		Validate()
}

// Sanitize replaces unset or out of range values with their defaults.
func (c *Node) Sanitize() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultNodeAddr
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = node.DefaultHeartbeatInterval
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.Throughput <= 0 {
		c.Throughput = actor.DefaultThroughput
	}
	if c.MailboxCapacity < 0 {
		c.MailboxCapacity = 0
	}
	if c.DropStrategy == "" {
		c.DropStrategy = actor.DropOldest.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = log.InfoLevel.String()
	}
}

// Validate checks the configuration. The control plane URL is optional: a
// node without one runs standalone.
func (c *Node) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("serviceId", c.ServiceID)).
		AddValidator(validation.NewURLValidator(c.ServiceURL)).
		AddValidator(validation.NewTCPAddressValidator(c.ListenAddr)).
		AddAssertion(log.ParseLevel(c.LogLevel) != log.InvalidLevel, "unknown log level "+c.LogLevel)
	if c.ControlPlaneURL != "" {
		chain.AddValidator(validation.NewURLValidator(c.ControlPlaneURL))
	}
	if _, err := actor.ParseDropStrategy(c.DropStrategy); err != nil {
		chain.AddAssertion(false, err.Error())
	}
	if _, err := transport.ParseCompression(c.Compression); err != nil {
		chain.AddAssertion(false, err.Error())
	}
	return chain.Validate()
}

// Mailbox returns the default mailbox settings. A zero capacity means unbounded.
func (c *Node) Mailbox() (int, actor.DropStrategy) {
	strategy, _ := actor.ParseDropStrategy(c.DropStrategy)
	return c.MailboxCapacity, strategy
}
