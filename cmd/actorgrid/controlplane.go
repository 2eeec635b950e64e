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

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/actorgrid/actorgrid/breaker"
	"github.com/actorgrid/actorgrid/config"
	"github.com/actorgrid/actorgrid/controlplane"
	"github.com/actorgrid/actorgrid/health"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/registry"
)

var controlPlaneFlags struct {
	listenAddr     string
	healthInterval time.Duration
	probeTimeout   time.Duration
	registryPath   string
	logLevel       string
}

var controlPlaneCmd = &cobra.Command{
	Use:   "controlplane",
	Short: "Run the control plane",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadControlPlane(nil)
		if err != nil {
			return err
		}
		override(cmd, "listen-addr", &cfg.ListenAddr, controlPlaneFlags.listenAddr)
		override(cmd, "health-interval", &cfg.HealthInterval, controlPlaneFlags.healthInterval)
		override(cmd, "probe-timeout", &cfg.ProbeTimeout, controlPlaneFlags.probeTimeout)
		override(cmd, "registry-path", &cfg.RegistryPath, controlPlaneFlags.registryPath)
		override(cmd, "log-level", &cfg.LogLevel, controlPlaneFlags.logLevel)
		cfg.Sanitize()
		if err := cfg.Validate(); err != nil {
			return err
		}

		cp, err := newControlPlane(cfg, log.NewZap(log.ParseLevel(cfg.LogLevel), os.Stdout))
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cp.Start, cp.Stop)
	},
}

func newControlPlane(cfg *config.ControlPlane, logger log.Logger) (*controlplane.ControlPlane, error) {
	opts := []controlplane.Option{
		controlplane.WithLogger(logger),
		controlplane.WithListenAddr(cfg.ListenAddr),
		controlplane.WithHealthPath(cfg.HealthPath),
		controlplane.WithBreakerOptions(
			breaker.WithFailureThreshold(cfg.BreakerFailureThreshold),
			breaker.WithOpenTimeout(cfg.BreakerOpenTimeout),
		),
		controlplane.WithMonitorOptions(
			health.WithInterval(cfg.HealthInterval),
			health.WithProbeTimeout(cfg.ProbeTimeout),
			health.WithHeartbeatTimeout(cfg.HeartbeatTimeout),
			health.WithMaxConcurrentProbes(cfg.MaxConcurrentProbes),
		),
	}
	if cfg.RegistryPath != "" {
		store, err := registry.NewBoltStore(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		logger.Infof("registries persisted to %s", store.Path())
		opts = append(opts, controlplane.WithStore(store))
	}
	return controlplane.New(opts...)
}

func init() {
	flags := controlPlaneCmd.Flags()
	flags.StringVar(&controlPlaneFlags.listenAddr, "listen-addr", config.DefaultControlPlaneAddr, "address of the /api/v1 HTTP surface")
	flags.DurationVar(&controlPlaneFlags.healthInterval, "health-interval", health.DefaultInterval, "interval between health cycles")
	flags.DurationVar(&controlPlaneFlags.probeTimeout, "probe-timeout", health.DefaultProbeTimeout, "timeout of one health probe")
	flags.StringVar(&controlPlaneFlags.registryPath, "registry-path", "", "bbolt file persisting the registries, in memory when empty")
	flags.StringVar(&controlPlaneFlags.logLevel, "log-level", "info", "log level")
	rootCmd.AddCommand(controlPlaneCmd)
}
