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
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/actorgrid/actorgrid/actor"
	"github.com/actorgrid/actorgrid/config"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/node"
	"github.com/actorgrid/actorgrid/transport"
)

var nodeFlags struct {
	serviceID         string
	serviceURL        string
	listenAddr        string
	controlPlaneURL   string
	heartbeatInterval time.Duration
	natsURL           string
	logLevel          string
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a runtime node hosting actors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadNode(nil)
		if err != nil {
			return err
		}
		override(cmd, "service-id", &cfg.ServiceID, nodeFlags.serviceID)
		override(cmd, "service-url", &cfg.ServiceURL, nodeFlags.serviceURL)
		override(cmd, "listen-addr", &cfg.ListenAddr, nodeFlags.listenAddr)
		override(cmd, "control-plane", &cfg.ControlPlaneURL, nodeFlags.controlPlaneURL)
		override(cmd, "heartbeat-interval", &cfg.HeartbeatInterval, nodeFlags.heartbeatInterval)
		override(cmd, "nats-url", &cfg.NatsURL, nodeFlags.natsURL)
		override(cmd, "log-level", &cfg.LogLevel, nodeFlags.logLevel)
		cfg.Sanitize()
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := log.NewZap(log.ParseLevel(cfg.LogLevel), os.Stdout)
		runtime, broker, err := newNode(cfg, logger)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), runtime.Start, func(ctx context.Context) error {
			err := runtime.Stop(ctx)
			if broker != nil {
				err = multierr.Append(err, broker.Close())
			}
			return err
		})
	},
}

// newNode builds the actor system and its node. The broker is only created
// when a NATS url is configured and must be closed by the caller.
func newNode(cfg *config.Node, logger log.Logger) (*node.Node, transport.Broker, error) {
	capacity, strategy := cfg.Mailbox()
	systemOpts := []actor.Option{
		actor.WithLogger(logger),
		actor.WithThroughput(cfg.Throughput),
		actor.WithDefaultMailbox(capacity, strategy),
	}
	if cfg.Workers > 0 {
		systemOpts = append(systemOpts, actor.WithWorkers(cfg.Workers))
	}
	nodeOpts := []node.Option{
		node.WithLogger(logger),
		node.WithListenAddr(cfg.ListenAddr),
		node.WithHeartbeatInterval(cfg.HeartbeatInterval),
	}
	if cfg.ControlPlaneURL != "" {
		nodeOpts = append(nodeOpts, node.WithControlPlane(cfg.ControlPlaneURL))
	}

	var broker transport.Broker
	if cfg.NatsURL != "" {
		natsBroker, err := transport.NewNATSBroker(cfg.NatsURL,
			transport.WithNATSName(cfg.ServiceID),
			transport.WithNATSLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		compression, _ := transport.ParseCompression(cfg.Compression)
		messenger, err := transport.NewMessenger(cfg.ServiceID, natsBroker,
			transport.WithLogger(logger),
			transport.WithCompression(compression))
		if err != nil {
			return nil, nil, multierr.Append(err, natsBroker.Close())
		}
		broker = natsBroker
		systemOpts = append(systemOpts, actor.WithRemoting(messenger))
		nodeOpts = append(nodeOpts, node.WithMessenger(messenger))
	}

	closeBroker := func(err error) error {
		if broker != nil {
			return multierr.Append(err, broker.Close())
		}
		return err
	}

	system, err := actor.NewSystem(cfg.ServiceID, systemOpts...)
	if err != nil {
		return nil, nil, closeBroker(err)
	}
	node.RegisterBuiltins(system)

	runtime, err := node.New(cfg.ServiceID, cfg.ServiceURL, system, nodeOpts...)
	if err != nil {
		return nil, nil, closeBroker(err)
	}
	return runtime, broker, nil
}

func init() {
	flags := nodeCmd.Flags()
	flags.StringVar(&nodeFlags.serviceID, "service-id", "", "id of this service")
	flags.StringVar(&nodeFlags.serviceURL, "service-url", "", "url the control plane reaches this node at")
	flags.StringVar(&nodeFlags.listenAddr, "listen-addr", config.DefaultNodeAddr, "address of the /runtime HTTP surface")
	flags.StringVar(&nodeFlags.controlPlaneURL, "control-plane", "", "control plane url, standalone when empty")
	flags.DurationVar(&nodeFlags.heartbeatInterval, "heartbeat-interval", node.DefaultHeartbeatInterval, "interval between heartbeats")
	flags.StringVar(&nodeFlags.natsURL, "nats-url", "", "NATS server relaying remote messages between services")
	flags.StringVar(&nodeFlags.logLevel, "log-level", "info", "log level")
	rootCmd.AddCommand(nodeCmd)
}
