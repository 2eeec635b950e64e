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
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorgrid/actorgrid/actor"
	"github.com/actorgrid/actorgrid/config"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/node"
)

func TestOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var flag string
	cmd.Flags().StringVar(&flag, "listen-addr", "default", "")

	target := "from-env"
	override(cmd, "listen-addr", &target, flag)
	assert.Equal(t, "from-env", target)

	require.NoError(t, cmd.Flags().Set("listen-addr", "from-flag"))
	override(cmd, "listen-addr", &target, flag)
	assert.Equal(t, "from-flag", target)
}

func TestNewControlPlaneWithBoltRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &config.ControlPlane{
		ListenAddr:   "127.0.0.1:0",
		RegistryPath: filepath.Join(t.TempDir(), "registry.db"),
	}
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())

	cp, err := newControlPlane(cfg, log.DiscardLogger)
	require.NoError(t, err)
	require.NoError(t, cp.Start(ctx))
	assert.NotEqual(t, "127.0.0.1:0", cp.Addr())
	require.NoError(t, cp.Stop(ctx))
}

func TestNewStandaloneNode(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Node{
		ServiceID:       "svc-a",
		ServiceURL:      "http://svc-a:8081",
		ListenAddr:      "127.0.0.1:0",
		MailboxCapacity: 8,
		DropStrategy:    "DROP_NEWEST",
	}
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())

	runtime, broker, err := newNode(cfg, log.DiscardLogger)
	require.NoError(t, err)
	assert.Nil(t, broker)
	require.NoError(t, runtime.Start(ctx))

	ref, err := runtime.System().Spawn(ctx, node.WorkerType, nil)
	require.NoError(t, err)
	assert.Equal(t, actor.Running, ref.State())
	require.NoError(t, runtime.Stop(ctx))
}
