package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/control"
	"go.klb.dev/clipstack/internal/ipc"
	"go.klb.dev/clipstack/internal/message"
)

const requestTimeout = 10 * time.Second

// newClient picks the transport: TCP when --server is set, otherwise the
// local socket of a running daemon.
func newClient(v *viper.Viper) (*control.Client, error) {
	if server := v.GetString("server"); server != "" {
		return control.NewTCPClient(server, v.GetString("token"), v.GetString("source"))
	}
	socket := v.GetString("socket")
	if !ipc.IsRunning(socket) {
		return nil, fmt.Errorf("no clipstack daemon on %s (start one with \"clipstack daemon\")", socket)
	}
	return control.NewUnixClient(socket), nil
}

// request sends one request with the standard timeout.
func request(ctx context.Context, v *viper.Viper, req *message.Request) (*message.Response, error) {
	c, err := newClient(v)
	if err != nil {
		return nil, err
	}
	return do(ctx, c, req)
}

func do(ctx context.Context, c *control.Client, req *message.Request) (*message.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.Do(ctx, req)
}

// parseID parses a history entry id as printed by "clipstack list".
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}
