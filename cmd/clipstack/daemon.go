package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/clip"
	"go.klb.dev/clipstack/internal/command"
	"go.klb.dev/clipstack/internal/control"
	"go.klb.dev/clipstack/internal/crypto"
	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/ipc"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Observe the clipboard and keep its history",
		Long: `Starts the clipstack daemon. Every clipboard change is recorded in an
in-memory, most-recent-first history; the other clipstack commands query and
manipulate it over the local control socket.

--listen additionally exposes the control protocol over TCP. It requires
--token; TCP traffic is authenticated and encrypted with a key derived from it.

Config file search order:
  /etc/clipstack/clipstack.toml
  $HOME/.config/clipstack/clipstack.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSTACK_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("backend", string(clip.KindAuto), "clipboard backend: auto|native|cli|memory")
	f.String("listen", "", "also serve the control protocol on this TCP address")
	f.String("token", "", "shared secret for --listen")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := v.GetString("listen")
	token := v.GetString("token")
	var box *crypto.Box
	if listen != "" {
		var err error
		if box, err = crypto.NewBox(token); err != nil {
			return fmt.Errorf("--listen: %w", err)
		}
	}

	backend, err := clip.New(clip.Kind(v.GetString("backend")))
	if err != nil {
		return err
	}
	defer backend.Close()

	d := command.New(history.New(), backend)
	srv := control.New(d, Version)

	socket := v.GetString("socket")
	ln, err := ipc.Listen(socket)
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer os.Remove(socket)

	slog.Info("clipstack daemon starting",
		"version", Version,
		"backend", backend.Name(),
		"socket", socket,
		"tcp", listen,
	)

	// Listeners, and their in-flight handlers, finish before the deferred
	// backend close and socket removal.
	var served sync.WaitGroup
	defer served.Wait()
	served.Go(func() { _ = srv.Serve(ctx, ln, nil) })

	if listen != "" {
		tln, err := net.Listen("tcp", listen)
		if err != nil {
			stop()
			return fmt.Errorf("listen %s: %w", listen, err)
		}
		slog.Info("tcp control listening", "addr", tln.Addr())
		served.Go(func() { _ = srv.Serve(ctx, tln, box) })
	}

	err = d.Run(ctx)
	stop()
	served.Wait()
	if errors.Is(err, context.Canceled) {
		slog.Info("clipstack daemon stopped")
		return nil
	}
	return err
}
