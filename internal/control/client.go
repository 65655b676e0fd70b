package control

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.klb.dev/clipstack/internal/crypto"
	"go.klb.dev/clipstack/internal/message"
	"go.klb.dev/clipstack/internal/wire"
)

const dialTimeout = 5 * time.Second

// Client sends one-shot requests to a daemon.
type Client struct {
	network string
	addr    string
	token   string
	source  string
	box     *crypto.Box
}

// NewUnixClient returns a Client for the daemon's local socket.
func NewUnixClient(path string) *Client {
	return &Client{network: "unix", addr: path}
}

// NewTCPClient returns a Client for a daemon's TCP listener. token must
// match the daemon's --token.
func NewTCPClient(addr, token, source string) (*Client, error) {
	box, err := crypto.NewBox(token)
	if err != nil {
		return nil, fmt.Errorf("tcp control requires a token: %w", err)
	}
	return &Client{network: "tcp", addr: addr, token: token, source: source, box: box}, nil
}

// Target describes where the client connects, for status output.
func (c *Client) Target() string {
	return fmt.Sprintf("%s (%s)", c.network, c.addr)
}

// Do opens a connection, authenticates if needed, sends req and returns
// the response. ERROR responses are returned as *message.RemoteError.
func (c *Client) Do(ctx context.Context, req *message.Request) (*message.Response, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, c.network, c.addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.addr, err)
	}
	wc := wire.New(conn, c.box)
	defer wc.Close()

	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
	defer stop()

	if c.box != nil {
		if _, err := wc.Roundtrip(&message.Request{
			Type:   message.TypeAuth,
			Token:  c.token,
			Source: c.source,
		}); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return wc.Roundtrip(req)
}
