// Package wire frames control-protocol messages over a net.Conn.
//
// Wire format (unencrypted):
//
//	<json>\n
//
// Wire format (encrypted):
//
//	<base64(nonce+ciphertext)>\n
//
// Both forms are one message per line so the framing is identical.
package wire

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.klb.dev/clipstack/internal/crypto"
	"go.klb.dev/clipstack/internal/message"
)

// MaxMessageSize is the largest line we will read (32 MiB). Screenshots
// travel base64-encoded, and encryption adds another base64 layer.
const MaxMessageSize = 32 * 1024 * 1024

const writeDeadline = 5 * time.Second

// Conn wraps a net.Conn with line framing and optional encryption.
type Conn struct {
	conn net.Conn
	sc   *bufio.Scanner
	box  *crypto.Box // nil = plaintext
}

// New wraps conn. If box is non-nil every line is sealed before writing and
// opened after reading.
func New(conn net.Conn, box *crypto.Box) *Conn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	return &Conn{conn: conn, sc: sc, box: box}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetReadTimeout sets or, with d == 0, clears the read deadline.
func (c *Conn) SetReadTimeout(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
		return
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
}

// WriteRequest sends one request.
func (c *Conn) WriteRequest(r *message.Request) error { return c.write(r) }

// WriteResponse sends one response.
func (c *Conn) WriteResponse(r *message.Response) error { return c.write(r) }

// ReadRequest reads one request.
func (c *Conn) ReadRequest() (*message.Request, error) {
	raw, err := c.readLine()
	if err != nil {
		return nil, err
	}
	return message.DecodeRequest(raw)
}

// ReadResponse reads one response.
func (c *Conn) ReadResponse() (*message.Response, error) {
	raw, err := c.readLine()
	if err != nil {
		return nil, err
	}
	return message.DecodeResponse(raw)
}

// Roundtrip writes req and reads the reply, converting ERROR responses
// into a *message.RemoteError.
func (c *Conn) Roundtrip(req *message.Request) (*message.Response, error) {
	if err := c.WriteRequest(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	resp, err := c.ReadResponse()
	if err != nil {
		return nil, fmt.Errorf("read %s reply: %w", req.Type, err)
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Conn) write(v any) error {
	raw, err := message.Encode(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	var line []byte
	if c.box != nil {
		ct, err := c.box.Seal(raw)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		line = base64.StdEncoding.AppendEncode(nil, ct)
	} else {
		line = raw
	}
	line = append(line, '\n')

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	defer c.conn.SetWriteDeadline(time.Time{})
	_, err = c.conn.Write(line)
	return err
}

func (c *Conn) readLine() ([]byte, error) {
	if !c.sc.Scan() {
		err := c.sc.Err()
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("message too large (max %d bytes)", MaxMessageSize)
		}
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	line := c.sc.Bytes()

	if c.box == nil {
		return line, nil
	}
	ct, err := base64.StdEncoding.DecodeString(string(line))
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	raw, err := c.box.Open(ct)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return raw, nil
}
