package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipstack/internal/crypto"
	"go.klb.dev/clipstack/internal/message"
)

func pipe(t *testing.T, clientBox, serverBox *crypto.Box) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return New(a, clientBox), New(b, serverBox)
}

// serveOnce answers one request on srv with resp and reports what it read.
func serveOnce(srv *Conn, resp *message.Response) <-chan *message.Request {
	got := make(chan *message.Request, 1)
	go func() {
		req, err := srv.ReadRequest()
		if err != nil {
			close(got)
			return
		}
		got <- req
		_ = srv.WriteResponse(resp)
	}()
	return got
}

func TestRoundtripPlain(t *testing.T) {
	t.Parallel()
	cli, srv := pipe(t, nil, nil)

	got := serveOnce(srv, &message.Response{
		Type:    message.TypeOK,
		Entries: []message.Entry{{ID: 1, Type: "image", Content: []byte{0, 1, 2, 255}}},
	})

	resp, err := cli.Roundtrip(&message.Request{Type: message.TypeList, Full: true})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, []byte{0, 1, 2, 255}, resp.Entries[0].Content)

	req := <-got
	require.NotNil(t, req)
	assert.Equal(t, message.TypeList, req.Type)
	assert.True(t, req.Full)
}

func TestRoundtripEncrypted(t *testing.T) {
	t.Parallel()
	box, err := crypto.NewBox("tok")
	require.NoError(t, err)
	cli, srv := pipe(t, box, box)

	got := serveOnce(srv, &message.Response{Type: message.TypeOK, Message: "done"})

	resp, err := cli.Roundtrip(&message.Request{Type: message.TypeEdit, ID: 3, Content: "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message)

	req := <-got
	require.NotNil(t, req)
	assert.Equal(t, uint64(3), req.ID)
	assert.Equal(t, "<b>x</b>", req.Content)
}

func TestRoundtripErrorResponse(t *testing.T) {
	t.Parallel()
	cli, srv := pipe(t, nil, nil)

	serveOnce(srv, message.Errorf(message.CodeNotFound, "entry %d not found", 9))

	_, err := cli.Roundtrip(&message.Request{Type: message.TypeDelete, ID: 9})
	require.Error(t, err)

	var remote *message.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, message.CodeNotFound, remote.Code)
	assert.Contains(t, err.Error(), "entry 9 not found")
}

func TestMismatchedTokensFail(t *testing.T) {
	t.Parallel()
	a, _ := crypto.NewBox("one")
	b, _ := crypto.NewBox("two")
	cli, srv := pipe(t, a, b)

	errCh := make(chan error, 1)
	go func() {
		_, err := srv.ReadRequest()
		errCh <- err
	}()

	require.NoError(t, cli.WriteRequest(&message.Request{Type: message.TypeStatus}))
	assert.ErrorIs(t, <-errCh, crypto.ErrOpen)
}
