// Package control serves the clipstack control protocol.
//
// Each connection carries one request and one response. Connections on the
// local Unix socket are trusted. Connections on the optional TCP listener
// are encrypted with the token-derived key and must open with an AUTH
// request carrying the same token.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.klb.dev/clipstack/internal/command"
	"go.klb.dev/clipstack/internal/crypto"
	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/message"
	"go.klb.dev/clipstack/internal/preview"
	"go.klb.dev/clipstack/internal/wire"
)

const (
	readTimeout    = 10 * time.Second
	commandTimeout = 10 * time.Second
)

// Doer executes commands; *command.Dispatcher satisfies it.
type Doer interface {
	Do(ctx context.Context, cmd command.Command) (command.Reply, error)
}

// Server answers control requests.
type Server struct {
	d       Doer
	version string
	wg      sync.WaitGroup
}

// New returns a Server that forwards requests to d.
func New(d Doer, version string) *Server {
	return &Server{d: d, version: version}
}

// Serve accepts connections on ln until ctx is done. A nil box means the
// listener is trusted (the Unix socket); otherwise every connection must
// authenticate and is encrypted with box.
func (s *Server) Serve(ctx context.Context, ln net.Listener, box *crypto.Box) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			slog.Error("accept failed", "addr", ln.Addr(), "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn, box)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn, box *crypto.Box) {
	wc := wire.New(conn, box)
	defer wc.Close()
	log := slog.With("remote", conn.RemoteAddr().String())

	wc.SetReadTimeout(readTimeout)

	if box != nil {
		req, err := wc.ReadRequest()
		if err != nil {
			log.Warn("auth read failed", "err", err)
			return
		}
		if req.Type != message.TypeAuth || !box.CheckToken(req.Token) {
			log.Warn("auth failed")
			_ = wc.WriteResponse(message.Errorf(message.CodeAuthFailed, "authentication failed"))
			return
		}
		log = log.With("source", req.Source)
		if err := wc.WriteResponse(&message.Response{Type: message.TypeOK}); err != nil {
			return
		}
	}

	req, err := wc.ReadRequest()
	if err != nil {
		log.Debug("request read failed", "err", err)
		return
	}
	wc.SetReadTimeout(0)

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	resp := s.Handle(cctx, req)
	if resp.Type == message.TypeError {
		log.Warn("request failed", "type", req.Type, "id", req.ID, "err", resp.Error)
	} else {
		log.Debug("request served", "type", req.Type, "id", req.ID)
	}
	if err := wc.WriteResponse(resp); err != nil {
		log.Warn("response write failed", "err", err)
	}
}

// Handle maps one request onto a dispatcher command.
func (s *Server) Handle(ctx context.Context, req *message.Request) *message.Response {
	cmd, err := toCommand(req)
	if err != nil {
		return message.Errorf(message.CodeBadRequest, "%v", err)
	}

	reply, err := s.d.Do(ctx, cmd)
	if err != nil {
		return errorResponse(err)
	}

	resp := &message.Response{Type: message.TypeOK, Message: reply.Message}
	if reply.Entry != nil {
		e := toWire(*reply.Entry, true)
		resp.Entry = &e
	}
	if reply.Entries != nil {
		resp.Entries = make([]message.Entry, len(reply.Entries))
		for i, e := range reply.Entries {
			resp.Entries[i] = toWire(e, req.Full)
		}
	}
	if reply.Info != nil {
		resp.Status = &message.Status{
			Version:    s.version,
			Backend:    reply.Info.Backend,
			Entries:    reply.Info.Entries,
			StartedAt:  reply.Info.StartedAt,
			LastStatus: reply.Info.LastStatus,
		}
	}
	return resp
}

func toCommand(req *message.Request) (command.Command, error) {
	id := history.ID(req.ID)
	switch req.Type {
	case message.TypeList:
		return command.List{}, nil
	case message.TypeGet:
		return command.Get{ID: id}, nil
	case message.TypeCopy:
		return command.Copy{ID: id}, nil
	case message.TypeDelete:
		return command.Delete{ID: id}, nil
	case message.TypeEdit:
		if req.Content == "" {
			return nil, errors.New("edit requires content")
		}
		return command.Edit{ID: id, Content: req.Content}, nil
	case message.TypeClear:
		return command.Clear{}, nil
	case message.TypeStatus:
		return command.Status{}, nil
	default:
		return nil, fmt.Errorf("unexpected request type %q", req.Type)
	}
}

func errorResponse(err error) *message.Response {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return message.Errorf(message.CodeNotFound, "%v", err)
	default:
		return message.Errorf(message.CodeInternal, "%v", err)
	}
}

func toWire(e history.Entry, full bool) message.Entry {
	w := message.Entry{
		ID:        uint64(e.ID),
		Type:      string(e.Type),
		Rich:      e.Rich,
		Size:      len(e.Content),
		Preview:   preview.Text(e),
		Timestamp: e.Timestamp,
	}
	if full {
		w.Content = e.Content
	}
	return w
}
