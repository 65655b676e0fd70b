// Package message defines the clipstack control protocol.
//
// A client opens a connection, optionally authenticates, sends exactly one
// Request and reads exactly one Response. Every message is one JSON line;
// []byte fields are base64 in JSON so images travel safely.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"go.klb.dev/clipstack/internal/history"
)

// Type identifies the kind of message.
type Type string

const (
	TypeAuth   Type = "AUTH"
	TypeList   Type = "LIST"
	TypeGet    Type = "GET"
	TypeCopy   Type = "COPY"
	TypeDelete Type = "DELETE"
	TypeEdit   Type = "EDIT"
	TypeClear  Type = "CLEAR"
	TypeStatus Type = "STATUS"

	TypeOK    Type = "OK"
	TypeError Type = "ERROR"
)

// Error codes carried in Response.Code.
const (
	CodeAuthFailed = "auth_failed"
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// Entry is the wire form of a history entry.
type Entry struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Rich      bool      `json:"rich,omitempty"`
	Content   []byte    `json:"content,omitempty"`
	Size      int       `json:"size"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

// History converts the wire form back to a history.Entry.
func (e Entry) History() history.Entry {
	return history.Entry{
		ID:        history.ID(e.ID),
		Type:      history.ContentType(e.Type),
		Rich:      e.Rich,
		Content:   e.Content,
		Timestamp: e.Timestamp,
	}
}

// Status is the payload of a STATUS response.
type Status struct {
	Version    string    `json:"version"`
	Backend    string    `json:"backend"`
	Entries    int       `json:"entries"`
	StartedAt  time.Time `json:"started_at"`
	LastStatus string    `json:"last_status,omitempty"`
}

// Request is sent by a client.
type Request struct {
	Type Type `json:"type"`

	// AUTH
	Token  string `json:"token,omitempty"`
	Source string `json:"source,omitempty"`

	// GET, COPY, DELETE, EDIT
	ID uint64 `json:"id,omitempty"`

	// EDIT: the confirmed rich-text document
	Content string `json:"content,omitempty"`

	// LIST: include full content rather than only previews
	Full bool `json:"full,omitempty"`
}

// Response is sent by the daemon.
type Response struct {
	Type    Type    `json:"type"`
	Message string  `json:"message,omitempty"`
	Entry   *Entry  `json:"entry,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
	Status  *Status `json:"status,omitempty"`

	// ERROR
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Err returns the response as a Go error, or nil for OK responses.
func (r *Response) Err() error {
	if r.Type != TypeError {
		return nil
	}
	return &RemoteError{Code: r.Code, Message: r.Error}
}

// RemoteError is an ERROR response surfaced on the client side.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Errorf builds an ERROR response.
func Errorf(code, format string, args ...any) *Response {
	return &Response{Type: TypeError, Code: code, Error: fmt.Sprintf(format, args...)}
}

// Encode serialises v to JSON without a trailing newline.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeRequest deserialises a request from raw JSON bytes.
func DecodeRequest(b []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("request decode: %w", err)
	}
	return &r, nil
}

// DecodeResponse deserialises a response from raw JSON bytes.
func DecodeResponse(b []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("response decode: %w", err)
	}
	return &r, nil
}
