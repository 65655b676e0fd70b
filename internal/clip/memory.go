package clip

import (
	"bytes"
	"errors"
	"sync"
)

// Memory is an in-process clipboard. Set simulates another application
// copying something; Write is what the daemon itself does.
type Memory struct {
	mu      sync.Mutex
	payload Payload
	readErr error
	writes  []Payload
	watchCh chan struct{}
}

// NewMemory returns an empty in-process clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory" }

// Set replaces the clipboard contents and fires a change notification.
func (m *Memory) Set(p Payload) {
	m.mu.Lock()
	m.payload = clonePayload(p)
	m.mu.Unlock()
	notify(m.watchCh)
}

// FailReads makes every subsequent Read return err. Pass nil to recover.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// Writes returns every payload written through Write, oldest first.
func (m *Memory) Writes() []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payload, len(m.writes))
	for i, p := range m.writes {
		out[i] = clonePayload(p)
	}
	return out
}

func (m *Memory) Read() (Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return Payload{}, m.readErr
	}
	return clonePayload(m.payload), nil
}

// Write replaces the contents and, like a real clipboard, fires a change
// notification for the write.
func (m *Memory) Write(p Payload) error {
	if p.Empty() {
		return errors.New("nothing to write")
	}
	m.mu.Lock()
	m.payload = clonePayload(p)
	m.writes = append(m.writes, clonePayload(p))
	m.mu.Unlock()
	notify(m.watchCh)
	return nil
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}

func clonePayload(p Payload) Payload {
	p.Image = bytes.Clone(p.Image)
	return p
}
