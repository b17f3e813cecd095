// Package transport carries the length-prefixed JSON frames spec.md §6
// puts on the wire, over two distinct carriers: authenticated libp2p
// streams between brokers and replicas, and a plain TCP listener for
// unauthenticated clients. Grounded on the teacher's core/network.go
// (libp2p.New host construction, logrus-logged connection lifecycle),
// generalized from its gossip-topic pattern to direct request/response
// streams — both are ordinary libp2p host capabilities.
package transport

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxFrameSize bounds a single frame so a misbehaving peer cannot force an
// unbounded allocation.
const maxFrameSize = 64 << 20

// Session is a framed, full-duplex message channel between two parties.
// Concrete implementations carry it over a libp2p stream (broker<->replica)
// or a plain net.Conn (client<->broker).
type Session interface {
	// Send marshals v to JSON and writes it as one length-prefixed frame.
	Send(v any) error
	// Receive reads one frame and unmarshals it into v.
	Receive(v any) error
	Close() error
}

// frameSession implements Session over any io.ReadWriteCloser.
type frameSession struct {
	mu     sync.Mutex
	rw     io.ReadWriteCloser
	reader *bufio.Reader
}

// NewFrameSession wraps rw as a Session.
func NewFrameSession(rw io.ReadWriteCloser) Session {
	return &frameSession{rw: rw, reader: bufio.NewReader(rw)}
}

func (s *frameSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: encode frame: %w", err)
	}
	if len(body) > maxFrameSize {
		return ErrFrameTooLarge
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := s.rw.Write(header[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionBroken, err)
	}
	if _, err := s.rw.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionBroken, err)
	}
	return nil
}

func (s *frameSession) Receive(v any) error {
	var header [4]byte
	if _, err := io.ReadFull(s.reader, header[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionBroken, err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxFrameSize {
		return ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionBroken, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedMessage, err)
	}
	return nil
}

func (s *frameSession) Close() error {
	return s.rw.Close()
}
