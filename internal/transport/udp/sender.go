// SPDX-License-Identifier: MIT
package udp

import (
	"net"
	"sync"

	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/rotisserie/eris"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = eris.New("udp sender is closed")

// Sender writes datagrams to one connected UDP target.
type Sender struct {
	conn   *net.UDPConn
	target string
	mu     sync.Mutex // Protects conn during Close
	closed bool
}

// NewSender dials targetAddress ("host:port", e.g. "127.0.0.1:9090").
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve UDP target address '%s'", targetAddress)
	}

	// No local address: the kernel picks an ephemeral port.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to dial UDP for target '%s'", targetAddress)
	}

	applog.Infof("UDPSender: Connection established to %s", conn.RemoteAddr())

	return &Sender{conn: conn, target: conn.RemoteAddr().String()}, nil
}

// Send transmits data as one datagram. It is safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return eris.Wrapf(err, "failed to send UDP packet to %s", s.target)
	}
	return nil
}

// Target returns the resolved remote address.
func (s *Sender) Target() string {
	return s.target
}

// Close closes the underlying UDP connection. It is safe to call more than
// once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	applog.Infof("UDPSender: Closing connection to %s", s.target)
	if err := s.conn.Close(); err != nil {
		return eris.Wrap(err, "failed to close UDP connection")
	}
	return nil
}

var _ interface{ Close() error } = (*Sender)(nil)
