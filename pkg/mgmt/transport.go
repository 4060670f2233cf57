/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mgmt

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

// Transport is the narrow capability a MgmtClient needs from the wire. The
// real implementation is UDPTransport; tests substitute an in-memory fake
// that never touches a socket.
type Transport interface {
	SendAndAwait(ctx context.Context, peer *net.UDPAddr, op Op, group uint16, id uint8, body []byte, timeout time.Duration) (Frame, error)
	Close() error
}

type slot struct {
	peer *net.UDPAddr
	deliver chan Frame
}

// UDPTransport owns a single UDP socket, frames outbound requests, and
// correlates responses by sequence number. A background goroutine does
// nothing but read datagrams, decode the header, and hand the body to
// whichever caller is waiting on that sequence.
type UDPTransport struct {
	conn *net.UDPConn
	log  logger.Logger

	mu      sync.Mutex
	slots   map[uint8]slot
	nextSeq uint8
	closed  bool

	done chan struct{}
}

// NewUDPTransport binds an ephemeral UDP socket and starts the receive loop.
func NewUDPTransport(log logger.Logger) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}

	t := &UDPTransport{
		conn:  conn,
		log:   log,
		slots: make(map[uint8]slot),
		done:  make(chan struct{}),
	}

	go t.receiveLoop()

	return t, nil
}

// allocSeq picks the next sequence number not currently outstanding. It
// scans at most 256 candidates starting from nextSeq, wrapping mod 256, and
// never returns one already in the slot table.
func (t *UDPTransport) allocSeq() (uint8, error) {
	if len(t.slots) >= 256 {
		return 0, ErrNoSequenceSpace
	}

	for i := 0; i < 256; i++ {
		candidate := t.nextSeq
		t.nextSeq++

		if _, busy := t.slots[candidate]; !busy {
			return candidate, nil
		}
	}

	return 0, ErrNoSequenceSpace
}

// SendAndAwait allocates the next sequence, serializes the frame, sends it,
// registers a one-shot delivery slot, and waits for either a matching
// response, the timeout, or context cancellation.
func (t *UDPTransport) SendAndAwait(
	ctx context.Context, peer *net.UDPAddr, op Op, group uint16, id uint8, body []byte, timeout time.Duration,
) (Frame, error) {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return Frame{}, ErrClosed
	}

	seq, err := t.allocSeq()
	if err != nil {
		t.mu.Unlock()
		return Frame{}, err
	}

	deliver := make(chan Frame, 1)
	t.slots[seq] = slot{peer: peer, deliver: deliver}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.slots, seq)
		t.mu.Unlock()
	}()

	datagram := EncodeFrame(op, group, id, seq, body)

	if _, err := t.conn.WriteToUDP(datagram, peer); err != nil {
		return Frame{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-deliver:
		return frame, nil
	case <-timer.C:
		return Frame{}, ErrUnreachable
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-t.done:
		return Frame{}, ErrClosed
	}
}

// receiveLoop parses incoming datagrams and delivers them to the waiting
// slot. A datagram that matches no outstanding slot — a duplicate or a very
// late reply — is dropped silently. A datagram whose sender doesn't match
// the slot's peer is treated the same as a non-match: sequence correlation
// is scoped to (peer, seq), not sequence alone.
func (t *UDPTransport) receiveLoop() {
	buf := make([]byte, 2048)

	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}

			t.log.Debug().Err(err).Msg("mgmt: udp read failed")

			return
		}

		frame, err := DecodeFrame(buf[:n])
		if err != nil {
			t.log.Debug().Err(err).Str("peer", addr.String()).Msg("mgmt: dropping malformed frame")
			continue
		}

		t.mu.Lock()
		s, ok := t.slots[frame.Sequence]
		if ok && s.peer.IP.Equal(addr.IP) {
			delete(t.slots, frame.Sequence)
		} else {
			ok = false
		}
		t.mu.Unlock()

		if !ok {
			continue
		}

		select {
		case s.deliver <- frame:
		default:
			// Slot already abandoned by a caller that timed out between our
			// lock release above and this send; nothing to deliver to.
		}
	}
}

// Close shuts down the socket and releases every outstanding SendAndAwait.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)

	return t.conn.Close()
}
