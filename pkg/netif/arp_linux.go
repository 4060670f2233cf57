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

//go:build linux

package netif

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

const (
	ethHeaderLen = 14
	arpPacketLen = 28
	frameLen     = ethHeaderLen + arpPacketLen

	arpHWTypeEthernet = 1
	arpProtoTypeIPv4  = 0x0800
	arpOpRequest      = 1
	arpOpReply        = 2

	pollInterval = 200 * time.Millisecond
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// arpSweepPlatform opens a raw AF_PACKET socket bound to ETH_P_ARP on
// iface, sends one ARP request per target, and collects replies for
// window before closing — the same raw-socket-with-permission-fallback
// shape as a SYN scanner falling back to plain TCP when it can't get a
// raw socket.
func arpSweepPlatform(
	ctx context.Context,
	iface Interface,
	targets []net.IP,
	window time.Duration,
	log logger.Logger,
) (<-chan Responder, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ARP)))
	if err != nil {
		if errors.Is(err, unix.EPERM) {
			return nil, ErrPermissionDenied
		}

		return nil, fmt.Errorf("netif: open raw socket: %w", err)
	}

	bindAddr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ARP),
		Ifindex:  iface.Index,
	}

	if err := unix.Bind(fd, bindAddr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: bind to %s: %v", ErrInterfaceUnavailable, iface.Name, err)
	}

	// Poll in short slices so we notice ctx cancellation promptly instead
	// of blocking for the whole window on one read.
	timeout := unix.Timeval{Sec: 0, Usec: int64(pollInterval / time.Microsecond)}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &timeout); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("netif: set recv timeout: %w", err)
	}

	out := make(chan Responder, len(targets))

	go func() {
		defer close(out)
		defer unix.Close(fd)

		for _, target := range targets {
			frame := buildARPRequest(iface, target)

			dst := &unix.SockaddrLinklayer{
				Protocol: htons(unix.ETH_P_ARP),
				Ifindex:  iface.Index,
				Halen:    6,
			}
			copy(dst.Addr[:6], broadcastMAC)

			if err := unix.Sendto(fd, frame, 0, dst); err != nil {
				log.Debug().Err(err).Str("target", target.String()).Msg("netif: arp request send failed")
			}

			if ctx.Err() != nil {
				return
			}
		}

		deadline := time.Now().Add(window)
		buf := make([]byte, 128)

		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return
			}

			n, _, err := unix.Recvfrom(fd, buf, 0)
			if err != nil {
				continue // read timeout (SO_RCVTIMEO) or transient error; keep polling
			}

			if resp, ok := parseARPReply(buf[:n]); ok {
				select {
				case out <- resp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func buildARPRequest(iface Interface, target net.IP) []byte {
	frame := make([]byte, frameLen)

	copy(frame[0:6], broadcastMAC)
	copy(frame[6:12], iface.HardwareAddr)
	binary.BigEndian.PutUint16(frame[12:14], unix.ETH_P_ARP)

	arp := frame[ethHeaderLen:]
	binary.BigEndian.PutUint16(arp[0:2], arpHWTypeEthernet)
	binary.BigEndian.PutUint16(arp[2:4], arpProtoTypeIPv4)
	arp[4] = 6
	arp[5] = 4
	binary.BigEndian.PutUint16(arp[6:8], arpOpRequest)
	copy(arp[8:14], iface.HardwareAddr)
	copy(arp[14:18], iface.IP.To4())
	// target hardware address left zeroed: unknown, that's what we're asking for.
	copy(arp[24:28], target.To4())

	return frame
}

func parseARPReply(frame []byte) (Responder, bool) {
	if len(frame) < frameLen {
		return Responder{}, false
	}

	if binary.BigEndian.Uint16(frame[12:14]) != unix.ETH_P_ARP {
		return Responder{}, false
	}

	arp := frame[ethHeaderLen:]
	if binary.BigEndian.Uint16(arp[6:8]) != arpOpReply {
		return Responder{}, false
	}

	mac := make(net.HardwareAddr, 6)
	copy(mac, arp[8:14])

	ip := make(net.IP, 4)
	copy(ip, arp[14:18])

	return Responder{IP: ip, MAC: mac}, true
}

func htons(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}
