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

// Package netif enumerates local network interfaces and performs ARP
// sweeps over raw sockets to discover devices sharing a subnet, without
// relying on any higher-level protocol response.
package netif

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

// defaultSweepWindow bounds how long an ARP sweep waits for replies after
// sending its last request.
const defaultSweepWindow = 2 * time.Second

// Interface is one active, IPv4-addressed local network interface.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	IP           net.IP
	Mask         net.IPMask
}

// Responder is one ARP reply observed during a sweep.
type Responder struct {
	IP  net.IP
	MAC net.HardwareAddr
}

// NetIf enumerates interfaces and drives ARP sweeps.
type NetIf struct {
	log    logger.Logger
	window time.Duration
}

// NewNetIf builds a NetIf using the default sweep window.
func NewNetIf(log logger.Logger) *NetIf {
	return &NetIf{log: log, window: defaultSweepWindow}
}

// Interfaces lists active, IPv4-addressed, non-loopback interfaces.
func (n *NetIf) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("netif: list interfaces: %w", err)
	}

	var out []Interface

	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := ifc.Addrs()
		if err != nil {
			n.log.Warn().Err(err).Str("iface", ifc.Name).Msg("netif: failed to read addresses")
			continue
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}

			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}

			out = append(out, Interface{
				Name:         ifc.Name,
				Index:        ifc.Index,
				HardwareAddr: ifc.HardwareAddr,
				IP:           ip4,
				Mask:         ipNet.Mask,
			})

			break
		}
	}

	return out, nil
}

// ArpSweep emits an ARP request for every host address in subnet/prefixLen
// (excluding the network and broadcast addresses) over iface, and streams
// back replies as they arrive within the sweep window. Unresponsive
// addresses are simply omitted — no error is raised for them.
func (n *NetIf) ArpSweep(ctx context.Context, iface Interface, subnet net.IP, prefixLen int) (<-chan Responder, error) {
	if iface.HardwareAddr == nil || len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("%w: %s has no ethernet address", ErrInterfaceUnavailable, iface.Name)
	}

	targets := hostAddresses(subnet, prefixLen)
	if len(targets) == 0 {
		ch := make(chan Responder)
		close(ch)

		return ch, nil
	}

	return arpSweepPlatform(ctx, iface, targets, n.window, n.log)
}

// IsAlive implements registry.LivenessChecker over this same raw-socket ARP
// primitive: a single-target probe against whichever local interface shares
// ip's subnet, reporting whether any reply arrived within the sweep window.
func (n *NetIf) IsAlive(ctx context.Context, ip net.IP) (bool, error) {
	ifaces, err := n.Interfaces()
	if err != nil {
		return false, err
	}

	iface, ok := matchingInterface(ifaces, ip)
	if !ok {
		return false, fmt.Errorf("%w: no local interface shares a subnet with %s", ErrInterfaceUnavailable, ip)
	}

	ch, err := arpSweepPlatform(ctx, iface, []net.IP{ip}, n.window, n.log)
	if err != nil {
		return false, err
	}

	for range ch {
		return true, nil
	}

	return false, nil
}

// matchingInterface finds the local interface whose IPv4 network contains
// ip, so a liveness probe is sent from the right link.
func matchingInterface(ifaces []Interface, ip net.IP) (Interface, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return Interface{}, false
	}

	for _, iface := range ifaces {
		if iface.IP == nil || iface.Mask == nil {
			continue
		}

		if iface.IP.Mask(iface.Mask).Equal(ip4.Mask(iface.Mask)) {
			return iface, true
		}
	}

	return Interface{}, false
}

// hostAddresses enumerates every usable IPv4 host address in the given
// subnet, excluding the network and broadcast addresses.
func hostAddresses(subnet net.IP, prefixLen int) []net.IP {
	ip4 := subnet.To4()
	if ip4 == nil || prefixLen < 0 || prefixLen > 32 {
		return nil
	}

	mask := net.CIDRMask(prefixLen, 32)
	network := ip4.Mask(mask)

	base := be32(network)
	hostBits := 32 - prefixLen

	if hostBits <= 1 {
		// /31 and /32 have no distinct network/broadcast split to exclude.
		var out []net.IP
		for i := uint32(0); i < uint32(1)<<uint(hostBits); i++ {
			out = append(out, fromBE32(base+i))
		}

		return out
	}

	count := uint32(1) << uint(hostBits)
	broadcast := base + count - 1

	var out []net.IP

	for addr := base + 1; addr < broadcast; addr++ {
		out = append(out, fromBE32(addr))
	}

	return out
}

func be32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func fromBE32(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
