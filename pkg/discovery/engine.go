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

// Package discovery orchestrates one network scan at a time: an ARP sweep
// over the configured subnet followed by bounded-concurrency MGMT probes
// of every address that answered, feeding results into a Registry and an
// AssetResolver. A scan already in flight absorbs further triggers into a
// single rescan once it finishes, rather than running two at once.
package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/CogniPilot/dendrite/pkg/logger"
	"github.com/CogniPilot/dendrite/pkg/netif"
)

const defaultProbeConcurrency = 32

// Config is the engine's view of the discovery.* configuration keys.
type Config struct {
	Subnet      net.IP
	PrefixLen   int
	MgmtPort    int
	Concurrency int // 0 means defaultProbeConcurrency
}

// Engine owns the scan/probe/coalesce state machine described above.
type Engine struct {
	log      logger.Logger
	sweeper  Sweeper
	prober   Prober
	sink     Sink
	resolver Resolver

	mu            sync.Mutex
	cfg           Config
	scanning      bool
	rescanPending bool
}

// NewEngine wires an Engine from its four capability dependencies. cfg may
// be the zero value; Scan then derives a sweep target per interface from
// that interface's own address instead of a configured subnet.
func NewEngine(cfg Config, sweeper Sweeper, prober Prober, sink Sink, resolver Resolver, log logger.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultProbeConcurrency
	}

	return &Engine{
		log:      log,
		sweeper:  sweeper,
		prober:   prober,
		sink:     sink,
		resolver: resolver,
		cfg:      cfg,
	}
}

// UpdateSubnet changes the scan target and triggers a rescan, per the
// "change of subnet config" scan trigger.
func (e *Engine) UpdateSubnet(ctx context.Context, subnet net.IP, prefixLen int) error {
	if subnet == nil || prefixLen < 0 || prefixLen > 32 {
		return ErrInvalidSubnet
	}

	e.mu.Lock()
	e.cfg.Subnet = subnet
	e.cfg.PrefixLen = prefixLen
	e.mu.Unlock()

	e.Scan(ctx)

	return nil
}

// Scan triggers a scan. If one is already running, this trigger is
// coalesced into a single rescan that starts as soon as the current one
// completes, rather than running concurrently with it. Scan returns
// immediately; the scan itself runs in the background.
func (e *Engine) Scan(ctx context.Context) {
	e.mu.Lock()

	if e.scanning {
		e.rescanPending = true
		e.mu.Unlock()

		return
	}

	e.scanning = true
	e.mu.Unlock()

	go e.runLoop(ctx)
}

func (e *Engine) runLoop(ctx context.Context) {
	for {
		e.runOnce(ctx)

		e.mu.Lock()

		if !e.rescanPending {
			e.scanning = false
			e.mu.Unlock()

			return
		}

		e.rescanPending = false
		e.mu.Unlock()
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	ifaces, err := e.sweeper.Interfaces()
	if err != nil {
		e.log.Warn().Err(err).Msg("discovery: enumerating interfaces failed")
		return
	}

	if len(ifaces) == 0 {
		e.log.Warn().Err(ErrNoInterfaces).Msg("discovery: scan aborted")
		return
	}

	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	var responders []net.IP

	macByIP := make(map[string]net.HardwareAddr)

	for _, iface := range ifaces {
		subnet, prefixLen := targetFor(iface, cfg)
		if subnet == nil {
			continue
		}

		ch, err := e.sweeper.ArpSweep(ctx, iface, subnet, prefixLen)
		if err != nil {
			e.log.Warn().Err(err).Str("iface", iface.Name).Msg("discovery: arp sweep failed")
			continue
		}

		for r := range ch {
			responders = append(responders, r.IP)
			macByIP[r.IP.String()] = r.MAC
		}
	}

	e.probeAll(ctx, responders, macByIP, cfg.MgmtPort, cfg.Concurrency)
}

// targetFor picks the sweep target for iface: the engine's configured
// subnet if one is set, otherwise the interface's own network derived from
// its IPv4 address and mask.
func targetFor(iface netif.Interface, cfg Config) (net.IP, int) {
	if cfg.Subnet != nil && cfg.PrefixLen > 0 {
		return cfg.Subnet, cfg.PrefixLen
	}

	if iface.IP == nil || iface.Mask == nil {
		return nil, 0
	}

	ones, _ := iface.Mask.Size()

	return iface.IP.Mask(iface.Mask), ones
}
