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

package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/CogniPilot/dendrite/pkg/registry"
)

const defaultMgmtPort = 1337

// probeAll fans the responder list out across a bounded worker pool,
// mirroring the work-channel/wait-group shape the rest of this codebase
// uses for bounded scans.
func (e *Engine) probeAll(ctx context.Context, ips []net.IP, macByIP map[string]net.HardwareAddr, port, concurrency int) {
	if len(ips) == 0 {
		return
	}

	if port == 0 {
		port = defaultMgmtPort
	}

	workCh := make(chan net.IP, len(ips))

	var wg sync.WaitGroup

	if concurrency <= 0 || concurrency > len(ips) {
		concurrency = len(ips)
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for ip := range workCh {
				e.probeOne(ctx, ip, macByIP[ip.String()], port)
			}
		}()
	}

	for _, ip := range ips {
		workCh <- ip
	}

	close(workCh)

	wg.Wait()
}

// probeOne queries one responder's os_info and, if it succeeds, upserts it
// into the registry and chases its optional hdd_info pointer through the
// asset resolver.
func (e *Engine) probeOne(ctx context.Context, ip net.IP, mac net.HardwareAddr, port int) {
	peer := &net.UDPAddr{IP: ip, Port: port}

	info, err := e.prober.OSInfo(ctx, peer)
	if err != nil {
		e.log.Debug().Err(err).Str("ip", ip.String()).Msg("discovery: peer did not answer os_info")
		return
	}

	board, app, version, chipID := info.Identity()

	ev := e.sink.OnProbe(ip, mac, chipID, registry.OSInfo{Board: board, App: app, Version: version})
	id := ev.Device.ID

	hddInfo, err := e.prober.HDDInfo(ctx, peer)
	if err != nil {
		e.log.Debug().Err(err).Str("ip", ip.String()).Msg("discovery: hdd_info query failed")
		return
	}

	if hddInfo == nil {
		// NotSupported: device has no HDD pointer to chase yet, stays Discovering.
		return
	}

	e.sink.BeginResolving(id, hddInfo.SHA)

	result, err := e.resolver.Resolve(ctx, board, app, hddInfo.SHA)
	if err != nil {
		e.sink.OnFetchResult(id, nil, nil, false, err)
		return
	}

	e.sink.OnFetchResult(id, result.Handle, result.Doc, result.Stale, nil)
}
