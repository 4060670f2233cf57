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

	"github.com/CogniPilot/dendrite/pkg/assetresolver"
	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/mgmt"
	"github.com/CogniPilot/dendrite/pkg/netif"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

// Sweeper is the subset of NetIf the engine drives: interface enumeration
// and one bounded ARP sweep per interface.
type Sweeper interface {
	Interfaces() ([]netif.Interface, error)
	ArpSweep(ctx context.Context, iface netif.Interface, subnet net.IP, prefixLen int) (<-chan netif.Responder, error)
}

// Prober is the subset of mgmt.Client a probe needs: identity and the
// optional HDD pointer.
type Prober interface {
	OSInfo(ctx context.Context, peer *net.UDPAddr) (*mgmt.OSInfo, error)
	HDDInfo(ctx context.Context, peer *net.UDPAddr) (*mgmt.HDDInfo, error)
}

// Sink is the subset of Registry a probe feeds results into.
type Sink interface {
	OnProbe(ip net.IP, mac net.HardwareAddr, chipID string, info registry.OSInfo) registry.DeviceEvent
	BeginResolving(id, sha string)
	OnFetchResult(id string, handle *cachestore.HDDHandle, doc *hdd.Document, stale bool, fetchErr error) registry.DeviceEvent
}

// Resolver is the subset of assetresolver.Resolver a probe uses once a
// device reports an HDD pointer.
type Resolver interface {
	Resolve(ctx context.Context, board, app, reportedSHA string) (*assetresolver.Result, error)
}
