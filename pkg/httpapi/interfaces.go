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

package httpapi

import (
	"context"
	"net"
	"time"

	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/netif"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

// DeviceStore is the narrow slice of *registry.Registry the HTTP surface
// needs, so handlers can be tested against a fake instead of a real
// registry with a live liveness loop.
type DeviceStore interface {
	Snapshot() []registry.Device
	Get(id string) (registry.Device, bool)
	Delete(id string)
	SetPose(id string, pose hdd.Pose) error
	Subscribe() *registry.Subscription
	EnableLiveness(interval time.Duration)
	DisableLiveness()
	LivenessEnabled() bool
}

// ScanTrigger is the narrow slice of *discovery.Engine the HTTP surface
// needs to drive operator-initiated scans and subnet changes.
type ScanTrigger interface {
	Scan(ctx context.Context)
	UpdateSubnet(ctx context.Context, subnet net.IP, prefixLen int) error
}

// InterfaceLister is the narrow slice of *netif.NetIf the HTTP surface
// needs to answer GET /api/interfaces.
type InterfaceLister interface {
	Interfaces() ([]netif.Interface, error)
}
