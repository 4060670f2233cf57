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
	"sync"
	"time"

	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/netif"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

type fakeDeviceStore struct {
	mu      sync.Mutex
	devices map[string]registry.Device
	deleted []string
	poses   map[string]hdd.Pose
	unknown map[string]bool
	enabled bool
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{devices: make(map[string]registry.Device), poses: make(map[string]hdd.Pose), unknown: make(map[string]bool)}
}

func (f *fakeDeviceStore) Snapshot() []registry.Device {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]registry.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}

	return out
}

func (f *fakeDeviceStore) Get(id string) (registry.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.devices[id]

	return d, ok
}

func (f *fakeDeviceStore) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.devices, id)
	f.deleted = append(f.deleted, id)
}

func (f *fakeDeviceStore) SetPose(id string, pose hdd.Pose) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unknown[id] {
		return registry.ErrUnknownDevice
	}

	f.poses[id] = pose

	return nil
}

func (f *fakeDeviceStore) Subscribe() *registry.Subscription {
	return nil
}

func (f *fakeDeviceStore) EnableLiveness(_ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
}

func (f *fakeDeviceStore) DisableLiveness() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
}

func (f *fakeDeviceStore) LivenessEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.enabled
}

type fakeScanTrigger struct {
	mu         sync.Mutex
	scans      int
	lastSubnet net.IP
	lastPrefix int
}

func (f *fakeScanTrigger) Scan(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
}

func (f *fakeScanTrigger) UpdateSubnet(_ context.Context, subnet net.IP, prefixLen int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSubnet = subnet
	f.lastPrefix = prefixLen

	return nil
}

type fakeInterfaceLister struct {
	ifaces []netif.Interface
	err    error
}

func (f *fakeInterfaceLister) Interfaces() ([]netif.Interface, error) {
	return f.ifaces, f.err
}
