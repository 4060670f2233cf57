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

package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

// ErrUnknownDevice is returned by mutators that target a device ID the
// registry has never seen.
var ErrUnknownDevice = errors.New("registry: unknown device")

// LivenessChecker resolves whether a device's IP still answers ARP,
// implemented over pkg/netif by the daemon's wiring.
type LivenessChecker interface {
	IsAlive(ctx context.Context, ip net.IP) (bool, error)
}

// OSInfo is the subset of a probe response the registry cares about.
type OSInfo struct {
	Board   string
	App     string
	Version string
}

// Registry is the single authoritative device map and event source.
// Every mutating method serializes through mu; readers get point-in-time
// copies, never a live reference into the map.
type Registry struct {
	log logger.Logger

	mu      sync.Mutex
	devices map[string]*Device
	byIP    map[string]string // ip.String() -> device ID

	subMu     sync.Mutex
	subs      map[int]*subscriber
	nextSubID int

	liveness        LivenessChecker
	livenessEnabled atomicBool
	livenessCancel  context.CancelFunc
	livenessMu      sync.Mutex
}

// atomicBool avoids importing sync/atomic's typed Bool in a public field
// position; kept unexported and trivial.
type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (b *atomicBool) set(v bool) { b.mu.Lock(); b.v = v; b.mu.Unlock() }
func (b *atomicBool) get() bool  { b.mu.Lock(); defer b.mu.Unlock(); return b.v }

// New builds an empty Registry. checker may be nil if the liveness loop
// will never be enabled.
func New(log logger.Logger, checker LivenessChecker) *Registry {
	return &Registry{
		log:      log,
		devices:  make(map[string]*Device),
		byIP:     make(map[string]string),
		subs:     make(map[int]*subscriber),
		liveness: checker,
	}
}

// OnProbe upserts a device by IP, assigning it a temporary identity until
// chipID is known, then promoting it once the device reports one. It
// returns the event the upsert produced.
func (r *Registry) OnProbe(ip net.IP, mac net.HardwareAddr, chipID string, info OSInfo) DeviceEvent {
	r.mu.Lock()

	id := chipID
	if id == "" {
		if existing, ok := r.byIP[ip.String()]; ok {
			id = existing
		} else {
			id = "temp-" + uuid.NewString()
		}
	}

	dev, existed := r.devices[id]
	if !existed {
		dev = &Device{ID: id, IP: ip, Lifecycle: Discovering}
		r.devices[id] = dev
	}

	rebinding := existed && (dev.Board != info.Board || dev.App != info.App)

	dev.IP = ip
	dev.MAC = mac
	dev.LastSeen = time.Now()
	dev.Board = info.Board
	dev.App = info.App
	dev.Version = info.Version
	dev.Connectivity = connectivityFor(dev.Lifecycle)
	r.byIP[ip.String()] = id

	var kind EventKind

	switch {
	case !existed:
		kind = EventDiscovered
	case rebinding:
		kind = EventRebinding
		dev.Lifecycle = Discovering
		dev.HddSHA = ""
		dev.Handle = nil
		dev.Doc = nil
		dev.Connectivity = connectivityFor(dev.Lifecycle)
	default:
		kind = EventUpdated
	}

	snapshot := dev.clone()
	r.mu.Unlock()

	ev := DeviceEvent{Kind: kind, Device: snapshot}
	r.broadcast(ev)

	return ev
}

// BeginResolving marks id as Resolving against the given HDD SHA, ahead
// of an AssetResolver call. It is a no-op if id is unknown.
func (r *Registry) BeginResolving(id, sha string) {
	r.mu.Lock()
	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	dev.Lifecycle = Resolving
	dev.ResolvingSHA = sha
	dev.Connectivity = connectivityFor(dev.Lifecycle)
	snapshot := dev.clone()
	r.mu.Unlock()

	r.broadcast(DeviceEvent{Kind: EventUpdated, Device: snapshot})
}

// OnFetchResult completes a Resolving -> Bound transition, or records a
// failed resolution by leaving the device bound to its prior HDD (if any)
// or otherwise reverting it to Discovering.
func (r *Registry) OnFetchResult(id string, handle *cachestore.HDDHandle, doc *hdd.Document, stale bool, fetchErr error) DeviceEvent {
	r.mu.Lock()

	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return DeviceEvent{}
	}

	if fetchErr != nil {
		r.log.Warn().Err(fetchErr).Str("device_id", id).Msg("registry: hdd resolution failed")

		if dev.HddSHA == "" {
			dev.Lifecycle = Discovering
		} else {
			// Remain Bound to the prior HDD.
			dev.Lifecycle = Bound
		}

		dev.ResolvingSHA = ""
		dev.Connectivity = connectivityFor(dev.Lifecycle)
		snapshot := dev.clone()
		r.mu.Unlock()

		ev := DeviceEvent{Kind: EventUpdated, Device: snapshot}
		r.broadcast(ev)

		return ev
	}

	dev.Lifecycle = Bound
	dev.ResolvingSHA = ""
	dev.HddSHA = handle.SHA
	dev.Handle = handle
	dev.Doc = doc
	dev.DocStale = stale
	dev.Connectivity = connectivityFor(dev.Lifecycle)

	snapshot := dev.clone()
	r.mu.Unlock()

	ev := DeviceEvent{Kind: EventUpdated, Device: snapshot}
	r.broadcast(ev)

	return ev
}

// OnLiveness may transition Bound <-> Offline. It emits an EventStatus
// only when the lifecycle actually changes.
func (r *Registry) OnLiveness(id string, online bool) {
	r.mu.Lock()

	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	var changed bool

	switch {
	case !online && dev.Lifecycle == Bound:
		dev.Lifecycle = Offline
		changed = true
	case online && dev.Lifecycle == Offline:
		dev.Lifecycle = Bound
		changed = true
	}

	if !changed {
		r.mu.Unlock()
		return
	}

	dev.Connectivity = connectivityFor(dev.Lifecycle)
	snapshot := dev.clone()
	r.mu.Unlock()

	r.broadcast(DeviceEvent{Kind: EventStatus, Device: snapshot})
}

// SetPose overwrites id's pose and broadcasts the change as EventUpdated.
// It reports ErrUnknownDevice if id isn't registered.
func (r *Registry) SetPose(id string, pose hdd.Pose) error {
	r.mu.Lock()

	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	dev.Pose = pose
	snapshot := dev.clone()
	r.mu.Unlock()

	r.broadcast(DeviceEvent{Kind: EventUpdated, Device: snapshot})

	return nil
}

// Delete removes id, emitting EventRemoved. Deletion is the only way a
// device ever leaves the registry — offline devices persist.
func (r *Registry) Delete(id string) {
	r.mu.Lock()

	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(r.devices, id)
	delete(r.byIP, dev.IP.String())

	snapshot := dev.clone()
	r.mu.Unlock()

	r.broadcast(DeviceEvent{Kind: EventRemoved, Device: snapshot})
}

// Snapshot returns a point-in-time copy of every known device.
func (r *Registry) Snapshot() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.clone())
	}

	return out
}

// Get returns a point-in-time copy of one device.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}

	return dev.clone(), true
}

// Subscribe registers a new event consumer. The returned Subscription's
// channel is primed with a synthetic EventDiscovered burst covering the
// current snapshot, so a client never needs a separate "list all" call.
func (r *Registry) Subscribe() *Subscription {
	sub := newSubscriber()

	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = sub
	r.subMu.Unlock()

	for _, dev := range r.Snapshot() {
		sub.send(DeviceEvent{Kind: EventDiscovered, Device: dev})
	}

	return &Subscription{
		sub: sub,
		cancel: func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
		},
	}
}

func (r *Registry) broadcast(ev DeviceEvent) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, sub := range r.subs {
		sub.send(ev)
	}
}
