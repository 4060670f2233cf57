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

// Package registry holds the authoritative in-memory device map: identity,
// lifecycle, HDD binding, and pose, plus the event stream that lets HTTP
// clients observe changes without polling.
package registry

import (
	"net"
	"time"

	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/hdd"
)

// LifecycleState is a device's position in its resolution lifecycle.
type LifecycleState int

const (
	Discovering LifecycleState = iota
	Resolving
	Bound
	Offline
)

func (s LifecycleState) String() string {
	switch s {
	case Discovering:
		return "discovering"
	case Resolving:
		return "resolving"
	case Bound:
		return "bound"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Connectivity is the coarse, externally-visible health derived from
// LifecycleState.
type Connectivity int

const (
	ConnectivityUnknown Connectivity = iota
	ConnectivityOnline
	ConnectivityOffline
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityOnline:
		return "online"
	case ConnectivityOffline:
		return "offline"
	default:
		return "unknown"
	}
}

func connectivityFor(state LifecycleState) Connectivity {
	switch state {
	case Bound:
		return ConnectivityOnline
	case Offline:
		return ConnectivityOffline
	default:
		return ConnectivityUnknown
	}
}

// Device is one observed network peer, from first ARP reply through full
// HDD binding.
type Device struct {
	ID  string // chip-ID hex once probed; "temp-<uuid>" before identification
	IP  net.IP
	MAC net.HardwareAddr

	LastSeen time.Time

	Board   string
	App     string
	Version string

	Lifecycle    LifecycleState
	ResolvingSHA string // set only while Lifecycle == Resolving
	Connectivity Connectivity

	HddSHA   string
	Handle   *cachestore.HDDHandle
	Doc      *hdd.Document
	DocStale bool

	Pose hdd.Pose
}

// clone returns a value copy suitable for handing to a caller outside the
// registry's lock — mutable fields (MAC, Handle, Doc) are shallow-shared
// since callers treat them as read-only.
func (d Device) clone() Device {
	out := d
	return out
}
