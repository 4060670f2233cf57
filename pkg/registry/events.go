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
	"sync/atomic"
)

// EventKind classifies a DeviceEvent.
type EventKind int

const (
	EventDiscovered EventKind = iota
	EventUpdated
	EventRebinding
	EventStatus
	EventRemoved
	EventLagged
)

func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventUpdated:
		return "updated"
	case EventRebinding:
		return "rebinding"
	case EventStatus:
		return "status"
	case EventRemoved:
		return "removed"
	case EventLagged:
		return "lagged"
	default:
		return "unknown"
	}
}

// DeviceEvent is one registry state change delivered to subscribers.
// Device is the zero value for an EventLagged event; Lagged carries the
// drop count instead.
type DeviceEvent struct {
	Kind   EventKind
	Device Device
	Lagged int
}

// subscriberBufferSize bounds how many events a slow subscriber can fall
// behind by before the registry starts dropping in its favor rather than
// blocking the writer.
const subscriberBufferSize = 128

// subscriber is the registry's side of one Subscription: a bounded
// channel plus a count of events dropped since the last successful send.
type subscriber struct {
	ch      chan DeviceEvent
	dropped atomic.Int64
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan DeviceEvent, subscriberBufferSize)}
}

// send is non-blocking: if the subscriber's buffer is full, the event is
// dropped and counted rather than stalling the registry's single writer.
func (s *subscriber) send(ev DeviceEvent) {
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Subscription is a consumer's handle on the registry's event stream.
type Subscription struct {
	sub    *subscriber
	cancel func()
}

// Recv blocks until the next event, ctx cancellation, or the subscription
// being closed. If events were dropped since the last Recv, it returns a
// synthetic EventLagged carrying the drop count before delivering any
// further buffered event, so a caller never silently misses updates.
func (s *Subscription) Recv(ctx context.Context) (DeviceEvent, error) {
	if n := s.sub.dropped.Swap(0); n > 0 {
		return DeviceEvent{Kind: EventLagged, Lagged: int(n)}, nil
	}

	select {
	case ev, ok := <-s.sub.ch:
		if !ok {
			return DeviceEvent{}, context.Canceled
		}

		return ev, nil
	case <-ctx.Done():
		return DeviceEvent{}, ctx.Err()
	}
}

// Close unregisters the subscription from the registry.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
