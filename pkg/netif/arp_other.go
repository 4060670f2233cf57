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

//go:build !linux

package netif

import (
	"context"
	"net"
	"time"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

// arpSweepPlatform has no raw-socket implementation outside Linux; this
// daemon targets Linux gateway hardware, so non-Linux builds report the
// interface as unavailable for sweeping rather than silently finding
// nothing.
func arpSweepPlatform(
	_ context.Context,
	iface Interface,
	_ []net.IP,
	_ time.Duration,
	log logger.Logger,
) (<-chan Responder, error) {
	log.Warn().Str("iface", iface.Name).Msg("netif: arp sweep unsupported on this platform")

	return nil, ErrInterfaceUnavailable
}
