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

package netif

import "errors"

var (
	// ErrPermissionDenied is returned when the process lacks the
	// capability to open a raw socket (CAP_NET_RAW, or root).
	ErrPermissionDenied = errors.New("netif: permission denied opening raw socket")

	// ErrInterfaceUnavailable is returned when the requested interface
	// doesn't exist, is down, or ARP sweeping isn't supported for it on
	// this platform.
	ErrInterfaceUnavailable = errors.New("netif: interface unavailable")
)
