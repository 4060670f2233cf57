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

package mgmt

import "errors"

var (
	// ErrNoSequenceSpace is returned when all 256 sequence numbers are
	// currently outstanding and no new request can be correlated safely.
	ErrNoSequenceSpace = errors.New("mgmt: no sequence space available")

	// ErrUnreachable is returned when a peer does not respond within the
	// retry budget.
	ErrUnreachable = errors.New("mgmt: peer unreachable")

	// ErrProtocolMismatch is returned when a peer returns a malformed
	// header or a body that fails to decode as CBOR.
	ErrProtocolMismatch = errors.New("mgmt: protocol mismatch")

	// ErrNotSupported is returned internally when a peer responds with an
	// unknown group/id; MgmtClient maps this to (nil, nil) for hdd_info
	// rather than propagating it as an error.
	ErrNotSupported = errors.New("mgmt: group/id not supported by peer")

	// ErrClosed is returned by Transport operations after Close.
	ErrClosed = errors.New("mgmt: transport closed")
)
