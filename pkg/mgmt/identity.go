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

// Identity derives a probed device's board, app, version and chip-unique ID
// from an os_info response. The structured fields map hw_rev -> board,
// os_name -> app, os_version -> version; none of them is a unique-ID field,
// so chipID is populated only when the peer instead (or additionally)
// reports a legacy Zephyr banner carrying a "hwid:" token (see
// ParseLegacyOSInfo). A peer with no legacy banner and no hwid has no
// chip-unique identity at this layer — its caller assigns it a temporary
// one keyed on IP until a later probe supplies one.
func (o *OSInfo) Identity() (board, app, version, chipID string) {
	if o.HwRev != nil {
		board = *o.HwRev
	}

	if o.OSName != nil {
		app = *o.OSName
	}

	if o.OSVersion != nil {
		version = *o.OSVersion
	}

	if o.Legacy != nil {
		parsed := ParseLegacyOSInfo(*o.Legacy)

		if board == "" {
			board = parsed.Board
		}

		if app == "" {
			app = parsed.AppName
		}

		chipID = parsed.HwID
	}

	return board, app, version, chipID
}
