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

import "strings"

// ParsedLegacyOSInfo is what ParseLegacyOSInfo extracts from a Zephyr-style
// os_info banner string.
type ParsedLegacyOSInfo struct {
	AppName string
	Board   string
	HwID    string
}

// ParseLegacyOSInfo extracts the application name, board identifier and
// hardware unique ID from a Zephyr os_info banner of the form:
//
//	Zephyr <app> <hash> <version> <date> <arch> <proc> <board>/<soc>/<cpu> Zephyr hwid:<id>
//
// Some devices report this single banner string (carried in OSInfo.Legacy)
// instead of the structured fields, so a consumer that only looked at
// OSName/OSVersion would see nothing useful. AppName is the token
// immediately after "Zephyr"; Board is the first later token containing a
// "/" that isn't itself a version number or an "hwid:"-prefixed token; HwID
// is the value of the "hwid:"-prefixed token, the device's chip-unique ID.
func ParseLegacyOSInfo(banner string) ParsedLegacyOSInfo {
	fields := strings.Fields(banner)

	var result ParsedLegacyOSInfo

	for i, f := range fields {
		if f == "Zephyr" && i+1 < len(fields) {
			result.AppName = fields[i+1]
			break
		}
	}

	for _, f := range fields {
		if strings.HasPrefix(f, "hwid:") {
			result.HwID = strings.TrimPrefix(f, "hwid:")
			continue
		}

		if !strings.Contains(f, "/") {
			continue
		}

		if looksLikeVersion(f) {
			continue
		}

		if result.Board == "" {
			result.Board = strings.SplitN(f, "/", 2)[0]
		}
	}

	return result
}

// looksLikeVersion reports whether f is a dotted/slashed version-like token
// such as "1.0/2" rather than a board/soc/cpu triple.
func looksLikeVersion(f string) bool {
	for _, c := range f {
		if c == '/' || c == '.' {
			continue
		}

		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
