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

package assetresolver

import (
	"errors"
	"fmt"
)

// ErrUnresolved is returned when a fetch fails and no cached fallback
// exists for the (board, app) pair.
var ErrUnresolved = errors.New("assetresolver: unresolved")

// ShaMismatchError reports that fetched content didn't hash to the digest
// a device reported for it.
type ShaMismatchError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ShaMismatchError) Error() string {
	return fmt.Sprintf("assetresolver: sha mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}
