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

package cachestore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetHDD/GetModel when no matching cache entry
// exists, whether or not a SHA was asserted.
var ErrNotFound = errors.New("cachestore: not found")

// ShaMismatchError reports that a put's computed digest didn't match the
// digest the caller asserted it would have.
type ShaMismatchError struct {
	Expected string
	Actual   string
}

func (e *ShaMismatchError) Error() string {
	return fmt.Sprintf("cachestore: sha mismatch: expected %s, got %s", e.Expected, e.Actual)
}
