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
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to a temp file inside dir, fsyncs it, then
// renames it onto target. A reader never observes a partially written
// file, even if the process is killed mid-write.
func writeFileAtomic(dir, target string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cachestore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cachestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cachestore: write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cachestore: sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cachestore: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("cachestore: rename into place: %w", err)
	}

	return nil
}

// relinkLatest repoints the "<app>.hdd" symlink in dir at target, replacing
// any existing link atomically via rename-over.
func relinkLatest(dir, linkName, targetName string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cachestore: mkdir %s: %w", dir, err)
	}

	linkPath := filepath.Join(dir, linkName)
	tmpLink := filepath.Join(dir, ".tmp-link-"+linkName)

	_ = os.Remove(tmpLink)

	if err := os.Symlink(targetName, tmpLink); err != nil {
		return fmt.Errorf("cachestore: create symlink: %w", err)
	}

	if err := os.Rename(tmpLink, linkPath); err != nil {
		_ = os.Remove(tmpLink)
		return fmt.Errorf("cachestore: rename symlink into place: %w", err)
	}

	return nil
}
