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
	"encoding/json"
	"os"
	"path/filepath"
)

// HddManifestEntry records one cached HDD document.
type HddManifestEntry struct {
	Board string `json:"board"`
	App   string `json:"app"`
	SHA   string `json:"sha"`
	Path  string `json:"path"`
}

// ModelManifestEntry records one cached, deduplicated model blob.
type ModelManifestEntry struct {
	SHA  string `json:"sha"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// manifest is the on-disk index: {hdds:[...], models:[...]}, matching
// SPEC_FULL.md §6's persisted state layout exactly.
type manifest struct {
	Hdds   []HddManifestEntry   `json:"hdds"`
	Models []ModelManifestEntry `json:"models"`
}

func newManifest() *manifest {
	return &manifest{}
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := newManifest()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}

	return m, nil
}

// save rewrites the manifest atomically: write to a temp file in the same
// directory, then rename over the target.
func (m *manifest) save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(filepath.Dir(path), path, data)
}

func (m *manifest) findHDD(board, app, sha string) (HddManifestEntry, bool) {
	for _, e := range m.Hdds {
		if e.Board == board && e.App == app && (sha == "" || e.SHA == sha) {
			return e, true
		}
	}

	return HddManifestEntry{}, false
}

// latestHDD returns the most recently added entry for (board, app) — the
// manifest records them in insertion order and a new put is always
// appended, so the last match is the latest.
func (m *manifest) latestHDD(board, app string) (HddManifestEntry, bool) {
	var (
		found HddManifestEntry
		ok    bool
	)

	for _, e := range m.Hdds {
		if e.Board == board && e.App == app {
			found = e
			ok = true
		}
	}

	return found, ok
}

func (m *manifest) upsertHDD(entry HddManifestEntry) {
	for i, e := range m.Hdds {
		if e.Board == entry.Board && e.App == entry.App && e.SHA == entry.SHA {
			m.Hdds = append(m.Hdds[:i], m.Hdds[i+1:]...)
			break
		}
	}

	m.Hdds = append(m.Hdds, entry)
}

func (m *manifest) findModel(sha string) (ModelManifestEntry, bool) {
	for _, e := range m.Models {
		if e.SHA == sha {
			return e, true
		}
	}

	return ModelManifestEntry{}, false
}

func (m *manifest) upsertModel(entry ModelManifestEntry) {
	for i, e := range m.Models {
		if e.SHA == entry.SHA {
			m.Models[i] = entry
			return
		}
	}

	m.Models = append(m.Models, entry)
}
