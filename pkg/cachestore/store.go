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

// Package cachestore persists verified HDD documents and their model
// assets on disk, content-addressed by SHA-256, so a device's descriptor
// and meshes survive a restart without refetching from its HTTP server.
//
// Layout under the store root:
//
//	manifest                         small JSON index of everything below
//	<board>/<app>/<sha>-<app>.hdd     verified HDD document content
//	<board>/<app>/<app>.hdd           symlink to the most recent entry above
//	models/<sha>-<name>               deduplicated model blobs, flat
//
// All writes are temp-file-then-rename so a reader never observes a
// partial file and a crash mid-write leaves the previous state intact.
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/CogniPilot/dendrite/pkg/hashutil"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

const modelsDirName = "models"

// HDDHandle locates one cached, verified HDD document.
type HDDHandle struct {
	SHA  string
	Path string
}

// Store is the on-disk cache of HDD documents and model assets.
type Store struct {
	root string
	log  logger.Logger

	mu  sync.Mutex
	man *manifest
}

// NewStore opens (or initializes) a cache store rooted at dir. A missing
// manifest is treated as an empty store; a manifest that fails to parse
// is backed up as manifest.bak and rebuilt by rescanning the tree, per
// ManifestCorrupt recovery.
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cachestore: mkdir root %s: %w", dir, err)
	}

	s := &Store{root: dir, log: log}

	man, err := loadManifest(s.manifestPath())
	switch {
	case err == nil:
		s.man = man
	case os.IsNotExist(err):
		s.man = newManifest()
		if err := s.man.save(s.manifestPath()); err != nil {
			return nil, err
		}
	default:
		log.Warn().Err(err).Msg("cachestore: manifest corrupt, rebuilding from disk scan")

		if backupErr := s.backupCorruptManifest(); backupErr != nil {
			return nil, backupErr
		}

		rebuilt, rebuildErr := rebuildManifestFromDisk(dir)
		if rebuildErr != nil {
			return nil, fmt.Errorf("cachestore: rebuild manifest: %w", rebuildErr)
		}

		s.man = rebuilt
		if err := s.man.save(s.manifestPath()); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, "manifest")
}

func (s *Store) backupCorruptManifest() error {
	backupPath := s.manifestPath() + ".bak"

	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("cachestore: read corrupt manifest: %w", err)
	}

	if err := writeFileAtomic(s.root, backupPath, data); err != nil {
		return fmt.Errorf("cachestore: preserve corrupt manifest: %w", err)
	}

	return nil
}

// GetHDD resolves a cached HDD document for (board, app). When expectedSHA
// is non-empty, only an entry matching that exact digest is returned;
// otherwise the most recently cached entry for the pair is used.
func (s *Store) GetHDD(board, app, expectedSHA string) (*HDDHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		entry HddManifestEntry
		ok    bool
	)

	if expectedSHA != "" {
		entry, ok = s.man.findHDD(board, app, expectedSHA)
	} else {
		entry, ok = s.man.latestHDD(board, app)
	}

	if !ok {
		return nil, ErrNotFound
	}

	fullPath := filepath.Join(s.root, entry.Path)
	if _, err := os.Stat(fullPath); err != nil {
		return nil, fmt.Errorf("cachestore: cached entry missing on disk: %w", ErrNotFound)
	}

	return &HDDHandle{SHA: entry.SHA, Path: fullPath}, nil
}

// PutHDD stores data as the HDD document for (board, app), verifying and
// returning its SHA-256 digest. A put of content already on disk under
// the same digest is a no-op beyond relinking "latest" and is safe to
// call concurrently from multiple fetches racing on the same device.
func (s *Store) PutHDD(board, app string, data []byte) (string, error) {
	sha := sha256Hex(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, board, app)
	filename := shortSHA(sha) + "-" + app + ".hdd"
	fullPath := filepath.Join(dir, filename)

	if _, err := os.Stat(fullPath); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cachestore: stat existing entry: %w", err)
		}

		if err := writeFileAtomic(dir, fullPath, data); err != nil {
			return "", err
		}
	}

	if err := relinkLatest(dir, app+".hdd", filename); err != nil {
		return "", err
	}

	relPath, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return "", fmt.Errorf("cachestore: relativize path: %w", err)
	}

	s.man.upsertHDD(HddManifestEntry{Board: board, App: app, SHA: sha, Path: relPath})

	if err := s.man.save(s.manifestPath()); err != nil {
		return "", err
	}

	return sha, nil
}

// GetModel resolves the on-disk path of a cached model blob by digest.
func (s *Store) GetModel(sha string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.man.findModel(sha)
	if !ok {
		return "", false
	}

	fullPath := filepath.Join(s.root, entry.Path)
	if _, err := os.Stat(fullPath); err != nil {
		return "", false
	}

	return fullPath, true
}

// PutModel stores data as a deduplicated model blob named name, returning
// its SHA-256 digest. Two fetches of the same model content — even under
// different names — settle on whichever filename won the race; both
// observe the same digest.
func (s *Store) PutModel(name string, data []byte) (string, error) {
	sha := sha256Hex(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.man.findModel(sha); ok {
		if _, err := os.Stat(filepath.Join(s.root, entry.Path)); err == nil {
			return sha, nil
		}
	}

	dir := filepath.Join(s.root, modelsDirName)
	filename := shortSHA(sha) + "-" + name
	fullPath := filepath.Join(dir, filename)

	if _, err := os.Stat(fullPath); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cachestore: stat existing model: %w", err)
		}

		if err := writeFileAtomic(dir, fullPath, data); err != nil {
			return "", err
		}
	}

	relPath, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return "", fmt.Errorf("cachestore: relativize path: %w", err)
	}

	s.man.upsertModel(ModelManifestEntry{SHA: sha, Path: relPath, Name: name})

	if err := s.man.save(s.manifestPath()); err != nil {
		return "", err
	}

	return sha, nil
}

// Verify reports whether data's SHA-256 digest matches sha, accepting
// hex, base64, or base64url encodings of the expected digest.
func (s *Store) Verify(sha string, data []byte) bool {
	sum := sha256.Sum256(data)
	return hashutil.EqualSHA256(sha, sum)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func shortSHA(full string) string {
	if len(full) <= 8 {
		return full
	}

	return full[:8]
}

// rebuildManifestFromDisk reconstructs a manifest by walking the store
// tree and recomputing a digest over each file's actual content — it
// never trusts a SHA encoded only in a filename.
func rebuildManifestFromDisk(root string) (*manifest, error) {
	man := newManifest()

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	for _, boardEntry := range entries {
		if !boardEntry.IsDir() || boardEntry.Name() == modelsDirName {
			continue
		}

		board := boardEntry.Name()
		boardDir := filepath.Join(root, board)

		apps, err := os.ReadDir(boardDir)
		if err != nil {
			return nil, err
		}

		for _, appEntry := range apps {
			if !appEntry.IsDir() {
				continue
			}

			app := appEntry.Name()
			appDir := filepath.Join(boardDir, app)

			files, err := os.ReadDir(appDir)
			if err != nil {
				return nil, err
			}

			for _, f := range files {
				if f.IsDir() || f.Name() == app+".hdd" {
					continue
				}

				data, err := os.ReadFile(filepath.Join(appDir, f.Name()))
				if err != nil {
					continue
				}

				relPath, _ := filepath.Rel(root, filepath.Join(appDir, f.Name()))
				man.upsertHDD(HddManifestEntry{
					Board: board,
					App:   app,
					SHA:   sha256Hex(data),
					Path:  relPath,
				})
			}
		}
	}

	modelsDir := filepath.Join(root, modelsDirName)
	if files, err := os.ReadDir(modelsDir); err == nil {
		for _, f := range files {
			if f.IsDir() {
				continue
			}

			data, err := os.ReadFile(filepath.Join(modelsDir, f.Name()))
			if err != nil {
				continue
			}

			sha := sha256Hex(data)
			name := stripShortSHAPrefix(f.Name())
			relPath, _ := filepath.Rel(root, filepath.Join(modelsDir, f.Name()))

			man.upsertModel(ModelManifestEntry{SHA: sha, Path: relPath, Name: name})
		}
	}

	return man, nil
}

func stripShortSHAPrefix(filename string) string {
	for i := 0; i < len(filename); i++ {
		if filename[i] == '-' {
			return filename[i+1:]
		}
	}

	return filename
}
