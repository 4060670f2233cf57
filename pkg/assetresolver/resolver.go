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

// Package assetresolver turns a device's (board, app, reported SHA) triple
// into a verified, locally-cached HDD document plus all the model assets
// its visuals reference — fetching over HTTP only when the cache can't
// already answer, and falling back to a stale cache entry when the
// device's HTTP server is unreachable or serves bytes that fail
// verification.
package assetresolver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

const (
	fetchTimeout       = 10 * time.Second
	resolutionDeadline = 30 * time.Second
	modelFetchWorkers  = 8
)

// HTTPDoer is the narrow capability Resolver needs from an HTTP client,
// so tests can substitute a fake without standing up a real server.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of a successful resolution.
type Result struct {
	Handle *cachestore.HDDHandle
	Doc    *hdd.Document
	Stale  bool
}

// Resolver implements the staged cache/HTTP/stale-fallback pipeline.
type Resolver struct {
	baseURL string
	cache   *cachestore.Store
	http    HTTPDoer
	log     logger.Logger
}

// NewResolver builds a Resolver that fetches from baseURL (e.g.
// "https://fleet.example.internal") and persists through cache.
func NewResolver(baseURL string, cache *cachestore.Store, doer HTTPDoer, log logger.Logger) *Resolver {
	return &Resolver{baseURL: baseURL, cache: cache, http: doer, log: log}
}

// Resolve produces a fully-populated HDD document and handle for
// (board, app), honoring reportedSHA when the device supplied one.
func (r *Resolver) Resolve(ctx context.Context, board, app, reportedSHA string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, resolutionDeadline)
	defer cancel()

	res, err := r.resolveHDD(ctx, board, app, reportedSHA)
	if err != nil {
		return nil, err
	}

	data, err := readHandle(res.Handle)
	if err != nil {
		return nil, fmt.Errorf("assetresolver: read cached hdd: %w", err)
	}

	doc, _, err := hdd.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("assetresolver: parse hdd: %w", err)
	}

	res.Doc = doc

	r.resolveModels(ctx, board, app, doc)

	return res, nil
}

func (r *Resolver) resolveHDD(ctx context.Context, board, app, reportedSHA string) (*Result, error) {
	if reportedSHA != "" {
		if handle, err := r.cache.GetHDD(board, app, reportedSHA); err == nil {
			return &Result{Handle: handle, Stale: false}, nil
		}
	}

	hddURL, err := url.JoinPath(r.baseURL, board, app, app+".hdd")
	if err != nil {
		return nil, fmt.Errorf("assetresolver: build hdd url: %w", err)
	}

	data, fetchErr := r.fetch(ctx, hddURL)
	if fetchErr == nil {
		if reportedSHA != "" && !r.cache.Verify(reportedSHA, data) {
			mismatch := &ShaMismatchError{URL: hddURL, Expected: reportedSHA, Actual: sha256Hex(data)}
			r.log.Warn().Err(mismatch).Str("board", board).Str("app", app).Msg("assetresolver: hdd sha mismatch, falling back to cache")

			if handle, err := r.cache.GetHDD(board, app, ""); err == nil {
				return &Result{Handle: handle, Stale: true}, nil
			}

			return nil, mismatch
		}

		sha, err := r.cache.PutHDD(board, app, data)
		if err != nil {
			return nil, fmt.Errorf("assetresolver: cache hdd: %w", err)
		}

		handle, err := r.cache.GetHDD(board, app, sha)
		if err != nil {
			return nil, fmt.Errorf("assetresolver: reload cached hdd: %w", err)
		}

		return &Result{Handle: handle, Stale: false}, nil
	}

	r.log.Warn().Err(fetchErr).Str("board", board).Str("app", app).Msg("assetresolver: hdd fetch failed, falling back to cache")

	handle, err := r.cache.GetHDD(board, app, "")
	if err != nil {
		return nil, ErrUnresolved
	}

	return &Result{Handle: handle, Stale: true}, nil
}

// resolveModels fetches every model a document's visuals reference,
// bounded to modelFetchWorkers concurrent fetches, reusing the
// worker-pool/channel idiom used for network probing elsewhere in this
// daemon. Failures are logged and skipped: a missing model never fails
// the overall HDD resolution.
func (r *Resolver) resolveModels(ctx context.Context, board, app string, doc *hdd.Document) {
	type job struct {
		href string
		sha  string
	}

	var jobs []job

	seen := make(map[string]bool)

	for _, comp := range doc.Comps {
		for _, v := range comp.Visuals {
			if v.Model.Href == "" || seen[v.Model.Href] {
				continue
			}

			seen[v.Model.Href] = true
			jobs = append(jobs, job{href: v.Model.Href, sha: v.Model.SHA})
		}
	}

	if len(jobs) == 0 {
		return
	}

	workCh := make(chan job, len(jobs))
	for _, j := range jobs {
		workCh <- j
	}
	close(workCh)

	var wg sync.WaitGroup

	workers := modelFetchWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range workCh {
				if err := r.resolveModel(ctx, board, app, j.href, j.sha); err != nil {
					r.log.Warn().Err(err).Str("href", j.href).Msg("assetresolver: model fetch failed")
				}
			}
		}()
	}

	wg.Wait()
}

func (r *Resolver) resolveModel(ctx context.Context, board, app, href, sha string) error {
	if sha != "" {
		if _, ok := r.cache.GetModel(sha); ok {
			return nil
		}
	}

	modelURL, err := url.JoinPath(r.baseURL, board, app, href)
	if err != nil {
		return fmt.Errorf("assetresolver: build model url: %w", err)
	}

	data, err := r.fetch(ctx, modelURL)
	if err != nil {
		return err
	}

	if sha != "" && !r.cache.Verify(sha, data) {
		return &ShaMismatchError{URL: modelURL, Expected: sha, Actual: sha256Hex(data)}
	}

	name := modelNameFromHref(href)

	if _, err := r.cache.PutModel(name, data); err != nil {
		return fmt.Errorf("assetresolver: cache model: %w", err)
	}

	return nil
}

func (r *Resolver) fetch(ctx context.Context, target string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("assetresolver: build request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assetresolver: fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assetresolver: fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("assetresolver: read body of %s: %w", target, err)
	}

	return data, nil
}

func readHandle(h *cachestore.HDDHandle) ([]byte, error) {
	return os.ReadFile(h.Path)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func modelNameFromHref(href string) string {
	for i := len(href) - 1; i >= 0; i-- {
		if href[i] == '/' {
			return href[i+1:]
		}
	}

	return href
}
