package assetresolver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

const sampleHDD = `<hdd><comp name="cam"><visual name="body" pose="0 0 0 0 0 0"><model href="body.glb" sha="%s"/></visual></comp></hdd>`

func shaHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fakeDoer answers fixed byte responses keyed by exact URL, or a network
// error for URLs not present in the map.
type fakeDoer struct {
	mu        sync.Mutex
	responses map[string][]byte
	status    map[string]int
	calls     []string
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{responses: map[string][]byte{}, status: map[string]int{}}
}

func (f *fakeDoer) set(url string, data []byte) {
	f.responses[url] = data
	f.status[url] = http.StatusOK
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL.String())
	f.mu.Unlock()

	data, ok := f.responses[req.URL.String()]
	if !ok {
		return nil, fmt.Errorf("fakeDoer: connection refused for %s", req.URL.String())
	}

	return &http.Response{
		StatusCode: f.status[req.URL.String()],
		Body:       io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func newTestResolver(t *testing.T, doer *fakeDoer) (*Resolver, *cachestore.Store) {
	t.Helper()

	store, err := cachestore.NewStore(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	return NewResolver("https://fleet.example.internal", store, doer, logger.NewTestLogger()), store
}

func TestResolveFetchesAndCachesWhenNoReportedSHA(t *testing.T) {
	doer := newFakeDoer()
	modelData := []byte("glb-bytes")
	doc := []byte(fmt.Sprintf(sampleHDD, shaHex(modelData)))

	doer.set("https://fleet.example.internal/pixhawk/flight-controller/flight-controller.hdd", doc)
	doer.set("https://fleet.example.internal/pixhawk/flight-controller/body.glb", modelData)

	r, store := newTestResolver(t, doer)

	res, err := r.Resolve(context.Background(), "pixhawk", "flight-controller", "")
	require.NoError(t, err)
	require.False(t, res.Stale)
	require.Len(t, res.Doc.Comps, 1)

	_, ok := store.GetModel(shaHex(modelData))
	require.True(t, ok)
}

func TestResolveUsesCacheWhenReportedSHAMatches(t *testing.T) {
	doer := newFakeDoer()
	doc := []byte(`<hdd><comp name="cam"></comp></hdd>`)

	r, store := newTestResolver(t, doer)

	sha, err := store.PutHDD("board", "app", doc)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "board", "app", sha)
	require.NoError(t, err)
	require.False(t, res.Stale)
	require.Empty(t, doer.calls, "cache hit should never reach the network")
}

func TestResolveFallsBackToStaleCacheOnFetchFailure(t *testing.T) {
	doer := newFakeDoer() // empty: every fetch fails
	doc := []byte(fmt.Sprintf(sampleHDD, ""))

	r, store := newTestResolver(t, doer)

	_, err := store.PutHDD("board", "app", doc)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "board", "app", "")
	require.NoError(t, err)
	require.True(t, res.Stale)
}

func TestResolveReturnsUnresolvedWithNoCacheAndNoNetwork(t *testing.T) {
	doer := newFakeDoer()
	r, _ := newTestResolver(t, doer)

	_, err := r.Resolve(context.Background(), "board", "app", "")
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestResolveRejectsMismatchedReportedSHA(t *testing.T) {
	doer := newFakeDoer()
	doc := []byte(fmt.Sprintf(sampleHDD, ""))

	doer.set("https://fleet.example.internal/board/app/app.hdd", doc)

	r, _ := newTestResolver(t, doer)

	_, err := r.Resolve(context.Background(), "board", "app", hex.EncodeToString(make([]byte, 32)))
	require.Error(t, err)

	var mismatch *ShaMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestResolveDeduplicatesRepeatedModelHrefs(t *testing.T) {
	doer := newFakeDoer()
	modelData := []byte("shared-mesh")
	// Two visuals referencing the same href.
	docStr := fmt.Sprintf(
		`<hdd><comp name="c"><visual name="a" pose="0 0 0 0 0 0"><model href="m.glb" sha="%s"/></visual>`+
			`<visual name="b" pose="0 0 0 0 0 0"><model href="m.glb" sha="%s"/></visual></comp></hdd>`,
		shaHex(modelData), shaHex(modelData),
	)

	doer.set("https://fleet.example.internal/board/app/app.hdd", []byte(docStr))
	doer.set("https://fleet.example.internal/board/app/m.glb", modelData)

	r, _ := newTestResolver(t, doer)

	_, err := r.Resolve(context.Background(), "board", "app", "")
	require.NoError(t, err)

	modelFetches := 0
	for _, c := range doer.calls {
		if c == "https://fleet.example.internal/board/app/m.glb" {
			modelFetches++
		}
	}
	require.Equal(t, 1, modelFetches)
}
