package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CogniPilot/dendrite/pkg/assetresolver"
	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/logger"
	"github.com/CogniPilot/dendrite/pkg/mgmt"
	"github.com/CogniPilot/dendrite/pkg/netif"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

type fakeSweeper struct {
	ifaces    []netif.Interface
	responded []netif.Responder
	sweptErr  error

	mu     sync.Mutex
	sweeps int
}

func (f *fakeSweeper) Interfaces() ([]netif.Interface, error) { return f.ifaces, nil }

func (f *fakeSweeper) ArpSweep(_ context.Context, _ netif.Interface, _ net.IP, _ int) (<-chan netif.Responder, error) {
	f.mu.Lock()
	f.sweeps++
	f.mu.Unlock()

	if f.sweptErr != nil {
		return nil, f.sweptErr
	}

	ch := make(chan netif.Responder, len(f.responded))
	for _, r := range f.responded {
		ch <- r
	}
	close(ch)

	return ch, nil
}

type fakeProber struct {
	mu        sync.Mutex
	osInfo    map[string]*mgmt.OSInfo
	hddInfo   map[string]*mgmt.HDDInfo
	osErr     map[string]error
	hddCalled []string
}

func (f *fakeProber) OSInfo(_ context.Context, peer *net.UDPAddr) (*mgmt.OSInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ip := peer.IP.String()
	if err, ok := f.osErr[ip]; ok {
		return nil, err
	}

	return f.osInfo[ip], nil
}

func (f *fakeProber) HDDInfo(_ context.Context, peer *net.UDPAddr) (*mgmt.HDDInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ip := peer.IP.String()
	f.hddCalled = append(f.hddCalled, ip)

	return f.hddInfo[ip], nil
}

type fakeSink struct {
	mu       sync.Mutex
	probes   int
	resolved []string
	failed   int
}

func (f *fakeSink) OnProbe(ip net.IP, _ net.HardwareAddr, chipID string, info registry.OSInfo) registry.DeviceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probes++

	id := chipID
	if id == "" {
		id = "temp-" + ip.String()
	}

	return registry.DeviceEvent{Kind: registry.EventDiscovered, Device: registry.Device{ID: id, IP: ip, Board: info.Board, App: info.App}}
}

func (f *fakeSink) BeginResolving(string, string) {}

func (f *fakeSink) OnFetchResult(id string, _ *cachestore.HDDHandle, _ *hdd.Document, _ bool, fetchErr error) registry.DeviceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fetchErr != nil {
		f.failed++
	} else {
		f.resolved = append(f.resolved, id)
	}

	return registry.DeviceEvent{}
}

type fakeResolver struct {
	result *assetresolver.Result
	err    error
}

func (f *fakeResolver) Resolve(context.Context, string, string, string) (*assetresolver.Result, error) {
	return f.result, f.err
}

func strPtr(s string) *string { return &s }

func TestScanProbesEveryArpResponderAndResolvesHDD(t *testing.T) {
	sweeper := &fakeSweeper{
		ifaces:    []netif.Interface{{Name: "eth0", IP: net.ParseIP("192.168.1.1"), Mask: net.CIDRMask(24, 32)}},
		responded: []netif.Responder{{IP: net.ParseIP("192.168.1.10"), MAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}}},
	}
	prober := &fakeProber{
		osInfo: map[string]*mgmt.OSInfo{
			"192.168.1.10": {HwRev: strPtr("mr_mcxn_t1"), OSName: strPtr("optical-flow")},
		},
		hddInfo: map[string]*mgmt.HDDInfo{
			"192.168.1.10": {URL: "https://example.test/mr_mcxn_t1/optical-flow/optical-flow.hdd", SHA: "deadbeef"},
		},
	}
	sink := &fakeSink{}
	resolver := &fakeResolver{result: &assetresolver.Result{Handle: &cachestore.HDDHandle{SHA: "deadbeef"}}}

	e := NewEngine(Config{}, sweeper, prober, sink, resolver, logger.NewTestLogger())
	e.Scan(context.Background())

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()

		return len(sink.resolved) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScanSkipsHDDResolutionWhenNotSupported(t *testing.T) {
	sweeper := &fakeSweeper{
		ifaces:    []netif.Interface{{Name: "eth0", IP: net.ParseIP("192.168.1.1"), Mask: net.CIDRMask(24, 32)}},
		responded: []netif.Responder{{IP: net.ParseIP("192.168.1.10")}},
	}
	prober := &fakeProber{
		osInfo: map[string]*mgmt.OSInfo{"192.168.1.10": {HwRev: strPtr("board"), OSName: strPtr("app")}},
		// hddInfo map has no entry -> nil, nil: NotSupported mapped to None.
	}
	sink := &fakeSink{}
	resolver := &fakeResolver{}

	e := NewEngine(Config{}, sweeper, prober, sink, resolver, logger.NewTestLogger())
	e.Scan(context.Background())

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()

		return sink.probes == 1
	}, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Empty(t, sink.resolved)
	require.Zero(t, sink.failed)
}

func TestScanCoalescesConcurrentTriggersIntoOneRescan(t *testing.T) {
	sweeper := &fakeSweeper{ifaces: []netif.Interface{{Name: "eth0", IP: net.ParseIP("10.0.0.1"), Mask: net.CIDRMask(24, 32)}}}
	prober := &fakeProber{}
	sink := &fakeSink{}
	resolver := &fakeResolver{}

	e := NewEngine(Config{}, sweeper, prober, sink, resolver, logger.NewTestLogger())

	e.mu.Lock()
	e.scanning = true
	e.mu.Unlock()

	e.Scan(context.Background())
	e.Scan(context.Background())

	e.mu.Lock()
	pending := e.rescanPending
	e.mu.Unlock()

	require.True(t, pending)
}

func TestUpdateSubnetRetargetsSweep(t *testing.T) {
	sweeper := &fakeSweeper{ifaces: []netif.Interface{{Name: "eth0", IP: net.ParseIP("10.0.0.1"), Mask: net.CIDRMask(24, 32)}}}
	prober := &fakeProber{}
	sink := &fakeSink{}
	resolver := &fakeResolver{}

	e := NewEngine(Config{}, sweeper, prober, sink, resolver, logger.NewTestLogger())
	e.UpdateSubnet(context.Background(), net.ParseIP("172.16.0.0"), 16)

	require.Eventually(t, func() bool {
		sweeper.mu.Lock()
		defer sweeper.mu.Unlock()

		return sweeper.sweeps == 1
	}, time.Second, 5*time.Millisecond)

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Equal(t, "172.16.0.0", e.cfg.Subnet.String())
	require.Equal(t, 16, e.cfg.PrefixLen)
}

func TestUpdateSubnetRejectsNilSubnetOrBadPrefix(t *testing.T) {
	sweeper := &fakeSweeper{}
	prober := &fakeProber{}
	sink := &fakeSink{}
	resolver := &fakeResolver{}

	e := NewEngine(Config{}, sweeper, prober, sink, resolver, logger.NewTestLogger())

	require.ErrorIs(t, e.UpdateSubnet(context.Background(), nil, 16), ErrInvalidSubnet)
	require.ErrorIs(t, e.UpdateSubnet(context.Background(), net.ParseIP("172.16.0.0"), 33), ErrInvalidSubnet)
	require.ErrorIs(t, e.UpdateSubnet(context.Background(), net.ParseIP("172.16.0.0"), -1), ErrInvalidSubnet)

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	require.Equal(t, 0, sweeper.sweeps)
}
