package registry

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

func newTestRegistry() *Registry {
	return New(logger.NewTestLogger(), nil)
}

func TestOnProbeFirstSightingEmitsDiscovered(t *testing.T) {
	r := newTestRegistry()

	ev := r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller"})
	require.Equal(t, EventDiscovered, ev.Kind)
	require.Equal(t, "chip-1", ev.Device.ID)
	require.Equal(t, Discovering, ev.Device.Lifecycle)
	require.Equal(t, ConnectivityUnknown, ev.Device.Connectivity)
}

func TestOnProbeSecondSightingEmitsUpdated(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller"})
	ev := r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller", Version: "2.0"})

	require.Equal(t, EventUpdated, ev.Kind)
	require.Equal(t, "2.0", ev.Device.Version)
}

func TestOnProbeBoardChangeEmitsRebinding(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller"})
	ev := r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "gimbal-controller"})

	require.Equal(t, EventRebinding, ev.Kind)
	require.Equal(t, Discovering, ev.Device.Lifecycle)
}

func TestOnFetchResultBindsDevice(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller"})
	r.BeginResolving("chip-1", "deadbeef")

	dev, ok := r.Get("chip-1")
	require.True(t, ok)
	require.Equal(t, Resolving, dev.Lifecycle)

	handle := &cachestore.HDDHandle{SHA: "deadbeef", Path: "/tmp/x.hdd"}
	ev := r.OnFetchResult("chip-1", handle, nil, false, nil)

	require.Equal(t, EventUpdated, ev.Kind)
	require.Equal(t, Bound, ev.Device.Lifecycle)
	require.Equal(t, ConnectivityOnline, ev.Device.Connectivity)
	require.Equal(t, "deadbeef", ev.Device.HddSHA)
}

func TestOnFetchResultFailureKeepsPriorBinding(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "pixhawk", App: "flight-controller"})
	handle := &cachestore.HDDHandle{SHA: "deadbeef", Path: "/tmp/x.hdd"}
	r.OnFetchResult("chip-1", handle, nil, false, nil)

	r.BeginResolving("chip-1", "feedface")
	ev := r.OnFetchResult("chip-1", nil, nil, false, errFakeFetch)

	require.Equal(t, Bound, ev.Device.Lifecycle)
	require.Equal(t, "deadbeef", ev.Device.HddSHA)
}

func TestOnLivenessTogglesOnlyWhenBound(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "b", App: "a"})
	// Not bound yet: liveness change is a no-op on lifecycle.
	r.OnLiveness("chip-1", false)
	dev, _ := r.Get("chip-1")
	require.Equal(t, Discovering, dev.Lifecycle)

	handle := &cachestore.HDDHandle{SHA: "sha", Path: "/tmp/x.hdd"}
	r.OnFetchResult("chip-1", handle, nil, false, nil)

	r.OnLiveness("chip-1", false)
	dev, _ = r.Get("chip-1")
	require.Equal(t, Offline, dev.Lifecycle)
	require.Equal(t, ConnectivityOffline, dev.Connectivity)

	r.OnLiveness("chip-1", true)
	dev, _ = r.Get("chip-1")
	require.Equal(t, Bound, dev.Lifecycle)
}

func TestDeleteRemovesAndEmits(t *testing.T) {
	r := newTestRegistry()

	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "b", App: "a"})

	sub := r.Subscribe()
	defer sub.Close()

	// Drain the synthetic discovered burst.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sub.Recv(ctx)
	require.NoError(t, err)

	r.Delete("chip-1")

	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, EventRemoved, ev.Kind)

	_, ok := r.Get("chip-1")
	require.False(t, ok)
}

func TestSubscribeDeliversSyntheticBurstThenLiveEvents(t *testing.T) {
	r := newTestRegistry()
	r.OnProbe(net.ParseIP("192.168.1.10"), nil, "chip-1", OSInfo{Board: "b", App: "a"})

	sub := r.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	burst, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, EventDiscovered, burst.Kind)
	require.Equal(t, "chip-1", burst.Device.ID)

	r.OnProbe(net.ParseIP("192.168.1.11"), nil, "chip-2", OSInfo{Board: "b", App: "a"})

	live, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, EventDiscovered, live.Kind)
	require.Equal(t, "chip-2", live.Device.ID)
}

func TestSlowSubscriberGetsLaggedInsteadOfBlockingWriter(t *testing.T) {
	r := newTestRegistry()

	sub := r.Subscribe() // no devices yet, buffer empty

	for i := 0; i < subscriberBufferSize+10; i++ {
		r.OnProbe(net.ParseIP("10.0.0.1"), nil, "", OSInfo{Board: "b", App: "a"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var sawLagged bool

	for i := 0; i < subscriberBufferSize+5; i++ {
		ev, err := sub.Recv(ctx)
		require.NoError(t, err)

		if ev.Kind == EventLagged {
			sawLagged = true
			require.Greater(t, ev.Lagged, 0)

			break
		}
	}

	require.True(t, sawLagged)
	sub.Close()
}

var errFakeFetch = fakeFetchError{}

type fakeFetchError struct{}

func (fakeFetchError) Error() string { return "fake fetch failure" }
