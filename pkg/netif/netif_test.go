package netif

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

func TestHostAddressesExcludesNetworkAndBroadcast(t *testing.T) {
	addrs := hostAddresses(net.ParseIP("192.168.1.0"), 24)
	require.Len(t, addrs, 254)
	require.Equal(t, "192.168.1.1", addrs[0].String())
	require.Equal(t, "192.168.1.254", addrs[len(addrs)-1].String())
}

func TestHostAddressesSmallSubnet(t *testing.T) {
	addrs := hostAddresses(net.ParseIP("10.0.0.0"), 30)
	require.Len(t, addrs, 2)
	require.Equal(t, "10.0.0.1", addrs[0].String())
	require.Equal(t, "10.0.0.2", addrs[1].String())
}

func TestHostAddressesSlash31HasNoExclusions(t *testing.T) {
	addrs := hostAddresses(net.ParseIP("10.0.0.0"), 31)
	require.Len(t, addrs, 2)
}

func TestHostAddressesRejectsInvalidPrefix(t *testing.T) {
	require.Nil(t, hostAddresses(net.ParseIP("10.0.0.0"), 33))
	require.Nil(t, hostAddresses(net.ParseIP("10.0.0.0"), -1))
}

func TestInterfacesOnlyReturnsUpNonLoopback(t *testing.T) {
	n := NewNetIf(logger.NewTestLogger())

	ifaces, err := n.Interfaces()
	require.NoError(t, err)

	for _, i := range ifaces {
		require.NotEmpty(t, i.Name)
		require.NotNil(t, i.IP.To4())
	}
}

func TestArpSweepRejectsInterfaceWithoutHardwareAddr(t *testing.T) {
	n := NewNetIf(logger.NewTestLogger())

	_, err := n.ArpSweep(context.Background(), Interface{Name: "lo0"}, net.ParseIP("10.0.0.0"), 24)
	require.ErrorIs(t, err, ErrInterfaceUnavailable)
}

func TestMatchingInterfaceFindsSameSubnet(t *testing.T) {
	ifaces := []Interface{
		{Name: "eth0", IP: net.ParseIP("192.168.1.5"), Mask: net.CIDRMask(24, 32)},
		{Name: "eth1", IP: net.ParseIP("10.0.0.5"), Mask: net.CIDRMask(24, 32)},
	}

	iface, ok := matchingInterface(ifaces, net.ParseIP("192.168.1.200"))
	require.True(t, ok)
	require.Equal(t, "eth0", iface.Name)
}

func TestMatchingInterfaceNoMatch(t *testing.T) {
	ifaces := []Interface{{Name: "eth0", IP: net.ParseIP("192.168.1.5"), Mask: net.CIDRMask(24, 32)}}

	_, ok := matchingInterface(ifaces, net.ParseIP("172.16.0.1"))
	require.False(t, ok)
}

func TestIsAliveReturnsErrorWhenNoInterfaceMatchesTarget(t *testing.T) {
	n := NewNetIf(logger.NewTestLogger())

	_, err := n.IsAlive(context.Background(), net.ParseIP("203.0.113.1"))
	require.ErrorIs(t, err, ErrInterfaceUnavailable)
}
