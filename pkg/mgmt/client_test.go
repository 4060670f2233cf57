package mgmt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

// fakeTransport is the in-memory Transport double SPEC_FULL.md §9 calls for:
// a narrow capability trait with a real and a mock implementation, no
// inheritance hierarchy.
type fakeTransport struct {
	respond func(group uint16, id uint8) ([]byte, error)
	calls   int
}

func (f *fakeTransport) SendAndAwait(
	_ context.Context, _ *net.UDPAddr, _ Op, group uint16, id uint8, _ []byte, _ time.Duration,
) (Frame, error) {
	f.calls++

	body, err := f.respond(group, id)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Group: group, ID: id, Body: body}, nil
}

func (f *fakeTransport) Close() error { return nil }

func cborBody(t *testing.T, v any) []byte {
	t.Helper()

	b, err := cbor.Marshal(v)
	require.NoError(t, err)

	return b
}

func TestClientOSInfoSuccess(t *testing.T) {
	name := "zephyr"
	ft := &fakeTransport{respond: func(uint16, uint8) ([]byte, error) {
		return cborBody(t, OSInfo{OSName: &name}), nil
	}}

	c := NewClient(ft, logger.NewTestLogger())

	info, err := c.OSInfo(context.Background(), &net.UDPAddr{})
	require.NoError(t, err)
	require.NotNil(t, info.OSName)
	require.Equal(t, "zephyr", *info.OSName)
}

func TestClientHDDInfoNotSupportedMapsToNil(t *testing.T) {
	ft := &fakeTransport{respond: func(uint16, uint8) ([]byte, error) {
		return cborBody(t, errorBody{Rc: 1}), nil
	}}

	c := NewClient(ft, logger.NewTestLogger())

	info, err := c.HDDInfo(context.Background(), &net.UDPAddr{})
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestClientHDDInfoGarbageBodyIsProtocolMismatch(t *testing.T) {
	ft := &fakeTransport{respond: func(uint16, uint8) ([]byte, error) {
		return []byte{0xff, 0xff, 0xff}, nil
	}}

	c := NewClient(ft, logger.NewTestLogger())

	_, err := c.HDDInfo(context.Background(), &net.UDPAddr{})
	require.ErrorIs(t, err, ErrProtocolMismatch)
}

func TestClientHDDInfoSuccess(t *testing.T) {
	ft := &fakeTransport{respond: func(uint16, uint8) ([]byte, error) {
		return cborBody(t, HDDInfo{URL: "https://assets/x.hdd", SHA: "deadbeef"}), nil
	}}

	c := NewClient(ft, logger.NewTestLogger())

	info, err := c.HDDInfo(context.Background(), &net.UDPAddr{})
	require.NoError(t, err)
	require.Equal(t, "deadbeef", info.SHA)
}

func TestClientRetriesOnUnreachable(t *testing.T) {
	ft := &fakeTransport{respond: func(uint16, uint8) ([]byte, error) {
		return nil, ErrUnreachable
	}}

	c := NewClient(ft, logger.NewTestLogger())

	_, err := c.OSInfo(context.Background(), &net.UDPAddr{})
	require.ErrorIs(t, err, ErrUnreachable)
	require.Equal(t, defaultRetries+1, ft.calls)
}

func TestParseLegacyOSInfo(t *testing.T) {
	banner := "Zephyr optical-flow abc123 1.0.0 2024-01-01 arm cortex-m33 mr_mcxn_t1/soc/cpu0 Zephyr hwid:deadbeef"

	parsed := ParseLegacyOSInfo(banner)
	require.Equal(t, "optical-flow", parsed.AppName)
	require.Equal(t, "mr_mcxn_t1", parsed.Board)
	require.Equal(t, "deadbeef", parsed.HwID)
}
