package network_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerbercomm/lora-p2p-go/internal/linkerr"
	"github.com/cerbercomm/lora-p2p-go/internal/linkstats"
	"github.com/cerbercomm/lora-p2p-go/internal/network"
	"github.com/cerbercomm/lora-p2p-go/internal/simlink"
)

func newPair(t *testing.T) (*network.Network, *network.Network) {
	t.Helper()
	la, lb := simlink.NewPair("a", "b", simlink.Config{MTU: 64, RSSI: -42, SNR: 6})
	na := network.New(la)
	nb := network.New(lb)
	require.NoError(t, na.SetNodeID(1))
	require.NoError(t, nb.SetNodeID(2))
	return na, nb
}

func TestMTUIsLinkMTUMinusHeader(t *testing.T) {
	na, _ := newPair(t)
	assert.Equal(t, 62, na.MTU())
}

func TestSendRecvRoundTrip(t *testing.T) {
	na, nb := newPair(t)
	ctx := context.Background()

	payload := []byte("hello node b")
	require.NoError(t, na.Send(ctx, 2, payload))

	meta, got, err := nb.Recv(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	want := network.Incoming{From: 1, To: 2, RSSI: -42, SNR: 6}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("incoming metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcastIsSeenByNonSender(t *testing.T) {
	na, nb := newPair(t)
	ctx := context.Background()

	require.NoError(t, na.Broadcast(ctx, []byte("all")))

	meta, got, err := nb.Recv(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "all", string(got))
	assert.Equal(t, network.BroadcastID, meta.To)
}

func TestRecvDropsFrameNotAddressedToUs(t *testing.T) {
	la, lb := simlink.NewPair("a", "b", simlink.Config{MTU: 64})
	na := network.New(la)
	nb := network.New(lb)
	require.NoError(t, na.SetNodeID(1))
	require.NoError(t, nb.SetNodeID(3)) // node B is id 3, not the send target

	ctx := context.Background()
	require.NoError(t, na.Send(ctx, 9, []byte("not for node b"))) // destination 9

	_, _, err := nb.Recv(ctx, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.Timeout), "expected a timeout because the frame should have been filtered out")
}

func TestSendRejectsOversizedPayload(t *testing.T) {
	na, _ := newPair(t)
	ctx := context.Background()

	oversized := make([]byte, na.MTU()+1)
	err := na.Send(ctx, 2, oversized)
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.InvalidSize))
}

func TestRecvIntoFailsWhenBufferTooSmall(t *testing.T) {
	na, nb := newPair(t)
	ctx := context.Background()

	require.NoError(t, na.Send(ctx, 2, []byte("0123456789")))

	small := make([]byte, 4)
	_, _, err := nb.RecvInto(ctx, time.Second, small)
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.InvalidSize))
}

func TestLinkDeviceReturnsUnderlyingLink(t *testing.T) {
	la, _ := simlink.NewPair("a", "b", simlink.Config{MTU: 64})
	na := network.New(la)
	assert.Equal(t, la, na.LinkDevice())
}

func TestWithStatsObservesAcceptedFrames(t *testing.T) {
	la, lb := simlink.NewPair("a", "b", simlink.Config{MTU: 64, RSSI: -50, SNR: 9})
	win := linkstats.NewWindow(8)
	na := network.New(la)
	nb := network.New(lb, network.WithStats(win))
	require.NoError(t, na.SetNodeID(1))
	require.NoError(t, nb.SetNodeID(2))

	ctx := context.Background()
	require.NoError(t, na.Send(ctx, 2, []byte("x")))
	_, _, err := nb.Recv(ctx, time.Second)
	require.NoError(t, err)

	snap := win.Snapshot()
	assert.Equal(t, 1, snap.Samples)
	assert.Equal(t, -50.0, snap.MeanRSSI)
	assert.Equal(t, 9.0, snap.MeanSNR)
}
