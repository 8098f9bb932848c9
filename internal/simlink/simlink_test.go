package simlink_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerbercomm/lora-p2p-go/internal/linkerr"
	"github.com/cerbercomm/lora-p2p-go/internal/simlink"
)

func TestPairDeliversFrameToPeer(t *testing.T) {
	a, b := simlink.NewPair("a", "b", simlink.Config{MTU: 32, RSSI: -70, SNR: 3})
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("ping")))

	f, err := b.Recv(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(f.Payload))
	assert.Equal(t, -70, f.RSSI)
	assert.Equal(t, 3, f.SNR)
}

func TestRecvTimesOutWithNoTraffic(t *testing.T) {
	a, _ := simlink.NewPair("a", "b", simlink.Config{MTU: 32})
	ctx := context.Background()

	_, err := a.Recv(ctx, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.Timeout))
}

func TestSendRejectsOversizedFrame(t *testing.T) {
	a, _ := simlink.NewPair("a", "b", simlink.Config{MTU: 8})
	ctx := context.Background()

	err := a.Send(ctx, make([]byte, 9))
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.InvalidSize))
}

func TestLossRateDropsFrames(t *testing.T) {
	a, b := simlink.NewPair("a", "b", simlink.Config{MTU: 32, LossRate: 1.0})
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("lost")))

	_, err := b.Recv(ctx, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, linkerr.Is(err, linkerr.Timeout))
}

func TestNameReturnsConfiguredName(t *testing.T) {
	a, b := simlink.NewPair("node-a", "node-b", simlink.Config{MTU: 32})
	assert.Equal(t, "node-a", a.Name())
	assert.Equal(t, "node-b", b.Name())
}
