// Package link defines the contract the network layer expects from the
// underlying radio driver. The driver itself — the physical LoRa modem,
// its device-tree wiring, power management — is out of scope for this
// module; this package only specifies the byte-accurate send/receive
// boundary a driver or test double must satisfy.
package link

import (
	"context"
	"time"
)

// Frame is one link-level byte-accurate unit, plus the signal quality the
// driver observed while receiving it.
type Frame struct {
	Payload []byte
	RSSI    int
	SNR     int
}

// Link is the contract a concrete radio driver (or a test double) must
// satisfy. Implementations MUST deliver whole frames or nothing — there is
// no partial-frame recovery above this layer.
type Link interface {
	// MTU returns the maximum single-frame byte size this driver can carry.
	MTU() int

	// Send transmits buf as a single frame. Implementations MUST NOT split
	// buf across multiple physical transmissions.
	Send(ctx context.Context, buf []byte) error

	// Recv blocks for at most timeout waiting for the next frame. A zero
	// timeout means block forever (mirrors the reference's K_FOREVER).
	Recv(ctx context.Context, timeout time.Duration) (Frame, error)
}

// Name returns a human-readable identifier for a Link, used only in log
// fields — implementations may optionally satisfy this for diagnostics.
type Named interface {
	Name() string
}
