// Package network implements the addressing layer of the LoRa P2P stack:
// it owns the node id, prepends/strips the 2-byte [from, to] header, and
// filters incoming frames by destination.
package network

import (
	"context"
	"errors"
	"time"

	"github.com/cerbercomm/lora-p2p-go/internal/link"
	"github.com/cerbercomm/lora-p2p-go/internal/linkerr"
	"github.com/cerbercomm/lora-p2p-go/internal/linkstats"
	"github.com/cerbercomm/lora-p2p-go/pkg/logger"
)

// BroadcastID is the reserved destination address meaning "every node".
const BroadcastID uint8 = 0xFF

// headerLen is the [from, to] header prepended to every network frame.
const headerLen = 2

// Incoming carries the sender/destination/signal metadata for one
// accepted network frame.
type Incoming struct {
	From uint8
	To   uint8
	RSSI int
	SNR  int
}

// Network is one node's addressing layer instance. The zero value is not
// usable; construct with New. A Network instance is not reentrant: callers
// must not run two concurrent Sends (or two concurrent Recvs) on the same
// instance. Send reuses one scratch buffer sized to the link MTU; Recv
// copies each accepted payload into a newly allocated slice.
type Network struct {
	link   link.Link
	nodeID uint8

	sendBuf []byte
	stats   *linkstats.Window
}

// Option configures optional Network behavior.
type Option func(*Network)

// WithStats attaches a rolling RSSI/SNR aggregator, updated on every
// accepted frame — see internal/linkstats.
func WithStats(w *linkstats.Window) Option {
	return func(n *Network) { n.stats = w }
}

// New creates a Network layer instance bound to l. The node id starts at
// zero; callers must call SetNodeID before sending or receiving
// meaningfully.
func New(l link.Link, opts ...Option) *Network {
	n := &Network{
		link:    l,
		sendBuf: make([]byte, l.MTU()),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// LinkDevice returns the underlying link, for diagnostic use.
func (n *Network) LinkDevice() link.Link { return n.link }

// MTU returns the maximum permitted Network payload size: the link MTU
// minus the 2-byte header.
func (n *Network) MTU() int { return n.link.MTU() - headerLen }

// SetNodeID stores id as this node's address. It never fails: BroadcastID
// is stored like any other id, with only a logged warning, so callers
// must not pass it.
func (n *Network) SetNodeID(id uint8) error {
	if id == BroadcastID {
		logger.Warn("network: node id set to broadcast address 0xFF, which is reserved")
	}
	n.nodeID = id
	return nil
}

// NodeID returns this node's configured address.
func (n *Network) NodeID() uint8 { return n.nodeID }

// Send prepends the [from, to] header to payload and hands the composite
// frame to the link driver.
func (n *Network) Send(ctx context.Context, to uint8, payload []byte) error {
	if len(payload) > n.MTU() {
		return linkerr.New("network.Send", linkerr.InvalidSize)
	}

	frame := n.sendBuf[:headerLen+len(payload)]
	frame[0] = n.nodeID
	frame[1] = to
	copy(frame[headerLen:], payload)

	logger.WithFields(logger.Fields{
		"from": n.nodeID, "to": to, "size": len(payload),
	}).Debug("network: sending frame")

	if err := n.link.Send(ctx, frame); err != nil {
		return linkerr.Wrap("network.Send", linkerr.LinkError, err)
	}
	return nil
}

// Broadcast sends payload to every node (to = BroadcastID).
func (n *Network) Broadcast(ctx context.Context, payload []byte) error {
	return n.Send(ctx, BroadcastID, payload)
}

// Recv blocks for at most timeout waiting for a frame addressed to this
// node (or to BroadcastID). Frames addressed to a different node are
// silently dropped and the filter loop immediately retries without
// consuming the caller's timeout budget across attempts.
func (n *Network) Recv(ctx context.Context, timeout time.Duration) (Incoming, []byte, error) {
	for {
		frame, err := n.link.Recv(ctx, timeout)
		if err != nil {
			return Incoming{}, nil, classifyLinkErr("network.Recv", err)
		}

		if len(frame.Payload) < headerLen {
			return Incoming{}, nil, linkerr.New("network.Recv", linkerr.InvalidFrame)
		}

		from, to := frame.Payload[0], frame.Payload[1]
		if to != n.nodeID && to != BroadcastID {
			logger.WithFields(logger.Fields{"to": to, "my_id": n.nodeID}).Debug("network: dropping frame not addressed to us")
			continue
		}

		if n.stats != nil {
			n.stats.Observe(frame.RSSI, frame.SNR)
		}

		payload := make([]byte, len(frame.Payload)-headerLen)
		copy(payload, frame.Payload[headerLen:])

		logger.WithFields(logger.Fields{
			"from": from, "to": to, "size": len(payload),
		}).Debug("network: accepted frame")

		return Incoming{From: from, To: to, RSSI: frame.RSSI, SNR: frame.SNR}, payload, nil
	}
}

// RecvInto behaves like Recv but copies the payload into a caller-owned
// buffer, returning InvalidSize if buf cannot hold it — the byte-buffer
// contract from include/lora_p2p_network_layer.h's lora_p2p_network_recv.
func (n *Network) RecvInto(ctx context.Context, timeout time.Duration, buf []byte) (Incoming, int, error) {
	meta, payload, err := n.Recv(ctx, timeout)
	if err != nil {
		return Incoming{}, 0, err
	}
	if len(payload) > len(buf) {
		return Incoming{}, 0, linkerr.New("network.RecvInto", linkerr.InvalidSize)
	}
	n2 := copy(buf, payload)
	return meta, n2, nil
}

func classifyLinkErr(op string, err error) error {
	if linkerr.Is(err, linkerr.Timeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &linkerr.Error{Op: op, Code: linkerr.Timeout, Err: err}
	}
	return linkerr.Wrap(op, linkerr.LinkError, err)
}
