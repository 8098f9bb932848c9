// Package transport implements a stop-and-wait fragmented datagram
// protocol on top of the network layer: it fragments arbitrary-length
// payloads into network-MTU-sized frames, reassembles them on the
// receiver, and optionally runs a per-fragment ACK handshake.
package transport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cerbercomm/lora-p2p-go/internal/linkerr"
	"github.com/cerbercomm/lora-p2p-go/internal/network"
	"github.com/cerbercomm/lora-p2p-go/pkg/logger"
)

// Frame TYPE values (low 3 bits of the header byte).
const (
	TypeACK        byte = 1
	TypeStandAlone byte = 2
	TypeStarter    byte = 3
	TypeContinue   byte = 4
	TypeFinisher   byte = 5
)

// typeMask isolates the TYPE bits from the header byte.
const typeMask byte = 0b111

// FlagReliable is the RELIABLE bit (bit 3) of the header byte.
const FlagReliable byte = 0b1000

// ackByte is the complete wire representation of an ACK frame: TYPE=ACK,
// no flags, no payload.
const ackByte byte = TypeACK

// Incoming carries the sender/destination/signal metadata for one
// reassembled transport payload. The metadata is taken from the first
// accepted network frame of the transaction; later fragments' metadata is
// discarded.
type Incoming = network.Incoming

// Options tunes protocol timing and strictness. Zero value is not valid;
// use DefaultOptions.
type Options struct {
	// AckTimeout is how long a reliable Send waits for each fragment's
	// ACK before failing. Overridable here to make it unit-testable
	// without real waits.
	AckTimeout time.Duration

	// FragmentGrace is the sleep inserted before sending the next
	// fragment and before emitting an ACK.
	FragmentGrace time.Duration

	// StrictFraming makes Recv surface InvalidFrame and abort the
	// transaction on an illegal TYPE transition (a CONTINUE/FINISHER with
	// no prior STARTER, a STARTER while already collecting, an unknown
	// TYPE) instead of silently discarding and resetting to IDLE.
	StrictFraming bool

	// VerifyAckSender makes a reliable Send reject an ACK whose sender is
	// not the destination node, closing off stray ACKs from an
	// unrelated node. Defaults to true.
	VerifyAckSender bool
}

// DefaultOptions returns the default timing with strict framing and
// ACK sender verification enabled.
func DefaultOptions() Options {
	return Options{
		AckTimeout:      time.Second,
		FragmentGrace:   time.Millisecond,
		StrictFraming:   true,
		VerifyAckSender: true,
	}
}

// Transport is one node's fragmentation/reliability layer instance, bound
// to a single Network. It keeps one reusable scratch buffer shared between
// fragment staging (Send) and ACK emission (Recv), so a Transport instance
// must not run Send and Recv concurrently.
type Transport struct {
	net     *network.Network
	opts    Options
	scratch []byte
}

// New creates a Transport bound to net.
func New(net *network.Network, opts Options) *Transport {
	return &Transport{
		net:     net,
		opts:    opts,
		scratch: make([]byte, net.MTU()),
	}
}

// NetworkDevice returns the underlying network layer instance.
func (t *Transport) NetworkDevice() *network.Network { return t.net }

// FrameCapacity returns the maximum transport payload bytes per single
// link frame — applications that want to avoid fragmentation entirely
// can keep payloads at or under this size.
func (t *Transport) FrameCapacity() int { return t.net.MTU() - 1 }

// Send fragments payload into FrameCapacity()-sized chunks, sends each as
// its own network frame, and — if reliable — waits up to AckTimeout for a
// one-byte ACK after each fragment, failing fast without retrying on
// timeout or framing error. No retransmission is built in.
func (t *Transport) Send(ctx context.Context, to uint8, payload []byte, reliable bool) error {
	capacity := t.FrameCapacity()
	if capacity <= 0 && len(payload) > 0 {
		return linkerr.New("transport.Send", linkerr.InvalidSize)
	}

	txID := uuid.NewString()
	log := logger.WithFields(logger.Fields{"tx": txID, "to": to, "reliable": reliable, "size": len(payload)})
	log.Debug("transport: starting send")

	total := len(payload)
	offset := 0
	first := true

	for {
		end := offset + capacity
		if end > total {
			end = total
		}
		chunk := payload[offset:end]
		last := end == total

		var typ byte
		switch {
		case first && last:
			typ = TypeStandAlone
		case first:
			typ = TypeStarter
		case last:
			typ = TypeFinisher
		default:
			typ = TypeContinue
		}

		header := typ
		if reliable {
			header |= FlagReliable
		}

		frame := t.scratch[:1+len(chunk)]
		frame[0] = header
		copy(frame[1:], chunk)

		if err := t.net.Send(ctx, to, frame); err != nil {
			log.WithFields(logger.Fields{"fragment_type": typ}).Error("transport: fragment send failed")
			return err
		}

		if reliable {
			if err := t.awaitAck(ctx, to, log); err != nil {
				return err
			}
		}

		first = false
		offset = end
		if offset >= total {
			break
		}

		time.Sleep(t.opts.FragmentGrace)
	}

	log.Debug("transport: send complete")
	return nil
}

func (t *Transport) awaitAck(ctx context.Context, to uint8, log *logger.Entry) error {
	meta, ack, err := t.net.Recv(ctx, t.opts.AckTimeout)
	if err != nil {
		log.Error("transport: timed out waiting for ack")
		return err
	}
	if len(ack) != 1 || ack[0]&typeMask != TypeACK {
		log.Error("transport: expected ack, got something else")
		return linkerr.New("transport.Send", linkerr.InvalidFrame)
	}
	if t.opts.VerifyAckSender && meta.From != to {
		log.WithFields(logger.Fields{"ack_from": meta.From}).Error("transport: ack from unexpected sender")
		return linkerr.New("transport.Send", linkerr.InvalidFrame)
	}
	return nil
}

// recvState is the receiver's fragment-assembly state.
type recvState int

const (
	stateIdle recvState = iota
	stateCollecting
)

// Recv blocks indefinitely for the next reassembled transport payload: a
// single STAND_ALONE frame, or a STARTER followed by zero or more
// CONTINUE frames and a FINISHER. If a fragment carries the RELIABLE flag,
// Recv emits a one-byte ACK back to its sender after a short grace period
// before continuing.
func (t *Transport) Recv(ctx context.Context) (Incoming, []byte, error) {
	state := stateIdle
	var meta Incoming
	haveMeta := false
	var buf []byte

	for {
		nmeta, payload, err := t.net.Recv(ctx, 0)
		if err != nil {
			return Incoming{}, nil, err
		}
		if len(payload) < 1 {
			return Incoming{}, nil, linkerr.New("transport.Recv", linkerr.InvalidFrame)
		}

		header := payload[0]
		typ := header & typeMask
		reliable := header&FlagReliable != 0
		data := payload[1:]

		if !haveMeta {
			meta = nmeta
			haveMeta = true
		}

		switch state {
		case stateIdle:
			switch typ {
			case TypeStandAlone:
				buf = append(buf, data...)
				if reliable {
					if err := t.sendAck(ctx, nmeta.From); err != nil {
						return Incoming{}, nil, err
					}
				}
				return meta, buf, nil
			case TypeStarter:
				buf = append(buf, data...)
				state = stateCollecting
				if reliable {
					if err := t.sendAck(ctx, nmeta.From); err != nil {
						return Incoming{}, nil, err
					}
				}
			default:
				if err := t.illegalTransition(typ); err != nil {
					return Incoming{}, nil, err
				}
				buf = nil
				haveMeta = false
			}
		case stateCollecting:
			switch typ {
			case TypeContinue:
				buf = append(buf, data...)
				if reliable {
					if err := t.sendAck(ctx, nmeta.From); err != nil {
						return Incoming{}, nil, err
					}
				}
			case TypeFinisher:
				buf = append(buf, data...)
				if reliable {
					if err := t.sendAck(ctx, nmeta.From); err != nil {
						return Incoming{}, nil, err
					}
				}
				return meta, buf, nil
			default:
				if err := t.illegalTransition(typ); err != nil {
					return Incoming{}, nil, err
				}
				state = stateIdle
				buf = nil
				haveMeta = false
			}
		}
	}
}

func (t *Transport) illegalTransition(typ byte) error {
	if t.opts.StrictFraming {
		return linkerr.New("transport.Recv", linkerr.InvalidFrame)
	}
	logger.WithFields(logger.Fields{"type": typ}).Warn("transport: illegal frame type transition, discarding and resetting to idle")
	return nil
}

func (t *Transport) sendAck(ctx context.Context, to uint8) error {
	time.Sleep(t.opts.FragmentGrace)

	frame := t.scratch[:1]
	frame[0] = ackByte
	if err := t.net.Send(ctx, to, frame); err != nil {
		return linkerr.Wrap("transport.Recv", linkerr.LinkError, err)
	}
	return nil
}
