// Package simlink provides an in-memory Link implementation used for
// tests and for the cmd/loranode demo. It is grounded on ooni-netem's
// Link type (link.go): a paired left/right channel forwarding traffic
// with a configurable packet-loss rate drawn from math/rand, generalized
// here from a two-NIC network emulator to a two-radio LoRa link pair,
// with duty-cycle throttling layered on top via golang.org/x/time/rate.
package simlink

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/cerbercomm/lora-p2p-go/internal/link"
	"github.com/cerbercomm/lora-p2p-go/internal/linkerr"
)

// Config tunes a simulated link's behavior.
type Config struct {
	// MTU is the maximum frame size this simulated link reports.
	MTU int

	// LossRate is the fraction (0..1) of frames silently dropped in
	// transit, modeling radio interference.
	LossRate float64

	// RSSI and SNR are the fixed readings attached to every delivered
	// frame arriving on this link (a real modem would vary these per
	// frame; a fixed value is enough to exercise the Network layer's
	// metadata passthrough).
	RSSI int
	SNR  int

	// DutyCycleBudget, if non-zero, is the fraction of time this link is
	// permitted to be transmitting, modeling regional LoRa duty-cycle
	// regulation (e.g. 1% in EU868). 0 disables the limiter.
	DutyCycleBudget float64

	// AirtimePerFrame is the simulated on-air time charged against the
	// duty-cycle budget for each frame sent.
	AirtimePerFrame time.Duration
}

func (c Config) withDefaults() Config {
	if c.MTU == 0 {
		c.MTU = 255
	}
	if c.AirtimePerFrame == 0 {
		c.AirtimePerFrame = 50 * time.Millisecond
	}
	return c
}

// Link is a simulated radio link, one end of a paired loopback channel.
type Link struct {
	name    string
	cfg     Config
	inbox   chan link.Frame
	peer    *Link
	limiter *rate.Limiter
	rnd     *rand.Rand
}

var _ link.Link = (*Link)(nil)

// NewPair builds two Link instances wired to each other: frames sent on a
// are delivered (subject to loss/duty-cycle) to b's Recv, and vice versa.
func NewPair(nameA, nameB string, cfg Config) (a, b *Link) {
	cfg = cfg.withDefaults()

	a = &Link{
		name:  nameA,
		cfg:   cfg,
		inbox: make(chan link.Frame, 64),
		rnd:   rand.New(rand.NewSource(1)),
	}
	b = &Link{
		name:  nameB,
		cfg:   cfg,
		inbox: make(chan link.Frame, 64),
		rnd:   rand.New(rand.NewSource(2)),
	}
	a.peer, b.peer = b, a

	if cfg.DutyCycleBudget > 0 {
		limit := rate.Limit(cfg.DutyCycleBudget / cfg.AirtimePerFrame.Seconds())
		a.limiter = rate.NewLimiter(limit, 1)
		b.limiter = rate.NewLimiter(limit, 1)
	}

	return a, b
}

// Name implements link.Named.
func (l *Link) Name() string { return l.name }

// MTU implements link.Link.
func (l *Link) MTU() int { return l.cfg.MTU }

// Send implements link.Link.
func (l *Link) Send(ctx context.Context, buf []byte) error {
	if len(buf) > l.cfg.MTU {
		return linkerr.New("simlink.Send", linkerr.InvalidSize)
	}

	if l.limiter != nil {
		if err := l.limiter.WaitN(ctx, 1); err != nil {
			return linkerr.Wrap("simlink.Send", linkerr.LinkError, fmt.Errorf("duty cycle budget exceeded: %w", err))
		}
	}

	if l.cfg.LossRate > 0 && l.rnd.Float64() < l.cfg.LossRate {
		return nil // frame "transmitted" but lost in the air
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)

	frame := link.Frame{Payload: cp, RSSI: l.cfg.RSSI, SNR: l.cfg.SNR}

	select {
	case l.peer.inbox <- frame:
		return nil
	case <-ctx.Done():
		return linkerr.Wrap("simlink.Send", linkerr.LinkError, ctx.Err())
	}
}

// Recv implements link.Link.
func (l *Link) Recv(ctx context.Context, timeout time.Duration) (link.Frame, error) {
	if timeout <= 0 {
		select {
		case f := <-l.inbox:
			return f, nil
		case <-ctx.Done():
			return link.Frame{}, linkerr.Wrap("simlink.Recv", linkerr.LinkError, ctx.Err())
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-l.inbox:
		return f, nil
	case <-timer.C:
		return link.Frame{}, linkerr.New("simlink.Recv", linkerr.Timeout)
	case <-ctx.Done():
		return link.Frame{}, linkerr.Wrap("simlink.Recv", linkerr.LinkError, ctx.Err())
	}
}
