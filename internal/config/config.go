// Package config decodes the small configuration surface the demo
// command needs (node id, peer id, simulated-link settings, duty-cycle
// budget, log level). The two core protocol layers have no on-disk state of their
// own; this exists only for cmd/loranode.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Node is this node's runtime configuration.
type Node struct {
	NodeID          uint8         `mapstructure:"node_id"`
	PeerID          uint8         `mapstructure:"peer_id"`
	LogLevel        string        `mapstructure:"log_level"`
	Reliable        bool          `mapstructure:"reliable"`
	LinkMTU         int           `mapstructure:"link_mtu"`
	LossRate        float64       `mapstructure:"loss_rate"`
	DutyCycleBudget float64       `mapstructure:"duty_cycle_budget"`
	AckTimeout      time.Duration `mapstructure:"ack_timeout"`
}

// DefaultNode returns the configuration used when no overrides are given.
func DefaultNode() Node {
	return Node{
		NodeID:     1,
		PeerID:     2,
		LogLevel:   "info",
		Reliable:   false,
		LinkMTU:    255,
		AckTimeout: time.Second,
	}
}

// Decode merges raw (typically parsed from JSON/YAML/TOML by the caller)
// onto DefaultNode() and validates the result.
func Decode(raw map[string]any) (Node, error) {
	cfg := DefaultNode()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Node{}, fmt.Errorf("config: building decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Node{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Node{}, err
	}
	return cfg, nil
}

func (n Node) validate() error {
	if n.NodeID == 0xFF {
		return fmt.Errorf("config: node_id must not be the broadcast address 0xFF")
	}
	if n.LinkMTU < 3 {
		return fmt.Errorf("config: link_mtu must be at least 3 (2-byte network header + 1-byte transport header)")
	}
	return nil
}
