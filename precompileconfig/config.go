// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the configuration surface each stateful
// precompile exposes through chain upgrade JSON.
package precompileconfig

// Upgrade carries the activation metadata shared by every precompile config.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the activation timestamp, nil if never scheduled.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal returns true iff both upgrades activate at the same time with the
// same disable flag.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	return u.BlockTimestamp == nil || *u.BlockTimestamp == *other.BlockTimestamp
}

// ChainConfig is the chain-level context a config may validate against.
type ChainConfig interface {
	IsDurango(timestamp uint64) bool
}

// Config is implemented by each precompile's upgrade config.
type Config interface {
	// Key returns the JSON key used to identify this config in upgrade files.
	Key() string
	// Timestamp returns the activation time, nil if not scheduled.
	Timestamp() *uint64
	// IsDisabled returns true if the upgrade deactivates the precompile.
	IsDisabled() bool
	// Equal reports deep equality against another config of the same kind.
	Equal(Config) bool
	// Verify validates the config contents.
	Verify(ChainConfig) error
}
