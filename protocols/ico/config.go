package ico

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
)

// Config holds everything a Sale needs at deployment.
type Config struct {
	// Owner may close the sale, link the token and authorise the total
	Owner common.Address
	// Address of the sale, derived from Owner when empty
	Address common.Address

	// HardCap is the public maximum raise, in wei
	HardCap *uint256.Int
	// Duration is the admission window, starting at deployment
	Duration time.Duration
	// TokenSupply is distributed pro-rata to verified contributions
	TokenSupply uint64

	// Clock returns the current time, time.Now when nil
	Clock func() time.Time

	Engine   *confidential.Engine
	Verifier disclosure.Verifier

	Log zerolog.Logger
}

// DefaultConfig returns a 60 day sale capped at 0.1 ETH.
func DefaultConfig(owner common.Address, engine *confidential.Engine, verifier disclosure.Verifier) Config {
	return Config{
		Owner:       owner,
		HardCap:     uint256.NewInt(params.HardCapWei),
		Duration:    params.SaleDuration,
		TokenSupply: params.TokenSupply,
		Clock:       time.Now,
		Engine:      engine,
		Verifier:    verifier,
		Log:         zerolog.Nop(),
	}
}

// Validate checks that all required fields are set, and fills in the address and clock.
func (c *Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return errors.New("ico: config: owner is the zero address")
	}
	if c.HardCap == nil || c.HardCap.IsZero() {
		return errors.New("ico: config: hard cap must be positive")
	}
	// contributions are 64 bit, and so must be any total the cap admits
	if !c.HardCap.IsUint64() {
		return errors.New("ico: config: hard cap exceeds 64 bits")
	}
	if c.Duration <= 0 {
		return errors.New("ico: config: duration must be positive")
	}
	if c.TokenSupply == 0 {
		return errors.New("ico: config: token supply must be positive")
	}
	if c.Engine == nil {
		return errors.New("ico: config: engine is nil")
	}
	if c.Verifier == nil {
		return errors.New("ico: config: verifier is nil")
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Address == (common.Address{}) {
		c.Address = common.BytesToAddress(hash.New("ico address", c.Owner.Bytes()).Sum())
	}
	return nil
}
