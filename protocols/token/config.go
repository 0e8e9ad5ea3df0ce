package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
)

// Config holds everything a Token needs at deployment.
type Config struct {
	// Owner may link the ICO, mint and approve the ICO
	Owner common.Address
	// Address of the token, derived from Owner when empty
	Address common.Address

	Name     string
	Symbol   string
	Decimals uint8

	// InitialSupply is minted to Owner at deployment
	InitialSupply uint64

	// Engine stores the encrypted balances
	Engine *confidential.Engine
	// Verifier checks the decryption proofs submitted for balances
	Verifier disclosure.Verifier

	Log zerolog.Logger
}

// DefaultConfig returns the configuration of the PrivateToken sold by the ICO, with no initial supply.
func DefaultConfig(owner common.Address, engine *confidential.Engine, verifier disclosure.Verifier) Config {
	return Config{
		Owner:    owner,
		Name:     params.TokenName,
		Symbol:   params.TokenSymbol,
		Decimals: params.TokenDecimals,
		Engine:   engine,
		Verifier: verifier,
		Log:      zerolog.Nop(),
	}
}

// Validate checks that all required fields are set, and fills in the address.
func (c *Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return errors.New("token: config: owner is the zero address")
	}
	if c.Engine == nil {
		return errors.New("token: config: engine is nil")
	}
	if c.Verifier == nil {
		return errors.New("token: config: verifier is nil")
	}
	if c.Address == (common.Address{}) {
		c.Address = common.BytesToAddress(hash.New("token address", c.Owner.Bytes(), c.Symbol).Sum())
	}
	return nil
}
