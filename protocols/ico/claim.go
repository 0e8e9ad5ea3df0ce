package ico

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

// ClaimTokens mints the caller's share of the token supply, ⌊amount·supply/total⌋, and returns it.
// Both the caller's contribution and the total must have been verified.
func (s *Sale) ClaimTokens(caller common.Address) (claimed uint64, err error) {
	err = s.contract.Exec("claimTokens", caller, func(tx *protocol.Tx) error {
		if !s.finalized(s.cfg.Clock()) {
			return ErrSaleStillRunning
		}
		if s.token == nil {
			return ErrTokenNotLinked
		}
		c, err := s.record(caller)
		if err != nil {
			return err
		}
		if !c.amount.Revealed() || c.amount.Value() == 0 {
			return ErrNotVerified
		}
		if c.claimed {
			return ErrAlreadyClaimed
		}
		if !s.total.Revealed() || s.total.Value() == 0 {
			return ErrTotalNotVerified
		}

		entitlement, err := Entitlement(c.amount.Value(), s.total.Value(), s.cfg.TokenSupply)
		if err != nil {
			return err
		}
		if entitlement > 0 {
			if err = s.token.Mint(s.Address(), caller, entitlement); err != nil {
				return fmt.Errorf("ico: mint: %w", err)
			}
		}
		c.claimed = true
		claimed = entitlement
		tx.Emit(TokensClaimed{Contributor: caller, Amount: entitlement})
		return nil
	})
	return claimed, err
}

// Entitlement returns ⌊amount·supply/total⌋ without intermediate overflow.
func Entitlement(amount, total, supply uint64) (uint64, error) {
	if total == 0 {
		return 0, ErrTotalNotVerified
	}
	if amount > total {
		return 0, ErrInconsistentClearValue
	}
	share, overflow := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(amount),
		uint256.NewInt(supply),
		uint256.NewInt(total),
	)
	if overflow || !share.IsUint64() {
		return 0, ErrInconsistentClearValue
	}
	return share.Uint64(), nil
}

// WithdrawFunds transfers the collected payments to the owner, once the window is over.
func (s *Sale) WithdrawFunds(caller common.Address) (withdrawn *uint256.Int, err error) {
	err = s.contract.Exec("withdrawFunds", caller, func(tx *protocol.Tx) error {
		if caller != s.cfg.Owner {
			return ErrOnlyOwner
		}
		if !s.finalized(s.cfg.Clock()) {
			return ErrSaleStillRunning
		}
		if s.treasury.IsZero() {
			return ErrNothingToWithdraw
		}
		withdrawn = s.treasury.Clone()
		s.treasury.Clear()
		tx.Emit(FundsWithdrawn{To: caller, Amount: withdrawn.Clone()})
		s.contract.Log.Info().Str("amount", withdrawn.Dec()).Msg("funds withdrawn")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return withdrawn, nil
}
